package coaching

import (
	"context"
	"errors"
	"testing"

	"github.com/c360studio/semcoach/llm/testutil"
	"github.com/c360studio/semcoach/recommend"
	"github.com/c360studio/semcoach/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedConversation(t *testing.T, svc *Service) *storage.Conversation {
	t.Helper()
	ctx := context.Background()
	conv, err := svc.Start(ctx, aoi)
	require.NoError(t, err)
	conv, err = svc.Send(ctx, conv.ID, "会議が長くて作業が進みません")
	require.NoError(t, err)
	return conv
}

func TestGenerateReport(t *testing.T) {
	mock := testutil.Texts(
		"こんにちは",
		"大変ですね",
		"# コーチングレポート\n会議の効率化が課題",
		"```json\n"+`{"issues": [
			{"content": "会議が長い", "category": "Process", "severity": "HIGH"},
			{"content": "  ", "category": "tools"},
			{"content": "ツールが古い", "category": "hardware", "severity": "urgent"}
		]}`+"\n```",
	)
	rec := &stubRecommender{}
	svc, store := newService(mock, WithRecommender(rec))
	ctx := context.Background()

	conv := startedConversation(t, svc)
	report, err := svc.GenerateReport(ctx, conv.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, conv.ID, report.ConversationID)
	assert.Equal(t, aoi.ID, report.UserID)
	assert.Equal(t, "# コーチングレポート\n会議の効率化が課題", report.Content)

	require.Len(t, report.Issues, 2)
	assert.Equal(t, recommend.Issue{Content: "会議が長い", Category: recommend.CategoryProcess, Severity: recommend.SeverityHigh}, report.Issues[0])
	assert.Equal(t, recommend.CategoryOther, report.Issues[1].Category)
	assert.Equal(t, recommend.Severity(""), report.Issues[1].Severity)

	assert.Len(t, report.Recommendations, recommend.Count)
	assert.Equal(t, report.Content, rec.report)
	assert.Equal(t, report.Issues, rec.issues)

	reqs := mock.Requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, 0.7, reqs[2].TemperatureOrDefault())
	assert.Equal(t, 0.3, reqs[3].TemperatureOrDefault())
	assert.True(t, reqs[3].WantsJSON())
	assert.Contains(t, reqs[3].Messages[0].Content, "Aoi: 会議が長くて作業が進みません")
	assert.NotContains(t, reqs[3].Messages[0].Content, "プロフェッショナルコーチ")

	stored, err := store.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Recommendations, recommend.Count)

	issues, err := store.ListIssues(ctx, aoi.ID)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	for _, is := range issues {
		assert.Equal(t, report.ID, is.ReportID)
	}
}

func TestGenerateReport_InvalidIssueJSON(t *testing.T) {
	mock := testutil.Texts("hi", "reply", "report body", "課題はありません")
	svc, store := newService(mock)
	ctx := context.Background()

	conv := startedConversation(t, svc)
	report, err := svc.GenerateReport(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Recommendations)

	issues, err := store.ListIssues(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestGenerateReport_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing conversation", func(t *testing.T) {
		svc, _ := newService(testutil.Texts())
		_, err := svc.GenerateReport(ctx, "conversation:nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("no user turns", func(t *testing.T) {
		svc, _ := newService(testutil.Texts("hi"))
		conv, err := svc.Start(ctx, aoi)
		require.NoError(t, err)
		_, err = svc.GenerateReport(ctx, conv.ID)
		assert.ErrorIs(t, err, ErrNothingToReport)
	})

	t.Run("report completion fails", func(t *testing.T) {
		mock := testutil.Texts("hi", "reply")
		svc, store := newService(mock)
		conv := startedConversation(t, svc)

		mock.Err = errors.New("All AI providers failed")
		_, err := svc.GenerateReport(ctx, conv.ID)
		require.Error(t, err)

		reports, err := store.ListReports(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, reports)
	})
}

func TestReportsAndIssuesListing(t *testing.T) {
	mock := testutil.Texts("hi", "reply", "report", `{"issues": [{"content": "残業が多い", "category": "workload", "severity": "medium"}]}`)
	svc, _ := newService(mock)
	ctx := context.Background()

	conv := startedConversation(t, svc)
	report, err := svc.GenerateReport(ctx, conv.ID)
	require.NoError(t, err)

	reports, err := svc.Reports(ctx, aoi.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, report.ID, reports[0].ID)

	got, err := svc.Report(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "report", got.Content)

	issues, err := svc.Issues(ctx, "")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, recommend.CategoryWorkload, issues[0].Category)

	none, err := svc.Issues(ctx, "other-user")
	require.NoError(t, err)
	assert.Empty(t, none)
}

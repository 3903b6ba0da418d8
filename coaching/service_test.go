package coaching

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/c360studio/semcoach/llm"
	"github.com/c360studio/semcoach/llm/testutil"
	"github.com/c360studio/semcoach/recommend"
	"github.com/c360studio/semcoach/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var aoi = User{ID: "u1", Name: "Aoi"}

func newService(mock *testutil.MockCompleter, opts ...Option) (*Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	opts = append([]Option{WithLogger(quiet)}, opts...)
	return NewService(store, mock, opts...), store
}

func TestStart(t *testing.T) {
	mock := testutil.Texts("こんにちは、Aoiさん。今日はどうでしたか？")
	svc, _ := newService(mock)

	conv, err := svc.Start(context.Background(), aoi)
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, storage.ConversationActive, conv.Status)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, llm.RoleSystem, conv.Messages[0].Role)
	assert.Contains(t, conv.Messages[0].Content, "Aoiさん")
	assert.NotContains(t, conv.Messages[0].Content, "過去のセッション")
	assert.Equal(t, "こんにちは、Aoiさん。今日はどうでしたか？", conv.Messages[1].Content)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 0.7, reqs[0].TemperatureOrDefault())
	assert.False(t, reqs[0].WantsJSON())
}

func TestStart_Validation(t *testing.T) {
	svc, _ := newService(testutil.Texts("hi"))
	_, err := svc.Start(context.Background(), User{Name: "nobody"})
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestStart_IncludesLastThreeReports(t *testing.T) {
	mock := testutil.Texts("hi")
	svc, store := newService(mock)
	ctx := context.Background()

	for _, content := range []string{"report-1", "report-2", "report-3", "report-4"} {
		require.NoError(t, store.CreateReport(ctx, &storage.Report{UserID: aoi.ID, Content: content}))
	}
	require.NoError(t, store.CreateReport(ctx, &storage.Report{UserID: "someone-else", Content: "foreign"}))

	conv, err := svc.Start(ctx, aoi)
	require.NoError(t, err)

	system := conv.Messages[0].Content
	assert.Contains(t, system, "過去のセッション")
	assert.Equal(t, 3, strings.Count(system, "report-"))
	assert.NotContains(t, system, "foreign")
}

func TestStart_ProviderFailure(t *testing.T) {
	agg := &llm.AggregateError{Failures: []llm.ProviderFailure{{Provider: llm.ProviderOpenAI, Err: errors.New("boom")}}}
	svc, store := newService(&testutil.MockCompleter{Err: agg})

	_, err := svc.Start(context.Background(), aoi)
	var got *llm.AggregateError
	assert.ErrorAs(t, err, &got)

	reports, err := store.ListReports(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestSend(t *testing.T) {
	mock := testutil.Texts(
		"こんにちは！",
		"それは大変でしたね。具体的には？",
		"今日の気づきをまとめます。本日の1on1はこれで終了です。",
	)
	svc, _ := newService(mock)
	ctx := context.Background()

	conv, err := svc.Start(ctx, aoi)
	require.NoError(t, err)

	conv, err = svc.Send(ctx, conv.ID, "  会議が長くて疲れました  ")
	require.NoError(t, err)
	assert.Equal(t, storage.ConversationActive, conv.Status)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, "会議が長くて疲れました", conv.Messages[2].Content)

	// the full transcript is sent
	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[1].Messages, 3)

	conv, err = svc.Send(ctx, conv.ID, "ありがとうございました")
	require.NoError(t, err)
	assert.Equal(t, storage.ConversationCompleted, conv.Status)
	assert.NotNil(t, conv.CompletedAt)

	_, err = svc.Send(ctx, conv.ID, "もう一つ")
	assert.ErrorIs(t, err, ErrConversationClosed)
	assert.Equal(t, 3, mock.GetCallCount())
}

func TestSend_Errors(t *testing.T) {
	svc, _ := newService(testutil.Texts("hi"))
	ctx := context.Background()

	_, err := svc.Send(ctx, "conversation:missing", "hello")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Send(ctx, "conversation:missing", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSend_FailureDoesNotPersistTurn(t *testing.T) {
	mock := testutil.Texts("hi")
	svc, store := newService(mock)
	ctx := context.Background()

	conv, err := svc.Start(ctx, aoi)
	require.NoError(t, err)

	mock.Err = &llm.CredentialsMissingError{Keys: []string{"OPENAI_API_KEY"}}
	_, err = svc.Send(ctx, conv.ID, "hello")
	assert.True(t, llm.IsCredentialsMissing(err))

	stored, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)
}

func TestEnd(t *testing.T) {
	svc, _ := newService(testutil.Texts("hi"))
	ctx := context.Background()

	conv, err := svc.Start(ctx, aoi)
	require.NoError(t, err)

	ended, err := svc.End(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.ConversationCompleted, ended.Status)
	require.NotNil(t, ended.CompletedAt)

	again, err := svc.End(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, ended.CompletedAt.Unix(), again.CompletedAt.Unix())

	got, err := svc.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.ConversationCompleted, got.Status)
}

func TestIsClosing(t *testing.T) {
	assert.True(t, isClosing("以上で1on1はこれで終了です"))
	assert.True(t, isClosing("本日の1on1、お疲れさまでした"))
	assert.False(t, isClosing("また明日お話ししましょう"))
}

func TestTranscript(t *testing.T) {
	got := transcript([]llm.Message{
		{Role: llm.RoleSystem, Content: "hidden"},
		{Role: llm.RoleAssistant, Content: "どうでしたか"},
		{Role: llm.RoleUser, Content: "順調でした"},
	}, "Aoi")
	assert.Equal(t, "コーチ: どうでしたか\nAoi: 順調でした", got)
}

type stubRecommender struct {
	report string
	issues []recommend.Issue
}

func (s *stubRecommender) Recommend(_ context.Context, report string, issues []recommend.Issue) recommend.Result {
	s.report = report
	s.issues = issues
	return recommend.Result{Recommendations: recommend.SearchLinks([]string{"会議 効率化"})}
}

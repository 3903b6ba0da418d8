package recommend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/c360studio/semcoach/llm"
	"github.com/c360studio/semcoach/llm/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func assertValidQueries(t *testing.T, queries []string) {
	t.Helper()
	require.Len(t, queries, Count)
	seen := make(map[string]bool)
	for _, q := range queries {
		assert.NotEmpty(t, strings.TrimSpace(q))
		assert.False(t, seen[q], "duplicate query %q", q)
		seen[q] = true
	}
}

func TestPlanner_FallbackUsesIssueText(t *testing.T) {
	p := NewPlanner(nil, WithPlannerLogger(quiet))

	plan := p.Plan(context.Background(), "today I struggled with team communication", []Issue{
		{Content: "communication breakdown with team", Severity: SeverityHigh},
	})

	assert.True(t, plan.Fallback)
	assertValidQueries(t, plan.Queries)

	found := false
	for _, q := range plan.Queries {
		if strings.Contains(q, "communication breakdown with team") {
			found = true
		}
	}
	assert.True(t, found, "expected a query built from the issue, got %v", plan.Queries)
	assert.Equal(t, "communication breakdown with team 解決方法", plan.Queries[0])
}

func TestPlanner_AlwaysFiveQueries(t *testing.T) {
	many := make([]Issue, 0, 12)
	for _, c := range []string{"会議が長い", "レビュー待ちが多い", "仕様が曖昧", "残業が続いている", "引き継ぎ漏れ", "ツールが多すぎる"} {
		many = append(many, Issue{Content: c, Severity: SeverityMedium}, Issue{Content: c, Severity: SeverityLow})
	}

	tests := []struct {
		name   string
		report string
		issues []Issue
	}{
		{"empty inputs", "", nil},
		{"whitespace only", "   \n\t", []Issue{{Content: "  "}}},
		{"report only english", "Spent the morning debugging deployment pipelines and flaky integration tests", nil},
		{"report only japanese", "今日はチームの進捗会議で議論が長引き、設計レビューの時間が取れませんでした。", nil},
		{"many duplicate issues", strings.Repeat("長い日報です。", 1000), many},
		{"single short issue", "", []Issue{{Content: "遅刻"}}},
	}

	p := NewPlanner(nil, WithPlannerLogger(quiet))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := p.Plan(context.Background(), tt.report, tt.issues)
			assertValidQueries(t, plan.Queries)
		})
	}
}

func TestPlanner_SeverityOrder(t *testing.T) {
	p := NewPlanner(nil, WithPlannerLogger(quiet))

	plan := p.Plan(context.Background(), "", []Issue{
		{Content: "minor formatting", Severity: SeverityLow},
		{Content: "production outage", Severity: SeverityCritical},
		{Content: "slow reviews", Severity: SeverityHigh},
	})

	assert.Equal(t, []string{
		"production outage 解決方法",
		"slow reviews 解決方法",
		"minor formatting 解決方法",
		"production outage ベストプラクティス",
		"slow reviews ベストプラクティス",
	}, plan.Queries)
}

func TestPlanner_FillerWhenNoSignal(t *testing.T) {
	p := NewPlanner(nil, WithPlannerLogger(quiet))
	plan := p.Plan(context.Background(), "", nil)
	assert.Equal(t, fillerQueries[:Count], plan.Queries)
}

func TestPlanner_AIPath(t *testing.T) {
	t.Run("takes first five unique queries", func(t *testing.T) {
		mock := testutil.Texts("```json\n{\"queries\": [\"a\", \"b\", \"a\", \" c \", \"d\", \"e\", \"f\"], \"focus\": \"チーム運営\"}\n```")
		p := NewPlanner(mock, WithPlannerLogger(quiet))

		plan := p.Plan(context.Background(), "report", nil)
		assert.False(t, plan.Fallback)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, plan.Queries)
		assert.Equal(t, "チーム運営", plan.Focus)

		reqs := mock.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, llm.FormatJSON, reqs[0].ResponseFormat)
		require.NotNil(t, reqs[0].Temperature)
		assert.Equal(t, 0.3, *reqs[0].Temperature)
	})

	t.Run("short AI list is padded", func(t *testing.T) {
		mock := testutil.Texts(`{"queries": ["1on1 進め方", "1on1 進め方"]}`)
		p := NewPlanner(mock, WithPlannerLogger(quiet))

		plan := p.Plan(context.Background(), "", []Issue{{Content: "面談が形骸化", Severity: SeverityHigh}})
		assertValidQueries(t, plan.Queries)
		assert.Equal(t, "1on1 進め方", plan.Queries[0])
		assert.Equal(t, "面談が形骸化 解決方法", plan.Queries[1])
	})

	t.Run("report is truncated in prompt", func(t *testing.T) {
		mock := testutil.Texts(`{"queries": ["q"]}`)
		p := NewPlanner(mock, WithPlannerLogger(quiet))

		p.Plan(context.Background(), strings.Repeat("あ", 2500)+"末尾マーカー", nil)
		prompt := mock.Requests()[0].Messages[0].Content
		assert.NotContains(t, prompt, "末尾マーカー")
		assert.Contains(t, prompt, strings.Repeat("あ", 2000))
	})
}

func TestPlanner_AIFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		mock *testutil.MockCompleter
	}{
		{"provider failure", &testutil.MockCompleter{Err: errors.New("All AI providers failed")}},
		{"not JSON", testutil.Texts("すみません、わかりません")},
		{"empty text", testutil.Texts("")},
		{"empty queries", testutil.Texts(`{"queries": []}`)},
		{"wrong shape", testutil.Texts(`{"queries": "one string"}`)},
		{"blank queries", testutil.Texts(`{"queries": ["", "  "]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlanner(tt.mock, WithPlannerLogger(quiet))
			plan := p.Plan(context.Background(), "", []Issue{{Content: "進捗共有が遅い", Severity: SeverityHigh}})
			assert.True(t, plan.Fallback)
			assertValidQueries(t, plan.Queries)
			assert.Equal(t, "進捗共有が遅い 解決方法", plan.Queries[0])
		})
	}
}

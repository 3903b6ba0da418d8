package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/c360studio/semcoach/llm"
	"github.com/c360studio/semcoach/model"
)

// issueQueryRunes bounds an issue's text when it is used as a query.
const issueQueryRunes = 60

// issueTemplates are applied to issues in severity order.
var issueTemplates = []string{"%s 解決方法", "%s ベストプラクティス", "%s 改善 事例"}

// keywordTemplate is applied to keywords taken from the report.
const keywordTemplate = "%s 改善方法"

// fillerQueries pad the query set when the inputs carry too little signal.
var fillerQueries = []string{
	"日報 改善",
	"課題解決",
	"スキルアップ",
	"チームワーク 向上",
	"コミュニケーション 改善",
	"タイムマネジメント",
	"業務効率化",
	"リーダーシップ 基礎",
}

// Plan is the outcome of query planning.
type Plan struct {
	Queries []string `json:"queries"`
	Focus   string   `json:"focus,omitempty"`
	// Fallback is true when the deterministic path produced the queries.
	Fallback bool `json:"fallback"`
}

// Planner generates search queries for a report.
type Planner struct {
	completer Completer
	keywords  *KeywordExtractor
	logger    *slog.Logger
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithPlannerKeywords sets the keyword extractor.
func WithPlannerKeywords(k *KeywordExtractor) PlannerOption {
	return func(p *Planner) {
		p.keywords = k
	}
}

// WithPlannerLogger sets the logger.
func WithPlannerLogger(l *slog.Logger) PlannerOption {
	return func(p *Planner) {
		p.logger = l
	}
}

// NewPlanner creates a planner. A nil completer always uses the deterministic path.
func NewPlanner(completer Completer, opts ...PlannerOption) *Planner {
	p := &Planner{
		completer: completer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.keywords == nil {
		p.keywords = DefaultKeywordExtractor()
	}
	return p
}

type planResponse struct {
	Queries []string `json:"queries"`
	Focus   string   `json:"focus"`
}

// Plan returns exactly Count unique queries. It never fails: any completion
// or parse failure falls through to the deterministic path.
func (p *Planner) Plan(ctx context.Context, report string, issues []Issue) Plan {
	if p.completer != nil {
		if plan, ok := p.planWithAI(ctx, report, issues); ok {
			return plan
		}
	}
	return Plan{Queries: p.fallbackQueries(report, issues), Fallback: true}
}

func (p *Planner) planWithAI(ctx context.Context, report string, issues []Issue) (Plan, bool) {
	req := llm.NewRequest(model.CapabilityPlanning, llm.Message{
		Role:    llm.RoleUser,
		Content: planningPrompt(report, issues),
	})
	res, err := p.completer.Complete(ctx, req)
	if err != nil {
		p.logger.Info("Query planning fell back to templates", "reason", "completion failed", "error", err)
		return Plan{}, false
	}

	var resp planResponse
	if err := llm.DecodeJSON(res.Text, &resp); err != nil {
		p.logger.Info("Query planning fell back to templates", "reason", "invalid JSON", "error", err)
		return Plan{}, false
	}

	queries := uniqueQueries(resp.Queries)
	if len(queries) == 0 {
		p.logger.Info("Query planning fell back to templates", "reason", "no queries")
		return Plan{}, false
	}
	if len(queries) > Count {
		queries = queries[:Count]
	}
	if len(queries) < Count {
		queries = padQueries(queries, p.fallbackQueries(report, issues))
	}

	return Plan{Queries: queries, Focus: strings.TrimSpace(resp.Focus)}, true
}

// fallbackQueries builds queries from issue templates, then report keywords,
// then the filler pool.
func (p *Planner) fallbackQueries(report string, issues []Issue) []string {
	ranked := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if normalizeQuery(is.Content) != "" {
			ranked = append(ranked, is)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Severity.Rank() > ranked[j].Severity.Rank()
	})

	var candidates []string
	for _, tmpl := range issueTemplates {
		for _, is := range ranked {
			text := truncateRunes(normalizeQuery(is.Content), issueQueryRunes)
			candidates = append(candidates, fmt.Sprintf(tmpl, text))
		}
	}
	queries := padQueries(nil, candidates)

	if len(queries) < Count {
		var fromReport []string
		for _, kw := range p.keywords.Keywords(truncateRunes(report, reportPrefixRunes), Count) {
			fromReport = append(fromReport, fmt.Sprintf(keywordTemplate, kw))
		}
		queries = padQueries(queries, fromReport)
	}

	return padQueries(queries, fillerQueries)
}

// padQueries appends unseen entries of extra to queries until Count is reached.
func padQueries(queries, extra []string) []string {
	seen := make(map[string]bool, len(queries))
	for _, q := range queries {
		seen[q] = true
	}
	for _, q := range extra {
		if len(queries) >= Count {
			break
		}
		q = normalizeQuery(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
	}
	return queries
}

// uniqueQueries normalizes and collapses exact duplicates, keeping order.
func uniqueQueries(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = normalizeQuery(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

// normalizeQuery trims and collapses internal whitespace.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

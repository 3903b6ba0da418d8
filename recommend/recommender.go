package recommend

import (
	"context"
	"log/slog"
)

// Searcher runs every query against every configured source.
// It never fails; unavailable sources contribute nothing.
type Searcher interface {
	Search(ctx context.Context, queries []string) []Candidate
}

// Recommender runs the full pipeline: plan, search, rank, balance.
type Recommender struct {
	planner  *Planner
	searcher Searcher
	ranker   *Ranker
	logger   *slog.Logger
}

// NewRecommender wires the pipeline stages. searcher may be nil, in which
// case only search links are recommended.
func NewRecommender(planner *Planner, searcher Searcher, ranker *Ranker, logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{
		planner:  planner,
		searcher: searcher,
		ranker:   ranker,
		logger:   logger,
	}
}

// Result is a recommendation run.
type Result struct {
	Plan            Plan        `json:"plan"`
	Recommendations []Candidate `json:"recommendations"`
	// SearchResults is the number of unique candidates the sources returned.
	SearchResults int `json:"search_results"`
}

// Recommend returns exactly Count recommendations for a report.
func (r *Recommender) Recommend(ctx context.Context, report string, issues []Issue) Result {
	plan := r.planner.Plan(ctx, report, issues)

	var found []Candidate
	if r.searcher != nil {
		found = Dedupe(r.searcher.Search(ctx, plan.Queries))
	}

	ranked := r.ranker.Rank(ctx, report, issues, found)

	// Search links guarantee the count when sources are scarce. Balance only
	// reaches them after the primary sources run out.
	pool := append(ranked, SearchLinks(plan.Queries)...)
	recs := Balance(pool)

	r.logger.Debug("Recommendations built",
		"queries", len(plan.Queries),
		"plan_fallback", plan.Fallback,
		"search_results", len(found),
		"ranked", len(ranked),
		"returned", len(recs))

	return Result{Plan: plan, Recommendations: recs, SearchResults: len(found)}
}

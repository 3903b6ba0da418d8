package recommend

import (
	"context"
	"sync"
	"testing"

	"github.com/c360studio/semcoach/llm/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	mu      sync.Mutex
	results []Candidate
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, queries []string) []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, queries...)
	return s.results
}

func TestRecommender_NoSearchResultsGivesSearchLinks(t *testing.T) {
	searcher := &stubSearcher{}
	r := NewRecommender(NewPlanner(nil), searcher, NewRanker(nil), quiet)

	res := r.Recommend(context.Background(), "今日は特に問題なし", nil)
	require.Len(t, res.Recommendations, Count)
	assertDistinctURLs(t, res.Recommendations)
	assert.Len(t, searcher.queries, Count)
	assert.Equal(t, 0, res.SearchResults)

	titles := make(map[string]bool)
	for i, rec := range res.Recommendations {
		assert.Equal(t, SourceSearch, rec.Source)
		assert.Equal(t, "検索候補: "+res.Plan.Queries[i], rec.Title)
		assert.Contains(t, rec.URL, "https://www.google.com/search?q=")
		titles[rec.Title] = true
	}
	assert.Len(t, titles, Count)
}

func TestRecommender_NilSearcher(t *testing.T) {
	r := NewRecommender(NewPlanner(nil), nil, NewRanker(nil), quiet)
	res := r.Recommend(context.Background(), "", nil)
	assert.Len(t, res.Recommendations, Count)
}

func TestRecommender_ScarceResultsPaddedWithLinks(t *testing.T) {
	searcher := &stubSearcher{results: []Candidate{
		cand(SourceBook, 1, "book"),
		cand(SourceBook, 1, "book again"),
		cand(SourceVideo, 1, "video"),
	}}
	r := NewRecommender(NewPlanner(nil), searcher, NewRanker(nil), quiet)

	res := r.Recommend(context.Background(), "", []Issue{{Content: "会議が長い"}})
	require.Len(t, res.Recommendations, Count)
	assert.Equal(t, 2, res.SearchResults)
	assert.Equal(t, []Source{SourceVideo, SourceBook, SourceSearch, SourceSearch, SourceSearch}, sources(res.Recommendations))
}

func TestRecommender_AIEndToEnd(t *testing.T) {
	var results []Candidate
	for i := 0; i < 4; i++ {
		results = append(results, cand(SourceVideo, i, "video"), cand(SourceArticle, i, "article"), cand(SourceBook, i, "book"))
	}
	searcher := &stubSearcher{results: results}
	mock := testutil.Texts(
		`{"queries": ["q1", "q2", "q3", "q4", "q5"], "focus": "f"}`,
		`{"selections": [{"index": 2, "reason": "best"}, {"index": 1, "reason": "next"}]}`,
	)
	r := NewRecommender(NewPlanner(mock), searcher, NewRanker(mock), quiet)

	res := r.Recommend(context.Background(), "report", nil)
	require.Len(t, res.Recommendations, Count)
	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5"}, searcher.queries)
	assert.Equal(t, 2, mock.GetCallCount())
	assertDistinctURLs(t, res.Recommendations)
	assert.Equal(t, results[0].URL, res.Recommendations[0].URL)
	assert.Equal(t, "next", res.Recommendations[0].Reason)
}

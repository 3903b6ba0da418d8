package recommend

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/c360studio/semcoach/llm"
	"github.com/c360studio/semcoach/model"
)

const (
	// maxPromptCandidates bounds how many candidates are shown to the model.
	maxPromptCandidates = 30

	// maxSelections bounds how many candidates the ranker hands on.
	maxSelections = 15

	// urgentIssueBonus is added once per high or critical issue a candidate matches.
	urgentIssueBonus = 3

	// minTokenRunes is the shortest issue token used for matching. Japanese
	// words are denser, so two-rune kanji/kana tokens also count.
	minTokenRunes         = 3
	minJapaneseTokenRunes = 2
)

// Ranker selects the most relevant candidates for a report.
type Ranker struct {
	completer Completer
	keywords  *KeywordExtractor
	logger    *slog.Logger
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithRankerKeywords sets the keyword extractor used to tokenize issues.
func WithRankerKeywords(k *KeywordExtractor) RankerOption {
	return func(r *Ranker) {
		r.keywords = k
	}
}

// WithRankerLogger sets the logger.
func WithRankerLogger(l *slog.Logger) RankerOption {
	return func(r *Ranker) {
		r.logger = l
	}
}

// NewRanker creates a ranker. A nil completer always uses the keyword heuristic.
func NewRanker(completer Completer, opts ...RankerOption) *Ranker {
	r := &Ranker{
		completer: completer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.keywords == nil {
		r.keywords = DefaultKeywordExtractor()
	}
	return r
}

type rankResponse struct {
	Selections []struct {
		Index       int    `json:"index"`
		Reason      string `json:"reason"`
		TargetIssue string `json:"targetIssue"`
	} `json:"selections"`
}

// Rank deduplicates candidates and returns the relevant subset in preference
// order. Pools of Count or fewer are returned unranked. The model's
// selection is preferred; the keyword heuristic is used only when the model
// fails or returns nothing usable. Rank never fails.
func (r *Ranker) Rank(ctx context.Context, report string, issues []Issue, candidates []Candidate) []Candidate {
	pool := Dedupe(candidates)
	if len(pool) <= Count {
		return pool
	}

	if r.completer != nil {
		if selected, ok := r.rankWithAI(ctx, report, issues, pool); ok {
			return selected
		}
	}
	return r.rankByKeywords(issues, pool)
}

func (r *Ranker) rankWithAI(ctx context.Context, report string, issues []Issue, pool []Candidate) ([]Candidate, bool) {
	shown := pool
	if len(shown) > maxPromptCandidates {
		shown = shown[:maxPromptCandidates]
	}

	req := llm.NewRequest(model.CapabilityRanking, llm.Message{
		Role:    llm.RoleUser,
		Content: rankingPrompt(report, issues, shown),
	})
	res, err := r.completer.Complete(ctx, req)
	if err != nil {
		r.logger.Info("Ranking fell back to keyword heuristic", "reason", "completion failed", "error", err)
		return nil, false
	}

	var resp rankResponse
	if err := llm.DecodeJSON(res.Text, &resp); err != nil {
		r.logger.Info("Ranking fell back to keyword heuristic", "reason", "invalid JSON", "error", err)
		return nil, false
	}

	picked := make(map[int]bool, len(resp.Selections))
	selected := make([]Candidate, 0, maxSelections)
	for _, sel := range resp.Selections {
		idx := sel.Index - 1
		if idx < 0 || idx >= len(shown) || picked[idx] {
			continue
		}
		picked[idx] = true
		c := shown[idx]
		if reason := strings.TrimSpace(sel.Reason); reason != "" {
			c.Reason = reason
		}
		c.TargetIssue = strings.TrimSpace(sel.TargetIssue)
		selected = append(selected, c)
		if len(selected) == maxSelections {
			break
		}
	}
	if len(selected) == 0 {
		r.logger.Info("Ranking fell back to keyword heuristic", "reason", "no valid selections")
		return nil, false
	}

	// Backfill from the rest of the pool in original order.
	for i := 0; i < len(pool) && len(selected) < Count; i++ {
		if i < len(shown) && picked[i] {
			continue
		}
		selected = append(selected, pool[i])
	}
	return selected, true
}

type scored struct {
	candidate Candidate
	score     int
}

// rankByKeywords scores candidates by literal, case-insensitive occurrences
// of issue tokens in title and description.
func (r *Ranker) rankByKeywords(issues []Issue, pool []Candidate) []Candidate {
	issueTokens := make([][]string, len(issues))
	for i, is := range issues {
		issueTokens[i] = r.issueTokens(is.Content)
	}

	results := make([]scored, len(pool))
	for i, c := range pool {
		haystack := strings.ToLower(c.Title + " " + c.Description)
		score := 0
		for j, tokens := range issueTokens {
			matched := false
			for _, tok := range tokens {
				if n := strings.Count(haystack, tok); n > 0 {
					score += n
					matched = true
				}
			}
			if matched && issues[j].Severity.Urgent() {
				score += urgentIssueBonus
			}
		}
		results[i] = scored{candidate: c, score: score}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > maxSelections {
		results = results[:maxSelections]
	}

	out := make([]Candidate, len(results))
	for i, s := range results {
		out[i] = s.candidate
	}
	return out
}

// issueTokens splits issue text into lowercase matching tokens. Japanese text
// has no spaces, so its nouns come from the keyword extractor.
func (r *Ranker) issueTokens(text string) []string {
	seen := make(map[string]bool)
	var tokens []string
	add := func(tok string) {
		tok = strings.ToLower(tok)
		if seen[tok] || !longEnough(tok) {
			return
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}

	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	}) {
		add(f)
	}
	if containsJapanese(text) {
		for _, kw := range r.keywords.Keywords(text, 20) {
			add(kw)
		}
	}
	return tokens
}

func longEnough(tok string) bool {
	n := len([]rune(tok))
	if containsJapanese(tok) {
		return n >= minJapaneseTokenRunes
	}
	return n >= minTokenRunes
}

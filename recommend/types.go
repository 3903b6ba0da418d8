// Package recommend turns a coaching report and its extracted issues into
// exactly five deduplicated, source-balanced learning recommendations.
package recommend

import (
	"context"
	"strings"

	"github.com/c360studio/semcoach/llm"
	"github.com/google/uuid"
)

// Count is the number of recommendations returned for a report.
const Count = 5

// Severity grades how urgent an issue is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity normalizes s, returning "" for unknown values.
func ParseSeverity(s string) Severity {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return v
	}
	return ""
}

// Rank orders severities; unset sorts last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Urgent reports whether s is high or critical.
func (s Severity) Urgent() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Category groups issues by organizational area.
type Category string

const (
	CategoryPersonnel     Category = "personnel"
	CategoryProcess       Category = "process"
	CategoryTools         Category = "tools"
	CategoryCommunication Category = "communication"
	CategoryWorkload      Category = "workload"
	CategorySkills        Category = "skills"
	CategoryOther         Category = "other"
)

// ParseCategory normalizes s. Unknown non-empty values become CategoryOther.
func ParseCategory(s string) Category {
	v := Category(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case "":
		return ""
	case CategoryPersonnel, CategoryProcess, CategoryTools, CategoryCommunication,
		CategoryWorkload, CategorySkills, CategoryOther:
		return v
	}
	return CategoryOther
}

// Issue is an extracted problem statement.
type Issue struct {
	Content  string   `json:"content"`
	Category Category `json:"category,omitempty"`
	Severity Severity `json:"severity,omitempty"`
}

// Source is the kind of result a candidate came from.
type Source string

const (
	SourceVideo   Source = "video"
	SourceArticle Source = "article"
	SourceBook    Source = "book"
	// SourceSearch marks synthesized search-engine links.
	SourceSearch Source = "search"
)

// Candidate is a search result, and once selected, a recommendation.
// URL is its identity.
type Candidate struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      Source `json:"source"`
	Description string `json:"description,omitempty"`
	Reason      string `json:"reason,omitempty"`
	TargetIssue string `json:"target_issue,omitempty"`
}

// CandidateID derives a stable id from a url.
func CandidateID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// Completer obtains a chat completion. *llm.Router satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Result, error)
}

// Dedupe drops candidates with a blank url and every repeat of a url,
// keeping the first occurrence.
func Dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := strings.TrimSpace(c.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

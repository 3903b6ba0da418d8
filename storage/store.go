package storage

import (
	"context"
	"sort"
)

// Store is the persistence surface used by the coaching service.
// Create methods assign the ID and timestamps.
type Store interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	UpdateConversation(ctx context.Context, c *Conversation) error

	CreateReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	// ListReports returns reports newest first. An empty userID lists every report.
	ListReports(ctx context.Context, userID string) ([]*Report, error)

	CreateIssues(ctx context.Context, issues []*IssueRecord) error
	// ListIssues returns issues newest first. An empty userID lists every issue.
	ListIssues(ctx context.Context, userID string) ([]*IssueRecord, error)
}

func sortReports(reports []*Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}

func sortIssues(issues []*IssueRecord) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})
}

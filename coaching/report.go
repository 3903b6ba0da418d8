package coaching

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/semcoach/llm"
	"github.com/c360studio/semcoach/model"
	"github.com/c360studio/semcoach/recommend"
	"github.com/c360studio/semcoach/storage"
)

type issueResponse struct {
	Issues []struct {
		Content  string `json:"content"`
		Category string `json:"category"`
		Severity string `json:"severity"`
	} `json:"issues"`
}

// GenerateReport writes the report for a conversation, extracts its issues
// and attaches recommendations. Only the report completion can fail it:
// unparseable issues yield none.
func (s *Service) GenerateReport(ctx context.Context, conversationID string) (*storage.Report, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !hasUserTurn(conv.Messages) {
		return nil, ErrNothingToReport
	}
	name := conv.UserName
	if name == "" {
		name = conv.UserID
	}

	content, err := s.complete(ctx, model.CapabilityConversation, []llm.Message{{
		Role:    llm.RoleUser,
		Content: reportPrompt(conv.Messages, name, s.now().Format("2006-01-02")),
	}})
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	issues := s.extractIssues(ctx, conv.Messages, name)

	report := &storage.Report{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		Content:        content,
		Issues:         issues,
	}
	if s.recommender != nil {
		report.Recommendations = s.recommender.Recommend(ctx, content, issues).Recommendations
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	if len(issues) > 0 {
		records := make([]*storage.IssueRecord, len(issues))
		for i, is := range issues {
			records[i] = &storage.IssueRecord{ReportID: report.ID, UserID: conv.UserID, Issue: is}
		}
		if err := s.store.CreateIssues(ctx, records); err != nil {
			return nil, fmt.Errorf("save issues: %w", err)
		}
	}

	s.logger.Info("Report generated",
		"report_id", report.ID,
		"conversation_id", conv.ID,
		"issues", len(issues),
		"recommendations", len(report.Recommendations))
	return report, nil
}

// extractIssues never fails; any completion or parse error yields no issues.
func (s *Service) extractIssues(ctx context.Context, messages []llm.Message, userName string) []recommend.Issue {
	text, err := s.complete(ctx, model.CapabilityExtraction, []llm.Message{{
		Role:    llm.RoleUser,
		Content: issueExtractionPrompt(messages, userName),
	}})
	if err != nil {
		s.logger.Warn("Issue extraction failed", "error", err)
		return nil
	}

	var resp issueResponse
	if err := llm.DecodeJSON(text, &resp); err != nil {
		s.logger.Warn("Issue extraction returned invalid JSON", "error", err)
		return nil
	}

	issues := make([]recommend.Issue, 0, len(resp.Issues))
	for _, raw := range resp.Issues {
		content := strings.TrimSpace(raw.Content)
		if content == "" {
			continue
		}
		category := recommend.ParseCategory(raw.Category)
		if category == "" {
			category = recommend.CategoryOther
		}
		issues = append(issues, recommend.Issue{
			Content:  content,
			Category: category,
			Severity: recommend.ParseSeverity(raw.Severity),
		})
	}
	return issues
}

func hasUserTurn(messages []llm.Message) bool {
	for _, m := range messages {
		if m.Role == llm.RoleUser && strings.TrimSpace(m.Content) != "" {
			return true
		}
	}
	return false
}

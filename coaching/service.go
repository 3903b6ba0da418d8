// Package coaching runs daily 1on1 coaching conversations and turns them
// into reports with extracted issues and learning recommendations.
package coaching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/semcoach/llm"
	"github.com/c360studio/semcoach/model"
	"github.com/c360studio/semcoach/recommend"
	"github.com/c360studio/semcoach/storage"
)

const (
	// previousSessions is how many earlier reports seed a new session.
	previousSessions = 3

	// previousSummaryRunes bounds each earlier report in the system prompt.
	previousSummaryRunes = 400
)

// User identifies the person being coached.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Recommender produces recommendations for a report. *recommend.Recommender
// satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, report string, issues []recommend.Issue) recommend.Result
}

// Service is the coaching workflow.
type Service struct {
	store       storage.Store
	completer   recommend.Completer
	recommender Recommender
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecommender attaches recommendations to generated reports.
func WithRecommender(r Recommender) Option {
	return func(s *Service) {
		s.recommender = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a coaching service.
func NewService(store storage.Store, completer recommend.Completer, opts ...Option) *Service {
	s := &Service{
		store:     store,
		completer: completer,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a conversation and returns it with the coach's greeting as
// the last message.
func (s *Service) Start(ctx context.Context, user User) (*storage.Conversation, error) {
	if strings.TrimSpace(user.ID) == "" {
		return nil, ErrMissingUser
	}
	name := displayName(user)

	previous, err := s.previousSummaries(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	conv := &storage.Conversation{
		UserID:   user.ID,
		UserName: name,
		Messages: []llm.Message{{Role: llm.RoleSystem, Content: coachingSystemPrompt(name, previous)}},
	}

	reply, err := s.complete(ctx, model.CapabilityConversation, conv.Messages)
	if err != nil {
		return nil, fmt.Errorf("start conversation: %w", err)
	}
	conv.Messages = append(conv.Messages, llm.Message{Role: llm.RoleAssistant, Content: reply})

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	s.logger.Info("Coaching session started", "conversation_id", conv.ID, "user_id", user.ID, "previous_sessions", len(previous))
	return conv, nil
}

// Send appends a user message, obtains the coach's reply and returns the
// updated conversation. The conversation completes when the coach closes
// the session.
func (s *Service) Send(ctx context.Context, conversationID, text string) (*storage.Conversation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == storage.ConversationCompleted {
		return nil, ErrConversationClosed
	}

	messages := append(conv.Messages, llm.Message{Role: llm.RoleUser, Content: text})
	reply, err := s.complete(ctx, model.CapabilityConversation, messages)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	conv.Messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: reply})

	if isClosing(reply) {
		s.markCompleted(conv)
		s.logger.Info("Coaching session closed by coach", "conversation_id", conv.ID)
	}

	if err := s.store.UpdateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	return conv, nil
}

// End completes a conversation. Ending a completed conversation is a no-op.
func (s *Service) End(ctx context.Context, conversationID string) (*storage.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == storage.ConversationCompleted {
		return conv, nil
	}

	s.markCompleted(conv)
	if err := s.store.UpdateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	return conv, nil
}

// Conversation returns a stored conversation.
func (s *Service) Conversation(ctx context.Context, id string) (*storage.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

// Report returns a stored report.
func (s *Service) Report(ctx context.Context, id string) (*storage.Report, error) {
	return s.store.GetReport(ctx, id)
}

// Reports lists reports newest first, optionally for one user.
func (s *Service) Reports(ctx context.Context, userID string) ([]*storage.Report, error) {
	return s.store.ListReports(ctx, userID)
}

// Issues lists extracted issues newest first, optionally for one user.
func (s *Service) Issues(ctx context.Context, userID string) ([]*storage.IssueRecord, error) {
	return s.store.ListIssues(ctx, userID)
}

func (s *Service) markCompleted(conv *storage.Conversation) {
	now := s.now()
	conv.Status = storage.ConversationCompleted
	conv.CompletedAt = &now
}

func (s *Service) complete(ctx context.Context, capability model.Capability, messages []llm.Message) (string, error) {
	res, err := s.completer.Complete(ctx, llm.NewRequest(capability, messages...))
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// previousSummaries returns up to previousSessions earlier reports, oldest first.
func (s *Service) previousSummaries(ctx context.Context, userID string) ([]string, error) {
	reports, err := s.store.ListReports(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load previous reports: %w", err)
	}
	if len(reports) > previousSessions {
		reports = reports[:previousSessions]
	}

	out := make([]string, 0, len(reports))
	for i := len(reports) - 1; i >= 0; i-- {
		r := reports[i]
		summary := []rune(strings.TrimSpace(r.Content))
		if len(summary) > previousSummaryRunes {
			summary = summary[:previousSummaryRunes]
		}
		out = append(out, fmt.Sprintf("- %s: %s", r.CreatedAt.Format("2006-01-02"), string(summary)))
	}
	return out, nil
}

func displayName(u User) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.ID
}

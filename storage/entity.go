// Package storage persists coaching conversations, reports and the issues
// extracted from them.
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semcoach/llm"
	"github.com/c360studio/semcoach/recommend"
	"github.com/google/uuid"
)

// EntityType represents the type of a stored entity.
type EntityType string

const (
	EntityTypeConversation EntityType = "conversation"
	EntityTypeReport       EntityType = "report"
	EntityTypeIssue        EntityType = "issue"
)

// EntityID represents a typed entity identifier.
type EntityID struct {
	Type EntityType
	ID   string
}

// String returns the string representation of the entity ID.
func (e EntityID) String() string {
	return fmt.Sprintf("%s:%s", e.Type, e.ID)
}

// ParseEntityID parses an entity ID string into its components.
func ParseEntityID(s string) (EntityID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return EntityID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	entityType := EntityType(parts[0])
	switch entityType {
	case EntityTypeConversation, EntityTypeReport, EntityTypeIssue:
		return EntityID{Type: entityType, ID: parts[1]}, nil
	default:
		return EntityID{}, fmt.Errorf("%w: unknown entity type %q", ErrInvalidID, parts[0])
	}
}

// parseTyped parses s and checks it names an entity of type t.
func parseTyped(s string, t EntityType) (EntityID, error) {
	id, err := ParseEntityID(s)
	if err != nil {
		return EntityID{}, err
	}
	if id.Type != t {
		return EntityID{}, fmt.Errorf("%w: expected %s, got %s", ErrInvalidID, t, id.Type)
	}
	return id, nil
}

// NewEntityID generates a new unique entity ID for the given type.
func NewEntityID(t EntityType) EntityID {
	return EntityID{
		Type: t,
		ID:   uuid.New().String(),
	}
}

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
)

// Conversation is one coaching session.
type Conversation struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	UserName    string             `json:"user_name,omitempty"`
	Messages    []llm.Message      `json:"messages"`
	Status      ConversationStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

// Report is the written summary of a conversation.
type Report struct {
	ID              string                `json:"id"`
	ConversationID  string                `json:"conversation_id"`
	UserID          string                `json:"user_id"`
	Content         string                `json:"content"`
	Issues          []recommend.Issue     `json:"issues"`
	Recommendations []recommend.Candidate `json:"recommendations"`
	CreatedAt       time.Time             `json:"created_at"`
}

// IssueRecord is an issue extracted from a report.
type IssueRecord struct {
	ID       string `json:"id"`
	ReportID string `json:"report_id"`
	UserID   string `json:"user_id"`
	recommend.Issue
	CreatedAt time.Time `json:"created_at"`
}

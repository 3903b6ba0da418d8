package storage

import (
	"errors"
	"testing"
)

func TestEntityID(t *testing.T) {
	t.Run("NewEntityID generates valid ID", func(t *testing.T) {
		id := NewEntityID(EntityTypeReport)
		if id.Type != EntityTypeReport {
			t.Errorf("expected type %s, got %s", EntityTypeReport, id.Type)
		}
		if id.ID == "" {
			t.Error("expected non-empty ID")
		}
	})

	t.Run("String returns correct format", func(t *testing.T) {
		id := EntityID{Type: EntityTypeConversation, ID: "abc123"}
		expected := "conversation:abc123"
		if id.String() != expected {
			t.Errorf("expected %s, got %s", expected, id.String())
		}
	})

	t.Run("ParseEntityID handles all types", func(t *testing.T) {
		tests := []struct {
			input    string
			expected EntityType
		}{
			{"conversation:123", EntityTypeConversation},
			{"report:456", EntityTypeReport},
			{"issue:789", EntityTypeIssue},
		}

		for _, tc := range tests {
			id, err := ParseEntityID(tc.input)
			if err != nil {
				t.Errorf("unexpected error for %s: %v", tc.input, err)
				continue
			}
			if id.Type != tc.expected {
				t.Errorf("for %s: expected type %s, got %s", tc.input, tc.expected, id.Type)
			}
		}
	})

	t.Run("ParseEntityID rejects invalid IDs", func(t *testing.T) {
		for _, input := range []string{"", "noseparator", "proposal:1", "report:"} {
			if _, err := ParseEntityID(input); !errors.Is(err, ErrInvalidID) {
				t.Errorf("ParseEntityID(%q) error = %v, want ErrInvalidID", input, err)
			}
		}
	})

	t.Run("parseTyped checks the type", func(t *testing.T) {
		if _, err := parseTyped("report:1", EntityTypeConversation); !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected ErrInvalidID, got %v", err)
		}
		if _, err := parseTyped("report:1", EntityTypeReport); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

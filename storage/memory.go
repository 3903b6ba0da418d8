package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps entities in process memory. Values are copied on the
// way in and out, so callers never share state with the store.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]byte
	reports       map[string][]byte
	issues        map[string][]byte
	now           func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string][]byte),
		reports:       make(map[string][]byte),
		issues:        make(map[string][]byte),
		now:           time.Now,
	}
}

func (m *MemoryStore) CreateConversation(_ context.Context, c *Conversation) error {
	c.ID = NewEntityID(EntityTypeConversation).String()
	c.CreatedAt = m.now()
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = ConversationActive
	}
	return m.put(m.conversations, c.ID, c)
}

func (m *MemoryStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	if _, err := parseTyped(id, EntityTypeConversation); err != nil {
		return nil, err
	}
	var c Conversation
	if err := m.get(m.conversations, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *MemoryStore) UpdateConversation(_ context.Context, c *Conversation) error {
	if _, err := parseTyped(c.ID, EntityTypeConversation); err != nil {
		return err
	}
	m.mu.RLock()
	_, ok := m.conversations[c.ID]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	c.UpdatedAt = m.now()
	return m.put(m.conversations, c.ID, c)
}

func (m *MemoryStore) CreateReport(_ context.Context, r *Report) error {
	r.ID = NewEntityID(EntityTypeReport).String()
	r.CreatedAt = m.now()
	return m.put(m.reports, r.ID, r)
}

func (m *MemoryStore) GetReport(_ context.Context, id string) (*Report, error) {
	if _, err := parseTyped(id, EntityTypeReport); err != nil {
		return nil, err
	}
	var r Report
	if err := m.get(m.reports, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (m *MemoryStore) ListReports(_ context.Context, userID string) ([]*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reports := make([]*Report, 0, len(m.reports))
	for _, data := range m.reports {
		var r Report
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if userID == "" || r.UserID == userID {
			reports = append(reports, &r)
		}
	}
	sortReports(reports)
	return reports, nil
}

func (m *MemoryStore) CreateIssues(_ context.Context, issues []*IssueRecord) error {
	now := m.now()
	for _, is := range issues {
		is.ID = NewEntityID(EntityTypeIssue).String()
		is.CreatedAt = now
		if err := m.put(m.issues, is.ID, is); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) ListIssues(_ context.Context, userID string) ([]*IssueRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	issues := make([]*IssueRecord, 0, len(m.issues))
	for _, data := range m.issues {
		var is IssueRecord
		if err := json.Unmarshal(data, &is); err != nil {
			continue
		}
		if userID == "" || is.UserID == userID {
			issues = append(issues, &is)
		}
	}
	sortIssues(issues)
	return issues, nil
}

func (m *MemoryStore) put(bucket map[string][]byte, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", id, err)
	}
	m.mu.Lock()
	bucket[id] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) get(bucket map[string][]byte, id string, v any) error {
	m.mu.RLock()
	data, ok := bucket[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", id, err)
	}
	return nil
}

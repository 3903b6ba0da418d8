package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucketPrefix prefixes every KV bucket name.
const DefaultBucketPrefix = "SEMCOACH"

// Bucket name suffixes for each entity type.
const (
	bucketConversations = "CONVERSATIONS"
	bucketReports       = "REPORTS"
	bucketIssues        = "ISSUES"
)

// KVStore provides entity storage backed by NATS JetStream KV. Keys are the
// uuid part of the entity ID.
type KVStore struct {
	conversations jetstream.KeyValue
	reports       jetstream.KeyValue
	issues        jetstream.KeyValue
}

// NewKVStore creates a store with the given JetStream context.
// It creates the necessary KV buckets if they don't exist.
func NewKVStore(ctx context.Context, js jetstream.JetStream, prefix string) (*KVStore, error) {
	if prefix == "" {
		prefix = DefaultBucketPrefix
	}

	conversations, err := getOrCreateBucket(ctx, js, prefix+"_"+bucketConversations)
	if err != nil {
		return nil, fmt.Errorf("create conversations bucket: %w", err)
	}

	reports, err := getOrCreateBucket(ctx, js, prefix+"_"+bucketReports)
	if err != nil {
		return nil, fmt.Errorf("create reports bucket: %w", err)
	}

	issues, err := getOrCreateBucket(ctx, js, prefix+"_"+bucketIssues)
	if err != nil {
		return nil, fmt.Errorf("create issues bucket: %w", err)
	}

	return &KVStore{
		conversations: conversations,
		reports:       reports,
		issues:        issues,
	}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semcoach %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

func (s *KVStore) CreateConversation(ctx context.Context, c *Conversation) error {
	id := NewEntityID(EntityTypeConversation)
	c.ID = id.String()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = ConversationActive
	}
	return create(ctx, s.conversations, id, c)
}

func (s *KVStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	eid, err := parseTyped(id, EntityTypeConversation)
	if err != nil {
		return nil, err
	}
	var c Conversation
	if err := get(ctx, s.conversations, eid, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateConversation overwrites an existing conversation.
func (s *KVStore) UpdateConversation(ctx context.Context, c *Conversation) error {
	eid, err := parseTyped(c.ID, EntityTypeConversation)
	if err != nil {
		return err
	}
	if _, err := s.conversations.Get(ctx, eid.ID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get conversation: %w", err)
	}

	c.UpdatedAt = time.Now()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	if _, err := s.conversations.Put(ctx, eid.ID, data); err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	return nil
}

func (s *KVStore) CreateReport(ctx context.Context, r *Report) error {
	id := NewEntityID(EntityTypeReport)
	r.ID = id.String()
	r.CreatedAt = time.Now()
	return create(ctx, s.reports, id, r)
}

func (s *KVStore) GetReport(ctx context.Context, id string) (*Report, error) {
	eid, err := parseTyped(id, EntityTypeReport)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := get(ctx, s.reports, eid, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *KVStore) ListReports(ctx context.Context, userID string) ([]*Report, error) {
	reports, err := list(ctx, s.reports, func(r *Report) bool {
		return userID == "" || r.UserID == userID
	})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	sortReports(reports)
	return reports, nil
}

func (s *KVStore) CreateIssues(ctx context.Context, issues []*IssueRecord) error {
	now := time.Now()
	for _, is := range issues {
		id := NewEntityID(EntityTypeIssue)
		is.ID = id.String()
		is.CreatedAt = now
		if err := create(ctx, s.issues, id, is); err != nil {
			return err
		}
	}
	return nil
}

func (s *KVStore) ListIssues(ctx context.Context, userID string) ([]*IssueRecord, error) {
	issues, err := list(ctx, s.issues, func(is *IssueRecord) bool {
		return userID == "" || is.UserID == userID
	})
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	sortIssues(issues)
	return issues, nil
}

func create(ctx context.Context, kv jetstream.KeyValue, id EntityID, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", id.Type, err)
	}
	if _, err := kv.Create(ctx, id.ID, data); err != nil {
		return fmt.Errorf("store %s: %w", id.Type, err)
	}
	return nil
}

func get(ctx context.Context, kv jetstream.KeyValue, id EntityID, v any) error {
	entry, err := kv.Get(ctx, id.ID)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s: %w", id.Type, err)
	}
	if err := json.Unmarshal(entry.Value(), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", id.Type, err)
	}
	return nil
}

// list loads every entry in kv that decodes into T and passes keep.
func list[T any](ctx context.Context, kv jetstream.KeyValue, keep func(*T) bool) ([]*T, error) {
	keys, err := kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]*T, 0, len(keys))
	for _, key := range keys {
		entry, err := kv.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var v T
		if err := json.Unmarshal(entry.Value(), &v); err != nil {
			continue
		}
		if keep(&v) {
			out = append(out, &v)
		}
	}
	return out, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

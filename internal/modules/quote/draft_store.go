// README: Draft stores: Redis (shared between API instances) and in-memory (single process, tests).
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"convoyage/internal/types"
)

const (
	draftKeyPrefix  = "quote:draft:%s"
	DefaultDraftTTL = 24 * time.Hour
	maxTxRetries    = 5
)

func draftKey(id types.ID) string {
	return fmt.Sprintf(draftKeyPrefix, string(id))
}

// RedisDraftStore keeps drafts as JSON with a sliding TTL. Updates use
// WATCH/MULTI so concurrent writers never lose each other's changes.
type RedisDraftStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &RedisDraftStore{redis: client, ttl: ttl}
}

func (s *RedisDraftStore) Create(ctx context.Context, d *Draft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	ok, err := s.redis.SetNX(ctx, draftKey(d.ID), b, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *RedisDraftStore) Get(ctx context.Context, id types.ID) (*Draft, error) {
	raw, err := s.redis.Get(ctx, draftKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", id, err)
	}
	return &d, nil
}

func (s *RedisDraftStore) Update(ctx context.Context, id types.ID, fn func(d *Draft) error) (*Draft, error) {
	key := draftKey(id)
	var out *Draft

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var d Draft
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("decode draft %s: %w", id, err)
		}
		if err := fn(&d); err != nil {
			return err
		}
		d.Version++
		b, err := json.Marshal(&d)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = &d
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrConflict
}

// MemoryDraftStore is a process-local DraftStore.
type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[types.ID]*Draft
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[types.ID]*Draft)}
}

func (s *MemoryDraftStore) Create(_ context.Context, d *Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[d.ID]; ok {
		return ErrConflict
	}
	s.drafts[d.ID] = d.clone()
	return nil
}

func (s *MemoryDraftStore) Get(_ context.Context, id types.ID) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.clone(), nil
}

func (s *MemoryDraftStore) Update(_ context.Context, id types.ID, fn func(d *Draft) error) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cur.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Version++
	s.drafts[id] = next
	return next.clone(), nil
}

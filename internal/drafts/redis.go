package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"sharepath/internal/models"
)

const (
	keyPrefix         = "sharepath:draft:"
	maxUpdateAttempts = 5
)

// ErrConflict is returned when a draft kept changing underneath an update
var ErrConflict = errors.New("draft was modified concurrently")

// RedisStore keeps drafts as JSON strings with a sliding TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store on an existing client
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func draftKey(id string) string {
	return keyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, draft *models.TripDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	ok, err := s.client.SetNX(ctx, draftKey(draft.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	if !ok {
		return fmt.Errorf("draft %s already exists", draft.ID)
	}

	log.Printf("[DRAFTS] Created draft: id=%s activities=%d", draft.ID, len(draft.Activities))
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.TripDraft, error) {
	data, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return decodeDraft(data)
}

// Update runs fn inside a WATCH transaction and retries when another writer
// touched the draft first
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*models.TripDraft) error) (*models.TripDraft, error) {
	key := draftKey(id)
	var updated *models.TripDraft

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load draft: %w", err)
		}

		draft, err := decodeDraft(data)
		if err != nil {
			return err
		}
		if err := fn(draft); err != nil {
			return err
		}
		draft.ID = id

		encoded, err := json.Marshal(draft)
		if err != nil {
			return fmt.Errorf("failed to encode draft: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = draft
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			log.Printf("[DRAFTS] Update conflict: id=%s attempt=%d", id, attempt+1)
			continue
		}
		return nil, err
	}
	return nil, ErrConflict
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, draftKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	log.Printf("[DRAFTS] Deleted draft: id=%s", id)
	return nil
}

// Ping checks the connection to redis
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeDraft(data []byte) (*models.TripDraft, error) {
	var draft models.TripDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &draft, nil
}

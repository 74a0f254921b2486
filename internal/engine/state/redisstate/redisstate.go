package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/parley/internal/engine/state"
)

// Store persists session state as a JSON blob in Redis so that several
// instances can share one conversation. Entries expire after TTL of
// inactivity.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return fmt.Sprintf("interview:%s:state", sessionID)
}

func (s *Store) Get(ctx context.Context, sessionID string) (*state.SessionState, error) {
	raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if err == redis.Nil {
		return state.New(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get state: %w", err)
	}
	var st state.SessionState
	if err := json.Unmarshal(raw, &st); err != nil {
		// A corrupt blob should not wedge the session.
		return state.New(sessionID), nil
	}
	st.SessionID = sessionID
	return st.Clone(), nil
}

func (s *Store) Save(ctx context.Context, st *state.SessionState) error {
	c := st.Clone()
	c.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.client.Set(ctx, key(c.SessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set state: %w", err)
	}
	return nil
}

func (s *Store) Reset(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del state: %w", err)
	}
	return nil
}

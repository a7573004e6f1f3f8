package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no record or draft exists for a client.
	ErrNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Store is a Redis-backed record and draft store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewStore returns a Store. ttl bounds the lifetime of saved records.
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "af"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Store) recordKey(clientID string) string {
	return s.prefix + ":sess:" + clientID
}

func (s *Store) draftKey(clientID string) string {
	return s.prefix + ":draft:" + clientID
}

// Save writes r under r.ClientID, stamping CreatedAt and ExpiresAt.
func (s *Store) Save(ctx context.Context, r *Record) error {
	if r == nil || r.ClientID == "" {
		return errors.New("session record requires a client id")
	}

	now := s.now()
	r.CreatedAt = now.Unix()
	r.ExpiresAt = now.Add(s.ttl).Unix()

	blob, err := Encode(r)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.recordKey(r.ClientID), blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the record for clientID.
func (s *Store) Get(ctx context.Context, clientID string) (*Record, error) {
	blob, err := s.redis.Get(ctx, s.recordKey(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	r, err := Decode(blob)
	if err != nil {
		return nil, err
	}
	if r.ExpiresAt > 0 && s.now().Unix() >= r.ExpiresAt {
		return nil, ErrNotFound
	}
	return r, nil
}

// Delete removes the record for clientID. Deleting a missing record is not
// an error.
func (s *Store) Delete(ctx context.Context, clientID string) error {
	if err := s.redis.Del(ctx, s.recordKey(clientID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SaveDraft stores v as JSON for clientID until ttl elapses.
func (s *Store) SaveDraft(ctx context.Context, clientID string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.draftKey(clientID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoadDraft decodes the draft for clientID into v.
func (s *Store) LoadDraft(ctx context.Context, clientID string, v any) error {
	data, err := s.redis.Get(ctx, s.draftKey(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return json.Unmarshal(data, v)
}

// DeleteDraft removes the draft for clientID.
func (s *Store) DeleteDraft(ctx context.Context, clientID string) error {
	if err := s.redis.Del(ctx, s.draftKey(clientID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

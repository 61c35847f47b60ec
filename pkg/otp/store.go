package otp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisAttemptRetries bounds optimistic retries when another request
// touches the same key between WATCH and EXEC
const redisAttemptRetries = 10

// Entry carries its own expiry so stores can reject stale codes on read
type Entry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	Channel   Channel   `json:"channel"`
}

func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

type Store interface {
	Save(ctx context.Context, key string, entry Entry) error
	// Get returns false for missing and expired entries
	Get(ctx context.Context, key string) (Entry, bool, error)
	Delete(ctx context.Context, key string) error
	// Attempt checks code against the entry and consumes it or counts the
	// failure in one step. It returns nil, ErrCodeExpired, ErrCodeInvalid or
	// ErrTooManyAttempts.
	Attempt(ctx context.Context, key, code string, maxAttempts int, now time.Time) error
}

type verdict int

const (
	verdictAccept verdict = iota
	verdictRetry
	verdictExhausted
)

// judge decides the outcome of one guess, bumping entry.Attempts on a miss
func judge(entry *Entry, code string, maxAttempts int) verdict {
	if entry.Attempts >= maxAttempts {
		return verdictExhausted
	}
	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(strings.TrimSpace(code))) == 1 {
		return verdictAccept
	}
	entry.Attempts++
	if entry.Attempts >= maxAttempts {
		return verdictExhausted
	}
	return verdictRetry
}

func (v verdict) err() error {
	switch v {
	case verdictAccept:
		return nil
	case verdictRetry:
		return ErrCodeInvalid
	default:
		return ErrTooManyAttempts
	}
}

// MemoryStore keeps codes in process. Expired entries are rejected on read;
// Sweep reclaims the memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]Entry),
		now:     now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if entry.Expired(s.now()) {
		delete(s.entries, key)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Attempt(ctx context.Context, key, code string, maxAttempts int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return ErrCodeExpired
	}
	if entry.Expired(now) {
		delete(s.entries, key)
		return ErrCodeExpired
	}

	v := judge(&entry, code, maxAttempts)
	if v == verdictRetry {
		s.entries[key] = entry
	} else {
		delete(s.entries, key)
	}
	return v.err()
}

// Sweep removes expired entries and returns how many were dropped
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RedisStore keeps codes in Redis with a TTL matching the entry expiry
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "otp:",
		now:    time.Now,
	}
}

func (s *RedisStore) Save(ctx context.Context, key string, entry Entry) error {
	ttl := entry.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal otp entry: %w", err)
	}
	return s.client.Set(ctx, s.prefix+key, data, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("failed to unmarshal otp entry: %w", err)
	}
	if entry.Expired(s.now()) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Attempt runs under WATCH so a concurrent guess or consume aborts the
// transaction and is retried against the fresh entry
func (s *RedisStore) Attempt(ctx context.Context, key, code string, maxAttempts int, now time.Time) error {
	redisKey := s.prefix + key

	var result error
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, redisKey).Bytes()
		if errors.Is(err, redis.Nil) {
			result = ErrCodeExpired
			return nil
		}
		if err != nil {
			return err
		}

		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			return fmt.Errorf("failed to unmarshal otp entry: %w", err)
		}
		if entry.Expired(now) {
			result = ErrCodeExpired
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, redisKey)
				return nil
			})
			return err
		}

		v := judge(&entry, code, maxAttempts)
		var updated []byte
		if v == verdictRetry {
			if updated, err = json.Marshal(entry); err != nil {
				return fmt.Errorf("failed to marshal otp entry: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if v == verdictRetry {
				pipe.Set(ctx, redisKey, updated, redis.KeepTTL)
			} else {
				pipe.Del(ctx, redisKey)
			}
			return nil
		})
		if err == nil {
			result = v.err()
		}
		return err
	}

	for i := 0; i < redisAttemptRetries; i++ {
		err := s.client.Watch(ctx, txf, redisKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}
		return result
	}
	return fmt.Errorf("otp attempt for %s: %w", key, redis.TxFailedErr)
}

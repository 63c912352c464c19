package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

const minSlidingTTL = time.Second

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store. Each session lives under
// "<prefix>:s:<sessionID>" and is indexed in the set "<prefix>:u:<subjectID>".
type Store struct {
	redis  redis.UniversalClient
	prefix string
	idle   time.Duration
}

// NewStore creates a session [Store] backed by rdb. A positive idle
// enables sliding expiration: a session unused for idle expires early,
// and every Get renews the window. ExpiresAt is always the hard limit.
func NewStore(rdb redis.UniversalClient, prefix string, idle time.Duration) *Store {
	return &Store{
		redis:  rdb,
		prefix: prefix,
		idle:   idle,
	}
}

func (s *Store) keyTTL(remaining time.Duration) time.Duration {
	ttl := remaining
	if s.idle > 0 && s.idle < ttl {
		ttl = s.idle
	}
	if ttl < minSlidingTTL {
		ttl = minSlidingTTL
	}
	return ttl
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) subjectKey(subjectID string) string {
	return s.prefix + ":u:" + subjectID
}

// Save persists sess until its ExpiresAt, or the idle window if shorter.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session ID required")
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	remaining := time.Until(time.Unix(sess.ExpiresAt, 0))
	if remaining <= 0 {
		return errors.New("session already expired")
	}
	ttl := s.keyTTL(remaining)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, ttl)
		pipe.SAdd(ctx, s.subjectKey(sess.SubjectID), sess.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session and, with sliding expiration, renews its key TTL
// without extending it past the session's ExpiresAt.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.GetReadOnly(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.idle > 0 {
		next := s.keyTTL(time.Until(time.Unix(sess.ExpiresAt, 0)))
		if err := s.redis.Expire(ctx, s.key(sessionID), next).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return sess, nil
}

// GetReadOnly loads a session without touching its TTL.
func (s *Store) GetReadOnly(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}

	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	if time.Now().Unix() >= sess.ExpiresAt {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session and its index entry. Deleting a missing
// session is not an error. It reports whether a session was removed.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		if delErr := s.redis.Del(ctx, s.key(sessionID)).Err(); delErr != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return true, nil
	}

	n, err := deleteSessionLua.Run(ctx, s.redis,
		[]string{s.key(sessionID), s.subjectKey(sess.SubjectID)},
		sessionID,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// DeleteAllForSubject removes every session indexed for subjectID and
// returns the removed session IDs.
//
// This is not atomic: a session saved between the index read and the
// delete survives until the next call or its own expiry.
func (s *Store) DeleteAllForSubject(ctx context.Context, subjectID string) ([]string, error) {
	subjectKey := s.subjectKey(subjectID)

	ids, err := s.redis.SMembers(ctx, subjectKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		existsCmds[i] = pipe.Exists(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	removed := make([]string, 0, len(ids))
	for i, cmd := range existsCmds {
		if cmd.Val() == 1 {
			removed = append(removed, ids[i])
		}
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.Del(ctx, subjectKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return removed, nil
}

// ActiveSessionIDs returns the session IDs indexed for subjectID. Entries
// may include sessions that expired since they were indexed.
func (s *Store) ActiveSessionIDs(ctx context.Context, subjectID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

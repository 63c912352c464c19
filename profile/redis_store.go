package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldRole        = "role"
	fieldDisplayName = "display_name"
	fieldCreatedAt   = "created_at"
)

// createProfileScript writes the hash only when the key does not exist.
const createProfileScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "role", ARGV[1], "display_name", ARGV[2], "created_at", ARGV[3])
return 1
`

var createProfileLua = redis.NewScript(createProfileScript)

// RedisStore keeps profiles in hashes under "<prefix>:p:<subjectID>".
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore using rdb.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{redis: rdb, prefix: prefix}
}

func (s *RedisStore) key(subjectID string) string {
	return s.prefix + ":p:" + subjectID
}

// Get loads the record for subjectID.
func (s *RedisStore) Get(ctx context.Context, subjectID string) (Record, error) {
	if subjectID == "" {
		return Record{}, ErrNotFound
	}

	fields, err := s.redis.HGetAll(ctx, s.key(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}

	rec := Record{
		SubjectID:   subjectID,
		Role:        fields[fieldRole],
		DisplayName: fields[fieldDisplayName],
	}
	if raw := fields[fieldCreatedAt]; raw != "" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("corrupt created_at for %s: %w", subjectID, err)
		}
		rec.CreatedAt = time.Unix(unix, 0).UTC()
	}
	return rec, nil
}

// Create stores rec. It fails with [ErrExists] if the subject already has
// a record.
func (s *RedisStore) Create(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	created, err := createProfileLua.Run(ctx, s.redis,
		[]string{s.key(rec.SubjectID)},
		rec.Role,
		rec.DisplayName,
		strconv.FormatInt(rec.CreatedAt.Unix(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if created == 0 {
		return ErrExists
	}
	return nil
}

// Put overwrites the record for rec.SubjectID.
func (s *RedisStore) Put(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	err := s.redis.HSet(ctx, s.key(rec.SubjectID),
		fieldRole, rec.Role,
		fieldDisplayName, rec.DisplayName,
		fieldCreatedAt, strconv.FormatInt(rec.CreatedAt.Unix(), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes the record for subjectID. Missing records are ignored.
func (s *RedisStore) Delete(ctx context.Context, subjectID string) error {
	if err := s.redis.Del(ctx, s.key(subjectID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Package account stores password credentials keyed by normalised email.
// It knows nothing about profiles or roles; an account only maps an email
// to a subject ID and a password hash.
package account

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no account exists for an email.
	ErrNotFound = errors.New("account not found")
	// ErrExists is returned by Create for a taken email.
	ErrExists = errors.New("account exists")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Account is one stored credential.
type Account struct {
	Email        string
	SubjectID    string
	PasswordHash string
	CreatedAt    time.Time
}

const createAccountScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "subject_id", ARGV[1], "password_hash", ARGV[2], "created_at", ARGV[3])
return 1
`

var createAccountLua = redis.NewScript(createAccountScript)

// Store keeps accounts in hashes under "<prefix>:a:<email>".
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore returns a Store using rdb.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	return &Store{redis: rdb, prefix: prefix}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) key(email string) string {
	return s.prefix + ":a:" + NormalizeEmail(email)
}

// Create stores acc unless its email is already registered.
func (s *Store) Create(ctx context.Context, acc Account) error {
	if NormalizeEmail(acc.Email) == "" || acc.SubjectID == "" || acc.PasswordHash == "" {
		return errors.New("email, subjectID and password hash required")
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now()
	}

	created, err := createAccountLua.Run(ctx, s.redis,
		[]string{s.key(acc.Email)},
		acc.SubjectID,
		acc.PasswordHash,
		strconv.FormatInt(acc.CreatedAt.Unix(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if created == 0 {
		return ErrExists
	}
	return nil
}

// GetByEmail loads the account registered for email.
func (s *Store) GetByEmail(ctx context.Context, email string) (Account, error) {
	if NormalizeEmail(email) == "" {
		return Account{}, ErrNotFound
	}
	fields, err := s.redis.HGetAll(ctx, s.key(email)).Result()
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return Account{}, ErrNotFound
	}

	acc := Account{
		Email:        NormalizeEmail(email),
		SubjectID:    fields["subject_id"],
		PasswordHash: fields["password_hash"],
	}
	if unix, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		acc.CreatedAt = time.Unix(unix, 0).UTC()
	}
	return acc, nil
}

// UpdatePasswordHash replaces the stored hash, used when hashing
// parameters change.
func (s *Store) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	n, err := s.redis.Exists(ctx, s.key(email)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := s.redis.HSet(ctx, s.key(email), "password_hash", hash).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

package profile

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for a subject.
	ErrNotFound = errors.New("profile record not found")
	// ErrExists is returned by Create when a record already exists.
	ErrExists = errors.New("profile record exists")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Record is a stored profile. Role is the stored role name.
type Record struct {
	SubjectID   string
	Role        string
	DisplayName string
	CreatedAt   time.Time
}

func (r Record) validate() error {
	if r.SubjectID == "" {
		return errors.New("subjectID required")
	}
	if r.Role == "" {
		return errors.New("role required")
	}
	return nil
}

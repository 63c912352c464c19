// Package gormstore implements profile storage over SQL with gorm. It
// returns the same records and sentinel errors as profile.RedisStore.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGuard/profile"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errDBUnavailable = errors.New("profile database not configured")

// ProfileModel is the profiles table row.
type ProfileModel struct {
	SubjectID   string    `gorm:"primaryKey;size:64"`
	Role        string    `gorm:"size:32;not null"`
	DisplayName string    `gorm:"size:255"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName pins the table name.
func (ProfileModel) TableName() string {
	return "profiles"
}

// Store reads and writes profiles through gorm.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres at dsn.
func Open(dsn string) (*Store, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(gdb), nil
}

// Migrate creates or updates the profiles table.
func (s *Store) Migrate(ctx context.Context) error {
	if s.db == nil {
		return errDBUnavailable
	}
	return s.db.WithContext(ctx).AutoMigrate(&ProfileModel{})
}

// Get loads the record for subjectID.
func (s *Store) Get(ctx context.Context, subjectID string) (profile.Record, error) {
	if s.db == nil {
		return profile.Record{}, errDBUnavailable
	}
	var model ProfileModel
	err := s.db.WithContext(ctx).First(&model, "subject_id = ?", subjectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return profile.Record{}, profile.ErrNotFound
		}
		return profile.Record{}, err
	}
	return profile.Record{
		SubjectID:   model.SubjectID,
		Role:        model.Role,
		DisplayName: model.DisplayName,
		CreatedAt:   model.CreatedAt,
	}, nil
}

// Create inserts rec, failing with profile.ErrExists on a duplicate.
func (s *Store) Create(ctx context.Context, rec profile.Record) error {
	if s.db == nil {
		return errDBUnavailable
	}
	if rec.SubjectID == "" || rec.Role == "" {
		return errors.New("subjectID and role required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	model := ProfileModel{
		SubjectID:   rec.SubjectID,
		Role:        rec.Role,
		DisplayName: rec.DisplayName,
		CreatedAt:   rec.CreatedAt,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return profile.ErrExists
	}
	return nil
}

package goGuard

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goGuard/profile"
)

// RecordGetter is satisfied by profile.RedisStore and gormstore.Store.
type RecordGetter interface {
	Get(ctx context.Context, subjectID string) (profile.Record, error)
}

// RecordCreator is the write side used by Engine.Onboard.
type RecordCreator interface {
	Create(ctx context.Context, rec profile.Record) error
}

// RecordStore is both sides of a profile backend.
type RecordStore interface {
	RecordGetter
	RecordCreator
}

// ProfilesFromRecords adapts a record backend to [ProfileStore]. Missing
// records become [ErrProfileNotFound]; a stored role outside the closed set
// becomes an error wrapping [ErrRoleInvalid].
func ProfilesFromRecords(records RecordGetter) ProfileStore {
	return ProfileStoreFunc(func(ctx context.Context, subjectID string) (Profile, error) {
		rec, err := records.Get(ctx, subjectID)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, subjectID)
			}
			return Profile{}, err
		}
		return profileFromRecord(rec)
	})
}

func profileFromRecord(rec profile.Record) (Profile, error) {
	role, err := ParseRole(rec.Role)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %q for subject %s", ErrRoleInvalid, rec.Role, rec.SubjectID)
	}
	return Profile{
		SubjectID:   rec.SubjectID,
		Role:        role,
		DisplayName: rec.DisplayName,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// Package profile stores the profile records the access guard reads once
// per resolution cycle: subject ID, role name, display name and creation
// time.
//
// [RedisStore] keeps one hash per subject. The gormstore subpackage offers
// the same contract over SQL.
//
// # What this package must NOT do
//
//   - Import goGuard; role names are validated by the caller.
//   - Cache records. Every Get reaches the backend.
package profile

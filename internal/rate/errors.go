package rate

import "errors"

var (
	// ErrRateLimited means the caller has used up the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

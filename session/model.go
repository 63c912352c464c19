package session

// Session is the persisted record behind a signed-in identity.
type Session struct {
	SessionID string
	SubjectID string

	CreatedAt int64
	ExpiresAt int64
}

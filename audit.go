package goGuard

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
)

const (
	auditEventAccessPermit   = "access.permit"
	auditEventAccessRedirect = "access.redirect"
	auditEventSignIn         = "session.sign_in"
	auditEventSignInFailure  = "session.sign_in_failure"
	auditEventSignOut        = "session.sign_out"
	auditEventRegister       = "account.register"
	auditEventOnboard        = "profile.onboard"
)

// NewChannelSink returns a sink that forwards events to a buffered channel.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// reasonCode maps decision reasons to stable audit codes.
func reasonCode(reason error) string {
	switch reason {
	case nil:
		return ""
	case ErrUnauthenticated:
		return "unauthenticated"
	case ErrProfileMissing:
		return "profile_missing"
	case ErrProfileStore:
		return "profile_store_error"
	case ErrRoleNotPermitted:
		return "role_not_permitted"
	case ErrLandingRedirect:
		return "landing_redirect"
	default:
		return "unknown"
	}
}

func decisionEvent(ctx context.Context, sess Session, route Route, d Decision) AuditEvent {
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		SubjectID: sess.SubjectID,
		SessionID: sess.SessionID,
		Path:      route.Path,
		IP:        clientIPFromContext(ctx),
	}
	if d.Permitted() {
		event.EventType = auditEventAccessPermit
		event.Success = true
		event.Metadata = map[string]string{"role": d.Profile.Role.String()}
		return event
	}
	event.EventType = auditEventAccessRedirect
	event.Target = d.Target
	event.Reason = reasonCode(d.Reason)
	return event
}

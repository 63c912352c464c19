package goGuard

import "github.com/MrEthical07/goGuard/session"

// WatcherIdentity adapts a session watcher to [IdentityProvider]. Each
// delivered Session carries the watched session ID; an ended session is
// delivered as the zero Session.
func WatcherIdentity(w *session.Watcher) IdentityProvider {
	return IdentityProviderFunc(func(onChange func(Session)) func() {
		sessionID := w.SessionID()
		return w.Subscribe(func(subjectID string) {
			if subjectID == "" {
				onChange(Session{})
				return
			}
			onChange(Session{SubjectID: subjectID, SessionID: sessionID})
		})
	})
}

// StaticIdentity is an [IdentityProvider] that reports sess once and never
// changes. It suits one-shot resolution and tests.
func StaticIdentity(sess Session) IdentityProvider {
	return IdentityProviderFunc(func(onChange func(Session)) func() {
		onChange(sess)
		return func() {}
	})
}

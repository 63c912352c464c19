package goGuard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/MrEthical07/goGuard/account"
	"github.com/MrEthical07/goGuard/internal"
	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/internal/rate"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/profile"
	"github.com/MrEthical07/goGuard/session"
	"github.com/google/uuid"
)

// Engine owns sessions, identity events, profiles and credentials, and
// hands out guards wired to them. Methods are safe for concurrent use.
type Engine struct {
	config       Config
	sessions     *session.Store
	bus          *session.Bus
	records      RecordStore
	profiles     ProfileStore
	accounts     *account.Store
	throttle     *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
}

// SignInResult is returned by SignIn and SignInWithPassword.
type SignInResult struct {
	SubjectID string
	SessionID string
	// Token is the signed identity token to hand to the client.
	Token          string
	TokenExpiresAt time.Time
	// SessionExpiresAt is the hard session limit.
	SessionExpiresAt time.Time
}

// Close flushes the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events dropped so far.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of every counter and histogram.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// Paths returns the configured redirect targets.
func (e *Engine) Paths() Paths {
	return e.config.Paths.Paths()
}

// Ping checks Redis reachability.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	d, err := e.sessions.Ping(ctx)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return d, nil
}

// Register stores a password credential for email and returns the new
// subject ID. It does not sign in and does not create a profile; the
// onboarding flow does that through [Engine.Onboard].
func (e *Engine) Register(ctx context.Context, email, plaintext string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	email = account.NormalizeEmail(email)
	if email == "" {
		return "", errors.New("email required")
	}

	hash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return "", err
	}

	subjectID := uuid.NewString()
	err = e.accounts.Create(ctx, account.Account{
		Email:        email,
		SubjectID:    subjectID,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, account.ErrExists):
		return "", ErrAccountExists
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricRegister)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventRegister,
		SubjectID: subjectID,
		Success:   true,
	})
	return subjectID, nil
}

// SignInWithPassword verifies the credential for email and signs in.
// Unknown emails and wrong passwords both return [ErrInvalidCredentials].
// With the sign-in throttle enabled, an email (or client IP) that has used
// up its window gets [ErrSignInThrottled] before the password is checked.
func (e *Engine) SignInWithPassword(ctx context.Context, email, plaintext string) (*SignInResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	email = account.NormalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if err := e.throttle.Check(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricSignInThrottled)
			e.emitAudit(ctx, AuditEvent{EventType: auditEventSignInFailure, Reason: "throttled"})
			return nil, ErrSignInThrottled
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	acc, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			e.signInFailed(ctx, email, "", "unknown_account")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ok, err := e.passwordHash.Verify(plaintext, acc.PasswordHash)
	if err != nil && !errors.Is(err, password.ErrTooLong) {
		log.Printf("goGuard: stored password hash for subject %s unusable: %v", acc.SubjectID, err)
	}
	if err != nil || !ok {
		e.signInFailed(ctx, email, acc.SubjectID, "bad_password")
		return nil, ErrInvalidCredentials
	}

	if err := e.throttle.Reset(ctx, email); err != nil {
		log.Printf("goGuard: sign-in throttle reset failed: %v", err)
	}

	if e.config.Password.UpgradeOnLogin {
		if needs, err := e.passwordHash.NeedsRehash(acc.PasswordHash); err == nil && needs {
			if upgraded, err := e.passwordHash.Hash(plaintext); err == nil {
				// A failed upgrade does not fail the sign-in.
				if err := e.accounts.UpdatePasswordHash(ctx, acc.Email, upgraded); err != nil {
					log.Print("goGuard: password hash upgrade update failed")
				}
			} else {
				log.Print("goGuard: password hash upgrade generation failed")
			}
		}
	}

	return e.SignIn(ctx, acc.SubjectID)
}

func (e *Engine) signInFailed(ctx context.Context, email, subjectID, reason string) {
	if err := e.throttle.Fail(ctx, email, clientIPFromContext(ctx)); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		log.Printf("goGuard: sign-in throttle update failed: %v", err)
	}
	e.metrics.Inc(MetricSignInFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventSignInFailure,
		SubjectID: subjectID,
		Reason:    reason,
	})
}

// SignIn creates a session for subjectID, issues its identity token and
// announces the sign-in to guards watching the new session.
func (e *Engine) SignIn(ctx context.Context, subjectID string) (*SignInResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if subjectID == "" {
		return nil, errors.New("subjectID required")
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sess := &session.Session{
		SessionID: sid.String(),
		SubjectID: subjectID,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(e.config.Session.TTL).Unix(),
	}

	token, tokenExp, err := e.jwtManager.Issue(subjectID, sess.SessionID)
	if err != nil {
		return nil, err
	}

	if err := e.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.bus.Publish(ctx, session.Event{SessionID: sess.SessionID, SubjectID: subjectID}); err != nil {
		log.Printf("goGuard: sign-in event publish failed: %v", err)
	}

	e.metrics.Inc(MetricSignIn)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventSignIn,
		SubjectID: subjectID,
		SessionID: sess.SessionID,
		Success:   true,
		Metadata:  userAgentMetadata(ctx),
	})

	return &SignInResult{
		SubjectID:        subjectID,
		SessionID:        sess.SessionID,
		Token:            token,
		TokenExpiresAt:   tokenExp,
		SessionExpiresAt: time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// SignOut ends a session. Guards watching it observe an absent Session
// and redirect to sign-in. Signing out an unknown session is not an error.
func (e *Engine) SignOut(ctx context.Context, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	sess, err := e.sessions.GetReadOnly(ctx, sessionID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	removed, err := e.sessions.Delete(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !removed {
		return nil
	}

	e.publishSignOut(ctx, sessionID)

	var subjectID string
	if sess != nil {
		subjectID = sess.SubjectID
	}
	e.metrics.Inc(MetricSignOut)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventSignOut,
		SubjectID: subjectID,
		SessionID: sessionID,
		Success:   true,
	})
	return nil
}

// SignOutAll ends every session of subjectID and returns how many ended.
func (e *Engine) SignOutAll(ctx context.Context, subjectID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	removed, err := e.sessions.DeleteAllForSubject(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for _, sessionID := range removed {
		e.publishSignOut(ctx, sessionID)
		e.metrics.Inc(MetricSignOut)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventSignOut,
			SubjectID: subjectID,
			SessionID: sessionID,
			Success:   true,
			Metadata:  map[string]string{"scope": "all"},
		})
	}
	return len(removed), nil
}

func (e *Engine) publishSignOut(ctx context.Context, sessionID string) {
	if err := e.bus.Publish(ctx, session.Event{SessionID: sessionID}); err != nil {
		log.Printf("goGuard: sign-out event publish failed: %v", err)
	}
}

// Authenticate verifies an identity token and checks that its session is
// still live. It returns [ErrTokenInvalid] or [ErrSessionNotFound] for
// rejected credentials.
func (e *Engine) Authenticate(ctx context.Context, token string) (Session, error) {
	if e == nil {
		return Session{}, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !internal.ValidSessionID(claims.SID) {
		return Session{}, ErrTokenInvalid
	}

	sess, err := e.sessions.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if sess.SubjectID != claims.Subject {
		return Session{}, ErrTokenInvalid
	}

	return Session{SubjectID: sess.SubjectID, SessionID: sess.SessionID}, nil
}

// Evaluate makes a request-scoped access decision for token on route. A
// token that fails authentication for any reason is treated as an absent
// session. The returned Session is the zero value in that case.
func (e *Engine) Evaluate(ctx context.Context, token string, route Route) (Decision, Session) {
	if e == nil {
		return redirect("", ErrUnauthenticated), Session{}
	}
	start := time.Now()

	sess, err := e.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			log.Printf("goGuard: session lookup failed: %v", err)
		}
		sess = Session{}
	}

	var lookup ProfileLookup
	if sess.Present() {
		fetchCtx, cancel := e.fetchContext(ctx)
		lookup = lookupProfile(fetchCtx, e.profiles, sess.SubjectID)
		cancel()
	}

	d := ResolveAccess(sess, lookup, route, e.Paths())

	e.metrics.recordDecision(d)
	e.metrics.Observe(MetricResolveLatency, time.Since(start))
	e.emitAudit(ctx, decisionEvent(ctx, sess, route, d))
	return d, sess
}

func (e *Engine) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Guard.FetchTimeout > 0 {
		return context.WithTimeout(ctx, e.config.Guard.FetchTimeout)
	}
	return context.WithCancel(ctx)
}

// Identity returns an [IdentityProvider] that watches sessionID over the
// Redis identity channel.
func (e *Engine) Identity(sessionID string) IdentityProvider {
	return WatcherIdentity(e.bus.Watch(sessionID))
}

// Profiles returns the engine's [ProfileStore].
func (e *Engine) Profiles() ProfileStore {
	return e.profiles
}

// GetProfile loads the profile for subjectID.
func (e *Engine) GetProfile(ctx context.Context, subjectID string) (Profile, error) {
	if e == nil {
		return Profile{}, ErrEngineNotReady
	}
	return e.profiles.GetProfile(ctx, subjectID)
}

// Onboard creates the first profile for subjectID. It fails with
// [ErrProfileExists] if one exists and [ErrRoleInvalid] for a role outside
// the closed set.
func (e *Engine) Onboard(ctx context.Context, subjectID string, role Role, displayName string) (Profile, error) {
	if e == nil {
		return Profile{}, ErrEngineNotReady
	}
	if subjectID == "" {
		return Profile{}, errors.New("subjectID required")
	}
	if !role.Valid() {
		return Profile{}, ErrRoleInvalid
	}

	rec := profile.Record{
		SubjectID:   subjectID,
		Role:        role.String(),
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	err := e.records.Create(ctx, rec)
	switch {
	case errors.Is(err, profile.ErrExists):
		return Profile{}, ErrProfileExists
	case err != nil:
		return Profile{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricOnboard)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventOnboard,
		SubjectID: subjectID,
		Success:   true,
		Metadata:  map[string]string{"role": role.String()},
	})

	return Profile{
		SubjectID:   rec.SubjectID,
		Role:        role,
		DisplayName: rec.DisplayName,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// NewGuard returns an unmounted [Guard] for route that watches sessionID
// and reads profiles from the engine's store. opts are applied after the
// engine's own settings. On a nil engine it returns a nil Guard, whose
// Mount reports [ErrEngineNotReady].
func (e *Engine) NewGuard(sessionID string, route Route, router Router, renderer Renderer, opts ...GuardOption) *Guard {
	if e == nil {
		return nil
	}
	base := []GuardOption{
		WithFetchTimeout(e.config.Guard.FetchTimeout),
		WithEventBuffer(e.config.Guard.EventBuffer),
		WithGuardMetrics(e.metrics),
		withGuardAudit(e.audit),
	}
	return NewGuard(
		e.Identity(sessionID),
		e.profiles,
		router,
		renderer,
		route,
		e.Paths(),
		append(base, opts...)...,
	)
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	e.audit.Emit(ctx, event)
}

func userAgentMetadata(ctx context.Context) map[string]string {
	ua := userAgentFromContext(ctx)
	if ua == "" {
		return nil
	}
	return map[string]string{"user_agent": ua}
}

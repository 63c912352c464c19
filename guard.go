package goGuard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
)

// GuardState is the externally visible state of a mounted [Guard].
type GuardState uint8

const (
	// StateResolving waits on identity or the profile fetch.
	StateResolving GuardState = iota
	// StatePermitted has rendered the protected content.
	StatePermitted
	// StateRedirecting has issued a navigation and renders nothing.
	StateRedirecting
)

// String returns a short label for logs.
func (s GuardState) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StatePermitted:
		return "permitted"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// GuardOption customises a [Guard] at construction.
type GuardOption func(*Guard)

// WithFetchTimeout bounds each profile fetch. A fetch that times out is a
// store error and redirects to sign-in. Zero (the default) leaves timing
// to the store.
func WithFetchTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		if d > 0 {
			g.fetchTimeout = d
		}
	}
}

// WithEventBuffer sets the identity event queue depth.
func WithEventBuffer(n int) GuardOption {
	return func(g *Guard) {
		if n > 0 {
			g.eventBuffer = n
		}
	}
}

// WithGuardMetrics records decisions and stale discards into m.
func WithGuardMetrics(m *Metrics) GuardOption {
	return func(g *Guard) {
		g.metrics = m
	}
}

// WithDecisionHook calls fn after every applied decision, on the guard's
// goroutine, after the navigation or render side effect.
func WithDecisionHook(fn func(Decision)) GuardOption {
	return func(g *Guard) {
		g.onDecision = fn
	}
}

func withGuardAudit(d *internalaudit.Dispatcher) GuardOption {
	return func(g *Guard) {
		g.audit = d
	}
}

type identityEvent struct {
	session    Session
	receivedAt time.Time
}

type fetchResult struct {
	seq     uint64
	event   identityEvent
	profile ProfileLookup
}

// Guard gates a protected subtree behind identity and role resolution.
//
// A Guard is single-use: Mount once, Unmount once. Every identity change
// re-runs the whole decision. Each profile fetch is tagged with a sequence
// number; when a newer identity event arrives the older fetch is cancelled
// and its result discarded even if it completes later.
type Guard struct {
	identity IdentityProvider
	profiles ProfileStore
	router   Router
	renderer Renderer
	route    Route
	paths    Paths

	fetchTimeout time.Duration
	eventBuffer  int
	metrics      *Metrics
	audit        *internalaudit.Dispatcher
	onDecision   func(Decision)

	mu       sync.Mutex
	mounted  bool
	state    GuardState
	decision Decision
	decided  bool

	events   chan identityEvent
	results  chan fetchResult
	done     chan struct{}
	loopDone chan struct{}

	unsubscribe func()
	releaseMu   sync.Mutex
	stopOnce    sync.Once
}

// NewGuard returns an unmounted Guard for route.
func NewGuard(
	identity IdentityProvider,
	profiles ProfileStore,
	router Router,
	renderer Renderer,
	route Route,
	paths Paths,
	opts ...GuardOption,
) *Guard {
	g := &Guard{
		identity:    identity,
		profiles:    profiles,
		router:      router,
		renderer:    renderer,
		route:       route,
		paths:       paths,
		eventBuffer: 8,
		state:       StateResolving,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mount starts the decision loop and subscribes to identity changes.
// ctx scopes profile fetches and is handed to the renderer. Cancelling it
// stops the loop and releases the subscription like Unmount does, without
// waiting.
func (g *Guard) Mount(ctx context.Context) error {
	if g == nil {
		return ErrEngineNotReady
	}
	if g.identity == nil || g.profiles == nil || g.router == nil {
		return errors.New("guard requires identity provider, profile store and router")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	g.mu.Lock()
	if g.mounted {
		g.mu.Unlock()
		return ErrGuardMounted
	}
	g.mounted = true
	g.events = make(chan identityEvent, g.eventBuffer)
	g.results = make(chan fetchResult, 1)
	g.done = make(chan struct{})
	g.loopDone = make(chan struct{})
	g.mu.Unlock()

	// The loop must be running before Subscribe: providers may deliver the
	// current state synchronously.
	go g.loop(ctx)
	go func() {
		<-g.loopDone
		g.release()
	}()

	unsubscribe := g.identity.Subscribe(g.onIdentityChange)

	g.mu.Lock()
	g.unsubscribe = unsubscribe
	g.mu.Unlock()

	// Unmount or ctx may have ended the guard while Subscribe ran.
	if g.stopped() || g.finished() {
		g.release()
	}

	g.metrics.Inc(MetricGuardMounted)
	return nil
}

// Unmount cancels the identity subscription and any in-flight fetch, then
// waits for the decision loop to exit. No navigation or render happens
// after Unmount returns. Calling it more than once is safe.
func (g *Guard) Unmount() {
	if g == nil {
		return
	}
	g.mu.Lock()
	mounted := g.mounted
	g.mu.Unlock()
	if !mounted {
		return
	}

	g.stopOnce.Do(func() {
		close(g.done)
		g.release()
		<-g.loopDone
		g.metrics.Inc(MetricGuardUnmounted)
	})
}

// State returns the current state.
func (g *Guard) State() GuardState {
	if g == nil {
		return StateResolving
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Decision returns the last applied decision. ok is false until one has
// been applied.
func (g *Guard) Decision() (d Decision, ok bool) {
	if g == nil {
		return Decision{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision, g.decided
}

func (g *Guard) onIdentityChange(sess Session) {
	ev := identityEvent{session: sess, receivedAt: time.Now()}
	select {
	case g.events <- ev:
	case <-g.done:
	case <-g.loopDone:
	}
}

// release cancels the identity subscription at most once. A concurrent
// caller returns only after the cancellation has completed.
func (g *Guard) release() {
	g.releaseMu.Lock()
	defer g.releaseMu.Unlock()

	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (g *Guard) finished() bool {
	select {
	case <-g.loopDone:
		return true
	default:
		return false
	}
}

func (g *Guard) stopped() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

func (g *Guard) loop(ctx context.Context) {
	defer close(g.loopDone)

	var (
		seq         uint64
		cancelFetch context.CancelFunc = func() {}
	)
	defer func() { cancelFetch() }()

	for {
		select {
		case <-g.done:
			return

		case <-ctx.Done():
			return

		case ev := <-g.events:
			cancelFetch()
			seq++

			g.setState(StateResolving)

			if !ev.session.Present() {
				cancelFetch = func() {}
				g.apply(ctx, ev, ResolveAccess(ev.session, ProfileLookup{}, g.route, g.paths))
				continue
			}

			var fetchCtx context.Context
			if g.fetchTimeout > 0 {
				fetchCtx, cancelFetch = context.WithTimeout(ctx, g.fetchTimeout)
			} else {
				fetchCtx, cancelFetch = context.WithCancel(ctx)
			}
			go g.fetch(fetchCtx, seq, ev)

		case r := <-g.results:
			if r.seq != seq {
				g.metrics.Inc(MetricStaleResolution)
				continue
			}
			cancelFetch()
			cancelFetch = func() {}
			g.apply(ctx, r.event, ResolveAccess(r.event.session, r.profile, g.route, g.paths))
		}
	}
}

func (g *Guard) fetch(ctx context.Context, seq uint64, ev identityEvent) {
	lookup := lookupProfile(ctx, g.profiles, ev.session.SubjectID)

	select {
	case g.results <- fetchResult{seq: seq, event: ev, profile: lookup}:
	case <-g.done:
	case <-g.loopDone:
	}
}

// lookupProfile converts every collaborator failure, panics included, into
// a ProfileLookup error. Store errors other than not-found are logged.
func lookupProfile(ctx context.Context, store ProfileStore, subjectID string) (lookup ProfileLookup) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("goGuard: profile store panicked for subject %s: %v", subjectID, r)
			lookup = ProfileLookup{Err: fmt.Errorf("%w: panic: %v", ErrProfileStore, r)}
		}
	}()

	profile, err := store.GetProfile(ctx, subjectID)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) && !errors.Is(ctx.Err(), context.Canceled) {
			log.Printf("goGuard: profile fetch for subject %s failed: %v", subjectID, err)
		}
		return ProfileLookup{Err: err}
	}
	if profile.SubjectID == "" {
		profile.SubjectID = subjectID
	}
	return ProfileLookup{Profile: profile}
}

func (g *Guard) setState(s GuardState) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

func (g *Guard) apply(ctx context.Context, ev identityEvent, d Decision) {
	if g.stopped() {
		return
	}

	g.mu.Lock()
	if d.Permitted() {
		g.state = StatePermitted
	} else {
		g.state = StateRedirecting
	}
	g.decision = d
	g.decided = true
	g.mu.Unlock()

	g.metrics.recordDecision(d)
	g.metrics.Observe(MetricResolveLatency, time.Since(ev.receivedAt))
	g.audit.Emit(ctx, decisionEvent(ctx, ev.session, g.route, d))

	if d.Permitted() {
		if g.renderer != nil {
			renderCtx := WithProfile(WithSession(ctx, ev.session), d.Profile)
			g.safely("render", func() { g.renderer.Render(renderCtx, d.Profile) })
		}
	} else {
		g.safely("navigate", func() { g.router.Navigate(d.Target) })
	}

	if g.onDecision != nil {
		g.safely("decision hook", func() { g.onDecision(d) })
	}
}

func (g *Guard) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("goGuard: %s panicked on %s: %v", what, g.route.Path, r)
		}
	}()
	fn()
}

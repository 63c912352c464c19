package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event is published on the identity channel for every sign-in and
// sign-out. An empty SubjectID means the session ended.
type Event struct {
	SessionID string `json:"sid"`
	SubjectID string `json:"sub,omitempty"`
	At        int64  `json:"at"`
}

// Bus publishes identity events and hands out per-session watchers.
type Bus struct {
	redis   redis.UniversalClient
	channel string
	store   *Store
	recheck time.Duration
}

// NewBus returns a Bus publishing on channel. store is consulted for the
// current state when a watcher subscribes.
func NewBus(rdb redis.UniversalClient, channel string, store *Store) *Bus {
	return &Bus{redis: rdb, channel: channel, store: store}
}

// WithRecheck makes watchers re-read their session every d. Expiry through
// the Redis TTL or the idle window publishes nothing, so a recheck is the
// only way a watcher sees it. Zero leaves only the ExpiresAt deadline.
func (b *Bus) WithRecheck(d time.Duration) *Bus {
	if d > 0 {
		b.recheck = d
	}
	return b
}

// Publish announces ev to every watcher of ev.SessionID.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if ev.SessionID == "" {
		return errors.New("session ID required")
	}
	if ev.At == 0 {
		ev.At = time.Now().Unix()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.redis.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Watch returns a [Watcher] for one session ID.
func (b *Bus) Watch(sessionID string) *Watcher {
	return &Watcher{bus: b, sessionID: sessionID}
}

// Watcher reports the subject signed in under one session ID.
type Watcher struct {
	bus       *Bus
	sessionID string
}

// SessionID returns the watched session ID.
func (w *Watcher) SessionID() string {
	return w.sessionID
}

// Subscribe calls onChange with the current subject ID ("" when the session
// is absent) and then once per transition. A transition is a published
// event or, for a live session, finding it gone at its ExpiresAt deadline
// or on a periodic recheck. Calls are made from a single goroutine in
// order. After the returned function returns, onChange is not called
// again; onChange must not call it.
func (w *Watcher) Subscribe(onChange func(subjectID string)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	ps := w.bus.redis.Subscribe(ctx, w.bus.channel)
	done := make(chan struct{})

	go func() {
		defer close(done)

		// The subscription must be live before the current state is read,
		// or a transition published in between would be lost.
		if _, err := ps.Receive(ctx); err != nil {
			if ctx.Err() == nil {
				log.Printf("goGuard: identity subscribe %s failed: %v", w.bus.channel, err)
				onChange("")
			}
			return
		}
		messages := ps.Channel()

		var tick <-chan time.Time
		if w.bus.recheck > 0 {
			ticker := time.NewTicker(w.bus.recheck)
			defer ticker.Stop()
			tick = ticker.C
		}

		var (
			expiry      *time.Timer
			expiryFired <-chan time.Time
		)
		arm := func(deadline time.Time) {
			if expiry != nil {
				expiry.Stop()
			}
			expiry, expiryFired = nil, nil
			if !deadline.IsZero() {
				expiry = time.NewTimer(time.Until(deadline))
				expiryFired = expiry.C
			}
		}
		defer func() {
			if expiry != nil {
				expiry.Stop()
			}
		}()

		subject, deadline, err := w.lookup(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			log.Printf("goGuard: session lookup for watcher failed: %v", err)
		}
		arm(deadline)
		onChange(subject)

		// recheck reports the session gone, or a different subject, when
		// the store disagrees with what was last delivered. Transport
		// errors keep the last state.
		recheck := func() {
			if subject == "" {
				return
			}
			current, next, err := w.lookup(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				log.Printf("goGuard: session recheck for watcher failed: %v", err)
				return
			}
			arm(next)
			if current != subject {
				subject = current
				onChange(subject)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				recheck()
			case <-expiryFired:
				expiry, expiryFired = nil, nil
				recheck()
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("goGuard: malformed identity event on %s: %v", w.bus.channel, err)
					continue
				}
				if ev.SessionID != w.sessionID {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				subject = ev.SubjectID
				if subject == "" {
					arm(time.Time{})
				} else if _, next, err := w.lookup(ctx); err == nil {
					arm(next)
				}
				onChange(subject)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = ps.Close()
			<-done
		})
	}
}

// lookup returns the subject signed in under the watched session and the
// session's hard expiry. Any error yields "" and a zero deadline.
func (w *Watcher) lookup(ctx context.Context) (string, time.Time, error) {
	if w.sessionID == "" || w.bus.store == nil {
		return "", time.Time{}, ErrNotFound
	}
	sess, err := w.bus.store.GetReadOnly(ctx, w.sessionID)
	if err != nil {
		return "", time.Time{}, err
	}
	return sess.SubjectID, time.Unix(sess.ExpiresAt, 0), nil
}

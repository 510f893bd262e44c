// Package timer converts wall-clock time into phase signals for observed
// shopping sessions. One ticker goroutine runs per observed session while at
// least one observer is attached; ticks are pure local computation and never
// touch the network.
package timer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jastip-hub/jastip-hub/internal/domain/session"
)

// Signal is one phase evaluation of an observed session.
type Signal struct {
	SessionID     uuid.UUID
	Phase         session.Phase
	TimeRemaining time.Duration
}

// Sink receives signals on every tick. Implementations must not block; any
// slow work (store write-back, fan-out) has to be handed off.
type Sink func(Signal)

// Driver owns the per-session tickers.
type Driver struct {
	mu      sync.Mutex
	watches map[uuid.UUID]*watch
	tick    time.Duration
	now     func() time.Time
	sink    Sink
	logger  zerolog.Logger
}

type watch struct {
	sessionID       uuid.UUID
	createdAt       time.Time
	durationMinutes int
	observers       int
	stop            chan struct{}
	stopped         bool
}

// New creates a driver with the production 1s tick.
func New(sink Sink, logger zerolog.Logger) *Driver {
	return NewWithClock(sink, logger, time.Second, time.Now)
}

// NewWithClock injects the tick interval and clock, for tests.
func NewWithClock(sink Sink, logger zerolog.Logger, tick time.Duration, now func() time.Time) *Driver {
	return &Driver{
		watches: make(map[uuid.UUID]*watch),
		tick:    tick,
		now:     now,
		sink:    sink,
		logger:  logger.With().Str("component", "timer").Logger(),
	}
}

// Attach starts (or joins) the ticker for s and returns a detach func. The
// first observer starts the goroutine and triggers an immediate evaluation;
// detaching the last observer stops it, so an unobserved session never ticks
// in the background. The returned func is idempotent.
func (d *Driver) Attach(s *session.Session) (detach func()) {
	d.mu.Lock()
	w, ok := d.watches[s.SessionID]
	if !ok {
		w = &watch{
			sessionID:       s.SessionID,
			createdAt:       s.CreatedAt,
			durationMinutes: s.DurationMinutes,
			stop:            make(chan struct{}),
		}
		d.watches[s.SessionID] = w
		go d.run(w)
	}
	w.observers++
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.detach(s.SessionID) })
	}
}

// Cancel drops the session's watch regardless of observer count. Called when
// a session reaches a terminal state: there is nothing left to time.
func (d *Driver) Cancel(sessionID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remove(sessionID)
}

// Observed reports whether a ticker is currently running for the session.
func (d *Driver) Observed(sessionID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.watches[sessionID]
	return ok
}

func (d *Driver) detach(sessionID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.watches[sessionID]
	if !ok {
		return
	}
	w.observers--
	if w.observers <= 0 {
		d.remove(sessionID)
	}
}

// remove must be called with d.mu held.
func (d *Driver) remove(sessionID uuid.UUID) {
	w, ok := d.watches[sessionID]
	if !ok {
		return
	}
	if !w.stopped {
		w.stopped = true
		close(w.stop)
	}
	delete(d.watches, sessionID)
}

func (d *Driver) run(w *watch) {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	if d.evaluate(w) {
		return
	}
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if d.evaluate(w) {
				return
			}
		}
	}
}

// evaluate emits one signal and reports whether the watch reached its
// terminal phase. Past the deadline the phase can never change again, so the
// ticker retires itself.
func (d *Driver) evaluate(w *watch) bool {
	phase, remaining := session.TimedPhase(w.createdAt, w.durationMinutes, d.now())
	d.sink(Signal{SessionID: w.sessionID, Phase: phase, TimeRemaining: remaining})
	if phase != session.PhaseExpired {
		return false
	}
	d.logger.Debug().Str("session_id", w.sessionID.String()).Msg("watch expired, ticker stopped")
	d.mu.Lock()
	d.remove(w.sessionID)
	d.mu.Unlock()
	return true
}

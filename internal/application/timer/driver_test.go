package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jastip-hub/jastip-hub/internal/domain/session"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type signalRecorder struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *signalRecorder) sink(sig Signal) {
	r.mu.Lock()
	r.signals = append(r.signals, sig)
	r.mu.Unlock()
}

func (r *signalRecorder) last() (Signal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.signals) == 0 {
		return Signal{}, false
	}
	return r.signals[len(r.signals)-1], true
}

func (r *signalRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}

func newTestDriver(t0 time.Time) (*Driver, *fakeClock, *signalRecorder) {
	clock := &fakeClock{now: t0}
	rec := &signalRecorder{}
	d := NewWithClock(rec.sink, zerolog.Nop(), time.Millisecond, clock.Now)
	return d, clock, rec
}

func openSession(t0 time.Time) *session.Session {
	return &session.Session{
		SessionID:       uuid.New(),
		HostID:          uuid.New(),
		DurationMinutes: 15,
		Status:          session.StatusOpen,
		CreatedAt:       t0,
	}
}

func TestDriverEmitsPhaseProgression(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d, clock, rec := newTestDriver(t0)
	s := openSession(t0)

	detach := d.Attach(s)
	defer detach()

	require.Eventually(t, func() bool {
		sig, ok := rec.last()
		return ok && sig.Phase == session.PhaseOpen
	}, time.Second, time.Millisecond)

	clock.Set(t0.Add(13*time.Minute + 1*time.Second))
	require.Eventually(t, func() bool {
		sig, ok := rec.last()
		return ok && sig.Phase == session.PhaseRevisionWindow
	}, time.Second, time.Millisecond)

	clock.Set(t0.Add(15 * time.Minute))
	require.Eventually(t, func() bool {
		sig, ok := rec.last()
		return ok && sig.Phase == session.PhaseExpired && sig.TimeRemaining == 0
	}, time.Second, time.Millisecond)

	// Expiry retires the ticker on its own.
	require.Eventually(t, func() bool {
		return !d.Observed(s.SessionID)
	}, time.Second, time.Millisecond)
}

func TestDetachLastObserverStopsTicker(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d, _, rec := newTestDriver(t0)
	s := openSession(t0)

	detachA := d.Attach(s)
	detachB := d.Attach(s)
	require.True(t, d.Observed(s.SessionID))

	detachA()
	require.True(t, d.Observed(s.SessionID), "one observer left, ticker must keep running")

	detachB()
	require.False(t, d.Observed(s.SessionID))

	// Detach is idempotent.
	detachB()

	before := rec.count()
	time.Sleep(20 * time.Millisecond)
	require.LessOrEqual(t, rec.count(), before+1, "no ticks after last detach")
}

func TestSwitchingSessionsReplacesWatch(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d, _, _ := newTestDriver(t0)
	prev := openSession(t0)
	next := openSession(t0)

	detachPrev := d.Attach(prev)
	require.True(t, d.Observed(prev.SessionID))

	// An observer moving to another session drops the old watch and starts
	// the new one; the old session must not keep ticking for nobody.
	detachPrev()
	detachNext := d.Attach(next)
	defer detachNext()

	require.False(t, d.Observed(prev.SessionID))
	require.True(t, d.Observed(next.SessionID))
}

func TestCancelStopsTickerImmediately(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d, _, _ := newTestDriver(t0)
	s := openSession(t0)

	detach := d.Attach(s)
	defer detach()

	d.Cancel(s.SessionID)
	require.False(t, d.Observed(s.SessionID))
}

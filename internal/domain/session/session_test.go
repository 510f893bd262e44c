package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newOpenSession(t0 time.Time, minutes int) *Session {
	return &Session{
		SessionID:       uuid.New(),
		HostID:          uuid.New(),
		Title:           "Uniqlo run",
		DurationMinutes: minutes,
		MaxGuests:       5,
		Status:          StatusOpen,
		CreatedAt:       t0,
	}
}

func TestTimedPhaseWindow(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		at        time.Time
		wantPhase Phase
	}{
		{"just opened", t0.Add(time.Second), PhaseOpen},
		{"before revision threshold", t0.Add(12*time.Minute + 59*time.Second), PhaseOpen},
		{"inside revision window", t0.Add(13*time.Minute + 1*time.Second), PhaseRevisionWindow},
		{"at deadline", t0.Add(15 * time.Minute), PhaseExpired},
		{"past deadline", t0.Add(16 * time.Minute), PhaseExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			phase, remaining := TimedPhase(t0, 15, tc.at)
			if phase != tc.wantPhase {
				t.Fatalf("phase at %v: got %s, want %s", tc.at.Sub(t0), phase, tc.wantPhase)
			}
			if tc.wantPhase == PhaseExpired && remaining != 0 {
				t.Fatalf("expected zero remaining past deadline, got %v", remaining)
			}
		})
	}
}

func TestPhaseMonotoneOverTime(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newOpenSession(t0, 15)

	rank := map[Phase]int{PhaseOpen: 0, PhaseRevisionWindow: 1, PhaseClosed: 2, PhaseExpired: 2}
	prev := -1
	for tick := 0; tick <= 16*60; tick += 7 {
		phase, _ := s.PhaseAt(t0.Add(time.Duration(tick) * time.Second))
		if rank[phase] < prev {
			t.Fatalf("phase regressed to %s at t+%ds", phase, tick)
		}
		prev = rank[phase]
	}
}

func TestClosedStatusOverridesTimer(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newOpenSession(t0, 15)
	closeAt := t0.Add(5 * time.Minute)
	if err := s.Close(closeAt); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Even long past the deadline the persisted CLOSED label wins.
	phase, remaining := s.PhaseAt(t0.Add(time.Hour))
	if phase != PhaseClosed {
		t.Fatalf("got %s, want %s", phase, PhaseClosed)
	}
	if remaining != 0 {
		t.Fatalf("expected zero remaining, got %v", remaining)
	}
}

func TestTerminalStatusesAreAbsorbing(t *testing.T) {
	now := time.Now().UTC()

	closed := newOpenSession(now, 15)
	if err := closed.Close(now); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := closed.Expire(now); err != ErrInvalidTransition {
		t.Fatalf("expire after close: got %v, want ErrInvalidTransition", err)
	}

	expired := newOpenSession(now, 15)
	if err := expired.Expire(now); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if err := expired.Close(now); err != ErrInvalidTransition {
		t.Fatalf("close after expire: got %v, want ErrInvalidTransition", err)
	}
}

func TestAcceptsOrdersOnlyWhileOpen(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newOpenSession(t0, 15)

	if !s.AcceptsOrders(t0.Add(time.Minute)) {
		t.Fatal("open phase should accept orders")
	}
	if s.AcceptsOrders(t0.Add(14 * time.Minute)) {
		t.Fatal("revision window must not accept orders")
	}
	if s.AcceptsOrders(t0.Add(20 * time.Minute)) {
		t.Fatal("expired session must not accept orders")
	}
}

func TestMostRecentOpenWinsTieBreak(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	older := newOpenSession(t0, 15)
	newer := newOpenSession(t0.Add(time.Minute), 15)
	closed := newOpenSession(t0.Add(2*time.Minute), 15)
	closed.Status = StatusClosed

	active := MostRecentOpen([]*Session{older, closed, newer})
	if active != newer {
		t.Fatalf("expected most recently created open session to win")
	}

	if MostRecentOpen([]*Session{closed}) != nil {
		t.Fatal("no open session should yield nil")
	}
}

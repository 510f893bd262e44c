package disbursement

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLifecycle(t *testing.T) {
	now := time.Now().UTC()
	d := New(uuid.New(), uuid.New())

	if !d.CanRequest(10000) {
		t.Fatal("fresh record should allow a request")
	}
	if err := d.MarkRequested(10000, now); err != nil {
		t.Fatalf("request: %v", err)
	}
	if d.CanRequest(10000) {
		t.Fatal("in-flight request must block a second attempt")
	}
	if err := d.MarkRequested(10000, now); err != ErrConflict {
		t.Fatalf("got %v, want ErrConflict", err)
	}

	if err := d.MarkCompleted("payout-123", now); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if d.Status != StatusCompleted || d.PayoutRef == nil || *d.PayoutRef != "payout-123" {
		t.Fatalf("unexpected record %+v", d)
	}
}

func TestCompletedIsAbsorbing(t *testing.T) {
	now := time.Now().UTC()
	d := New(uuid.New(), uuid.New())
	_ = d.MarkRequested(5000, now)
	_ = d.MarkCompleted("ref", now)

	if d.CanRequest(999999) {
		t.Fatal("completed record must never allow another request")
	}
	if err := d.MarkRequested(5000, now); err != ErrConflict {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if err := d.MarkFailed("late failure", now); err != ErrInvalidTransition {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
}

func TestFailedAllowsRetry(t *testing.T) {
	now := time.Now().UTC()
	d := New(uuid.New(), uuid.New())
	_ = d.MarkRequested(5000, now)
	if err := d.MarkFailed("gateway timeout", now); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if d.LastError == nil || *d.LastError != "gateway timeout" {
		t.Fatalf("last error not recorded: %+v", d)
	}

	if !d.CanRequest(5000) {
		t.Fatal("failed record should allow a retry")
	}
	if err := d.MarkRequested(5000, now); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if d.LastError != nil {
		t.Fatal("retry should clear the previous error")
	}
}

func TestCanRequestNeedsPositiveNet(t *testing.T) {
	d := New(uuid.New(), uuid.New())
	if d.CanRequest(0) {
		t.Fatal("zero net must not be disbursable")
	}
	if d.CanRequest(-100) {
		t.Fatal("negative net must not be disbursable")
	}
}

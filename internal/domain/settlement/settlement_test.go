package settlement

import (
	"testing"

	"github.com/google/uuid"

	"github.com/jastip-hub/jastip-hub/internal/domain/order"
)

func TestAdminFeeRoundsUp(t *testing.T) {
	cases := []struct {
		subTotal int64
		want     int64
	}{
		{0, 0},
		{10000, 2700},  // 2% lands exactly on 200
		{12345, 2747},  // 246.9 rounds up to 247
		{1, 2501},      // 0.02 rounds up to 1
		{50, 2501},     // exactly 1
		{51, 2502},     // 1.02 rounds up to 2
		{100000, 4500},
	}
	for _, tc := range cases {
		if got := AdminFee(tc.subTotal); got != tc.want {
			t.Fatalf("AdminFee(%d) = %d, want %d", tc.subTotal, got, tc.want)
		}
	}
}

func TestComputeBill(t *testing.T) {
	guest := uuid.New()
	other := uuid.New()
	orders := []*order.Order{
		{RequesterID: guest, Status: order.StatusAccepted, Quantity: 2, PriceEstimate: 30000, JastipFee: 5000},
		{RequesterID: guest, Status: order.StatusBought, Quantity: 1, PriceEstimate: 40000},
		{RequesterID: guest, Status: order.StatusRejected, Quantity: 1, PriceEstimate: 99999},
		{RequesterID: guest, Status: order.StatusPending, Quantity: 1, PriceEstimate: 11111},
		{RequesterID: guest, Status: order.StatusNeedsRevision, Quantity: 1, PriceEstimate: 22222},
		{RequesterID: other, Status: order.StatusAccepted, Quantity: 1, PriceEstimate: 123456},
	}

	b := ComputeBill(orders, guest)
	if b.OrderCount != 2 {
		t.Fatalf("order count %d, want 2", b.OrderCount)
	}
	if b.GoodsTotal != 100000 {
		t.Fatalf("goods total %d, want 100000", b.GoodsTotal)
	}
	if b.JastipFee != 5000 {
		t.Fatalf("jastip fee %d, want 5000", b.JastipFee)
	}
	if b.SubTotal != 105000 {
		t.Fatalf("sub total %d, want 105000", b.SubTotal)
	}
	wantAdmin := AdminFee(105000) // 2100 + 2500
	if b.AdminFee != wantAdmin || b.AdminFee != 4600 {
		t.Fatalf("admin fee %d, want %d", b.AdminFee, wantAdmin)
	}
	if b.GrandTotal != 109600 {
		t.Fatalf("grand total %d, want 109600", b.GrandTotal)
	}
}

func TestEmptyBillHasNoAdminFee(t *testing.T) {
	guest := uuid.New()
	orders := []*order.Order{
		{RequesterID: guest, Status: order.StatusRejected, Quantity: 1, PriceEstimate: 50000},
	}
	b := ComputeBill(orders, guest)
	if b.SubTotal != 0 || b.AdminFee != 0 || b.GrandTotal != 0 {
		t.Fatalf("empty bill must be all zero, got %+v", b)
	}
}

func TestComputeHostNetExcludesAdminFee(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	orders := []*order.Order{
		{RequesterID: a, Status: order.StatusBought, Quantity: 2, PriceEstimate: 30000, JastipFee: 5000},
		{RequesterID: b, Status: order.StatusAccepted, Quantity: 1, PriceEstimate: 20000, JastipFee: 2000},
		{RequesterID: b, Status: order.StatusRejected, Quantity: 4, PriceEstimate: 10000},
	}

	n := ComputeHostNet(orders)
	if n.TotalCollected != 87000 {
		t.Fatalf("collected %d, want 87000", n.TotalCollected)
	}
	if n.Net != 82000 {
		t.Fatalf("net %d, want 82000", n.Net)
	}
	if !n.Eligible {
		t.Fatal("expected eligible host net")
	}

	// Host net equals the sum of guest sub-totals: admin fees are platform
	// revenue and never flow through the host.
	var guestSubTotals int64
	for _, bill := range ComputeAllBills(orders) {
		guestSubTotals += bill.SubTotal
	}
	if guestSubTotals != n.TotalCollected {
		t.Fatalf("guest sub-totals %d != collected %d", guestSubTotals, n.TotalCollected)
	}
}

func TestComputeHostNetFloorsAtZero(t *testing.T) {
	a := uuid.New()
	orders := []*order.Order{
		{RequesterID: a, Status: order.StatusAccepted, Quantity: 1, PriceEstimate: 3000},
	}
	n := ComputeHostNet(orders)
	if n.Net != 0 {
		t.Fatalf("net %d, want 0 when fee exceeds collection", n.Net)
	}
	if !n.Eligible {
		t.Fatal("eligibility tracks collection, not net")
	}

	empty := ComputeHostNet(nil)
	if empty.Eligible || empty.Net != 0 {
		t.Fatalf("empty ledger must be ineligible, got %+v", empty)
	}
}

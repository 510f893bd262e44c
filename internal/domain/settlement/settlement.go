// Package settlement derives guest bills and the host payout from an order
// snapshot. Everything here is a pure function recomputed per query; nothing
// is cached or persisted, so totals can never drift from the ledger.
package settlement

import (
	"github.com/google/uuid"

	"github.com/jastip-hub/jastip-hub/internal/domain/order"
)

const (
	// AdminFeeBase is the flat platform charge added to every non-empty bill,
	// in minor currency units.
	AdminFeeBase int64 = 2500
	// AdminFeePercent is the variable platform charge, rounded up so the
	// platform never under-collects.
	AdminFeePercent int64 = 2
	// DisbursementFee is the fixed charge deducted from the host payout.
	DisbursementFee int64 = 5000
)

// Bill is one guest's share of a session.
type Bill struct {
	GuestID    uuid.UUID `json:"guestId"`
	OrderCount int       `json:"orderCount"`
	GoodsTotal int64     `json:"goodsTotal"`
	JastipFee  int64     `json:"jastipFee"`
	SubTotal   int64     `json:"subTotal"`
	AdminFee   int64     `json:"adminFee"`
	GrandTotal int64     `json:"grandTotal"`
}

// HostNet is the host-side aggregate across all guests. The guest-side admin
// fee is a platform charge, not host revenue, and is excluded.
type HostNet struct {
	TotalCollected  int64 `json:"totalCollected"`
	DisbursementFee int64 `json:"disbursementFee"`
	Net             int64 `json:"net"`
	Eligible        bool  `json:"eligible"`
}

// AdminFee computes the platform charge on a sub-total: zero for an empty
// bill, otherwise ceil(subTotal * 2%) + 2500.
func AdminFee(subTotal int64) int64 {
	if subTotal <= 0 {
		return 0
	}
	variable := (subTotal*AdminFeePercent + 99) / 100
	return variable + AdminFeeBase
}

// ComputeBill totals the guest's accepted and bought orders.
func ComputeBill(orders []*order.Order, guestID uuid.UUID) Bill {
	b := Bill{GuestID: guestID}
	for _, o := range orders {
		if o.RequesterID != guestID || !o.Billable() {
			continue
		}
		b.OrderCount++
		b.GoodsTotal += o.LineTotal()
		b.JastipFee += o.JastipFee
	}
	b.SubTotal = b.GoodsTotal + b.JastipFee
	b.AdminFee = AdminFee(b.SubTotal)
	b.GrandTotal = b.SubTotal + b.AdminFee
	return b
}

// ComputeAllBills derives one bill per distinct requester, including guests
// whose orders were all rejected (their bill is zero).
func ComputeAllBills(orders []*order.Order) []Bill {
	seen := make(map[uuid.UUID]struct{})
	var bills []Bill
	for _, o := range orders {
		if _, ok := seen[o.RequesterID]; ok {
			continue
		}
		seen[o.RequesterID] = struct{}{}
		bills = append(bills, ComputeBill(orders, o.RequesterID))
	}
	return bills
}

// ComputeHostNet aggregates what the host collects across all guests.
func ComputeHostNet(orders []*order.Order) HostNet {
	n := HostNet{DisbursementFee: DisbursementFee}
	for _, o := range orders {
		if !o.Billable() {
			continue
		}
		n.TotalCollected += o.LineTotal() + o.JastipFee
	}
	n.Net = n.TotalCollected - n.DisbursementFee
	if n.Net < 0 {
		n.Net = 0
	}
	n.Eligible = n.TotalCollected > 0
	return n
}

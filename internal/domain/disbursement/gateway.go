package disbursement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PayoutStatus is the external gateway's view of a payout.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "PENDING"
	PayoutCompleted PayoutStatus = "COMPLETED"
	PayoutFailed    PayoutStatus = "FAILED"
)

// BankDetails is where the host wants the money.
type BankDetails struct {
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

// PayoutResult is the gateway's record of a payout request.
type PayoutResult struct {
	Ref         string       `json:"ref"`
	Status      PayoutStatus `json:"status"`
	RequestedAt time.Time    `json:"requestedAt"`
}

// Gateway is the external payout collaborator. The coordinator, not the
// gateway, decides whether a request may be issued at all; the gateway only
// moves money and reports on it.
type Gateway interface {
	RequestPayout(ctx context.Context, sessionID, hostID uuid.UUID, amount int64, bank BankDetails) (*PayoutResult, error)
	QueryPayoutStatus(ctx context.Context, sessionID uuid.UUID) (*PayoutResult, error)
}

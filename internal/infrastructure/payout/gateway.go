// Package payout implements the external payout gateway client. Only the
// settlement amounts and the idempotency contract live in the core; the wire
// shape here is whatever the gateway wants.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jastip-hub/jastip-hub/internal/domain/disbursement"
)

// HTTPGateway talks to the payout provider over JSON/HTTP.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

func NewHTTPGateway(baseURL, apiKey string, logger zerolog.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With().Str("component", "payout_gateway").Logger(),
	}
}

type payoutRequest struct {
	SessionID string                   `json:"sessionId"`
	HostID    string                   `json:"hostId"`
	Amount    int64                    `json:"amount"`
	Bank      disbursement.BankDetails `json:"bank"`
}

type payoutResponse struct {
	Ref         string    `json:"ref"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requestedAt"`
}

func (g *HTTPGateway) RequestPayout(ctx context.Context, sessionID, hostID uuid.UUID, amount int64, bank disbursement.BankDetails) (*disbursement.PayoutResult, error) {
	body, err := json.Marshal(payoutRequest{
		SessionID: sessionID.String(),
		HostID:    hostID.String(),
		Amount:    amount,
		Bank:      bank,
	})
	if err != nil {
		return nil, err
	}

	// The session ID doubles as the idempotency key: a gateway-side retry of
	// the same session must resolve to the same payout.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Idempotency-Key", sessionID.String())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payout request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payout gateway returned %d", resp.StatusCode)
	}

	var out payoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode payout response: %w", err)
	}
	g.logger.Info().Str("session_id", sessionID.String()).Str("ref", out.Ref).Msg("payout accepted by gateway")
	return &disbursement.PayoutResult{
		Ref:         out.Ref,
		Status:      disbursement.PayoutStatus(out.Status),
		RequestedAt: out.RequestedAt,
	}, nil
}

func (g *HTTPGateway) QueryPayoutStatus(ctx context.Context, sessionID uuid.UUID) (*disbursement.PayoutResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/payouts/"+sessionID.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payout status query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payout gateway returned %d", resp.StatusCode)
	}

	var out payoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode payout status: %w", err)
	}
	return &disbursement.PayoutResult{
		Ref:         out.Ref,
		Status:      disbursement.PayoutStatus(out.Status),
		RequestedAt: out.RequestedAt,
	}, nil
}

package settlement

import (
	"context"

	"github.com/Knetic/govaluate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jastip-hub/jastip-hub/internal/domain/order"
	"github.com/jastip-hub/jastip-hub/internal/domain/settlement"
)

// Service answers settlement queries over a session's order snapshot.
// Totals are recomputed from scratch per query; order counts are bounded by
// maxGuests so the O(n) recompute is cheap and drift-free.
type Service struct {
	orderRepo  order.Repository
	waiverRule *govaluate.EvaluableExpression
	logger     zerolog.Logger
}

// NewService creates a settlement service. waiverRule is an optional boolean
// expression over {goodsTotal, jastipFee, subTotal, orderCount}; when it
// evaluates true for a bill the platform admin fee is waived. An empty or
// unparsable rule means the standard fee always applies.
func NewService(orderRepo order.Repository, waiverRule string, logger zerolog.Logger) *Service {
	s := &Service{
		orderRepo: orderRepo,
		logger:    logger.With().Str("service", "settlement").Logger(),
	}
	if waiverRule != "" {
		expr, err := govaluate.NewEvaluableExpression(waiverRule)
		if err != nil {
			s.logger.Warn().Err(err).Str("rule", waiverRule).Msg("invalid fee waiver rule, ignoring")
		} else {
			s.waiverRule = expr
		}
	}
	return s
}

// BillFor computes one guest's bill from a session snapshot.
func (s *Service) BillFor(ctx context.Context, sessionID, guestID uuid.UUID) (settlement.Bill, error) {
	orders, err := s.orderRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return settlement.Bill{}, err
	}
	return s.applyWaiver(settlement.ComputeBill(orders, guestID)), nil
}

// Bills computes every guest's bill for the session.
func (s *Service) Bills(ctx context.Context, sessionID uuid.UUID) ([]settlement.Bill, error) {
	orders, err := s.orderRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.BillsFor(orders), nil
}

// BillsFor derives bills from an already loaded snapshot.
func (s *Service) BillsFor(orders []*order.Order) []settlement.Bill {
	bills := settlement.ComputeAllBills(orders)
	for i := range bills {
		bills[i] = s.applyWaiver(bills[i])
	}
	return bills
}

// HostNet computes the host payout aggregate for the session.
func (s *Service) HostNet(ctx context.Context, sessionID uuid.UUID) (settlement.HostNet, error) {
	orders, err := s.orderRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return settlement.HostNet{}, err
	}
	return settlement.ComputeHostNet(orders), nil
}

func (s *Service) applyWaiver(b settlement.Bill) settlement.Bill {
	if s.waiverRule == nil || b.AdminFee == 0 {
		return b
	}
	result, err := s.waiverRule.Evaluate(map[string]interface{}{
		"goodsTotal": float64(b.GoodsTotal),
		"jastipFee":  float64(b.JastipFee),
		"subTotal":   float64(b.SubTotal),
		"orderCount": float64(b.OrderCount),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("guest_id", b.GuestID.String()).Msg("fee waiver evaluation failed")
		return b
	}
	if waived, ok := result.(bool); ok && waived {
		b.AdminFee = 0
		b.GrandTotal = b.SubTotal
	}
	return b
}

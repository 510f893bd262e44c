package httpapi

import (
	"net/http"
	"strings"

	appLedger "github.com/jastip-hub/jastip-hub/internal/application/ledger"
	"github.com/jastip-hub/jastip-hub/internal/domain/order"
)

type orderSubmitRequest struct {
	ItemName      string `json:"itemName"`
	Quantity      int    `json:"quantity"`
	PriceEstimate int64  `json:"priceEstimate"`
	JastipFee     int64  `json:"jastipFee,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) submitOrder(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	sessionID, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session id")
		return
	}
	var req orderSubmitRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	o, err := s.ledgerSvc.Submit(r.Context(), appLedger.SubmitInput{
		SessionID:     sessionID,
		RequesterID:   auth.UserID,
		ItemName:      req.ItemName,
		Quantity:      req.Quantity,
		PriceEstimate: req.PriceEstimate,
		JastipFee:     req.JastipFee,
		Notes:         req.Notes,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session id")
		return
	}
	orders, err := s.ledgerSvc.List(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (s *Server) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	orderID, err := parseUUIDParam(r, "orderId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid order id")
		return
	}
	var req orderStatusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	target := order.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !target.Valid() {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "unknown order status")
		return
	}
	o, err := s.ledgerSvc.SetStatus(r.Context(), orderID, target, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

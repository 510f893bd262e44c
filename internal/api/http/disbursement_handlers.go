package httpapi

import (
	"net/http"
	"strings"

	"github.com/jastip-hub/jastip-hub/internal/domain/disbursement"
)

type disbursementRequest struct {
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

func (s *Server) requestDisbursement(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	sessionID, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session id")
		return
	}
	var req disbursementRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if strings.TrimSpace(req.BankCode) == "" || strings.TrimSpace(req.AccountNumber) == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "bankCode and accountNumber are required")
		return
	}
	d, err := s.disbursementSvc.Request(r.Context(), sessionID, auth.UserID, disbursement.BankDetails{
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, d)
}

func (s *Server) getDisbursement(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session id")
		return
	}
	d, err := s.disbursementSvc.Status(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

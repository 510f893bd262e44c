package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appAuth "github.com/jastip-hub/jastip-hub/internal/application/auth"
	appDisbursement "github.com/jastip-hub/jastip-hub/internal/application/disbursement"
	appLedger "github.com/jastip-hub/jastip-hub/internal/application/ledger"
	appSession "github.com/jastip-hub/jastip-hub/internal/application/session"
	appSettlement "github.com/jastip-hub/jastip-hub/internal/application/settlement"
	appUser "github.com/jastip-hub/jastip-hub/internal/application/user"
	"github.com/jastip-hub/jastip-hub/internal/domain/disbursement"
	"github.com/jastip-hub/jastip-hub/internal/domain/order"
	"github.com/jastip-hub/jastip-hub/internal/domain/session"
	"github.com/jastip-hub/jastip-hub/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authSvc             *appAuth.Service
	userSvc             *appUser.Service
	sessionSvc          *appSession.Service
	ledgerSvc           *appLedger.Service
	settlementSvc       *appSettlement.Service
	disbursementSvc     *appDisbursement.Service
	sseHub              *sse.Hub
	sessionCookieName   string
	sessionCookieSecure bool
}

func NewServer(
	authSvc *appAuth.Service,
	userSvc *appUser.Service,
	sessionSvc *appSession.Service,
	ledgerSvc *appLedger.Service,
	settlementSvc *appSettlement.Service,
	disbursementSvc *appDisbursement.Service,
	sseHub *sse.Hub,
	sessionCookieName string,
	sessionCookieSecure bool,
) *Server {
	return &Server{
		authSvc:             authSvc,
		userSvc:             userSvc,
		sessionSvc:          sessionSvc,
		ledgerSvc:           ledgerSvc,
		settlementSvc:       settlementSvc,
		disbursementSvc:     disbursementSvc,
		sseHub:              sseHub,
		sessionCookieName:   sessionCookieName,
		sessionCookieSecure: sessionCookieSecure,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		// The event stream stays open for the life of the session, so the
		// request timeout applies to everything except it.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/sessions/{sessionId}/events", s.sessionEvents)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Use(s.requireAuth)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", s.createSession)
				r.Get("/", s.listSessions)
				r.Get("/active", s.activeSession)
				r.Get("/{sessionId}", s.getSessionView)
				r.Post("/{sessionId}/finish", s.finishSession)
				r.Post("/{sessionId}/orders", s.submitOrder)
				r.Get("/{sessionId}/orders", s.listOrders)
				r.Get("/{sessionId}/bills", s.listBills)
				r.Get("/{sessionId}/bills/{guestId}", s.getBill)
				r.Get("/{sessionId}/host-net", s.getHostNet)
				r.Post("/{sessionId}/disbursement", s.requestDisbursement)
				r.Get("/{sessionId}/disbursement", s.getDisbursement)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/{orderId}/status", s.setOrderStatus)
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondServiceError maps domain sentinels onto the HTTP error taxonomy.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrValidation), errors.Is(err, session.ErrValidation):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	case errors.Is(err, appLedger.ErrSessionNotFound),
		errors.Is(err, appDisbursement.ErrSessionNotFound),
		errors.Is(err, appLedger.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, session.ErrNotHost), errors.Is(err, order.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, order.ErrSessionNotOpen),
		errors.Is(err, order.ErrQuotaExceeded),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, disbursement.ErrConflict),
		errors.Is(err, disbursement.ErrNotEligible),
		errors.Is(err, disbursement.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, appDisbursement.ErrGatewayUnavailable):
		respondError(w, http.StatusBadGateway, "GATEWAY_ERROR", err.Error())
	case errors.Is(err, appSession.ErrStoreUnavailable), errors.Is(err, appLedger.ErrStoreUnavailable):
		respondError(w, http.StatusBadGateway, "STORE_ERROR", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	appSession "github.com/jastip-hub/jastip-hub/internal/application/session"
	"github.com/jastip-hub/jastip-hub/internal/domain/notification"
)

type sessionCreateRequest struct {
	Title           string `json:"title"`
	LocationName    string `json:"locationName"`
	DurationMinutes int    `json:"durationMinutes"`
	MaxGuests       int    `json:"maxGuests"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	var req sessionCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	sess, err := s.sessionSvc.Create(r.Context(), appSession.CreateInput{
		HostID:          auth.UserID,
		Title:           req.Title,
		LocationName:    req.LocationName,
		DurationMinutes: req.DurationMinutes,
		MaxGuests:       req.MaxGuests,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	limit, offset := parseLimitOffset(r, 20, 100)
	sessions, err := s.sessionSvc.ListByHost(r.Context(), auth.UserID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// activeSession resolves the caller's (or a given host's) single active
// session; 404 when the host has nothing open.
func (s *Server) activeSession(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	hostID := auth.UserID
	if v := r.URL.Query().Get("hostId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid hostId")
			return
		}
		hostID = id
	}
	sess, err := s.sessionSvc.Active(r.Context(), hostID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if sess == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no active session")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) getSessionView(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session id")
		return
	}
	view, err := s.sessionSvc.View(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if view == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) finishSession(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	sessionID, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session id")
		return
	}
	sess, err := s.sessionSvc.Finish(r.Context(), sessionID, auth.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if sess == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// sessionEvents streams the session's live events: the phase countdown,
// order updates, and disbursement updates. Connecting attaches a timer
// observer; the observer detaches when the client goes away.
func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	sessionID, err := parseUUIDParam(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid session id")
		return
	}

	detach, err := s.sessionSvc.Observe(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	defer detach()

	clientID := uuid.New().String()
	username := auth.Username
	client := notification.NewSSEClient(clientID, &username, sessionID)
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(clientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg := <-client.MessageChan:
			if msg == nil {
				return
			}
			payload, _ := json.Marshal(msg)
			_, _ = w.Write([]byte("event: "))
			_, _ = w.Write([]byte(msg.Event))
			_, _ = w.Write([]byte("\ndata: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

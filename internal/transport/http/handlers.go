package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"wordchain/internal/app"
	"wordchain/internal/domain"
	"wordchain/internal/scoring"
	"wordchain/internal/transport/auth"
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details. Reason is set for refused words.
type ErrorInfo struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Reason  domain.RejectReason `json:"reason,omitempty"`
}

// CreateRoomRequest is the body of room creation. Zero values take the
// room defaults; Join also makes the caller a member.
type CreateRoomRequest struct {
	Capacity          int  `json:"capacity"`
	ScoringID         int  `json:"scoringId"`
	ScoreLength       int  `json:"scoreLength"`
	WinID             int  `json:"winId"`
	WinPoints         int  `json:"winPoints"`
	Language          int  `json:"language"`
	ForbidConsecutive bool `json:"forbidConsecutive"`
	RejectPenalty     int  `json:"rejectPenalty"`
	DictionaryPenalty *int `json:"dictionaryPenalty"`
	Join              bool `json:"join"`
}

// SubmitWordRequest is the body of a word submission
type SubmitWordRequest struct {
	Word string `json:"word"`
	Time int64  `json:"time,omitempty"`
}

// WhereResponse is the response for the where-is lookup
type WhereResponse struct {
	PlayerID domain.PlayerID `json:"playerId"`
	RoomID   domain.RoomID   `json:"roomId"`
}

// PoliciesResponse lists the registered policies
type PoliciesResponse struct {
	Scoring []scoring.Descriptor `json:"scoring"`
	Win     []scoring.Descriptor `json:"win"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// DevLoginRequest names the player to issue a token for
type DevLoginRequest struct {
	PlayerID domain.PlayerID `json:"playerId"`
}

// DevLoginResponse carries an issued token
type DevLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleCreateRoom handles POST /api/rooms
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
			return
		}
	}
	playerID, authenticated := auth.PlayerFrom(r.Context())
	if req.Join && !authenticated {
		s.sendError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Login required to join")
		return
	}

	cfg := domain.DefaultRoomConfig()
	cfg.Capacity = req.Capacity
	cfg.Scoring.ID = req.ScoringID
	if req.ScoreLength != 0 {
		cfg.Scoring.Length = req.ScoreLength
	}
	cfg.Win.ID = req.WinID
	if req.WinPoints != 0 {
		cfg.Win.Points = req.WinPoints
	}
	cfg.Language = req.Language
	cfg.ForbidConsecutive = req.ForbidConsecutive
	cfg.RejectPenalty = req.RejectPenalty
	if req.DictionaryPenalty != nil {
		cfg.DictionaryPenalty = *req.DictionaryPenalty
	}
	if authenticated {
		cfg.Creator = playerID
	}

	session, err := s.dir.CreateRoom(cfg)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	if req.Join {
		if _, err := s.dir.Join(session.ID(), playerID); err != nil {
			s.sendDomainError(w, err)
			return
		}
	}

	s.sendStatus(w, http.StatusCreated, session.Info())
}

// handleListRooms handles GET /api/rooms. format=compact returns the plain
// text list id[in/max]id[in/max]...
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.dir.List()
	if r.URL.Query().Get("format") == "compact" {
		var b strings.Builder
		for _, room := range rooms {
			b.WriteString(room.String())
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(b.String()))
		return
	}
	s.sendSuccess(w, rooms)
}

// handleGetRoom handles GET /api/rooms/{roomID}
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	session, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	s.sendSuccess(w, session.Info())
}

// handleHistory handles GET /api/rooms/{roomID}/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	s.sendSuccess(w, session.History())
}

// handleJoin handles POST /api/rooms/{roomID}/join
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.requirePlayer(w, r)
	if !ok {
		return
	}
	id, ok := s.roomIDFromPath(w, r)
	if !ok {
		return
	}
	session, err := s.dir.Join(id, playerID)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, session.Info())
}

// handleLeave handles POST /api/rooms/{roomID}/leave
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.requirePlayer(w, r)
	if !ok {
		return
	}
	id, ok := s.roomIDFromPath(w, r)
	if !ok {
		return
	}
	if err := s.dir.Leave(id, playerID); err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, &WhereResponse{PlayerID: playerID})
}

// handleSubmitWord handles POST /api/rooms/{roomID}/words
func (s *Server) handleSubmitWord(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.requirePlayer(w, r)
	if !ok {
		return
	}
	session, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}

	var req SubmitWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Word == "" {
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Word is required")
		return
	}
	if !s.limits.Allow(playerID) {
		w.Header().Set("Retry-After", "1")
		s.sendError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many submissions")
		return
	}

	sub, err := session.SubmitWord(r.Context(), playerID, req.Word, req.Time)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, sub)
}

// handleReset handles POST /api/rooms/{roomID}/reset. Only members may
// start a new round.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.requirePlayer(w, r)
	if !ok {
		return
	}
	session, ok := s.roomFromPath(w, r)
	if !ok {
		return
	}
	if !session.HasPlayer(playerID) {
		s.sendError(w, http.StatusForbidden, "NOT_MEMBER", "Not a member of this room")
		return
	}
	if err := session.Reset(); err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendSuccess(w, session.Info())
}

// handleRemoveRoom handles DELETE /api/rooms/{roomID}
func (s *Server) handleRemoveRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := s.roomIDFromPath(w, r)
	if !ok {
		return
	}
	if err := s.dir.Remove(r.Context(), id); err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.logger.Info("room removed by admin", "roomID", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleWhere handles GET /api/where
func (s *Server) handleWhere(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.requirePlayer(w, r)
	if !ok {
		return
	}
	id, found := s.dir.WhereIs(playerID)
	if !found {
		s.sendError(w, http.StatusNotFound, "NOT_IN_ROOM", "Player is not in a room")
		return
	}
	s.sendSuccess(w, &WhereResponse{PlayerID: playerID, RoomID: id})
}

// handlePolicies handles GET /api/policies
func (s *Server) handlePolicies(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &PoliciesResponse{
		Scoring: scoring.ScoringDescriptors(),
		Win:     scoring.WinDescriptors(),
	})
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, s.dir.GetStats())
}

// handleDevLogin handles POST /api/dev/login. It issues a token for any
// player id and is only routed in development.
func (s *Server) handleDevLogin(w http.ResponseWriter, r *http.Request) {
	var req DevLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	token, exp, err := s.auth.Issue(req.PlayerID, time.Now())
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.auth.SetCookie(w, token, exp, s.config.IsProduction())
	s.sendSuccess(w, &DevLoginResponse{Token: token, ExpiresAt: exp})
}

// requireAdmin rejects requests without the admin token
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.IsAdmin(r) {
			s.sendError(w, http.StatusForbidden, "FORBIDDEN", "Admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requirePlayer returns the authenticated player or answers 401
func (s *Server) requirePlayer(w http.ResponseWriter, r *http.Request) (domain.PlayerID, bool) {
	playerID, ok := auth.PlayerFrom(r.Context())
	if !ok {
		s.sendError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Login required")
		return domain.NoPlayer, false
	}
	return playerID, true
}

func (s *Server) roomIDFromPath(w http.ResponseWriter, r *http.Request) (domain.RoomID, bool) {
	id, err := domain.ParseRoomID(chi.URLParam(r, "roomID"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_ROOM_ID", "Room id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) roomFromPath(w http.ResponseWriter, r *http.Request) (*app.RoomSession, bool) {
	id, ok := s.roomIDFromPath(w, r)
	if !ok {
		return nil, false
	}
	session, err := s.dir.GetRoom(id)
	if err != nil {
		s.sendDomainError(w, err)
		return nil, false
	}
	return session, true
}

// sendDomainError maps domain errors to status codes and error codes
func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	if rej, ok := domain.AsRejection(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(&Response{
			Error: &ErrorInfo{
				Code:    "WORD_REJECTED",
				Message: rej.Error(),
				Reason:  rej.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
	case errors.Is(err, domain.ErrRoomFull):
		s.sendError(w, http.StatusConflict, "ROOM_FULL", "Room is full")
	case errors.Is(err, domain.ErrPlayerNotFound):
		s.sendError(w, http.StatusNotFound, "PLAYER_NOT_FOUND", "Player is not in this room")
	case errors.Is(err, domain.ErrInvalidConfig):
		s.sendError(w, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
	case errors.Is(err, domain.ErrInvalidPlayerID):
		s.sendError(w, http.StatusBadRequest, "INVALID_PLAYER_ID", "Invalid player id")
	case errors.Is(err, domain.ErrInvalidPhase):
		s.sendError(w, http.StatusConflict, "INVALID_PHASE", err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	s.sendStatus(w, http.StatusOK, data)
}

func (s *Server) sendStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

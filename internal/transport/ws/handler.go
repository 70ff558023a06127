package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"wordchain/internal/app"
	"wordchain/internal/domain"
	"wordchain/internal/transport/auth"
	"wordchain/internal/transport/throttle"
)

// Options tunes submission limits
type Options struct {
	// SubmitRate is the sustained number of submissions per second
	SubmitRate float64
	// SubmitBurst is how many submissions may arrive back to back
	SubmitBurst int
	// Limiters, when set, is shared with other transports and overrides
	// SubmitRate and SubmitBurst.
	Limiters *throttle.Limiters
}

// Handler handles WebSocket connections
type Handler struct {
	dir      *app.Directory
	auth     *auth.Authenticator
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(dir *app.Directory, authn *auth.Authenticator, opts Options, logger *slog.Logger) *Handler {
	if opts.SubmitRate <= 0 {
		opts.SubmitRate = 5
	}
	if opts.SubmitBurst <= 0 {
		opts.SubmitBurst = 10
	}
	if opts.Limiters == nil {
		opts.Limiters = throttle.New(opts.SubmitRate, opts.SubmitBurst)
	}
	return &Handler{
		dir:  dir,
		auth: authn,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Players connect from the game client on any host
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests for /ws?roomId=N. The player
// must already be a member of the room unless join=1 is passed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID, err := domain.ParseRoomID(r.URL.Query().Get("roomId"))
	if err != nil {
		http.Error(w, "roomId is required", http.StatusBadRequest)
		return
	}

	playerID, err := h.auth.PlayerFromRequest(r)
	if err != nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	session, err := h.dir.GetRoom(roomID)
	if err != nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	if !session.HasPlayer(playerID) {
		if r.URL.Query().Get("join") != "1" {
			http.Error(w, "Not a member of this room", http.StatusForbidden)
			return
		}
		if _, err := h.dir.Join(roomID, playerID); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrRoomFull) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, h.dir, session, playerID, h.opts.Limiters.For(playerID), h.logger)

	sub, _, err := session.Subscribe(playerID, client)
	if err != nil {
		// the player left between the membership check and the upgrade
		code := ErrCodeInternalError
		if errors.Is(err, domain.ErrPlayerNotFound) {
			code = ErrCodeNotMember
		}
		if data, merr := json.Marshal(NewServerMessage(MsgError, &ErrorPayload{Code: code, Message: err.Error()})); merr == nil {
			conn.WriteMessage(websocket.TextMessage, data)
		}
		conn.Close()
		return
	}

	h.logger.Info("websocket connected",
		"roomID", roomID,
		"playerID", playerID,
		"generation", sub.Generation,
	)

	client.Run(sub)

	h.logger.Info("websocket disconnected", "roomID", roomID, "playerID", playerID)
}

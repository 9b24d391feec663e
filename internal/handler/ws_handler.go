package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/examina/examina-backend/internal/middleware"
	"github.com/examina/examina-backend/internal/service"
	ws "github.com/examina/examina-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live session state to the exam client. The server
// pushes a snapshot every second, so the visible timer always derives
// from the server clock; the client never counts down on its own.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket for live state pushes and integrity signals.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID

	// A stream only makes sense against a live session.
	if _, err := h.sessionService.State(c.Request.Context(), studentID, examID); err != nil {
		ws.WriteError(conn, "no live session for this exam")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	// gorilla/websocket allows one concurrent writer; the pusher goroutine
	// and the action responses share this mutex.
	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteTyped(conn, v)
	}

	done := make(chan struct{})
	defer close(done)

	go h.pushState(write, done, studentID, examID)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			write(ws.PongResponse{Event: ws.EventPong})

		case ws.ActionBackNav:
			decision, err := h.sessionService.ReportBackNavigation(c.Request.Context(), studentID, examID)
			if err != nil {
				write(ws.ErrorResponse{Event: ws.EventError, Error: "back navigation report failed"})
				continue
			}
			write(ws.DecisionResponse{Event: ws.EventDecision, Decision: string(decision)})

		case ws.ActionUnload:
			if err := h.sessionService.ReportUnload(c.Request.Context(), studentID, examID); err != nil {
				write(ws.ErrorResponse{Event: ws.EventError, Error: "unload report failed"})
				continue
			}
			// The marker write completed; the client may let the page go.
			write(ws.PongResponse{Event: ws.EventPong})

		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			write(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)})
		}
	}
}

// pushState sends a snapshot once per second until the connection or the
// session goes away.
func (h *WSHandler) pushState(write func(interface{}) error, done <-chan struct{}, studentID int, examID uuid.UUID) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap, err := h.sessionService.State(context.Background(), studentID, examID)
			if err != nil {
				// Session finished or was removed; nothing more to stream.
				return
			}
			if err := write(ws.StateResponse{Event: ws.EventState, State: snap}); err != nil {
				return
			}
		}
	}
}

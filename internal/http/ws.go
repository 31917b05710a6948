package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/logging"
)

// WebSocket protocol tokens. A client sends a question as one text frame;
// the server replies with the final answer frame followed by endOfTurn.
// noOpToken (and empty frames) are accepted and ignored: no state
// transition, no reply.
const (
	endOfTurn = "__END__"
	noOpToken = "__PING__"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The daemon fronts its own UI and local tools; origin policy is left
	// to the deployment proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket serves one persistent chat session. Questions are
// processed one at a time per socket; concurrent sockets are independent,
// each with its own turn states. A disconnect cancels the in-flight turn
// without affecting any other session.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "websocket upgrade failed")
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	ctx = logging.ContextWithSessionID(ctx, sessionID)

	logger := s.logger.With(zap.String("session_id", sessionID))
	logger.Info("websocket session opened")
	defer logger.Info("websocket session closed")

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return nil
		}
		if msgType != websocket.TextMessage {
			continue
		}

		question := strings.TrimSpace(string(payload))
		if question == "" || question == noOpToken {
			continue
		}

		if err := s.answerOverSocket(ctx, conn, question); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Warn("websocket write failed", zap.Error(err))
			return nil
		}
	}
}

// answerOverSocket runs one turn and delivers exactly one final answer
// frame followed by the end-of-turn marker. Write errors cancel the turn's
// context via the deferred cancel in the caller when the socket dies.
func (s *Server) answerOverSocket(ctx context.Context, conn *websocket.Conn, question string) error {
	result, err := s.coordinator.Answer(ctx, question, nil)
	if err != nil {
		// Cancellation: the client is gone, emit nothing.
		return err
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(result.Answer)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(endOfTurn))
}

package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSocketRequest is a client message on /ws/validate. Image carries the
// raw file bytes, base64 encoded in JSON.
type WebSocketRequest struct {
	Type  string `json:"type"` // "validate" or "ping"
	ID    string `json:"id,omitempty"`
	Image []byte `json:"image,omitempty"`
}

// WebSocketResponse is a server message on /ws/validate.
type WebSocketResponse struct {
	Type      string           `json:"type"` // "result", "error" or "pong"
	ID        string           `json:"id,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
	Result    *pipeline.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// wsConn serialises writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(resp WebSocketResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return nil
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// validateWebSocketHandler validates documents streamed over a websocket,
// one result message per request message.
func (s *Server) validateWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade connection to websocket", "error", err)
		return
	}
	conn := &wsConn{Conn: ws}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(s.maxUploadMB*1024*1024*4/3 + 4096)
	websocketConnections.Inc()
	defer websocketConnections.Dec()
	slog.Info("websocket connection established", "remote_addr", r.RemoteAddr, "request_id", RequestID(r.Context()))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if messageType != websocket.TextMessage {
			continue
		}
		if err := conn.send(s.handleWebSocketMessage(ctx, data)); err != nil {
			slog.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) handleWebSocketMessage(ctx context.Context, data []byte) WebSocketResponse {
	requestID := uuid.NewString()

	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return WebSocketResponse{Type: "error", RequestID: requestID, Error: "invalid_request", Message: err.Error()}
	}

	switch req.Type {
	case "ping":
		return WebSocketResponse{Type: "pong", ID: req.ID, RequestID: requestID}
	case "validate":
	default:
		return WebSocketResponse{
			Type: "error", ID: req.ID, RequestID: requestID,
			Error: "invalid_request", Message: "unsupported message type: " + req.Type,
		}
	}
	if len(req.Image) == 0 {
		return WebSocketResponse{
			Type: "error", ID: req.ID, RequestID: requestID,
			Error: "missing_file", Message: "no image data provided",
		}
	}
	uploadSizeBytes.Observe(float64(len(req.Image)))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.validator.ValidateBytes(ctx, req.Image)
	validationDuration.WithLabelValues("websocket").Observe(time.Since(start).Seconds())
	if err != nil {
		_, kind := statusFor(err)
		validationErrorsTotal.WithLabelValues("websocket", kind).Inc()
		return WebSocketResponse{Type: "error", ID: req.ID, RequestID: requestID, Error: kind, Message: err.Error()}
	}
	recordResult("websocket", res)
	return WebSocketResponse{Type: "result", ID: req.ID, RequestID: requestID, Result: res}
}

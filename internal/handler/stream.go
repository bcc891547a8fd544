package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/forgo/cityquest/internal/middleware"
	"github.com/forgo/cityquest/internal/model"
	"github.com/forgo/cityquest/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamReadLimit  = 4096
)

// StreamHub delivers participation events to subscribers
type StreamHub interface {
	Subscribe(participationID, subscriberID string) *service.Subscriber
	Unsubscribe(participationID, subscriberID string)
}

// StreamGame is the part of the game a stream can drive
type StreamGame interface {
	Authorize(ctx context.Context, userID, participationID string) error
	RecordLocation(ctx context.Context, userID, participationID string, req *model.LocationSampleRequest) (*model.SampleResult, error)
}

// StreamMetrics counts open streams
type StreamMetrics interface {
	StreamOpened()
	StreamClosed()
}

// streamMessage is a client frame. Only "location" is understood.
type streamMessage struct {
	Type      string     `json:"type"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// streamReply answers a client frame
type streamReply struct {
	Type  string                `json:"type"`
	Data  interface{}           `json:"data,omitempty"`
	Error *model.ProblemDetails `json:"error,omitempty"`
}

// StreamHandler serves the live participation websocket
type StreamHandler struct {
	hub      StreamHub
	game     StreamGame
	metrics  StreamMetrics
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a stream handler. origins follows the CORS
// list; "*" accepts any origin.
func NewStreamHandler(hub StreamHub, game StreamGame, metrics StreamMetrics, origins []string) *StreamHandler {
	return &StreamHandler{
		hub:     hub,
		game:    game,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(origins, origin)
			},
		},
	}
}

// RegisterRoutes registers the stream route
func (h *StreamHandler) RegisterRoutes(mux *http.ServeMux, player middleware.Middleware) {
	mux.Handle("GET /v1/participations/{id}/stream", player(http.HandlerFunc(h.Stream)))
}

// Stream handles GET /v1/participations/{id}/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	participationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID := middleware.GetUserID(r.Context())

	// ownership is checked before the upgrade so failures stay plain HTTP
	if err := h.game.Authorize(r.Context(), userID, participationID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	if h.metrics != nil {
		h.metrics.StreamOpened()
		defer h.metrics.StreamClosed()
	}

	subscriberID := uuid.New().String()
	sub := h.hub.Subscribe(participationID, subscriberID)
	defer h.hub.Unsubscribe(participationID, subscriberID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	replies := make(chan streamReply, 8)
	readDone := make(chan struct{})
	go h.readPump(ctx, conn, userID, participationID, replies, readDone)

	slog.Debug("stream opened", "participation_id", participationID, "subscriber_id", subscriberID)
	h.writePump(conn, sub, replies, readDone, subscriberID)
	slog.Debug("stream closed", "participation_id", participationID, "subscriber_id", subscriberID)
}

// writePump owns every write to conn
func (h *StreamHandler) writePump(conn *websocket.Conn, sub *service.Subscriber, replies <-chan streamReply, readDone <-chan struct{}, subscriberID string) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	write := func(v interface{}) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(v) == nil
	}

	if !write(streamReply{Type: "connected", Data: map[string]string{"subscriber_id": subscriberID}}) {
		return
	}

	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				h.closeNormal(conn)
				return
			}
			if !write(event) {
				return
			}

		case reply := <-replies:
			if !write(reply) {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-sub.Done:
			h.closeNormal(conn)
			return

		case <-readDone:
			return
		}
	}
}

// readPump turns location frames into samples until the client goes away
func (h *StreamHandler) readPump(ctx context.Context, conn *websocket.Conn, userID, participationID string, replies chan<- streamReply, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("stream read failed", "participation_id", participationID, "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))

		var reply streamReply
		switch msg.Type {
		case "location":
			result, err := h.game.RecordLocation(ctx, userID, participationID, &model.LocationSampleRequest{
				Lat:       msg.Lat,
				Lng:       msg.Lng,
				Timestamp: msg.Timestamp,
			})
			if err != nil {
				reply = streamReply{Type: "error", Error: MapServiceError(err)}
			} else {
				reply = streamReply{Type: "location.result", Data: result}
			}
		default:
			reply = streamReply{Type: "error", Error: model.NewBadRequestError("unknown message type: " + msg.Type)}
		}

		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (h *StreamHandler) closeNormal(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
}

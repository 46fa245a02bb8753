package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/realtime"
)

const (
	// Time allowed to write a message to the peer.
	liveWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	livePongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	livePingPeriod = (livePongWait * 9) / 10
)

// LiveHandler streams change notifications to browsers over a websocket, so
// an open comment thread or like button can refresh without polling.
type LiveHandler struct {
	source   realtime.Source
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewLiveHandler accepts websocket connections from allowedOrigins only; an
// empty list allows same-origin requests only.
func NewLiveHandler(source realtime.Source, allowedOrigins []string, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin) || origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
		logger: logger,
	}
}

type liveMessage struct {
	Type   string           `json:"type"`
	Change *realtime.Change `json:"change,omitempty"`
}

// HandleLive upgrades the connection and forwards matching changes.
//
// HTTP: GET /api/live?table=comments&entity_type=project&entity_id=project-1
//
// Messages are {"type":"change","change":{...}}. A change names the record;
// the browser re-reads through the REST endpoints.
func (h *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	topic, err := liveTopic(r)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.Warn("live upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := h.source.Subscribe(ctx, topic)
	if err != nil {
		h.logger.Error("live subscribe failed", slog.String("error", err.Error()))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(liveWriteWait))
		return
	}
	defer sub.Close()

	// The read side only exists to notice the peer going away and to
	// process pongs.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(liveMessage{Type: "change", Change: &change}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func liveTopic(r *http.Request) (realtime.Topic, error) {
	q := r.URL.Query()
	topic := realtime.Topic{
		Table:      q.Get("table"),
		EntityType: model.EntityType(q.Get("entity_type")),
		EntityID:   q.Get("entity_id"),
	}
	switch topic.Table {
	case realtime.TableComments, realtime.TableLikes:
	case "":
		return topic, apperror.ValidationFailed("table", "table is required")
	default:
		return topic, apperror.ValidationFailed("table", "table must be comments or likes")
	}
	if topic.EntityType != "" && !topic.EntityType.Valid() {
		return topic, apperror.ValidationFailed("entity_type", "unknown entity type")
	}
	return topic, nil
}

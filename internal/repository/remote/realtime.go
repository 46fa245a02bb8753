package remote

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/realtime"
)

const (
	// Time allowed to write a message to the backend.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the backend.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 16384
	changeBuffer   = 32
)

var _ realtime.Source = (*Client)(nil)

// Messages on the change feed.
const (
	msgSubscribe   = "subscribe"
	msgUnsubscribe = "unsubscribe"
	msgChange      = "change"
	msgError       = "error"
)

type feedMessage struct {
	Type    string           `json:"type"`
	Ref     string           `json:"ref"`
	Topic   *realtime.Topic  `json:"topic,omitempty"`
	Change  *realtime.Change `json:"change,omitempty"`
	Message string           `json:"message,omitempty"`
}

func (c *Client) realtimeURL() string {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = u.Path + "/realtime/v1/websocket"
	u.RawQuery = url.Values{"apikey": {c.apiKey}}.Encode()
	return u.String()
}

// Subscribe opens a change feed for topic. Each subscription owns one
// websocket connection; closing the subscription unsubscribes and closes it.
func (c *Client) Subscribe(ctx context.Context, topic realtime.Topic) (*realtime.Subscription, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.realtimeURL(), nil)
	if err != nil {
		return nil, apperror.Transport("subscribing to changes", err)
	}

	ref := xid.New().String()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(feedMessage{Type: msgSubscribe, Ref: ref, Topic: &topic}); err != nil {
		conn.Close()
		return nil, apperror.Transport("subscribing to changes", err)
	}

	f := &feed{
		conn:   conn,
		ref:    ref,
		out:    make(chan realtime.Change, changeBuffer),
		done:   make(chan struct{}),
		logger: c.logger.With(slog.String("topic", topic.Table), slog.String("ref", ref)),
	}
	sub := realtime.NewSubscription(f.out, f.stop)

	go f.readPump()
	go f.pingPump()
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-f.done:
		}
	}()

	return sub, nil
}

// feed pumps one websocket connection into a change channel.
type feed struct {
	conn   *websocket.Conn
	ref    string
	out    chan realtime.Change
	done   chan struct{}
	logger *slog.Logger

	writeMu  sync.Mutex
	stopOnce sync.Once
}

func (f *feed) write(msgType int, data []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_ = f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return f.conn.WriteMessage(msgType, data)
}

// stop is idempotent. It is called by Subscription.Close and by readPump when
// the connection drops.
func (f *feed) stop() {
	f.stopOnce.Do(func() {
		close(f.done)
		if msg, err := json.Marshal(feedMessage{Type: msgUnsubscribe, Ref: f.ref}); err == nil {
			_ = f.write(websocket.TextMessage, msg)
		}
		_ = f.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	})
}

func (f *feed) readPump() {
	defer close(f.out)
	defer f.stop()

	f.conn.SetReadLimit(maxMessageSize)
	_ = f.conn.SetReadDeadline(time.Now().Add(pongWait))
	f.conn.SetPongHandler(func(string) error {
		return f.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg feedMessage
		if err := f.conn.ReadJSON(&msg); err != nil {
			select {
			case <-f.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					f.logger.Warn("change feed closed", slog.String("error", err.Error()))
				}
			}
			return
		}

		switch msg.Type {
		case msgChange:
			if msg.Change == nil || (msg.Ref != "" && msg.Ref != f.ref) {
				continue
			}
			select {
			case f.out <- *msg.Change:
			case <-f.done:
				return
			default:
				f.logger.Warn("dropping change for slow subscriber", slog.String("record_id", msg.Change.RecordID))
			}
		case msgError:
			f.logger.Error("change feed error", slog.String("error", msg.Message))
		}
	}
}

func (f *feed) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			if err := f.write(websocket.PingMessage, nil); err != nil {
				f.logger.Debug("ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

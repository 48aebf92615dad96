// Package bus publishes assistant events to a websocket hub.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	KindCommand        = "command"
	KindInterpretation = "interpretation"
	KindAction         = "action"
	KindError          = "error"
)

const (
	writeTimeout   = 5 * time.Second
	reconnectDelay = 2 * time.Second
)

var errClosed = errors.New("bus closed")

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

type Bus struct {
	url  string
	name string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func New(wsURL, name string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("bus url must be ws:// or wss://, got %q", wsURL)
	}

	b := &Bus{url: u.String(), name: name}
	if err := b.dial(); err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", b.url)
	return b, nil
}

func (b *Bus) dial() error {
	if b.closed {
		return errClosed
	}
	conn, _, err := websocket.DefaultDialer.Dial(b.url, nil)
	if err != nil {
		return fmt.Errorf("dial bus: %w", err)
	}
	b.conn = conn
	return nil
}

// Write sends m, redialing once when the connection is gone.
func (b *Bus) Write(m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		if err = b.write(data); err == nil {
			return nil
		}
		log.Warn("Bus write failed, reconnecting", "err", err)
		b.conn.Close()
		b.conn = nil
	}

	if err := b.dial(); err != nil {
		return err
	}
	return b.write(data)
}

func (b *Bus) write(data []byte) error {
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// Report publishes an event and only logs failures.
func (b *Bus) Report(kind, content string) {
	err := b.Write(Message{From: b.name, To: "*", Kind: kind, Content: content})
	if err != nil {
		log.Error("Failed to publish to bus", "kind", kind, "err", err)
	}
}

// Listen hands every command addressed to this client (or to "*") to
// handle until ctx is done. Dropped connections are redialed.
func (b *Bus) Listen(ctx context.Context, handle func(Message)) error {
	stop := context.AfterFunc(ctx, func() { b.Close() })
	defer stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := b.current()
		if errors.Is(err, errClosed) {
			return nil
		}
		if err != nil {
			log.Warn("Bus unavailable", "err", err)
			if sleep(ctx, reconnectDelay) != nil {
				return nil
			}
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("Bus read failed, reconnecting", "err", err)
			b.drop(conn)
			continue
		}

		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			log.Warn("Failed to parse bus message", "msg", string(data), "err", err)
			continue
		}
		if !b.accepts(m) {
			continue
		}

		log.Debug("Bus command", "from", m.From, "content", m.Content)
		handle(m)
	}
}

func (b *Bus) accepts(m Message) bool {
	if m.Kind != KindCommand || m.From == b.name {
		return false
	}
	return m.To == b.name || m.To == "*"
}

func (b *Bus) current() (*websocket.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		if err := b.dial(); err != nil {
			return nil, err
		}
	}
	return b.conn, nil
}

// drop forgets conn unless a writer already replaced it.
func (b *Bus) drop(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn.Close()
	if b.conn == conn {
		b.conn = nil
	}
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.conn == nil {
		return nil
	}
	_ = b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := b.conn.Close()
	b.conn = nil
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package bus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hub struct {
	mu    sync.Mutex
	msgs  []Message
	conns []*websocket.Conn
	got   chan struct{}
}

func newHub(t *testing.T) (*hub, *httptest.Server) {
	t.Helper()

	h := &hub{got: make(chan struct{}, 16)}
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.mu.Lock()
		h.conns = append(h.conns, conn)
		h.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m Message
			if json.Unmarshal(data, &m) == nil {
				h.mu.Lock()
				h.msgs = append(h.msgs, m)
				h.mu.Unlock()
				h.got <- struct{}{}
			}
		}
	}))
	return h, srv
}

func (h *hub) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.got:
	case <-time.After(2 * time.Second):
		t.Fatal("hub received nothing")
	}
}

func (h *hub) send(t *testing.T, m Message) {
	t.Helper()

	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.conns)
	require.NoError(t, h.conns[len(h.conns)-1].WriteJSON(m))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestReport(t *testing.T) {
	h, srv := newHub(t)
	defer srv.Close()

	b, err := New(wsURL(srv), "voxweb")
	require.NoError(t, err)
	defer b.Close()

	b.Report(KindCommand, "open youtube")
	h.wait(t)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.msgs, 1)
	assert.Equal(t, Message{From: "voxweb", To: "*", Kind: KindCommand, Content: "open youtube"}, h.msgs[0])
}

func TestWriteReconnects(t *testing.T) {
	h, srv := newHub(t)
	defer srv.Close()

	b, err := New(wsURL(srv), "voxweb")
	require.NoError(t, err)
	defer b.Close()

	// drop the client side so the next write fails
	b.mu.Lock()
	b.conn.Close()
	b.mu.Unlock()

	require.NoError(t, b.Write(Message{Kind: KindAction, Content: "open"}))
	h.wait(t)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Len(t, h.conns, 2)
	assert.Equal(t, "open", h.msgs[0].Content)
}

func TestNewRejectsBadScheme(t *testing.T) {
	_, err := New("http://localhost:1", "voxweb")
	assert.Error(t, err)
}

func TestListenFiltersCommands(t *testing.T) {
	h, srv := newHub(t)
	defer srv.Close()

	b, err := New(wsURL(srv), "voxweb")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan Message, 4)
	done := make(chan error, 1)
	go func() {
		done <- b.Listen(ctx, func(m Message) { got <- m })
	}()

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.conns) == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.send(t, Message{From: "hub", To: "other", Kind: KindCommand, Content: "not for us"})
	h.send(t, Message{From: "hub", To: "voxweb", Kind: KindAction, Content: "wrong kind"})
	h.send(t, Message{From: "hub", To: "voxweb", Kind: KindCommand, Content: "open youtube"})
	h.send(t, Message{From: "hub", To: "*", Kind: KindCommand, Content: "scroll down"})

	for _, want := range []string{"open youtube", "scroll down"} {
		select {
		case m := <-got:
			assert.Equal(t, want, m.Content)
		case <-time.After(2 * time.Second):
			t.Fatalf("command %q not delivered", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not stop")
	}
	assert.Empty(t, got)
}

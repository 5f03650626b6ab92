package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/MiguelMedeiros/zapin.me/pkg/logger"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type recordingConsumer struct {
	mu       sync.Mutex
	sessions []string
	presence []int
	paid     int
	markers  [][]byte
}

func (c *recordingConsumer) OnConnected(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = append(c.sessions, sessionID)
}

func (c *recordingConsumer) OnPresence(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presence = append(c.presence, count)
}

func (c *recordingConsumer) OnPaymentConfirmed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paid++
}

func (c *recordingConsumer) OnNewMarker(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markers = append(c.markers, raw)
}

func (c *recordingConsumer) snapshot() (sessions []string, presence []int, paid int, markers [][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sessions...),
		append([]int(nil), c.presence...),
		c.paid,
		append([][]byte(nil), c.markers...)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(frame{Event: event, Data: raw})
	require.NoError(t, err)
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, payload))
}

func TestDispatchPushEvents(t *testing.T) {
	markerJSON := `{"id":42,"message":"hello","amount":1440}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)

		sendFrame(t, conn, "connected", "abc123")
		sendFrame(t, conn, "users-connected", 7)

		// Undecodable frame in the middle of the stream.
		require.NoError(t, conn.Write(context.Background(), websocket.MessageText, []byte("{broken")))

		sendFrame(t, conn, "paid", nil)
		// The marker rides the channel as a JSON-encoded string.
		sendFrame(t, conn, "new-message", markerJSON)
		sendFrame(t, conn, "some-future-event", "ignored")

		// Keep the connection open until the test is done.
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	consumer := &recordingConsumer{}
	m := NewManager(wsURL(srv), consumer, logger.NewNop())
	m.Connect(context.Background())
	defer m.Close()

	require.Eventually(t, func() bool {
		sessions, presence, paid, markers := consumer.snapshot()
		return len(sessions) == 1 && len(presence) == 1 && paid == 1 && len(markers) == 1
	}, waitFor, tick)

	sessions, presence, _, markers := consumer.snapshot()
	assert.Equal(t, "abc123", sessions[0])
	assert.Equal(t, "abc123", m.SessionID())
	assert.Equal(t, 7, presence[0])
	assert.JSONEq(t, markerJSON, string(markers[0]))
}

func TestNewMarkerRawObjectFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)

		// Marker delivered as a plain object instead of an encoded string.
		sendFrame(t, conn, "new-message", map[string]any{"id": 7, "message": "raw"})
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	consumer := &recordingConsumer{}
	m := NewManager(wsURL(srv), consumer, logger.NewNop())
	m.Connect(context.Background())
	defer m.Close()

	require.Eventually(t, func() bool {
		_, _, _, markers := consumer.snapshot()
		return len(markers) == 1
	}, waitFor, tick)

	_, _, _, markers := consumer.snapshot()
	assert.JSONEq(t, `{"id":7,"message":"raw"}`, string(markers[0]))
}

func TestReconnectGetsFreshIdentity(t *testing.T) {
	var dials int
	var dialsMu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dialsMu.Lock()
		dials++
		n := dials
		dialsMu.Unlock()

		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)

		if n == 1 {
			sendFrame(t, conn, "connected", "first")
			conn.Close(websocket.StatusNormalClosure, "bye")
			return
		}
		sendFrame(t, conn, "connected", "second")
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	consumer := &recordingConsumer{}
	m := NewManager(wsURL(srv), consumer, logger.NewNop())
	m.reconnectDelay = 20 * time.Millisecond
	m.Connect(context.Background())
	defer m.Close()

	require.Eventually(t, func() bool {
		sessions, _, _, _ := consumer.snapshot()
		return len(sessions) == 2
	}, waitFor, tick)

	sessions, _, _, _ := consumer.snapshot()
	assert.Equal(t, []string{"first", "second"}, sessions)
	assert.Equal(t, "second", m.SessionID())
}

func TestConnectedFrameWithoutIdentityDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)

		sendFrame(t, conn, "connected", "")
		sendFrame(t, conn, "users-connected", 3)
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	consumer := &recordingConsumer{}
	m := NewManager(wsURL(srv), consumer, logger.NewNop())
	m.Connect(context.Background())
	defer m.Close()

	// The presence frame after the bad one still goes through.
	require.Eventually(t, func() bool {
		_, presence, _, _ := consumer.snapshot()
		return len(presence) == 1
	}, waitFor, tick)

	sessions, _, _, _ := consumer.snapshot()
	assert.Empty(t, sessions)
	assert.Empty(t, m.SessionID())
}

func TestCloseStopsManager(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		sendFrame(t, conn, "connected", "abc")
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	consumer := &recordingConsumer{}
	m := NewManager(wsURL(srv), consumer, logger.NewNop())
	m.Connect(context.Background())

	require.Eventually(t, func() bool { return m.SessionID() == "abc" }, waitFor, tick)

	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Close did not return")
	}

	// Close twice is fine.
	m.Close()
}

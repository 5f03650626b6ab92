package channel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/MiguelMedeiros/zapin.me/pkg/logger"
)

const (
	// defaultReconnectDelay is how long to wait before redialing a dropped
	// channel.
	defaultReconnectDelay = 5 * time.Second
)

// Consumer receives the demultiplexed push events. OnNewMarker gets the raw
// marker JSON; decoding (and dropping malformed payloads) is the consumer's
// concern.
type Consumer interface {
	OnConnected(sessionID string)
	OnPresence(count int)
	OnPaymentConfirmed()
	OnNewMarker(raw []byte)
}

// frame is the wire envelope of one push event.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Manager owns the live push connection and its identity. It opens exactly
// one channel per process lifetime and redials with a fixed delay when the
// transport drops; every successful dial yields a fresh session identity
// from the server's connected frame.
type Manager struct {
	logger         *logger.Logger
	url            string
	consumer       Consumer
	reconnectDelay time.Duration

	mu        sync.RWMutex
	sessionID string

	connectOnce sync.Once
	closeOnce   sync.Once
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewManager creates a channel manager for the given websocket URL.
func NewManager(url string, consumer Consumer, logger *logger.Logger) *Manager {
	return &Manager{
		logger:         logger,
		url:            url,
		consumer:       consumer,
		reconnectDelay: defaultReconnectDelay,
		done:           make(chan struct{}),
	}
}

// SessionID returns the current channel identity, empty until the server
// confirms the connection and after the channel drops.
func (m *Manager) SessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// Connect starts the channel. It is safe to call more than once; only the
// first call dials.
func (m *Manager) Connect(ctx context.Context) {
	m.connectOnce.Do(func() {
		ctx, m.cancel = context.WithCancel(ctx)
		go m.run(ctx)
	})
}

// Close tears the channel down exactly once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
			<-m.done
		}
	})
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	for {
		conn, _, err := websocket.Dial(ctx, m.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("Failed to dial push channel ", "url ", m.url, " error ", err)
			if !m.wait(ctx) {
				return
			}
			continue
		}

		m.logger.Info("Push channel connected ", "url ", m.url)
		m.readLoop(ctx, conn)

		m.setSessionID("")
		if ctx.Err() != nil {
			return
		}
		m.logger.Error("Push channel closed, reconnecting")
		if !m.wait(ctx) {
			return
		}
	}
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		m.dispatch(data)
	}
}

// dispatch demultiplexes one inbound frame. Undecodable frames are dropped
// and logged, never fatal.
func (m *Manager) dispatch(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		m.logger.Error("Dropping undecodable push frame ", "error ", err)
		return
	}

	switch f.Event {
	case "connected":
		var id string
		if err := json.Unmarshal(f.Data, &id); err != nil || id == "" {
			m.logger.Error("Dropping connected frame without identity ", "error ", err)
			return
		}
		m.setSessionID(id)
		m.consumer.OnConnected(id)
	case "users-connected":
		var count int
		if err := json.Unmarshal(f.Data, &count); err != nil {
			m.logger.Error("Dropping malformed presence frame ", "error ", err)
			return
		}
		m.consumer.OnPresence(count)
	case "paid":
		m.consumer.OnPaymentConfirmed()
	case "new-message":
		// The backend emits the marker as a JSON-encoded string.
		var payload string
		if err := json.Unmarshal(f.Data, &payload); err == nil {
			m.consumer.OnNewMarker([]byte(payload))
			return
		}
		m.consumer.OnNewMarker(f.Data)
	default:
		m.logger.Debug("Ignoring unknown push event ", "event ", f.Event)
	}
}

func (m *Manager) setSessionID(id string) {
	m.mu.Lock()
	m.sessionID = id
	m.mu.Unlock()
}

func (m *Manager) wait(ctx context.Context) bool {
	timer := time.NewTimer(m.reconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

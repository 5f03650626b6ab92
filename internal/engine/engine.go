package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/MiguelMedeiros/zapin.me/internal/models"
	"github.com/MiguelMedeiros/zapin.me/internal/store"
	"github.com/MiguelMedeiros/zapin.me/pkg/logger"
)

const (
	// countRefreshDelay coalesces bursts of store mutations into a single
	// aggregate-count refresh.
	countRefreshDelay = 1 * time.Second

	// celebrationWindow is how long the celebratory side effect stays up.
	celebrationWindow = 5 * time.Second

	// eventQueueSize buffers inbound events between their producers and
	// the dispatcher.
	eventQueueSize = 256
)

var (
	// ErrNotConnected is returned for operations gated on the session
	// identity before the push channel has established one.
	ErrNotConnected = errors.New("no session identity yet")

	// ErrPaymentInProgress is returned when a draft or invoice is already
	// outstanding.
	ErrPaymentInProgress = errors.New("a payment is already in progress")
)

// Options tunes an Engine. Zero values fall back to the defaults above.
type Options struct {
	PageSize          int
	DefaultAmount     int64
	CountRefreshDelay time.Duration
	CelebrationWindow time.Duration
	// DeepLinkPin is a marker id selected at startup, 0 for none.
	DeepLinkPin int64
}

// Engine owns the client-side map state and reconciles its three
// independently timed inputs: paginated REST snapshots, the push channel and
// the wallet flow. Inbound asynchronous results arrive as typed events and
// are applied one at a time by Run; user-initiated operations are the named
// methods below. Nothing else mutates the state.
type Engine struct {
	logger    *logger.Logger
	backend   models.BackendService
	wallet    models.WalletService
	analytics models.AnalyticsService
	store     *store.Store

	pageSize          int
	defaultAmount     int64
	countRefreshDelay time.Duration
	celebrationWindow time.Duration

	events chan event

	mu             sync.RWMutex
	sessionID      string
	cursors        map[models.Partition]*cursor
	payment        paymentMachine
	usersConnected int
	totalPins      int
	activePins     int
	countPending   bool
	celebrating    bool
	celebrateGen   int
	selected       int64
}

// New creates an Engine. The wallet and analytics services may be inert
// implementations; the backend is required.
func New(backend models.BackendService, wallet models.WalletService, analytics models.AnalyticsService, logger *logger.Logger, opts Options) *Engine {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.DefaultAmount <= 0 {
		opts.DefaultAmount = 1440
	}
	if opts.CountRefreshDelay <= 0 {
		opts.CountRefreshDelay = countRefreshDelay
	}
	if opts.CelebrationWindow <= 0 {
		opts.CelebrationWindow = celebrationWindow
	}

	return &Engine{
		logger:            logger,
		backend:           backend,
		wallet:            wallet,
		analytics:         analytics,
		store:             store.New(),
		pageSize:          opts.PageSize,
		defaultAmount:     opts.DefaultAmount,
		countRefreshDelay: opts.CountRefreshDelay,
		celebrationWindow: opts.CelebrationWindow,
		events:            make(chan event, eventQueueSize),
		cursors: map[models.Partition]*cursor{
			models.PartitionActive:      {},
			models.PartitionDeactivated: {},
		},
		payment:  paymentMachine{state: models.PaymentIdle},
		selected: opts.DeepLinkPin,
	}
}

// Run consumes inbound events until the context is cancelled. It must be
// running for push events and fetch results to take effect.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.events:
			e.apply(ev)
		}
	}
}

func (e *Engine) post(ev event) {
	e.events <- ev
}

func (e *Engine) apply(ev event) {
	switch ev := ev.(type) {
	case connectedEvent:
		e.handleConnected(ev)
	case presenceEvent:
		e.handlePresence(ev)
	case paymentConfirmedEvent:
		e.handlePaymentConfirmed()
	case markerPushedEvent:
		e.handleMarkerPushed(ev)
	case pageFetchedEvent:
		e.handlePageFetched(ev)
	case fetchFailedEvent:
		e.handleFetchFailed(ev)
	case walletResultEvent:
		e.handleWalletResult(ev)
	case countsFetchedEvent:
		e.handleCountsFetched(ev)
	case countsFailedEvent:
		e.logger.Error("Failed to refresh counts ", "error ", ev.err)
	case countsDueEvent:
		e.handleCountsDue()
	case celebrationOverEvent:
		e.handleCelebrationOver(ev)
	}
}

// OnConnected implements channel.Consumer.
func (e *Engine) OnConnected(sessionID string) {
	e.post(connectedEvent{sessionID: sessionID})
}

// OnPresence implements channel.Consumer.
func (e *Engine) OnPresence(count int) {
	e.post(presenceEvent{count: count})
}

// OnPaymentConfirmed implements channel.Consumer.
func (e *Engine) OnPaymentConfirmed() {
	e.post(paymentConfirmedEvent{})
}

// OnNewMarker implements channel.Consumer.
func (e *Engine) OnNewMarker(raw []byte) {
	e.post(markerPushedEvent{raw: raw})
}

// handleConnected installs a fresh session identity and runs the fetches
// gated on it. An identity replacing an earlier one is treated as a fresh
// connect: the current page of both partitions is fetched again (appending,
// like every fetch) and the counts are refreshed.
func (e *Engine) handleConnected(ev connectedEvent) {
	e.mu.Lock()
	previous := e.sessionID
	e.sessionID = ev.sessionID
	e.mu.Unlock()

	if previous != "" {
		e.logger.Warn("Session identity replaced ", "previous ", previous, " current ", ev.sessionID)
	} else {
		e.logger.Info("Session established ", "session ", ev.sessionID)
	}

	for _, partition := range []models.Partition{models.PartitionActive, models.PartitionDeactivated} {
		e.fetchCurrentPage(partition)
	}
	e.refreshCounts()
}

func (e *Engine) handlePresence(ev presenceEvent) {
	e.mu.Lock()
	e.usersConnected = ev.count
	e.mu.Unlock()
}

// handleMarkerPushed merges a live-delivered marker into the front of the
// active partition. Malformed payloads are dropped, never fatal.
func (e *Engine) handleMarkerPushed(ev markerPushedEvent) {
	var m models.Marker
	if err := json.Unmarshal(ev.raw, &m); err != nil {
		e.logger.Error("Dropping malformed marker push ", "error ", err)
		return
	}

	e.store.InsertPushed(m)
	e.logger.Debug("Merged pushed marker ", "id ", m.ID)
	e.scheduleCountRefresh()
	e.startCelebration()
}

// SessionID returns the current session identity, empty until connected.
func (e *Engine) SessionID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessionID
}

// Markers returns the accumulated collection of one partition.
func (e *Engine) Markers(partition models.Partition) []models.Marker {
	return e.store.Markers(partition)
}

// Counts returns the current aggregate view.
func (e *Engine) Counts() models.Counts {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.Counts{
		TotalPins:      e.totalPins,
		ActivePins:     e.activePins,
		UsersConnected: e.usersConnected,
	}
}

// Celebrating reports whether the celebratory side effect is running.
func (e *Engine) Celebrating() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.celebrating
}

// Select highlights a marker. The id does not have to be loaded yet: deep
// links resolve lazily against the store once data arrives.
func (e *Engine) Select(id int64) {
	e.mu.Lock()
	e.selected = id
	e.mu.Unlock()
}

// Selected returns the highlighted marker id, zero when nothing is selected.
func (e *Engine) Selected() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selected
}

// MarkExpired moves a marker to the other partition and schedules a count
// refresh. Used by the map collaborator when it observes an expiry.
func (e *Engine) MarkExpired(id int64) bool {
	if !e.store.MoveOnExpire(id) {
		e.logger.Debug("Ignoring expiry for unknown marker ", "id ", id)
		return false
	}
	e.scheduleCountRefresh()
	return true
}

// startCelebration raises the celebration flag for one full window. A new
// trigger extends the window; the generation counter keeps a stale timer
// from cutting a newer window short.
func (e *Engine) startCelebration() {
	e.mu.Lock()
	e.celebrating = true
	e.celebrateGen++
	gen := e.celebrateGen
	e.mu.Unlock()

	time.AfterFunc(e.celebrationWindow, func() {
		e.post(celebrationOverEvent{gen: gen})
	})
}

func (e *Engine) handleCelebrationOver(ev celebrationOverEvent) {
	e.mu.Lock()
	if ev.gen == e.celebrateGen {
		e.celebrating = false
	}
	e.mu.Unlock()
}

package engine

import "github.com/MiguelMedeiros/zapin.me/internal/models"

// Inbound asynchronous events. Push frames, fetch results, wallet results
// and timer expiries all become one of these and are consumed one at a time
// by the dispatcher in Run, so their interleaving is the only ordering that
// matters.
type event interface {
	isEvent()
}

// connectedEvent carries a fresh session identity from the push channel.
type connectedEvent struct {
	sessionID string
}

// presenceEvent carries the pushed users-connected count.
type presenceEvent struct {
	count int
}

// paymentConfirmedEvent is the push channel asserting settlement.
type paymentConfirmedEvent struct{}

// markerPushedEvent carries the raw JSON of a live-delivered marker.
type markerPushedEvent struct {
	raw []byte
}

// pageFetchedEvent is a resolved paginated fetch.
type pageFetchedEvent struct {
	partition models.Partition
	page      int
	markers   []models.Marker
}

// fetchFailedEvent is a failed paginated fetch.
type fetchFailedEvent struct {
	partition models.Partition
	page      int
	err       error
}

// walletResultEvent is the outcome of a wallet payment attempt. It is
// logged only; settlement never comes from here.
type walletResultEvent struct {
	invoice string
	err     error
}

// countsFetchedEvent is a resolved aggregate-count refresh.
type countsFetchedEvent struct {
	counts models.PinCounts
}

// countsFailedEvent is a failed aggregate-count refresh.
type countsFailedEvent struct {
	err error
}

// countsDueEvent fires when the debounce window for a coalesced count
// refresh has elapsed.
type countsDueEvent struct{}

// celebrationOverEvent ends the celebratory side effect. The generation
// ties it to the trigger that scheduled it.
type celebrationOverEvent struct {
	gen int
}

func (connectedEvent) isEvent()        {}
func (presenceEvent) isEvent()         {}
func (paymentConfirmedEvent) isEvent() {}
func (markerPushedEvent) isEvent()     {}
func (pageFetchedEvent) isEvent()      {}
func (fetchFailedEvent) isEvent()      {}
func (walletResultEvent) isEvent()     {}
func (countsFetchedEvent) isEvent()    {}
func (countsFailedEvent) isEvent()     {}
func (countsDueEvent) isEvent()        {}
func (celebrationOverEvent) isEvent()  {}

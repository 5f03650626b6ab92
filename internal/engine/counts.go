package engine

import (
	"context"
	"time"
)

// scheduleCountRefresh arms the debounced aggregate refresh. A single
// pending timer coalesces bursts of store mutations: five pushed markers in
// one window still cost one request.
func (e *Engine) scheduleCountRefresh() {
	e.mu.Lock()
	if e.countPending {
		e.mu.Unlock()
		return
	}
	e.countPending = true
	e.mu.Unlock()

	time.AfterFunc(e.countRefreshDelay, func() {
		e.post(countsDueEvent{})
	})
}

func (e *Engine) handleCountsDue() {
	e.mu.Lock()
	e.countPending = false
	e.mu.Unlock()

	e.refreshCounts()
}

// refreshCounts asks the backend for the server-computed aggregates and
// posts the result back as an event. The counts are replaced wholesale;
// the client never derives them from loaded lengths, because expiration
// happens server-side over time.
func (e *Engine) refreshCounts() {
	go func() {
		counts, err := e.backend.CountPins(context.Background())
		if err != nil {
			e.post(countsFailedEvent{err: err})
			return
		}
		e.post(countsFetchedEvent{counts: counts})
	}()
}

func (e *Engine) handleCountsFetched(ev countsFetchedEvent) {
	e.mu.Lock()
	e.totalPins = ev.counts.TotalActive + ev.counts.TotalExpired
	e.activePins = ev.counts.TotalActive
	e.mu.Unlock()
}

package engine

import (
	"context"

	"github.com/MiguelMedeiros/zapin.me/internal/models"
)

// cursor tracks pagination for one partition. page is the last page whose
// items were appended; it only moves forward when a fetch for the next page
// resolves, so a failed advance can be re-triggered with the same page.
type cursor struct {
	page      int
	loading   bool
	exhausted bool
	lastErr   error
}

// Loading reports whether a fetch is in flight for the partition.
func (e *Engine) Loading(partition models.Partition) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cursors[partition].loading
}

// LastError returns the error of the partition's most recent fetch, nil once
// a fetch has succeeded since.
func (e *Engine) LastError(partition models.Partition) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cursors[partition].lastErr
}

// LoadMore advances the partition's cursor by one page. It is gated on the
// session identity and re-entrant-safe: a second call while a fetch is in
// flight is a no-op.
func (e *Engine) LoadMore(partition models.Partition) error {
	e.mu.Lock()
	if e.sessionID == "" {
		e.mu.Unlock()
		return ErrNotConnected
	}
	cur := e.cursors[partition]
	if cur.loading {
		e.mu.Unlock()
		return nil
	}
	if cur.exhausted {
		e.mu.Unlock()
		e.logger.Debug("No more pages for partition ", "partition ", partition)
		return nil
	}
	page := cur.page + 1
	cur.loading = true
	e.mu.Unlock()

	e.fetch(partition, page)
	return nil
}

// fetchCurrentPage re-issues the fetch of the partition's current page, or
// of page 1 when nothing has loaded yet. Used when an identity is
// (re-)established.
func (e *Engine) fetchCurrentPage(partition models.Partition) {
	e.mu.Lock()
	cur := e.cursors[partition]
	if cur.loading {
		e.mu.Unlock()
		return
	}
	page := cur.page
	if page < 1 {
		page = 1
	}
	cur.loading = true
	e.mu.Unlock()

	e.fetch(partition, page)
}

// fetch runs the actual request off the dispatcher and posts the result
// back as an event. The loading flag is already set; it is cleared in both
// resolution paths. In-flight requests are never cancelled.
func (e *Engine) fetch(partition models.Partition, page int) {
	go func() {
		markers, err := e.backend.ListInvoices(context.Background(), partition, page, e.pageSize)
		if err != nil {
			e.post(fetchFailedEvent{partition: partition, page: page, err: err})
			return
		}
		e.post(pageFetchedEvent{partition: partition, page: page, markers: markers})
	}()
}

// handlePageFetched appends the page to the partition's tail. Appending,
// never replacing, keeps already-rendered markers stable even when results
// resolve out of order. An empty page marks the partition exhausted.
func (e *Engine) handlePageFetched(ev pageFetchedEvent) {
	e.mu.Lock()
	cur := e.cursors[ev.partition]
	cur.loading = false
	cur.lastErr = nil
	if ev.page > cur.page {
		cur.page = ev.page
	}
	if len(ev.markers) == 0 {
		cur.exhausted = true
	}
	e.mu.Unlock()

	if len(ev.markers) == 0 {
		e.logger.Debug("Reached end of partition ", "partition ", ev.partition, " page ", ev.page)
		return
	}

	e.store.AppendFetched(ev.partition, ev.markers)
	e.logger.Debug("Appended page ", "partition ", ev.partition, " page ", ev.page, " items ", len(ev.markers))
	e.scheduleCountRefresh()
}

// handleFetchFailed clears the loading flag and leaves the partition and
// its cursor untouched. No retry is scheduled; the caller may re-trigger.
func (e *Engine) handleFetchFailed(ev fetchFailedEvent) {
	e.mu.Lock()
	cur := e.cursors[ev.partition]
	cur.loading = false
	cur.lastErr = ev.err
	e.mu.Unlock()

	e.logger.Error("Failed to fetch page ", "partition ", ev.partition, " page ", ev.page, " error ", ev.err)
}

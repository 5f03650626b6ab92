package models

import "context"

// EngineAPI is what the rendering surface (the local HTTP API) may do with
// the engine. All reads are snapshots; all mutations go through named
// operations, never through shared state.
type EngineAPI interface {
	// Markers returns the accumulated collection of one partition in
	// arrival order.
	Markers(partition Partition) []Marker

	// Loading reports whether a page fetch is in flight for the partition.
	Loading(partition Partition) bool

	// LastError returns the error of the partition's most recent fetch,
	// nil once a fetch has succeeded since.
	LastError(partition Partition) error

	// LoadMore advances the partition's pagination cursor by one page.
	LoadMore(partition Partition) error

	// Counts returns the current aggregate view.
	Counts() Counts

	// Celebrating reports whether the celebratory side effect is running.
	Celebrating() bool

	// SessionID returns the live channel identity, empty until connected.
	SessionID() string

	// OpenDraft starts a new pin draft at the given coordinate.
	OpenDraft(lat, long float64) error

	// SubmitDraft sends the draft to the server and returns the invoice.
	SubmitDraft(ctx context.Context, message string, amount int64) (string, error)

	// CancelPayment dismisses the draft or the outstanding invoice.
	CancelPayment()

	// Payment returns a snapshot of the payment state machine.
	Payment() PaymentStatus

	// Select highlights a marker; Selected returns the highlighted id,
	// zero when nothing is selected.
	Select(id int64)
	Selected() int64

	// MarkExpired moves a marker to the other partition.
	MarkExpired(id int64) bool
}

// APIServer serves the engine to local consumers.
type APIServer interface {
	Start()
	Shutdown() error
}

package models

import "context"

// BackendService is the client's view of the zapin.me HTTP API.
type BackendService interface {
	// ListInvoices fetches one page of markers for the given partition.
	// An empty page means there is no more data.
	ListInvoices(ctx context.Context, partition Partition, page, limit int) ([]Marker, error)

	// CountPins fetches the server-computed aggregate counts.
	CountPins(ctx context.Context) (PinCounts, error)

	// CreateInvoice submits a draft and returns the payment-request string
	// the user has to pay.
	CreateInvoice(ctx context.Context, draft Draft, sessionID string) (string, error)
}

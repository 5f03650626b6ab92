package models

// AnalyticsEvent is one fire-and-forget event record.
type AnalyticsEvent struct {
	Action   string `json:"action"`
	Category string `json:"category"`
	Label    string `json:"label"`
	// Value is an optional numeric value, e.g. the paid amount.
	Value int64 `json:"value,omitempty"`
}

// AnalyticsService delivers event records to an external sink. It must never
// block or fail the main flow when the sink is unavailable.
type AnalyticsService interface {
	SendEvent(ev AnalyticsEvent)
}

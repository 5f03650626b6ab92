package models

// PinCounts is the aggregate reply of the backend's count endpoint. The
// split between active and expired is computed server-side; the client never
// derives it from loaded pages.
type PinCounts struct {
	TotalActive  int `json:"totalActive"`
	TotalExpired int `json:"totalExpired"`
}

// Counts is the client's current aggregate view.
type Counts struct {
	// TotalPins is active plus expired pins.
	TotalPins int `json:"total_pins"`
	// ActivePins is the number of pins still active.
	ActivePins int `json:"active_pins"`
	// UsersConnected is the presence count pushed over the live channel.
	UsersConnected int `json:"users_connected"`
}

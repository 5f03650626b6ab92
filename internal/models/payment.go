package models

// PaymentState is the position of the invoice payment state machine.
type PaymentState string

const (
	// PaymentIdle means no draft or invoice exists.
	PaymentIdle PaymentState = "idle"
	// PaymentDrafting means the user is editing a pin draft.
	PaymentDrafting PaymentState = "drafting"
	// PaymentSubmitting means the draft is on its way to the server.
	PaymentSubmitting PaymentState = "submitting"
	// PaymentAwaiting means a server-issued invoice is outstanding and
	// settlement can only come from the push channel.
	PaymentAwaiting PaymentState = "awaiting_payment"
)

// Draft is a user-entered pin that has not been submitted yet. It exists
// only between opening the creation form and submit or cancel.
type Draft struct {
	// Message is the text the pin will carry.
	Message string `json:"message"`
	// Amount is the amount to pay in satoshis.
	Amount int64 `json:"amount"`
	// Lat is the latitude of the target coordinate.
	Lat float64 `json:"lat"`
	// Long is the longitude of the target coordinate.
	Long float64 `json:"long"`
}

// PaymentStatus is a snapshot of the payment state machine.
type PaymentStatus struct {
	State PaymentState `json:"state"`
	// Invoice is the outstanding payment-request string, empty unless the
	// machine is awaiting payment.
	Invoice string `json:"invoice,omitempty"`
	Draft   *Draft `json:"draft,omitempty"`
}

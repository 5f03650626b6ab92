package models

// WalletService is the external wallet capability. Calls are fire-and-forget
// from the engine's point of view: their outcome is logged but never drives a
// state transition, since settlement is asserted by the push channel only.
type WalletService interface {
	// Available reports whether a wallet capability is configured.
	Available() bool

	// SendPayment asks the wallet to pay the given invoice string.
	SendPayment(invoice string) error
}

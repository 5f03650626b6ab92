package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/MiguelMedeiros/zapin.me/internal/models"
	"github.com/MiguelMedeiros/zapin.me/pkg/validation"
)

// paymentMachine is the invoice payment state machine. At most one invoice
// is ever outstanding; only a push-delivered payment confirmation settles
// it, never the wallet call's own return.
type paymentMachine struct {
	state   models.PaymentState
	draft   models.Draft
	invoice string
}

// OpenDraft starts a new pin draft at the given coordinate, with the
// default amount and an empty message. Opening while a draft already exists
// just moves its target; opening while an invoice is in flight or
// outstanding is rejected.
func (e *Engine) OpenDraft(lat, long float64) error {
	if err := validation.ValidateCoordinate(lat, long); err != nil {
		return err
	}

	e.mu.Lock()
	switch e.payment.state {
	case models.PaymentIdle:
		e.payment.state = models.PaymentDrafting
		e.payment.draft = models.Draft{Amount: e.defaultAmount, Lat: lat, Long: long}
	case models.PaymentDrafting:
		e.payment.draft.Lat = lat
		e.payment.draft.Long = long
		e.mu.Unlock()
		return nil
	default:
		e.mu.Unlock()
		return ErrPaymentInProgress
	}
	e.mu.Unlock()

	e.analytics.SendEvent(models.AnalyticsEvent{
		Action:   "open_modal",
		Category: "Engagement",
		Label:    "Create Marker Modal Opened",
	})
	return nil
}

// SubmitDraft sends the draft to the server. On success the machine moves
// to awaiting payment, holds the returned invoice and asks the wallet to
// pay it; on failure the machine returns to drafting with the draft fields
// intact. Submission is rejected in every state but drafting.
func (e *Engine) SubmitDraft(ctx context.Context, message string, amount int64) (string, error) {
	e.mu.Lock()
	if e.payment.state != models.PaymentDrafting {
		e.mu.Unlock()
		return "", ErrPaymentInProgress
	}
	if e.sessionID == "" {
		e.mu.Unlock()
		return "", ErrNotConnected
	}
	if message != "" {
		e.payment.draft.Message = message
	}
	if amount > 0 {
		e.payment.draft.Amount = amount
	}
	draft := e.payment.draft
	sessionID := e.sessionID

	if err := validation.ValidateMessage(draft.Message); err != nil {
		e.mu.Unlock()
		return "", err
	}
	if err := validation.ValidateAmount(draft.Amount); err != nil {
		e.mu.Unlock()
		return "", err
	}
	e.payment.state = models.PaymentSubmitting
	e.mu.Unlock()

	invoice, err := e.backend.CreateInvoice(ctx, draft, sessionID)

	e.mu.Lock()
	if e.payment.state != models.PaymentSubmitting {
		// Settled or dismissed while the request was in flight; the
		// machine was reset, so this result has no home.
		e.mu.Unlock()
		e.logger.Warn("Discarding submission result after reset ", "error ", err)
		return "", ErrPaymentInProgress
	}
	if err != nil {
		e.payment.state = models.PaymentDrafting
		e.mu.Unlock()
		e.logger.Error("Failed to submit draft ", "error ", err)
		return "", fmt.Errorf("failed to submit draft: %w", err)
	}
	e.payment.state = models.PaymentAwaiting
	e.payment.invoice = invoice
	e.mu.Unlock()

	e.logger.Info("Invoice created, awaiting payment ", "session ", sessionID)
	e.payWithWallet(invoice)
	return invoice, nil
}

// payWithWallet asks the external wallet to pay the invoice. The attempt is
// fire-and-forget: capability absence or payment failure is logged and the
// machine keeps awaiting the push confirmation, since the user may still
// pay through another channel.
func (e *Engine) payWithWallet(invoice string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("Wallet call panicked ",
					"panic ", r,
					" stack ", string(debug.Stack()))
			}
		}()
		err := e.wallet.SendPayment(invoice)
		e.post(walletResultEvent{invoice: invoice, err: err})
	}()
}

func (e *Engine) handleWalletResult(ev walletResultEvent) {
	if ev.err != nil {
		e.logger.Error("Wallet payment attempt failed, awaiting settlement via push ", "invoice ", ev.invoice, " error ", ev.err)
		return
	}
	e.logger.Debug("Wallet accepted payment request")
}

// CancelPayment dismisses the draft or the outstanding invoice and re-arms
// the machine. A submission in flight cannot be cancelled (in-flight
// requests are never cancelled); dismiss again once it resolves.
func (e *Engine) CancelPayment() {
	e.mu.Lock()
	if e.payment.state == models.PaymentSubmitting {
		e.mu.Unlock()
		return
	}
	e.payment = paymentMachine{state: models.PaymentIdle}
	e.mu.Unlock()
}

// Payment returns a snapshot of the payment state machine.
func (e *Engine) Payment() models.PaymentStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status := models.PaymentStatus{
		State:   e.payment.state,
		Invoice: e.payment.invoice,
	}
	if e.payment.state == models.PaymentDrafting || e.payment.state == models.PaymentSubmitting || e.payment.state == models.PaymentAwaiting {
		draft := e.payment.draft
		status.Draft = &draft
	}
	return status
}

// handlePaymentConfirmed is the only path to settlement. The push channel
// asserting a completed payment clears the invoice and draft, closes the
// creation flow, fires the celebratory side effect and the purchase
// analytics event, and refreshes counts immediately.
func (e *Engine) handlePaymentConfirmed() {
	e.mu.Lock()
	amount := e.payment.draft.Amount
	if amount == 0 {
		amount = e.defaultAmount
	}
	e.payment = paymentMachine{state: models.PaymentIdle}
	e.mu.Unlock()

	e.logger.Info("Payment confirmed, machine re-armed")
	e.analytics.SendEvent(models.AnalyticsEvent{
		Action:   "purchase",
		Category: "Ecommerce",
		Label:    "Invoice Paid",
		Value:    amount,
	})
	e.startCelebration()
	e.refreshCounts()
}

package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MiguelMedeiros/zapin.me/pkg/logger"
)

// ErrNoProvider means no wallet capability is configured. The engine treats
// it like any other wallet failure: logged, never fatal.
var ErrNoProvider = errors.New("no wallet capability configured")

const paymentTimeout = 30 * time.Second

// HTTPWallet drives an LNbits-compatible wallet over its payments API. It
// plays the role the in-browser WebLN provider plays for the web client:
// best effort, and its answers are never trusted for settlement.
type HTTPWallet struct {
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPWallet creates a wallet client. An empty baseURL means the
// capability is unavailable.
func NewHTTPWallet(baseURL, apiKey string, logger *logger.Logger) *HTTPWallet {
	return &HTTPWallet{
		logger:     logger,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: paymentTimeout},
	}
}

// Available reports whether a wallet capability is configured.
func (w *HTTPWallet) Available() bool {
	return w.baseURL != ""
}

type paymentRequest struct {
	Out    bool   `json:"out"`
	Bolt11 string `json:"bolt11"`
}

// SendPayment asks the wallet to pay the invoice. The wallet answering is
// not settlement; that only comes from the push channel.
func (w *HTTPWallet) SendPayment(invoice string) error {
	if !w.Available() {
		return ErrNoProvider
	}
	if invoice == "" {
		return fmt.Errorf("empty invoice")
	}

	ctx, cancel := context.WithTimeout(context.Background(), paymentTimeout)
	defer cancel()

	bodyBytes, err := json.Marshal(paymentRequest{Out: true, Bolt11: invoice})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/api/v1/payments", bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", w.apiKey)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wallet request failed: %w", err)
	}
	payload, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("wallet rejected payment: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	w.logger.Debug("Wallet accepted payment request")
	return nil
}

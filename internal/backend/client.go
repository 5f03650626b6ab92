package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MiguelMedeiros/zapin.me/internal/models"
)

const (
	// requestTimeout bounds every single call to the backend.
	requestTimeout = 10 * time.Second
)

// HTTPError is a non-2xx reply from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// Client talks to the zapin.me HTTP API. It never retries: the engine's
// callers decide whether to re-trigger a failed fetch.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type invoicesResponse struct {
	Invoices []models.Marker `json:"invoices"`
}

type createInvoiceRequest struct {
	Message   string  `json:"message"`
	Amount    int64   `json:"amount"`
	Lat       float64 `json:"lat"`
	Long      float64 `json:"long"`
	SessionID string  `json:"session_id"`
}

type createInvoiceResponse struct {
	PaymentRequest string `json:"payment_request"`
}

// ListInvoices fetches one page of markers for the given partition.
func (c *Client) ListInvoices(ctx context.Context, partition models.Partition, page, limit int) ([]models.Marker, error) {
	path := "/invoices"
	if partition == models.PartitionDeactivated {
		path = "/invoices/deactivated"
	}
	q := url.Values{}
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("limit", fmt.Sprintf("%d", limit))

	var out invoicesResponse
	if err := c.doJSON(ctx, http.MethodGet, path+"?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list %s invoices: %w", partition, err)
	}
	for i := range out.Invoices {
		out.Invoices[i].Provenance = models.ProvenanceFetched
	}
	return out.Invoices, nil
}

// CountPins fetches the aggregate pin counts.
func (c *Client) CountPins(ctx context.Context) (models.PinCounts, error) {
	var out models.PinCounts
	if err := c.doJSON(ctx, http.MethodGet, "/invoices/count", nil, &out); err != nil {
		return models.PinCounts{}, fmt.Errorf("failed to count pins: %w", err)
	}
	return out, nil
}

// CreateInvoice submits a draft and returns the payment-request string.
func (c *Client) CreateInvoice(ctx context.Context, draft models.Draft, sessionID string) (string, error) {
	body := createInvoiceRequest{
		Message:   draft.Message,
		Amount:    draft.Amount,
		Lat:       draft.Lat,
		Long:      draft.Long,
		SessionID: sessionID,
	}
	var out createInvoiceResponse
	if err := c.doJSON(ctx, http.MethodPost, "/invoices", body, &out); err != nil {
		return "", fmt.Errorf("failed to create invoice: %w", err)
	}
	if out.PaymentRequest == "" {
		return "", fmt.Errorf("backend returned an empty payment request")
	}
	return out.PaymentRequest, nil
}

func (c *Client) doJSON(ctx context.Context, method, requestPath string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errPayload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(payload, &errPayload)
		return &HTTPError{StatusCode: resp.StatusCode, Message: errPayload.Error}
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

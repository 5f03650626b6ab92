package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MiguelMedeiros/zapin.me/internal/models"
	"github.com/MiguelMedeiros/zapin.me/pkg/logger"
)

const sendTimeout = 5 * time.Second

// Collector posts event records to an external sink. Delivery is
// fire-and-forget on a goroutine; a slow or absent sink never blocks or
// fails the flow that emitted the event.
type Collector struct {
	logger     *logger.Logger
	url        string
	clientID   string
	httpClient *http.Client
}

// NewCollector creates a collector for the given sink URL. An empty URL
// disables the sink entirely.
func NewCollector(url string, logger *logger.Logger) *Collector {
	return &Collector{
		logger:     logger,
		url:        strings.TrimSpace(url),
		clientID:   uuid.NewString(),
		httpClient: &http.Client{Timeout: sendTimeout},
	}
}

type eventRecord struct {
	ClientID string `json:"client_id"`
	Action   string `json:"action"`
	Category string `json:"category"`
	Label    string `json:"label"`
	Value    int64  `json:"value,omitempty"`
}

// SendEvent delivers one event record in the background.
func (c *Collector) SendEvent(ev models.AnalyticsEvent) {
	if c.url == "" {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Analytics delivery panicked ",
					"panic ", r,
					" stack ", string(debug.Stack()))
			}
		}()
		c.deliver(ev)
	}()
}

func (c *Collector) deliver(ev models.AnalyticsEvent) {
	record := eventRecord{
		ClientID: c.clientID,
		Action:   ev.Action,
		Category: ev.Category,
		Label:    ev.Label,
		Value:    ev.Value,
	}
	bodyBytes, err := json.Marshal(record)
	if err != nil {
		c.logger.Debug("Failed to marshal analytics event ", "error ", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		c.logger.Debug("Failed to build analytics request ", "error ", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Failed to deliver analytics event ", "action ", ev.Action, " error ", err)
		return
	}
	_ = resp.Body.Close()
}

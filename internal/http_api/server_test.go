package http_api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiguelMedeiros/zapin.me/internal/engine"
	"github.com/MiguelMedeiros/zapin.me/internal/models"
	"github.com/MiguelMedeiros/zapin.me/pkg/logger"
)

type fakeEngine struct {
	markers     map[models.Partition][]models.Marker
	loading     bool
	lastErr     error
	loadMoreErr error
	loadedMore  []models.Partition
	counts      models.Counts
	celebrating bool
	sessionID   string
	openErr     error
	submitErr   error
	invoice     string
	cancelled   int
	payment     models.PaymentStatus
	selected    int64
	expired     []int64
	expireOK    bool
}

func (f *fakeEngine) Markers(p models.Partition) []models.Marker { return f.markers[p] }
func (f *fakeEngine) Loading(models.Partition) bool              { return f.loading }
func (f *fakeEngine) LastError(models.Partition) error           { return f.lastErr }

func (f *fakeEngine) LoadMore(p models.Partition) error {
	f.loadedMore = append(f.loadedMore, p)
	return f.loadMoreErr
}

func (f *fakeEngine) Counts() models.Counts { return f.counts }
func (f *fakeEngine) Celebrating() bool     { return f.celebrating }
func (f *fakeEngine) SessionID() string     { return f.sessionID }

func (f *fakeEngine) OpenDraft(lat, long float64) error { return f.openErr }

func (f *fakeEngine) SubmitDraft(_ context.Context, message string, amount int64) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.invoice, nil
}

func (f *fakeEngine) CancelPayment() { f.cancelled++ }

func (f *fakeEngine) Payment() models.PaymentStatus { return f.payment }

func (f *fakeEngine) Select(id int64) { f.selected = id }
func (f *fakeEngine) Selected() int64 { return f.selected }

func (f *fakeEngine) MarkExpired(id int64) bool {
	f.expired = append(f.expired, id)
	return f.expireOK
}

func newTestServer(t *testing.T, eng models.EngineAPI) *HTTPServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv, ok := NewHTTPServer(eng, 0, logger.NewNop()).(*HTTPServer)
	require.True(t, ok)
	return srv
}

func doRequest(srv *HTTPServer, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestListMarkers(t *testing.T) {
	eng := &fakeEngine{
		markers: map[models.Partition][]models.Marker{
			models.PartitionActive:      {{ID: 1, Message: "hello"}},
			models.PartitionDeactivated: {{ID: 2, Message: "expired"}},
		},
	}
	srv := newTestServer(t, eng)

	rec := doRequest(srv, http.MethodGet, "/api/v1/markers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"markers":[{"id":1,"lat":0,"long":0,"message":"hello","amount":0}],"loading":false}`,
		rec.Body.String())

	rec = doRequest(srv, http.MethodGet, "/api/v1/markers?partition=deactivated", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"expired"`)

	rec = doRequest(srv, http.MethodGet, "/api/v1/markers?partition=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMarkersSurfacesFetchError(t *testing.T) {
	eng := &fakeEngine{lastErr: fmt.Errorf("backend down")}
	srv := newTestServer(t, eng)

	rec := doRequest(srv, http.MethodGet, "/api/v1/markers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"markers":null,"loading":false,"error":"backend down"}`, rec.Body.String())

	eng.lastErr = nil
	rec = doRequest(srv, http.MethodGet, "/api/v1/markers", "")
	assert.NotContains(t, rec.Body.String(), "error")
}

func TestLoadMore(t *testing.T) {
	eng := &fakeEngine{}
	srv := newTestServer(t, eng)

	rec := doRequest(srv, http.MethodPost, "/api/v1/markers/load_more", `{"partition":"active"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.Partition{models.PartitionActive}, eng.loadedMore)

	rec = doRequest(srv, http.MethodPost, "/api/v1/markers/load_more", `{"partition":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	eng.loadMoreErr = engine.ErrNotConnected
	rec = doRequest(srv, http.MethodPost, "/api/v1/markers/load_more", `{"partition":"active"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSelectAndExpire(t *testing.T) {
	eng := &fakeEngine{expireOK: true}
	srv := newTestServer(t, eng)

	rec := doRequest(srv, http.MethodPost, "/api/v1/markers/42/select", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), eng.selected)

	rec = doRequest(srv, http.MethodGet, "/api/v1/markers/selected", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"selected":42}`, rec.Body.String())

	rec = doRequest(srv, http.MethodPost, "/api/v1/markers/42/expire", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{42}, eng.expired)

	eng.expireOK = false
	rec = doRequest(srv, http.MethodPost, "/api/v1/markers/7/expire", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/v1/markers/abc/expire", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCounts(t *testing.T) {
	eng := &fakeEngine{
		counts:      models.Counts{TotalPins: 13, ActivePins: 9, UsersConnected: 3},
		celebrating: true,
	}
	srv := newTestServer(t, eng)

	rec := doRequest(srv, http.MethodGet, "/api/v1/counts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"users_connected":3,"total_pins":13,"active_pins":9,"celebrating":true}`,
		rec.Body.String())
}

func TestSession(t *testing.T) {
	eng := &fakeEngine{}
	srv := newTestServer(t, eng)

	rec := doRequest(srv, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"session_id":"","connected":false}`, rec.Body.String())

	eng.sessionID = "abc123"
	rec = doRequest(srv, http.MethodGet, "/api/v1/session", "")
	assert.JSONEq(t, `{"session_id":"abc123","connected":true}`, rec.Body.String())
}

func TestCreatePin(t *testing.T) {
	eng := &fakeEngine{invoice: "lnbc1test"}
	srv := newTestServer(t, eng)

	body := `{"lat":10,"long":20,"message":"hi","amount":1440}`
	rec := doRequest(srv, http.MethodPost, "/api/v1/pins", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"payment_request":"lnbc1test"}`, rec.Body.String())
}

func TestCreatePinValidation(t *testing.T) {
	eng := &fakeEngine{invoice: "lnbc1test"}
	srv := newTestServer(t, eng)

	// Empty message never reaches the engine.
	rec := doRequest(srv, http.MethodPost, "/api/v1/pins", `{"lat":10,"long":20,"message":"","amount":1440}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/v1/pins", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePinConflicts(t *testing.T) {
	eng := &fakeEngine{openErr: engine.ErrPaymentInProgress}
	srv := newTestServer(t, eng)

	body := `{"lat":10,"long":20,"message":"hi","amount":1440}`
	rec := doRequest(srv, http.MethodPost, "/api/v1/pins", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	eng.openErr = nil
	eng.submitErr = engine.ErrNotConnected
	rec = doRequest(srv, http.MethodPost, "/api/v1/pins", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	eng.submitErr = fmt.Errorf("backend down")
	rec = doRequest(srv, http.MethodPost, "/api/v1/pins", body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPaymentStatusAndCancel(t *testing.T) {
	draft := models.Draft{Message: "hi", Amount: 1440, Lat: 10, Long: 20}
	eng := &fakeEngine{
		payment: models.PaymentStatus{
			State:   models.PaymentAwaiting,
			Invoice: "lnbc1test",
			Draft:   &draft,
		},
	}
	srv := newTestServer(t, eng)

	rec := doRequest(srv, http.MethodGet, "/api/v1/payment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lnbc1test"`)

	rec = doRequest(srv, http.MethodDelete, "/api/v1/payment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, eng.cancelled)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})

	rec := doRequest(srv, http.MethodOptions, "/api/v1/markers", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

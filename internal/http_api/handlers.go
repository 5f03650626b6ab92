package http_api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MiguelMedeiros/zapin.me/internal/engine"
	"github.com/MiguelMedeiros/zapin.me/internal/models"
	"github.com/MiguelMedeiros/zapin.me/pkg/validation"
)

// CreatePinRequest represents the JSON body for placing a paid pin. It is
// the right-click interaction of the map surface: a target coordinate plus
// the creation form's fields.
type CreatePinRequest struct {
	Lat     float64 `json:"lat"`
	Long    float64 `json:"long"`
	Message string  `json:"message"`
	Amount  int64   `json:"amount"`
}

// CreatePinResponse carries the invoice the caller has to pay.
type CreatePinResponse struct {
	Success        bool   `json:"success"`
	PaymentRequest string `json:"payment_request"`
}

// LoadMoreRequest represents the JSON body for advancing one partition's
// pagination by a page.
type LoadMoreRequest struct {
	Partition models.Partition `json:"partition" binding:"required,oneof=active deactivated"`
}

// MarkersResponse carries one partition's accumulated markers. Error holds
// the partition's most recent fetch failure so the surface can offer a
// retry, empty once a fetch has succeeded since.
type MarkersResponse struct {
	Markers []models.Marker `json:"markers"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
}

// CountsResponse is the aggregate view shown in the header.
type CountsResponse struct {
	UsersConnected int  `json:"users_connected"`
	TotalPins      int  `json:"total_pins"`
	ActivePins     int  `json:"active_pins"`
	Celebrating    bool `json:"celebrating"`
}

// listMarkers is a handler for the /markers endpoint.
func (s *HTTPServer) listMarkers(c *gin.Context) {
	partition := models.Partition(c.DefaultQuery("partition", string(models.PartitionActive)))
	if !partition.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Unknown partition: " + string(partition),
		})
		return
	}

	resp := MarkersResponse{
		Markers: s.engine.Markers(partition),
		Loading: s.engine.Loading(partition),
	}
	if err := s.engine.LastError(partition); err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// loadMore is a handler for the /markers/load_more endpoint.
func (s *HTTPServer) loadMore(c *gin.Context) {
	var req LoadMoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := s.engine.LoadMore(req.Partition); err != nil {
		if errors.Is(err, engine.ErrNotConnected) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "Not connected yet",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// selectMarker is a handler for the /markers/:id/select endpoint.
func (s *HTTPServer) selectMarker(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid marker id",
		})
		return
	}

	s.engine.Select(id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// selectedMarker is a handler for the /markers/selected endpoint.
func (s *HTTPServer) selectedMarker(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"selected": s.engine.Selected()})
}

// expireMarker is a handler for the /markers/:id/expire endpoint. The map
// collaborator calls it when it observes a pin expiring.
func (s *HTTPServer) expireMarker(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid marker id",
		})
		return
	}

	if !s.engine.MarkExpired(id) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Marker not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// counts is a handler for the /counts endpoint.
func (s *HTTPServer) counts(c *gin.Context) {
	counts := s.engine.Counts()
	c.JSON(http.StatusOK, CountsResponse{
		UsersConnected: counts.UsersConnected,
		TotalPins:      counts.TotalPins,
		ActivePins:     counts.ActivePins,
		Celebrating:    s.engine.Celebrating(),
	})
}

// session is a handler for the /session endpoint.
func (s *HTTPServer) session(c *gin.Context) {
	sessionID := s.engine.SessionID()
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"connected":  sessionID != "",
	})
}

// payment is a handler for the /payment endpoint.
func (s *HTTPServer) payment(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Payment())
}

// cancelPayment is a handler for dismissing the creation flow; it clears
// the draft and any outstanding invoice.
func (s *HTTPServer) cancelPayment(c *gin.Context) {
	s.engine.CancelPayment()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// createPin is a handler for the /pins endpoint: it opens a draft at the
// given coordinate, submits it and returns the invoice to pay.
func (s *HTTPServer) createPin(c *gin.Context) {
	var req CreatePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := validation.ValidateMessage(req.Message); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if err := s.engine.OpenDraft(req.Lat, req.Long); err != nil {
		if errors.Is(err, engine.ErrPaymentInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "A payment is already in progress",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	invoice, err := s.engine.SubmitDraft(c.Request.Context(), req.Message, req.Amount)
	if err != nil {
		s.logger.Error("Failed to submit pin", "error", err)
		switch {
		case errors.Is(err, engine.ErrNotConnected):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "Not connected yet",
			})
		case errors.Is(err, engine.ErrPaymentInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "A payment is already in progress",
			})
		default:
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error":   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, CreatePinResponse{
		Success:        true,
		PaymentRequest: invoice,
	})
}

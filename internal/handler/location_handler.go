package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/service"
	"github.com/jengzang/places-backend-go/pkg/response"
)

// LocationHandler handles the device-facing tracking endpoints
type LocationHandler struct {
	service *service.TrackingService
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(service *service.TrackingService) *LocationHandler {
	return &LocationHandler{service: service}
}

// PostFix handles POST /api/v1/location/fixes
func (h *LocationHandler) PostFix(c *gin.Context) {
	var req models.FixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid fix payload", err)
		return
	}

	h.service.OfferFix(req)
	response.Success(c, nil)
}

// PostAuthorization handles POST /api/v1/location/authorization
func (h *LocationHandler) PostAuthorization(c *gin.Context) {
	var req models.AuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid authorization payload", err)
		return
	}

	if err := h.service.ReportAuthorization(req.Status); err != nil {
		response.Error(c, http.StatusBadRequest, "Unknown authorization status", err)
		return
	}

	response.Success(c, nil)
}

// PostLifecycle handles POST /api/v1/location/lifecycle
func (h *LocationHandler) PostLifecycle(c *gin.Context) {
	var req models.LifecycleEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid lifecycle payload", err)
		return
	}

	if err := h.service.HandleLifecycleEvent(req.Event); err != nil {
		response.Error(c, http.StatusBadRequest, "Unknown lifecycle event", err)
		return
	}

	response.Success(c, nil)
}

// GetStatus handles GET /api/v1/location/status
func (h *LocationHandler) GetStatus(c *gin.Context) {
	response.Success(c, h.service.Status())
}

// PostStart handles POST /api/v1/location/start
func (h *LocationHandler) PostStart(c *gin.Context) {
	h.service.Start()
	response.Success(c, nil)
}

// PostStop handles POST /api/v1/location/stop
func (h *LocationHandler) PostStop(c *gin.Context) {
	h.service.Stop()
	response.Success(c, nil)
}

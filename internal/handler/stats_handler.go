package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/places-backend-go/internal/service"
	"github.com/jengzang/places-backend-go/pkg/response"
)

// StatsHandler handles HTTP requests for travel statistics
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(service *service.StatsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// GetSummary handles GET /api/v1/stats/summary
func (h *StatsHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.Summary()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to compute summary", err)
		return
	}

	response.Success(c, summary)
}

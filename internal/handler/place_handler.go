package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/repository"
	"github.com/jengzang/places-backend-go/internal/service"
	"github.com/jengzang/places-backend-go/pkg/response"
)

// PlaceHandler handles HTTP requests for places
type PlaceHandler struct {
	service *service.PlaceService
}

// NewPlaceHandler creates a new place handler
func NewPlaceHandler(service *service.PlaceService) *PlaceHandler {
	return &PlaceHandler{service: service}
}

// GetPlaces handles GET /api/v1/places
func (h *PlaceHandler) GetPlaces(c *gin.Context) {
	var filter models.PlaceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	places, total, err := h.service.GetPlaces(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get places", err)
		return
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	response.Success(c, gin.H{
		"data":       places,
		"total":      total,
		"page":       filter.Page,
		"pageSize":   filter.PageSize,
		"totalPages": totalPages,
	})
}

// GetPlaceByID handles GET /api/v1/places/:id
func (h *PlaceHandler) GetPlaceByID(c *gin.Context) {
	place, err := h.service.GetPlaceByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "Place not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to get place", err)
		return
	}

	response.Success(c, place)
}

// CreatePlace handles POST /api/v1/places
func (h *PlaceHandler) CreatePlace(c *gin.Context) {
	var req models.CreatePlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	place, err := h.service.CreatePlace(req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to create place", err)
		return
	}

	response.Success(c, place)
}

// RenamePlace handles PUT /api/v1/places/:id/name
func (h *PlaceHandler) RenamePlace(c *gin.Context) {
	var req models.RenamePlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	place, err := h.service.RenamePlace(c.Param("id"), req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "Place not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to rename place", err)
		return
	}

	response.Success(c, place)
}

// DeletePlace handles DELETE /api/v1/places/:id
func (h *PlaceHandler) DeletePlace(c *gin.Context) {
	if err := h.service.DeletePlace(c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "Place not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to delete place", err)
		return
	}

	response.Success(c, nil)
}

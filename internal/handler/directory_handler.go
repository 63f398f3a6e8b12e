package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rentfleet/service-rental-booking/internal/application"
	"github.com/rentfleet/service-rental-booking/internal/common/response"
)

// DirectoryHandler serves customer and vehicle option lists.
type DirectoryHandler struct {
	service *application.DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(service *application.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

// RegisterRoutes registers the directory routes.
func (h *DirectoryHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/v1/customers", h.ListCustomers)
	r.GET("/api/v1/vehicles", h.ListVehicles)
}

// ListCustomers handles GET /api/v1/customers.
func (h *DirectoryHandler) ListCustomers(c *gin.Context) {
	options, err := h.service.ListCustomerOptions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, options)
}

// ListVehicles handles GET /api/v1/vehicles.
func (h *DirectoryHandler) ListVehicles(c *gin.Context) {
	options, err := h.service.ListVehicleOptions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, options)
}

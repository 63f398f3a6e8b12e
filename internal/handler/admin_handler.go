package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rentfleet/service-rental-booking/internal/application"
	"github.com/rentfleet/service-rental-booking/internal/common/response"
	bookingDomain "github.com/rentfleet/service-rental-booking/internal/domain/booking"
)

// ReconcileResult is the body of a reconcile response.
type ReconcileResult struct {
	AsOf         bookingDomain.Date `json:"as_of"`
	Transitioned int                `json:"transitioned"`
}

// AdminBookingHandler handles admin HTTP requests for booking maintenance.
type AdminBookingHandler struct {
	reconciler *application.Reconciler
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(reconciler *application.Reconciler) *AdminBookingHandler {
	return &AdminBookingHandler{reconciler: reconciler}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	{
		admin.POST("/bookings/reconcile", h.Reconcile)
	}
}

// Reconcile handles POST /api/v1/admin/bookings/reconcile?as_of=YYYY-MM-DD. Without
// as_of it reconciles as of today.
func (h *AdminBookingHandler) Reconcile(c *gin.Context) {
	asOf := h.reconciler.Today()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := bookingDomain.ParseDate(raw)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		asOf = parsed
	}

	n, err := h.reconciler.ReconcileExpired(c.Request.Context(), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, ReconcileResult{AsOf: asOf, Transitioned: n})
}

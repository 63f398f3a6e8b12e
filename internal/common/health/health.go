package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler serves liveness and readiness probes.
type Handler struct {
	service  string
	checkers []Checker
	timeout  time.Duration
}

// NewHandler creates a health handler that checks the given dependencies on readiness.
func NewHandler(service string, checkers ...Checker) *Handler {
	return &Handler{service: service, checkers: checkers, timeout: 2 * time.Second}
}

// RegisterRoutes registers /health/live and /health/ready.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health/live", h.Live)
	r.GET("/health/ready", h.Ready)
}

// Live handles GET /health/live.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready handles GET /health/ready.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	checks := gin.H{}
	status := http.StatusOK
	for _, chk := range h.checkers {
		if err := chk.Check(ctx); err != nil {
			checks[chk.Name()] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[chk.Name()] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "unavailable"
	}
	c.JSON(status, gin.H{"status": overall, "service": h.service, "checks": checks})
}

// DBChecker pings a GORM database.
type DBChecker struct {
	db *gorm.DB
}

// NewDBChecker creates a Checker for db.
func NewDBChecker(db *gorm.DB) *DBChecker {
	return &DBChecker{db: db}
}

// Name returns "database".
func (d *DBChecker) Name() string { return "database" }

// Check pings the database.
func (d *DBChecker) Check(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

// Name returns the label.
func (f CheckFunc) Name() string { return f.Label }

// Check calls Fn.
func (f CheckFunc) Check(ctx context.Context) error { return f.Fn(ctx) }

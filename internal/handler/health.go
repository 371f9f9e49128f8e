package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports whether the service and its database respond.
// Load balancers and monitoring systems poll it.
type HealthHandler struct {
	DB Pinger
}

// Health answers 200 when the database answers a ping within two
// seconds, 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			c.Logger().Warnf("health: db ping: %v", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "db": "down"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "db": "up"})
}

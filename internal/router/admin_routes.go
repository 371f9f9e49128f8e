package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/handler"
	"github.com/iliyamo/placement-portal/internal/middleware"
	"github.com/iliyamo/placement-portal/internal/model"
)

// RegisterAdmin registers the /admin area.  The impersonation controls
// are gated on the signed-in account rather than the acting one, so an
// admin can stop impersonating while acting as a student or company.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, gate echo.MiddlewareFunc) {
	signedInAdmin := middleware.RequireSignedInAs(model.RoleAdmin)
	e.GET("/admin/users/impersonate/:id", h.Impersonate, gate, signedInAdmin)
	e.GET("/admin/impersonate/stop", h.StopImpersonation, gate, signedInAdmin)

	g := e.Group(
		"/admin",
		gate,
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/dashboard", h.GetDashboard)

	// ---- Users ----
	g.GET("/users", h.ListUsers)
	g.POST("/users/add", h.AddUser)
	g.GET("/users/:id", h.GetUser)
	g.POST("/users/:id/edit", h.EditUser)
	g.POST("/users/:id/toggle-status", h.ToggleStatus)
	g.DELETE("/users/:id", h.DeleteUser)

	// ---- Jobs ----
	g.GET("/jobs", h.ListJobs)
	g.POST("/jobs/add", h.AddJob)
	g.POST("/jobs/:jobId/edit", h.EditJob)
	g.DELETE("/jobs/:jobId", h.DeleteJob)

	// ---- Applications ----
	g.GET("/applications", h.ListApplications)
	g.POST("/applications/:applicationId/status", h.UpdateApplicationStatus)

	// ---- Settings ----
	g.GET("/settings", h.GetSettings)
	g.POST("/settings", h.UpdateSettings)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/handler"
	"github.com/iliyamo/placement-portal/internal/middleware"
	"github.com/iliyamo/placement-portal/internal/model"
)

// RegisterStudent registers the /student area.  Every route requires a
// signed-in caller acting as a student.
func RegisterStudent(e *echo.Echo, h *handler.StudentHandler, gate echo.MiddlewareFunc) {
	g := e.Group(
		"/student",
		gate,
		middleware.RequireRole(model.RoleStudent),
	)
	g.GET("/dashboard", h.GetDashboard)
	g.GET("/profile", h.GetProfile)
	g.POST("/profile", h.UpdateProfile)
	g.POST("/profile/resume", h.UploadResume)

	g.GET("/jobs", h.ListJobs)
	g.GET("/jobs/:jobId", h.GetJob)
	g.POST("/jobs/:jobId/apply", h.Apply)

	g.GET("/applications", h.ListApplications)
}

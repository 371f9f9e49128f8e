package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/handler"
	"github.com/iliyamo/placement-portal/internal/middleware"
	"github.com/iliyamo/placement-portal/internal/model"
)

// RegisterCompany registers the /company area.  Ownership of individual
// jobs and applications is checked by the services.
func RegisterCompany(e *echo.Echo, h *handler.CompanyHandler, gate echo.MiddlewareFunc) {
	g := e.Group(
		"/company",
		gate,
		middleware.RequireRole(model.RoleCompany),
	)
	g.GET("/dashboard", h.GetDashboard)
	g.GET("/profile", h.GetProfile)
	g.POST("/profile", h.UpdateProfile)
	g.POST("/profile/logo", h.UploadLogo)

	// ---- Jobs ----
	g.GET("/jobs", h.ListJobs)
	g.GET("/jobs/post", h.NewJobForm)
	g.POST("/jobs/post", h.PostJob)
	g.GET("/jobs/:jobId/edit", h.EditJobForm)
	g.POST("/jobs/:jobId/edit", h.UpdateJob)
	g.POST("/jobs/:jobId/status", h.SetJobStatus)
	g.DELETE("/jobs/:jobId", h.DeleteJob)

	// ---- Applications ----
	g.GET("/jobs/:jobId/applications", h.JobApplications)
	g.GET("/applications", h.ListApplications)
	g.POST("/applications/:applicationId/status", h.UpdateApplicationStatus)
	g.POST("/applications/:applicationId/schedule-interview", h.ScheduleInterview)
}

package router // package router defines how HTTP routes are registered for the API

import (
	"path"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/handler"
	"github.com/iliyamo/placement-portal/internal/storage"
)

// RegisterRoutes registers routes that do not require authentication:
// the health check and the public job board, which cache wraps.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/healthz", h.Health)
	e.GET("/jobs", p.ListJobs, cache)
}

// RegisterUploads serves files kept on local disk.  Company logos are
// public; resumes require a signed-in caller allowed to see them.
func RegisterUploads(e *echo.Echo, f *handler.FileHandler, gate echo.MiddlewareFunc) {
	e.Static(path.Join(f.URLPrefix, storage.Logo.Folder), filepath.Join(f.Dir, storage.Logo.Folder))
	e.GET(path.Join(f.URLPrefix, storage.Resume.Folder)+"/:name", f.Resume, gate)
}

// RegisterAuth registers the /auth routes.  gate requires a signed-in
// caller, optional only resolves one when present, and limiter throttles
// the credential endpoints.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate, optional, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth")

	g.POST("/register", a.Register, limiter)
	g.GET("/login", a.LoginPage, optional)
	g.POST("/login", a.Login, limiter, optional)
	g.POST("/logout", a.Logout, optional)
	g.POST("/forgot-password", a.ForgotPassword, limiter)
	g.GET("/reset-password/:token", a.ResetPasswordPage)
	g.POST("/reset-password/:token", a.ResetPassword, limiter)

	g.POST("/change-password", a.ChangePassword, gate)
	g.GET("/me", a.Me, gate)
}

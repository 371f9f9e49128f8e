package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/middleware"
	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/service"
	"github.com/iliyamo/placement-portal/internal/session"
)

// AdminHandler serves the /admin area: accounts, impersonation, the job
// catalog, applications and portal settings.
type AdminHandler struct {
	Users     *service.UserService
	Jobs      *service.JobService
	Apps      *service.ApplicationService
	Dashboard *service.DashboardService
	Settings  *service.SettingsService
	Sessions  session.Store
}

type addUserReq struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"`
	ProfileForm
}

type editUserReq struct {
	Email  *string `json:"email" form:"email"`
	Status *string `json:"status" form:"status"`
	ProfileForm
}

type settingsReq struct {
	SiteName          *string `json:"site_name" form:"site_name"`
	ContactEmail      *string `json:"contact_email" form:"contact_email"`
	AllowRegistration *bool   `json:"allow_registration" form:"allow_registration"`
	AllowHiredRevert  *bool   `json:"allow_hired_revert" form:"allow_hired_revert"`
}

func (h *AdminHandler) GetDashboard(c echo.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()

	d, err := h.Dashboard.Admin(ctx)
	if err != nil {
		return fail(c, err, "load dashboard failed")
	}
	return c.JSON(http.StatusOK, d)
}

// ListUsers filters by ?role, ?status and a ?q name/email search.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, offset := page(c)

	ctx, cancel := opContext(c)
	defer cancel()

	users, err := h.Users.List(ctx, service.UserQuery{
		Role:   c.QueryParam("role"),
		Status: c.QueryParam("status"),
		Search: c.QueryParam("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return fail(c, err, "list users failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

// AddUser creates an account of any role, admins included.
func (h *AdminHandler) AddUser(c echo.Context) error {
	var req addUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ProfileForm.Name = nil

	ctx, cancel := opContext(c)
	defer cancel()

	u, err := h.Users.Create(ctx, service.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Profile:  req.ProfileForm.input(),
	})
	if err != nil {
		return fail(c, err, "create user failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": u})
}

// GetUser returns an account with its jobs (companies) or applications
// (students).
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	ctx, cancel := opContext(c)
	defer cancel()

	u, err := h.Users.Get(ctx, id)
	if err != nil {
		return fail(c, err, "load user failed")
	}
	resp := echo.Map{"user": u, "profile_completion": model.ProfileCompletion(u)}
	switch u.Role {
	case model.RoleCompany:
		jobs, err := h.Jobs.List(ctx, service.JobQuery{CompanyID: u.ID})
		if err != nil {
			return fail(c, err, "load user failed")
		}
		resp["jobs"] = jobs
	case model.RoleStudent:
		apps, err := h.Apps.ListForStudent(ctx, u.ID, service.ApplicationQuery{})
		if err != nil {
			return fail(c, err, "load user failed")
		}
		resp["applications"] = apps
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) EditUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}
	var req editUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	u, err := h.Users.Update(ctx, actor(c), id, service.UpdateInput{
		Email:   req.Email,
		Status:  req.Status,
		Profile: req.ProfileForm.input(),
	})
	if err != nil {
		return fail(c, err, "update user failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func (h *AdminHandler) ToggleStatus(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	ctx, cancel := opContext(c)
	defer cancel()

	u, err := h.Users.ToggleStatus(ctx, actor(c), id)
	if err != nil {
		return fail(c, err, "toggle status failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// DeleteUser removes the account with its jobs and applications.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.Users.Delete(ctx, actor(c), id); err != nil {
		return fail(c, err, "delete user failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Impersonate pushes the target's frame onto the admin's session.
// Starting again while a frame is active is refused with 409.
func (h *AdminHandler) Impersonate(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}
	sess := middleware.SessionFrom(c)
	if sess == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "impersonation requires a browser session"})
	}
	admin, _ := sess.Original()
	if sess.Impersonating() {
		return fail(c, session.ErrImpersonationActive, "impersonation failed")
	}

	ctx, cancel := opContext(c)
	defer cancel()

	target, err := h.Users.ImpersonationTarget(ctx, admin, id)
	if err != nil {
		return fail(c, err, "impersonation failed")
	}
	if err := sess.Push(model.Identity{UserID: target.ID, Role: target.Role}); err != nil {
		return fail(c, err, "impersonation failed")
	}
	if err := h.Sessions.Save(ctx, sess); err != nil {
		return fail(c, err, "impersonation failed")
	}
	c.Logger().Infof("admin: user %d impersonating user %d", admin.UserID, target.ID)

	dest := dashboardPath(target.Role)
	if middleware.WantsHTML(c) {
		return c.Redirect(http.StatusFound, dest)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": target, "redirect": dest})
}

// StopImpersonation pops back to the admin frame.
func (h *AdminHandler) StopImpersonation(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		return fail(c, session.ErrNotImpersonating, "stop impersonation failed")
	}
	restored, err := sess.Pop()
	if err != nil {
		return fail(c, err, "stop impersonation failed")
	}

	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.Sessions.Save(ctx, sess); err != nil {
		return fail(c, err, "stop impersonation failed")
	}

	dest := dashboardPath(restored.Role)
	if middleware.WantsHTML(c) {
		return c.Redirect(http.StatusFound, dest)
	}
	return c.JSON(http.StatusOK, echo.Map{"redirect": dest})
}

// ListJobs lists every job, filterable by ?company_id, ?status and ?q.
func (h *AdminHandler) ListJobs(c echo.Context) error {
	limit, offset := page(c)

	ctx, cancel := opContext(c)
	defer cancel()

	jobs, err := h.Jobs.List(ctx, service.JobQuery{
		CompanyID: queryUint(c, "company_id"),
		Status:    c.QueryParam("status"),
		Search:    c.QueryParam("q"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return fail(c, err, "list jobs failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": jobs})
}

// AddJob posts a job on behalf of the company named by company_id.
func (h *AdminHandler) AddJob(c echo.Context) error {
	var req jobReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	job, err := h.Jobs.Create(ctx, actor(c), req.input())
	if err != nil {
		return fail(c, err, "create job failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"job": job, "message": "job posted"})
}

func (h *AdminHandler) EditJob(c echo.Context) error {
	jobID, ok := paramID(c, "jobId")
	if !ok {
		return badID(c)
	}
	var req jobReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	job, err := h.Jobs.Update(ctx, actor(c), jobID, req.input())
	if err != nil {
		return fail(c, err, "update job failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"job": job})
}

func (h *AdminHandler) DeleteJob(c echo.Context) error {
	jobID, ok := paramID(c, "jobId")
	if !ok {
		return badID(c)
	}

	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.Jobs.Delete(ctx, actor(c), jobID); err != nil {
		return fail(c, err, "delete job failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListApplications lists all applications, filterable by ?job_id and ?status.
func (h *AdminHandler) ListApplications(c echo.Context) error {
	limit, offset := page(c)

	ctx, cancel := opContext(c)
	defer cancel()

	apps, err := h.Apps.ListForAdmin(ctx, service.ApplicationQuery{
		JobID:  queryUint(c, "job_id"),
		Status: c.QueryParam("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return fail(c, err, "list applications failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": apps})
}

func (h *AdminHandler) UpdateApplicationStatus(c echo.Context) error {
	return updateApplicationStatus(c, h.Apps)
}

func (h *AdminHandler) GetSettings(c echo.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()

	st, err := h.Settings.Get(ctx)
	if err != nil {
		return fail(c, err, "load settings failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": st})
}

func (h *AdminHandler) UpdateSettings(c echo.Context) error {
	var req settingsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	st, err := h.Settings.Update(ctx, service.SettingsInput{
		SiteName:          req.SiteName,
		ContactEmail:      req.ContactEmail,
		AllowRegistration: req.AllowRegistration,
		AllowHiredRevert:  req.AllowHiredRevert,
	})
	if err != nil {
		return fail(c, err, "save settings failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": st, "message": "settings saved"})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/middleware"
	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/service"
	"github.com/iliyamo/placement-portal/internal/storage"
)

// CompanyHandler serves the /company area: the company's profile, its
// job postings and the applications they receive.
type CompanyHandler struct {
	Identity  *service.IdentityService
	Jobs      *service.JobService
	Apps      *service.ApplicationService
	Dashboard *service.DashboardService
	Files     storage.Uploader
	MaxUpload int64
}

type interviewReq struct {
	Date     *string `json:"interview_date" form:"interview_date"`
	Mode     *string `json:"interview_mode" form:"interview_mode"`
	Location *string `json:"interview_location" form:"interview_location"`
	Link     *string `json:"interview_link" form:"interview_link"`
	Status   *string `json:"status" form:"status"`
}

func (h *CompanyHandler) GetDashboard(c echo.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()

	d, err := h.Dashboard.Company(ctx, actor(c).UserID)
	if err != nil {
		return fail(c, err, "load dashboard failed")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *CompanyHandler) GetProfile(c echo.Context) error {
	u := middleware.UserFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"user": u, "profile_completion": model.ProfileCompletion(u)})
}

func (h *CompanyHandler) UpdateProfile(c echo.Context) error {
	var req ProfileForm
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	u, err := h.Identity.UpdateProfile(ctx, actor(c).UserID, req.input())
	if err != nil {
		return fail(c, err, "update profile failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u, "profile_completion": model.ProfileCompletion(u)})
}

// UploadLogo stores the "logo" multipart image on the profile.
func (h *CompanyHandler) UploadLogo(c echo.Context) error {
	path, ok, err := saveUpload(c, h.Files, storage.Logo, "logo", h.MaxUpload)
	if !ok {
		return err
	}

	ctx, cancel := opContext(c)
	defer cancel()

	u, err := h.Identity.SetLogo(ctx, actor(c).UserID, path)
	if err != nil {
		return fail(c, err, "save logo failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u, "logo_path": u.LogoPath})
}

// ListJobs lists the company's own postings, any status.
func (h *CompanyHandler) ListJobs(c echo.Context) error {
	limit, offset := page(c)

	ctx, cancel := opContext(c)
	defer cancel()

	jobs, err := h.Jobs.List(ctx, service.JobQuery{
		CompanyID: actor(c).UserID,
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

// NewJobForm returns the option lists of the posting form.
func (h *CompanyHandler) NewJobForm(c echo.Context) error {
	return c.JSON(http.StatusOK, formOptions())
}

func (h *CompanyHandler) PostJob(c echo.Context) error {
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

// EditJobForm returns an owned job together with the form options.
func (h *CompanyHandler) EditJobForm(c echo.Context) error {
	jobID, ok := paramID(c, "jobId")
	if !ok {
		return badID(c)
	}

	ctx, cancel := opContext(c)
	defer cancel()

	job, err := h.Jobs.GetOwned(ctx, actor(c), jobID)
	if err != nil {
		return fail(c, err, "load job failed")
	}
	resp := formOptions()
	resp["job"] = job
	return c.JSON(http.StatusOK, resp)
}

func (h *CompanyHandler) UpdateJob(c echo.Context) error {
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

// SetJobStatus opens or closes a posting.
func (h *CompanyHandler) SetJobStatus(c echo.Context) error {
	jobID, ok := paramID(c, "jobId")
	if !ok {
		return badID(c)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	job, err := h.Jobs.SetStatus(ctx, actor(c), jobID, req.Status)
	if err != nil {
		return fail(c, err, "update job status failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"job": job})
}

// DeleteJob removes a posting and every application to it.
func (h *CompanyHandler) DeleteJob(c echo.Context) error {
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

// JobApplications lists applications to one of the company's jobs.
func (h *CompanyHandler) JobApplications(c echo.Context) error {
	jobID, ok := paramID(c, "jobId")
	if !ok {
		return badID(c)
	}
	limit, offset := page(c)

	ctx, cancel := opContext(c)
	defer cancel()

	job, err := h.Jobs.GetOwned(ctx, actor(c), jobID)
	if err != nil {
		return fail(c, err, "list applications failed")
	}
	apps, err := h.Apps.ListForCompany(ctx, actor(c).UserID, service.ApplicationQuery{
		JobID:  jobID,
		Status: c.QueryParam("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return fail(c, err, "list applications failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"job": job, "items": apps})
}

// ListApplications lists applications across the company's jobs,
// filterable by ?job_id and ?status.
func (h *CompanyHandler) ListApplications(c echo.Context) error {
	limit, offset := page(c)

	ctx, cancel := opContext(c)
	defer cancel()

	apps, err := h.Apps.ListForCompany(ctx, actor(c).UserID, service.ApplicationQuery{
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

func (h *CompanyHandler) UpdateApplicationStatus(c echo.Context) error {
	return updateApplicationStatus(c, h.Apps)
}

// ScheduleInterview sets the supplied interview fields; omitted fields
// keep their values.
func (h *CompanyHandler) ScheduleInterview(c echo.Context) error {
	appID, ok := paramID(c, "applicationId")
	if !ok {
		return badID(c)
	}
	var req interviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in := service.InterviewInput{Mode: req.Mode, Location: req.Location, Link: req.Link, Status: req.Status}
	if req.Date != nil && *req.Date != "" {
		t, err := parseWhen(*req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "interview_date must be RFC3339 or YYYY-MM-DDTHH:MM"})
		}
		in.Date = &t
	}

	ctx, cancel := opContext(c)
	defer cancel()

	a, err := h.Apps.ScheduleInterview(ctx, actor(c), appID, in)
	if err != nil {
		return fail(c, err, "schedule interview failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"application": a, "message": "interview scheduled"})
}

// updateApplicationStatus backs the company and admin status forms; the
// service decides whether the actor may review the application.
func updateApplicationStatus(c echo.Context, apps *service.ApplicationService) error {
	appID, ok := paramID(c, "applicationId")
	if !ok {
		return badID(c)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	a, err := apps.UpdateStatus(ctx, actor(c), appID, service.StatusInput{Status: req.Status, Feedback: req.Feedback})
	if err != nil {
		return fail(c, err, "update application failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"application": a, "status_label": a.Status.Label()})
}

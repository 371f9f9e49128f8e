package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/middleware"
	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/service"
	"github.com/iliyamo/placement-portal/internal/storage"
)

// StudentHandler serves the /student area.
type StudentHandler struct {
	Identity  *service.IdentityService
	Jobs      *service.JobService
	Apps      *service.ApplicationService
	Dashboard *service.DashboardService
	Files     storage.Uploader
	MaxUpload int64
}

// GetDashboard returns counts by status, recent applications, the latest
// open jobs and the profile completion percentage.
func (h *StudentHandler) GetDashboard(c echo.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()

	d, err := h.Dashboard.Student(ctx, actor(c).UserID)
	if err != nil {
		return fail(c, err, "load dashboard failed")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *StudentHandler) GetProfile(c echo.Context) error {
	u := middleware.UserFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"user": u, "profile_completion": model.ProfileCompletion(u)})
}

func (h *StudentHandler) UpdateProfile(c echo.Context) error {
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

// UploadResume stores the "resume" multipart file and records it on the
// profile.  Applications made earlier keep the resume they were sent with.
func (h *StudentHandler) UploadResume(c echo.Context) error {
	path, ok, err := saveUpload(c, h.Files, storage.Resume, "resume", h.MaxUpload)
	if !ok {
		return err
	}

	ctx, cancel := opContext(c)
	defer cancel()

	u, err := h.Identity.SetResume(ctx, actor(c).UserID, path)
	if err != nil {
		return fail(c, err, "save resume failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u, "resume_path": u.ResumePath})
}

// ListJobs lists the jobs open to applications, optionally filtered by ?q.
func (h *StudentHandler) ListJobs(c echo.Context) error {
	limit, offset := page(c)

	ctx, cancel := opContext(c)
	defer cancel()

	jobs, err := h.Jobs.ListVisible(ctx, c.QueryParam("q"), limit, offset)
	if err != nil {
		return fail(c, err, "list jobs failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": jobs})
}

// GetJob shows an open job and the student's application to it, if any.
func (h *StudentHandler) GetJob(c echo.Context) error {
	jobID, ok := paramID(c, "jobId")
	if !ok {
		return badID(c)
	}

	ctx, cancel := opContext(c)
	defer cancel()

	job, err := h.Jobs.GetVisible(ctx, jobID)
	if err != nil {
		return fail(c, err, "load job failed")
	}
	mine, err := h.Apps.ListForStudent(ctx, actor(c).UserID, service.ApplicationQuery{JobID: jobID, Limit: 1})
	if err != nil {
		return fail(c, err, "load job failed")
	}
	resp := echo.Map{"job": job, "applied": len(mine) > 0}
	if len(mine) > 0 {
		resp["application"] = mine[0]
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *StudentHandler) Apply(c echo.Context) error {
	jobID, ok := paramID(c, "jobId")
	if !ok {
		return badID(c)
	}

	ctx, cancel := opContext(c)
	defer cancel()

	a, err := h.Apps.Apply(ctx, actor(c).UserID, jobID)
	if err != nil {
		return fail(c, err, "apply failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"application": a, "message": "application submitted"})
}

// ListApplications lists the student's applications, filterable by ?status.
func (h *StudentHandler) ListApplications(c echo.Context) error {
	limit, offset := page(c)

	ctx, cancel := opContext(c)
	defer cancel()

	apps, err := h.Apps.ListForStudent(ctx, actor(c).UserID, service.ApplicationQuery{
		Status: c.QueryParam("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return fail(c, err, "list applications failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": apps})
}

// saveUpload validates and stores the multipart file named field.  When
// ok is false the error response has already been written and err is
// what the handler returns.
func saveUpload(c echo.Context, files storage.Uploader, kind storage.Kind, field string, max int64) (path string, ok bool, err error) {
	fh, ferr := c.FormFile(field)
	if ferr != nil {
		return "", false, c.JSON(http.StatusBadRequest, echo.Map{"error": field + " file is required"})
	}
	if verr := storage.Validate(kind, fh.Filename, fh.Size, max); verr != nil {
		return "", false, fail(c, verr, "upload failed")
	}
	src, oerr := fh.Open()
	if oerr != nil {
		return "", false, fail(c, oerr, "upload failed")
	}
	defer src.Close()

	ctx, cancel := opContext(c)
	defer cancel()

	path, serr := files.Save(ctx, kind, fh.Filename, src)
	if serr != nil {
		return "", false, fail(c, serr, "upload failed")
	}
	return path, true, nil
}

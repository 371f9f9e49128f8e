package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/service"
)

// PublicHandler serves the unauthenticated job board.  Responses are
// cached by the router; every job mutation purges the cache.
type PublicHandler struct {
	Jobs *service.JobService
}

// ListJobs returns the jobs open to applications, optionally filtered
// by ?q.  Only active jobs with a future deadline are listed.  Expires is
// set to the earliest listed deadline so no cache keeps the page longer.
func (h *PublicHandler) ListJobs(c echo.Context) error {
	limit, offset := page(c)

	ctx, cancel := opContext(c)
	defer cancel()

	jobs, err := h.Jobs.ListVisible(ctx, c.QueryParam("q"), limit, offset)
	if err != nil {
		return fail(c, err, "list jobs failed")
	}
	if len(jobs) > 0 {
		first := jobs[0].Deadline
		for _, j := range jobs[1:] {
			if j.Deadline.Before(first) {
				first = j.Deadline
			}
		}
		c.Response().Header().Set("Expires", first.UTC().Format(http.TimeFormat))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": jobs})
}

// Package handler exposes the HTTP endpoints of the placement portal.
// Handlers adapt request shapes to service calls and map the service
// sentinel errors onto status codes; they hold no business rules.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/middleware"
	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/service"
	"github.com/iliyamo/placement-portal/internal/session"
	"github.com/iliyamo/placement-portal/internal/storage"
)

// opTimeout bounds the store work of a single request.
const opTimeout = 5 * time.Second

const (
	defaultLimit = 50
	maxLimit     = 200
)

func opContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), opTimeout)
}

// fail writes the JSON error for err.  Errors that map to no known
// sentinel are logged and answered with fallback.
func fail(c echo.Context, err error, fallback string) error {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s: %v", fallback, err)
		msg = fallback
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
	case errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrDuplicateApplication):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrEmailNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidAdminKey),
		errors.Is(err, service.ErrAccountInactive):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrIncorrectCurrentCredential),
		errors.Is(err, service.ErrInvalidOrExpiredToken),
		errors.Is(err, service.ErrResumeRequired):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrJobUnavailable),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrDeadlinePassed):
		return http.StatusGone, err.Error()
	case errors.Is(err, service.ErrExternalService):
		return http.StatusBadGateway, service.ErrExternalService.Error() + ", try again later"
	case errors.Is(err, session.ErrImpersonationActive):
		return http.StatusConflict, err.Error()
	case errors.Is(err, session.ErrNotImpersonating):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrFileType):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	}
	return http.StatusInternalServerError, ""
}

// paramID parses a numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
}

// page reads ?limit and ?offset, clamping limit to maxLimit.
func page(c echo.Context) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func queryUint(c echo.Context, name string) uint64 {
	v, _ := strconv.ParseUint(c.QueryParam(name), 10, 64)
	return v
}

// actor is the identity the request acts as.  Routes are mounted behind
// Authenticate, so a missing identity is a wiring bug.
func actor(c echo.Context) model.Identity {
	id, _ := middleware.IdentityFrom(c)
	return id
}

// dashboardPath is where a role lands after signing in.
func dashboardPath(r model.Role) string {
	return "/" + string(r) + "/dashboard"
}

// listField accepts either a JSON array or a comma separated string, so
// the same request type serves API clients and HTML forms.  nil means
// the field was not supplied.
type listField []string

func (l *listField) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = nil
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = listField(arr)
		if *l == nil {
			*l = listField{}
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*l = listField(service.SplitList(s))
	return nil
}

func (l *listField) UnmarshalParam(s string) error {
	*l = listField(service.SplitList(s))
	return nil
}

// ProfileForm is the union of the student and company profile forms; the
// service applies only the fields of the account's role.  It is exported
// so Echo's form binder reaches it when embedded.
type ProfileForm struct {
	Name        *string   `json:"name" form:"name"`
	Phone       *string   `json:"phone" form:"phone"`
	Branch      *string   `json:"branch" form:"branch"`
	Year        *int      `json:"year" form:"year"`
	RollNumber  *string   `json:"roll_number" form:"roll_number"`
	CGPA        *float64  `json:"cgpa" form:"cgpa"`
	Skills      listField `json:"skills" form:"skills"`
	CompanyName *string   `json:"company_name" form:"company_name"`
	Industry    *string   `json:"industry" form:"industry"`
	Website     *string   `json:"website" form:"website"`
	Description *string   `json:"description" form:"description"`
}

func (p ProfileForm) input() service.ProfileInput {
	return service.ProfileInput{
		Name:        p.Name,
		Phone:       p.Phone,
		Branch:      p.Branch,
		Year:        p.Year,
		RollNumber:  p.RollNumber,
		CGPA:        p.CGPA,
		Skills:      []string(p.Skills),
		CompanyName: p.CompanyName,
		Industry:    p.Industry,
		Website:     p.Website,
		Description: p.Description,
	}
}

// jobReq is the job posting form shared by companies and admins.
type jobReq struct {
	CompanyID      uint64    `json:"company_id" form:"company_id"`
	Title          string    `json:"title" form:"title"`
	Description    string    `json:"description" form:"description"`
	EmploymentType string    `json:"employment_type" form:"employment_type"`
	Location       string    `json:"location" form:"location"`
	Salary         string    `json:"salary" form:"salary"`
	Eligibility    string    `json:"eligibility" form:"eligibility"`
	Skills         listField `json:"skills" form:"skills"`
	Deadline       string    `json:"deadline" form:"deadline"`
	Status         string    `json:"status" form:"status"`
}

func (r jobReq) input() service.JobInput {
	return service.JobInput{
		CompanyID:      r.CompanyID,
		Title:          r.Title,
		Description:    r.Description,
		EmploymentType: r.EmploymentType,
		Location:       r.Location,
		Salary:         r.Salary,
		Eligibility:    r.Eligibility,
		Skills:         []string(r.Skills),
		Deadline:       r.Deadline,
		Status:         r.Status,
	}
}

type statusReq struct {
	Status   string  `json:"status" form:"status"`
	Feedback *string `json:"feedback" form:"feedback"`
}

// formOptions are the choice lists job and interview forms render.
func formOptions() echo.Map {
	statuses := make([]echo.Map, 0, len(model.ApplicationStatuses))
	for _, s := range model.ApplicationStatuses {
		statuses = append(statuses, echo.Map{"value": s, "label": s.Label()})
	}
	return echo.Map{
		"employment_types":     model.EmploymentTypes,
		"interview_modes":      model.InterviewModes,
		"application_statuses": statuses,
	}
}

// parseWhen accepts RFC3339 or an HTML datetime-local value (UTC).
func parseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02T15:04", s)
}

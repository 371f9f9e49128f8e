package service

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/repository"
)

// JobService manages the job catalog.  Every mutation invalidates the
// cached public listings.
type JobService struct {
	jobs  JobStore
	users UserStore
	cache CatalogInvalidator
	now   func() time.Time
}

func NewJobService(jobs JobStore, users UserStore, cache CatalogInvalidator) *JobService {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &JobService{jobs: jobs, users: users, cache: cache, now: time.Now}
}

// JobInput is the post/edit form.  CompanyID is only honoured for admin
// actors creating a job on behalf of a company.
type JobInput struct {
	CompanyID      uint64
	Title          string
	Description    string
	EmploymentType string
	Location       string
	Salary         string
	Eligibility    string
	Skills         []string
	Deadline       string
	Status         string
}

// Create posts a job for the acting company, or for in.CompanyID when
// the actor is an admin.
func (s *JobService) Create(ctx context.Context, actor model.Identity, in JobInput) (*model.Job, error) {
	companyID := actor.UserID
	switch actor.Role {
	case model.RoleCompany:
	case model.RoleAdmin:
		if in.CompanyID == 0 {
			return nil, invalid("company is required")
		}
		c, err := s.users.GetByID(ctx, in.CompanyID)
		if err != nil {
			return nil, mapStoreErr(err)
		}
		if c.Role != model.RoleCompany {
			return nil, invalid("jobs can only be posted for company accounts")
		}
		companyID = c.ID
	default:
		return nil, ErrNotAuthorized
	}
	j := &model.Job{CompanyID: companyID, Status: model.JobActive}
	if err := applyJob(j, in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	j.CreatedAt, j.UpdatedAt = now, now
	if err := s.jobs.Create(ctx, j); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return j, nil
}

// Get returns a job by id.
func (s *JobService) Get(ctx context.Context, id uint64) (*model.Job, error) {
	j, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return j, nil
}

// GetVisible returns a job only if students may currently see it.
func (s *JobService) GetVisible(ctx context.Context, id uint64) (*model.Job, error) {
	j, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !j.VisibleAt(s.now()) {
		return nil, ErrNotFound
	}
	return j, nil
}

// GetOwned returns a job the actor may manage: its owning company or
// any admin.
func (s *JobService) GetOwned(ctx context.Context, actor model.Identity, id uint64) (*model.Job, error) {
	j, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, j.CompanyID) {
		return nil, ErrNotAuthorized
	}
	return j, nil
}

// Update replaces the editable fields of a job.
func (s *JobService) Update(ctx context.Context, actor model.Identity, id uint64, in JobInput) (*model.Job, error) {
	j, err := s.GetOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := applyJob(j, in); err != nil {
		return nil, err
	}
	j.UpdatedAt = s.now().UTC()
	if err := s.jobs.Update(ctx, j); err != nil {
		return nil, mapStoreErr(err)
	}
	s.invalidate(ctx)
	return j, nil
}

// SetStatus opens or closes a job.  Reopening is always allowed.
func (s *JobService) SetStatus(ctx context.Context, actor model.Identity, id uint64, status string) (*model.Job, error) {
	st, ok := parseJobStatus(status)
	if !ok {
		return nil, invalid("status must be active or closed")
	}
	j, err := s.GetOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.SetStatus(ctx, j.ID, st); err != nil {
		return nil, mapStoreErr(err)
	}
	j.Status = st
	s.invalidate(ctx)
	return j, nil
}

// Delete removes a job together with its applications.
func (s *JobService) Delete(ctx context.Context, actor model.Identity, id uint64) error {
	j, err := s.GetOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.jobs.Delete(ctx, j.ID); err != nil {
		return mapStoreErr(err)
	}
	s.invalidate(ctx)
	return nil
}

// JobQuery is the listing filter accepted from requests.
type JobQuery struct {
	CompanyID   uint64
	Status      string
	Search      string
	VisibleOnly bool
	Limit       int
	Offset      int
}

// List returns jobs matching q.
func (s *JobService) List(ctx context.Context, q JobQuery) ([]model.Job, error) {
	f, err := s.filter(q)
	if err != nil {
		return nil, err
	}
	return s.jobs.List(ctx, f)
}

// ListVisible returns the jobs students may currently apply to.
func (s *JobService) ListVisible(ctx context.Context, search string, limit, offset int) ([]model.Job, error) {
	return s.List(ctx, JobQuery{VisibleOnly: true, Search: search, Limit: limit, Offset: offset})
}

func (s *JobService) filter(q JobQuery) (repository.JobFilter, error) {
	f := repository.JobFilter{CompanyID: q.CompanyID, Search: q.Search, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st, ok := parseJobStatus(q.Status)
		if !ok {
			return f, invalid("status must be active or closed")
		}
		f.Status = st
	}
	if q.VisibleOnly {
		now := s.now().UTC()
		f.VisibleAt = &now
	}
	return f, nil
}

func (s *JobService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warnf("jobs: catalog cache purge failed: %v", err)
	}
}

func canManage(actor model.Identity, companyID uint64) bool {
	return actor.IsAdmin() || (actor.Role == model.RoleCompany && actor.UserID == companyID)
}

func parseJobStatus(s string) (model.JobStatus, bool) {
	st := model.JobStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st == model.JobActive || st == model.JobClosed
}

// applyJob validates in and copies it onto j.
func applyJob(j *model.Job, in JobInput) error {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	loc := strings.TrimSpace(in.Location)
	if title == "" || desc == "" || loc == "" {
		return invalid("title, description and location are required")
	}
	if !model.ValidEmploymentType(in.EmploymentType) {
		return invalid("employment type must be one of %s", strings.Join(model.EmploymentTypes, ", "))
	}
	deadline, err := ParseDeadline(in.Deadline)
	if err != nil {
		return err
	}
	if in.Status != "" {
		st, ok := parseJobStatus(in.Status)
		if !ok {
			return invalid("status must be active or closed")
		}
		j.Status = st
	}
	j.Title = title
	j.Description = desc
	j.Location = loc
	j.EmploymentType = in.EmploymentType
	j.Salary = strings.TrimSpace(in.Salary)
	j.Eligibility = strings.TrimSpace(in.Eligibility)
	j.Skills = cleanList(in.Skills)
	j.Deadline = deadline
	return nil
}

// ParseDeadline accepts RFC 3339 or a bare date.  A bare date means the
// end of that day in UTC.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalid("deadline is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Add(24*time.Hour - time.Second).UTC(), nil
	}
	return time.Time{}, invalid("deadline must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}

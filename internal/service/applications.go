package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/queue"
	"github.com/iliyamo/placement-portal/internal/repository"
)

// ApplicationService runs the apply / review workflow.
type ApplicationService struct {
	apps     ApplicationStore
	jobs     JobStore
	users    UserStore
	settings SettingsStore
	notifier Notifier
	now      func() time.Time
}

func NewApplicationService(apps ApplicationStore, jobs JobStore, users UserStore, settings SettingsStore, notifier Notifier) *ApplicationService {
	return &ApplicationService{apps: apps, jobs: jobs, users: users, settings: settings, notifier: notifier, now: time.Now}
}

// Apply submits the student's current resume to a job.  Preconditions
// are checked in order: the job exists, its deadline has not passed,
// it is active, the student has a resume, and no earlier application
// exists.
func (s *ApplicationService) Apply(ctx context.Context, studentID, jobID uint64) (*model.Application, error) {
	now := s.now().UTC()
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobUnavailable
		}
		return nil, err
	}
	if job.DeadlinePassed(now) {
		return nil, ErrDeadlinePassed
	}
	if job.Status != model.JobActive {
		return nil, ErrJobUnavailable
	}
	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if student.Role != model.RoleStudent {
		return nil, ErrNotAuthorized
	}
	if strings.TrimSpace(student.ResumePath) == "" {
		return nil, ErrResumeRequired
	}
	if _, err := s.apps.FindByStudentAndJob(ctx, studentID, jobID); err == nil {
		return nil, ErrDuplicateApplication
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	a := &model.Application{
		StudentID:  studentID,
		JobID:      job.ID,
		CompanyID:  job.CompanyID,
		Status:     model.StatusPending,
		AppliedAt:  now,
		ResumePath: student.ResumePath,
		UpdatedAt:  now,
	}
	if err := s.apps.Create(ctx, a); err != nil {
		return nil, mapStoreErr(err)
	}
	return a, nil
}

// StatusInput is a review decision.  Feedback replaces the stored
// feedback when non-nil.
type StatusInput struct {
	Status   string
	Feedback *string
}

// UpdateStatus moves an application to a new status.  Companies may
// only act on applications to their own jobs; admins on any.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor model.Identity, appID uint64, in StatusInput) (*model.Application, error) {
	a, job, err := s.managed(ctx, actor, appID)
	if err != nil {
		return nil, err
	}
	next, ok := model.ParseApplicationStatus(in.Status)
	if !ok {
		return nil, invalid("status must be one of pending, shortlisted, rejected, hired")
	}
	if err := s.transition(ctx, a, next); err != nil {
		return nil, err
	}
	if in.Feedback != nil {
		a.Feedback = strings.TrimSpace(*in.Feedback)
	}
	a.UpdatedAt = s.now().UTC()
	if err := s.apps.Update(ctx, a); err != nil {
		return nil, mapStoreErr(err)
	}
	s.notify(ctx, a, job, queue.KindApplicationStatus)
	return a, nil
}

// InterviewInput carries the interview fields to set.  Nil fields keep
// their stored value.
type InterviewInput struct {
	Date     *time.Time
	Mode     *string
	Location *string
	Link     *string
	Status   *string
}

// ScheduleInterview records interview details and optionally a status.
func (s *ApplicationService) ScheduleInterview(ctx context.Context, actor model.Identity, appID uint64, in InterviewInput) (*model.Application, error) {
	a, job, err := s.managed(ctx, actor, appID)
	if err != nil {
		return nil, err
	}
	if in.Mode != nil && strings.TrimSpace(*in.Mode) != "" {
		mode, ok := model.ParseInterviewMode(*in.Mode)
		if !ok {
			return nil, invalid("interview mode must be Online or Offline")
		}
		a.InterviewMode = mode
	}
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		next, ok := model.ParseApplicationStatus(*in.Status)
		if !ok {
			return nil, invalid("status must be one of pending, shortlisted, rejected, hired")
		}
		if err := s.transition(ctx, a, next); err != nil {
			return nil, err
		}
	}
	if in.Date != nil {
		d := in.Date.UTC()
		a.InterviewDate = &d
	}
	if in.Location != nil {
		a.InterviewLocation = strings.TrimSpace(*in.Location)
	}
	if in.Link != nil {
		a.InterviewLink = strings.TrimSpace(*in.Link)
	}
	a.UpdatedAt = s.now().UTC()
	if err := s.apps.Update(ctx, a); err != nil {
		return nil, mapStoreErr(err)
	}
	s.notify(ctx, a, job, queue.KindInterviewScheduled)
	return a, nil
}

// ApplicationQuery filters listings.  Status is validated.
type ApplicationQuery struct {
	JobID  uint64
	Status string
	Limit  int
	Offset int
}

// ListForStudent returns the student's own applications.
func (s *ApplicationService) ListForStudent(ctx context.Context, studentID uint64, q ApplicationQuery) ([]model.ApplicationView, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	f.StudentID = studentID
	return s.apps.List(ctx, f)
}

// ListForCompany returns applications to the company's jobs.  A job
// filter naming another company's job is refused.
func (s *ApplicationService) ListForCompany(ctx context.Context, companyID uint64, q ApplicationQuery) ([]model.ApplicationView, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	if q.JobID != 0 {
		job, err := s.jobs.GetByID(ctx, q.JobID)
		if err != nil {
			return nil, mapStoreErr(err)
		}
		if job.CompanyID != companyID {
			return nil, ErrNotAuthorized
		}
	}
	f.CompanyID = companyID
	return s.apps.List(ctx, f)
}

// ListForAdmin returns applications across the portal.
func (s *ApplicationService) ListForAdmin(ctx context.Context, q ApplicationQuery) ([]model.ApplicationView, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	return s.apps.List(ctx, f)
}

// CanViewResume decides access to a stored resume: its student (current
// upload or any applied snapshot), a company holding an application
// with it, or an admin.
func (s *ApplicationService) CanViewResume(ctx context.Context, actor model.Identity, resumePath string) error {
	f := repository.ApplicationFilter{ResumePath: resumePath, Limit: 1}
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStudent:
		u, err := s.users.GetByID(ctx, actor.UserID)
		if err != nil {
			return mapStoreErr(err)
		}
		if u.ResumePath == resumePath {
			return nil
		}
		f.StudentID = actor.UserID
	case model.RoleCompany:
		f.CompanyID = actor.UserID
	default:
		return ErrNotAuthorized
	}
	rows, err := s.apps.List(ctx, f)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotAuthorized
	}
	return nil
}

func (q ApplicationQuery) filter() (repository.ApplicationFilter, error) {
	f := repository.ApplicationFilter{JobID: q.JobID, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st, ok := model.ParseApplicationStatus(q.Status)
		if !ok {
			return f, invalid("unknown status %q", q.Status)
		}
		f.Status = st
	}
	return f, nil
}

// managed loads an application the actor may review.  Ownership is
// derived from the job, not the denormalized company id.
func (s *ApplicationService) managed(ctx context.Context, actor model.Identity, appID uint64) (*model.Application, *model.Job, error) {
	a, err := s.apps.GetByID(ctx, appID)
	if err != nil {
		return nil, nil, mapStoreErr(err)
	}
	job, err := s.jobs.GetByID(ctx, a.JobID)
	if err != nil {
		return nil, nil, mapStoreErr(err)
	}
	if !canManage(actor, job.CompanyID) {
		return nil, nil, ErrNotAuthorized
	}
	return a, job, nil
}

func (s *ApplicationService) transition(ctx context.Context, a *model.Application, next model.ApplicationStatus) error {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if !st.TransitionPolicy().Allows(a.Status, next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, next)
	}
	a.Status = next
	return nil
}

// notify mails the student about a change.  Delivery is best effort.
func (s *ApplicationService) notify(ctx context.Context, a *model.Application, job *model.Job, kind string) {
	if s.notifier == nil {
		return
	}
	student, err := s.users.GetByID(ctx, a.StudentID)
	if err != nil {
		log.Warnf("applications: notify %d: load student: %v", a.ID, err)
		return
	}
	data := map[string]string{
		"job_title":    job.Title,
		"company_name": job.CompanyName,
		"status":       a.Status.Label(),
	}
	if kind == queue.KindInterviewScheduled {
		if a.InterviewDate != nil {
			data["interview_date"] = a.InterviewDate.Format("Mon, 02 Jan 2006 15:04 MST")
		}
		data["interview_mode"] = a.InterviewMode
		data["interview_location"] = a.InterviewLocation
		data["interview_link"] = a.InterviewLink
	}
	ev := queue.MailEvent{
		Kind:      kind,
		To:        student.Email,
		Name:      student.Name,
		Data:      data,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		log.Warnf("applications: notify %d: %v", a.ID, err)
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/placement-portal/internal/model"
)

// ApplicationRepo persists applications.  Rows are only removed through
// the job and user cascades.
type ApplicationRepo struct{ db *sql.DB }

func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

const applicationColumns = `a.id, a.student_id, a.job_id, a.company_id, a.status, a.applied_at, a.resume_path,
	a.interview_date, a.interview_mode, a.interview_location, a.interview_link, a.feedback, a.updated_at`

func scanApplication(s rowScanner, extra ...any) (*model.Application, error) {
	var (
		a      model.Application
		status string
		idate  sql.NullTime
	)
	dest := []any{&a.ID, &a.StudentID, &a.JobID, &a.CompanyID, &status, &a.AppliedAt, &a.ResumePath,
		&idate, &a.InterviewMode, &a.InterviewLocation, &a.InterviewLink, &a.Feedback, &a.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Status = model.ApplicationStatus(status)
	if idate.Valid {
		t := idate.Time.UTC()
		a.InterviewDate = &t
	}
	a.AppliedAt = a.AppliedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

// Create inserts a. The unique (student_id, job_id) index turns a racing
// second insert into ErrDuplicate.
func (r *ApplicationRepo) Create(ctx context.Context, a *model.Application) error {
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now().UTC()
	}
	a.UpdatedAt = a.AppliedAt
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (student_id, job_id, company_id, status, applied_at, resume_path,
			interview_mode, interview_location, interview_link, feedback, updated_at)
		 VALUES (?,?,?,?,?,?,'','','','',?)`,
		a.StudentID, a.JobID, a.CompanyID, string(a.Status), a.AppliedAt, a.ResumePath, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID fetches a single application.
func (r *ApplicationRepo) GetByID(ctx context.Context, id uint64) (*model.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications a WHERE a.id = ?", id))
}

// FindByStudentAndJob returns the student's application to the job, or
// ErrNotFound.
func (r *ApplicationRepo) FindByStudentAndJob(ctx context.Context, studentID, jobID uint64) (*model.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications a WHERE a.student_id = ? AND a.job_id = ? LIMIT 1",
		studentID, jobID))
}

// Update writes the mutable workflow fields: status, interview details
// and feedback.
func (r *ApplicationRepo) Update(ctx context.Context, a *model.Application) error {
	a.UpdatedAt = time.Now().UTC()
	var idate any
	if a.InterviewDate != nil {
		idate = a.InterviewDate.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE applications SET status = ?, interview_date = ?, interview_mode = ?,
			interview_location = ?, interview_link = ?, feedback = ?, updated_at = ?
		 WHERE id = ?`,
		string(a.Status), idate, a.InterviewMode, a.InterviewLocation, a.InterviewLink, a.Feedback,
		a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ApplicationFilter narrows List and CountByStatus.  Zero values mean "any".
type ApplicationFilter struct {
	StudentID  uint64
	CompanyID  uint64
	JobID      uint64
	Status     model.ApplicationStatus
	ResumePath string // resume snapshot taken at apply time
	Limit      int
	Offset     int
}

func (f ApplicationFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.StudentID != 0 {
		conds = append(conds, "a.student_id = ?")
		args = append(args, f.StudentID)
	}
	if f.CompanyID != 0 {
		conds = append(conds, "a.company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.JobID != 0 {
		conds = append(conds, "a.job_id = ?")
		args = append(args, f.JobID)
	}
	if f.Status != "" {
		conds = append(conds, "a.status = ?")
		args = append(args, string(f.Status))
	}
	if f.ResumePath != "" {
		conds = append(conds, "a.resume_path = ?")
		args = append(args, f.ResumePath)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns applications joined with job title, company name and
// student name/email, newest first.
func (r *ApplicationRepo) List(ctx context.Context, f ApplicationFilter) ([]model.ApplicationView, error) {
	where, args := f.where()
	q := `SELECT ` + applicationColumns + `,
			COALESCE(j.title, ''), COALESCE(c.company_name, ''), COALESCE(s.name, ''), COALESCE(s.email, '')
		FROM applications a
		LEFT JOIN jobs j ON j.id = a.job_id
		LEFT JOIN users c ON c.id = a.company_id
		LEFT JOIN users s ON s.id = a.student_id` + where + `
		ORDER BY a.applied_at DESC, a.id DESC`
	q, args = appendLimit(q, args, f.Limit, f.Offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ApplicationView{}
	for rows.Next() {
		var v model.ApplicationView
		a, err := scanApplication(rows, &v.JobTitle, &v.CompanyName, &v.StudentName, &v.StudentEmail)
		if err != nil {
			return nil, err
		}
		v.Application = *a
		v.StatusLabel = a.Status.Label()
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountByStatus returns per-status totals for applications matching f.
// Every known status is present in the result, possibly with zero.
func (r *ApplicationRepo) CountByStatus(ctx context.Context, f ApplicationFilter) (model.StatusCounts, error) {
	where, args := f.where()
	rows, err := r.db.QueryContext(ctx,
		"SELECT a.status, COUNT(*) FROM applications a"+where+" GROUP BY a.status", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := model.StatusCounts{}
	for _, s := range model.ApplicationStatuses {
		out[s] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[model.ApplicationStatus(status)] = n
	}
	return out, rows.Err()
}

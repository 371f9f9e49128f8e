// Package repository contains data access logic separated from HTTP handlers.
// This file defines the job catalog queries.  A job belongs to a single
// company user; its applications are removed together with it.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/placement-portal/internal/model"
)

// JobRepo encapsulates all database queries related to job postings.
type JobRepo struct {
	db *sql.DB
}

// NewJobRepo constructs a JobRepo with the provided DB handle.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{db: db}
}

const jobSelect = `SELECT j.id, j.company_id, j.title, j.description, j.employment_type, j.location,
	j.salary, j.eligibility, j.skills, j.deadline, j.status, j.created_at, j.updated_at,
	COALESCE(u.company_name, '')
	FROM jobs j LEFT JOIN users u ON u.id = j.company_id`

func scanJob(s rowScanner) (*model.Job, error) {
	var (
		j      model.Job
		skills string
		status string
	)
	err := s.Scan(&j.ID, &j.CompanyID, &j.Title, &j.Description, &j.EmploymentType, &j.Location,
		&j.Salary, &j.Eligibility, &skills, &j.Deadline, &status, &j.CreatedAt, &j.UpdatedAt,
		&j.CompanyName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	j.Skills = decodeSkills(skills)
	j.Status = model.JobStatus(status)
	j.Deadline = j.Deadline.UTC()
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	return &j, nil
}

// Create inserts a new job and populates its ID and timestamps.
func (r *JobRepo) Create(ctx context.Context, j *model.Job) error {
	now := time.Now().UTC()
	if j.Status == "" {
		j.Status = model.JobActive
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (company_id, title, description, employment_type, location,
			salary, eligibility, skills, deadline, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		j.CompanyID, j.Title, j.Description, j.EmploymentType, j.Location,
		j.Salary, j.Eligibility, encodeSkills(j.Skills), j.Deadline.UTC(), string(j.Status), now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	j.ID = uint64(id)
	j.CreatedAt, j.UpdatedAt = now, now
	return nil
}

// GetByID fetches a job together with its company's name.
func (r *JobRepo) GetByID(ctx context.Context, id uint64) (*model.Job, error) {
	return scanJob(r.db.QueryRowContext(ctx, jobSelect+" WHERE j.id = ?", id))
}

// Update overwrites the editable fields of j, including status.
func (r *JobRepo) Update(ctx context.Context, j *model.Job) error {
	j.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET title = ?, description = ?, employment_type = ?, location = ?,
			salary = ?, eligibility = ?, skills = ?, deadline = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		j.Title, j.Description, j.EmploymentType, j.Location,
		j.Salary, j.Eligibility, encodeSkills(j.Skills), j.Deadline.UTC(), string(j.Status), j.UpdatedAt, j.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetStatus opens or closes a job.  No deadline guard applies: a closed
// job past its deadline may be reopened.
func (r *JobRepo) SetStatus(ctx context.Context, id uint64, status model.JobStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?", string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes a job and its applications within one transaction.
// ErrNotFound is returned when the job does not exist.
func (r *JobRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if _, err = tx.ExecContext(ctx, "DELETE FROM applications WHERE job_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrNotFound
	}
	return err
}

// JobFilter narrows List and Count.  Zero values mean "any".
type JobFilter struct {
	CompanyID uint64
	Status    model.JobStatus
	// VisibleAt, when set, keeps only active jobs whose deadline is after it.
	VisibleAt *time.Time
	Search    string // matched against title, location and company name
	Limit     int
	Offset    int
}

func (f JobFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.CompanyID != 0 {
		conds = append(conds, "j.company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.Status != "" {
		conds = append(conds, "j.status = ?")
		args = append(args, string(f.Status))
	}
	if f.VisibleAt != nil {
		conds = append(conds, "j.status = ? AND j.deadline > ?")
		args = append(args, string(model.JobActive), f.VisibleAt.UTC())
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		conds = append(conds, "(LOWER(j.title) LIKE ? OR LOWER(j.location) LIKE ? OR LOWER(u.company_name) LIKE ?)")
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns jobs matching f, most recently posted first.
func (r *JobRepo) List(ctx context.Context, f JobFilter) ([]model.Job, error) {
	where, args := f.where()
	q, args := appendLimit(jobSelect+where+" ORDER BY j.created_at DESC, j.id DESC", args, f.Limit, f.Offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// Count returns the number of jobs matching f; Limit and Offset are ignored.
func (r *JobRepo) Count(ctx context.Context, f JobFilter) (int, error) {
	where, args := f.where()
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM jobs j LEFT JOIN users u ON u.id = j.company_id"+where, args...).Scan(&n)
	return n, err
}

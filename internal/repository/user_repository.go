package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/placement-portal/internal/model"
)

// UserRepo persists accounts in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, name, email, password_hash, role, status, phone,
	branch, year, roll_number, cgpa, skills, resume_path,
	company_name, industry, website, description, logo_path,
	reset_token_hash, reset_token_expires, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u         model.User
		role      string
		status    string
		cgpa      sql.NullFloat64
		skills    string
		resetHash sql.NullString
		resetExp  sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &status, &u.Phone,
		&u.Branch, &u.Year, &u.RollNumber, &cgpa, &skills, &u.ResumePath,
		&u.CompanyName, &u.Industry, &u.Website, &u.Description, &u.LogoPath,
		&resetHash, &resetExp, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = model.Role(role)
	u.Status = model.UserStatus(status)
	if cgpa.Valid {
		v := cgpa.Float64
		u.CGPA = &v
	}
	u.Skills = decodeSkills(skills)
	u.ResetTokenHash = resetHash.String
	if resetExp.Valid {
		t := resetExp.Time.UTC()
		u.ResetTokenExpires = &t
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// Create inserts u and assigns its ID.  The password must already be
// hashed.  A duplicate email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	now := time.Now().UTC()
	if u.Status == "" {
		u.Status = model.UserActive
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, status, phone,
			branch, year, roll_number, cgpa, skills, resume_path,
			company_name, industry, website, description, logo_path,
			created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), string(u.Status), u.Phone,
		u.Branch, u.Year, u.RollNumber, nullFloat(u.CGPA), encodeSkills(u.Skills), u.ResumePath,
		u.CompanyName, u.Industry, u.Website, u.Description, u.LogoPath,
		now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", normalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	return scanUser(row)
}

// GetByResetToken finds the user holding an unexpired reset token with
// the given hash.
func (r *UserRepo) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE reset_token_hash = ? AND reset_token_expires > ? LIMIT 1",
		tokenHash, now.UTC())
	return scanUser(row)
}

// Update writes the editable columns of u: name, email, phone, status and
// every profile field.  Credentials and reset tokens are untouched.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	u.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, status = ?, phone = ?,
			branch = ?, year = ?, roll_number = ?, cgpa = ?, skills = ?, resume_path = ?,
			company_name = ?, industry = ?, website = ?, description = ?, logo_path = ?,
			updated_at = ?
		 WHERE id = ?`,
		u.Name, u.Email, string(u.Status), u.Phone,
		u.Branch, u.Year, u.RollNumber, nullFloat(u.CGPA), encodeSkills(u.Skills), u.ResumePath,
		u.CompanyName, u.Industry, u.Website, u.Description, u.LogoPath,
		u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return err
	}
	return requireAffected(res)
}

// UpdatePassword stores a new hash and clears any reset token in the
// same statement.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, reset_token_hash = NULL, reset_token_expires = NULL, updated_at = ?
		 WHERE id = ?`, hash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetResetToken stores a reset token hash and expiry.  An empty hash
// clears both columns.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, tokenHash string, expires time.Time) error {
	var (
		h any
		e any
	)
	if tokenHash != "" {
		h, e = tokenHash, expires.UTC()
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token_hash = ?, reset_token_expires = ?, updated_at = ? WHERE id = ?",
		h, e, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetStatus activates or deactivates an account.
func (r *UserRepo) SetStatus(ctx context.Context, id uint64, status model.UserStatus) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET status = ?, updated_at = ? WHERE id = ?", string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UserFilter narrows List.  Zero values mean "any".
type UserFilter struct {
	Role   model.Role
	Status model.UserStatus
	Search string // matched against name, email and company name
	Limit  int
	Offset int
}

// List returns users matching f, newest first.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	var (
		where []string
		args  []any
	)
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(f.Role))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?)")
		args = append(args, like, like, like)
	}
	q := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	q, args = appendLimit(q, args, f.Limit, f.Offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// CountByRole returns the number of accounts per role.
func (r *UserRepo) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT role, COUNT(*) FROM users GROUP BY role")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.Role]int{}
	for rows.Next() {
		var (
			role string
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[model.Role(role)] = n
	}
	return out, rows.Err()
}

// Delete removes a user and everything anchored on it: applications the
// user made or received, the jobs a company owns and the applications to
// those jobs.  All statements run in one transaction.
func (r *UserRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
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
	var exists uint64
	if err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ?", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM applications
		 WHERE student_id = ? OR company_id = ?
		    OR job_id IN (SELECT id FROM jobs WHERE company_id = ?)`, id, id, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM jobs WHERE company_id = ?", id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	return err
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func encodeSkills(skills []string) string {
	if len(skills) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(skills)
	return string(b)
}

func decodeSkills(raw string) []string {
	var out []string
	if raw == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

// requireAffected maps a zero-row UPDATE to ErrNotFound.  MySQL reports
// zero affected rows when values are unchanged, so callers must only use
// it on statements that always modify updated_at.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func appendLimit(q string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 {
		return q, args
	}
	q += " LIMIT ? OFFSET ?"
	return q, append(args, limit, offset)
}

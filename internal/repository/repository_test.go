package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/placement-portal/internal/model"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// one connection so every query sees the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("testdata/schema_sqlite.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

func mustCreateUser(t *testing.T, r *UserRepo, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Name: email, Email: email, PasswordHash: "x", Role: role, CompanyName: "Co " + email}
	if err := r.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func mustCreateJob(t *testing.T, r *JobRepo, companyID uint64, deadline time.Time) *model.Job {
	t.Helper()
	j := &model.Job{
		CompanyID:      companyID,
		Title:          "Backend Engineer",
		Description:    "Go services",
		EmploymentType: "Full-time",
		Location:       "Pune",
		Skills:         []string{"go", "sql"},
		Deadline:       deadline,
	}
	if err := r.Create(context.Background(), j); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

func mustApply(t *testing.T, r *ApplicationRepo, studentID uint64, j *model.Job) *model.Application {
	t.Helper()
	a := &model.Application{StudentID: studentID, JobID: j.ID, CompanyID: j.CompanyID, Status: model.StatusPending, ResumePath: "r.pdf"}
	if err := r.Create(context.Background(), a); err != nil {
		t.Fatalf("create application: %v", err)
	}
	return a
}

func TestUserEmailUniqueAcrossRoles(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	ctx := context.Background()

	mustCreateUser(t, users, "Ada@Example.com", model.RoleStudent)
	dup := &model.User{Name: "Ada", Email: "ada@example.com ", PasswordHash: "x", Role: model.RoleCompany}
	if err := users.Create(ctx, dup); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("second create err = %v, want ErrEmailExists", err)
	}
	got, err := users.GetByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.Email != "ada@example.com" || got.Role != model.RoleStudent {
		t.Fatalf("got %+v", got)
	}
}

func TestUserResetTokenLifecycle(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	ctx := context.Background()
	u := mustCreateUser(t, users, "reset@example.com", model.RoleStudent)

	now := time.Now().UTC()
	if err := users.SetResetToken(ctx, u.ID, "abc", now.Add(time.Hour)); err != nil {
		t.Fatalf("set token: %v", err)
	}
	got, err := users.GetByResetToken(ctx, "abc", now)
	if err != nil || got.ID != u.ID {
		t.Fatalf("lookup token: %v %+v", err, got)
	}
	if _, err := users.GetByResetToken(ctx, "abc", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired lookup err = %v", err)
	}
	if err := users.UpdatePassword(ctx, u.ID, "new-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	got, err = users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PasswordHash != "new-hash" || got.ResetTokenHash != "" || got.ResetTokenExpires != nil {
		t.Fatalf("token not cleared: %+v", got)
	}
}

func TestApplicationUniquePerStudentAndJob(t *testing.T) {
	db := openTestDB(t)
	users, jobs, apps := NewUserRepo(db), NewJobRepo(db), NewApplicationRepo(db)
	company := mustCreateUser(t, users, "co@example.com", model.RoleCompany)
	student := mustCreateUser(t, users, "st@example.com", model.RoleStudent)
	job := mustCreateJob(t, jobs, company.ID, time.Now().Add(24*time.Hour))

	mustApply(t, apps, student.ID, job)
	second := &model.Application{StudentID: student.ID, JobID: job.ID, CompanyID: company.ID, Status: model.StatusPending}
	if err := apps.Create(context.Background(), second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate insert err = %v, want ErrDuplicate", err)
	}
}

func TestJobDeleteCascadesApplications(t *testing.T) {
	db := openTestDB(t)
	users, jobs, apps := NewUserRepo(db), NewJobRepo(db), NewApplicationRepo(db)
	ctx := context.Background()
	company := mustCreateUser(t, users, "co@example.com", model.RoleCompany)
	job := mustCreateJob(t, jobs, company.ID, time.Now().Add(24*time.Hour))
	other := mustCreateJob(t, jobs, company.ID, time.Now().Add(24*time.Hour))

	var doomed []uint64
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		s := mustCreateUser(t, users, email, model.RoleStudent)
		doomed = append(doomed, mustApply(t, apps, s.ID, job).ID)
		mustApply(t, apps, s.ID, other)
	}

	if err := jobs.Delete(ctx, job.ID); err != nil {
		t.Fatalf("delete job: %v", err)
	}
	for _, id := range doomed {
		if _, err := apps.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("application %d survived job delete: %v", id, err)
		}
	}
	left, err := apps.List(ctx, ApplicationFilter{JobID: other.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 3 {
		t.Fatalf("other job applications = %d, want 3", len(left))
	}
	if err := jobs.Delete(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestUserDeleteCascadesJobsAndApplications(t *testing.T) {
	db := openTestDB(t)
	users, jobs, apps := NewUserRepo(db), NewJobRepo(db), NewApplicationRepo(db)
	ctx := context.Background()
	company := mustCreateUser(t, users, "co@example.com", model.RoleCompany)
	rival := mustCreateUser(t, users, "rival@example.com", model.RoleCompany)
	student := mustCreateUser(t, users, "st@example.com", model.RoleStudent)
	j1 := mustCreateJob(t, jobs, company.ID, time.Now().Add(time.Hour))
	j2 := mustCreateJob(t, jobs, company.ID, time.Now().Add(time.Hour))
	kept := mustCreateJob(t, jobs, rival.ID, time.Now().Add(time.Hour))
	mustApply(t, apps, student.ID, j1)
	mustApply(t, apps, student.ID, j2)
	keptApp := mustApply(t, apps, student.ID, kept)

	if err := users.Delete(ctx, company.ID); err != nil {
		t.Fatalf("delete company: %v", err)
	}
	if n, _ := jobs.Count(ctx, JobFilter{CompanyID: company.ID}); n != 0 {
		t.Fatalf("company jobs left = %d", n)
	}
	rest, err := apps.List(ctx, ApplicationFilter{StudentID: student.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != keptApp.ID {
		t.Fatalf("remaining applications = %+v", rest)
	}

	if err := users.Delete(ctx, student.ID); err != nil {
		t.Fatalf("delete student: %v", err)
	}
	if _, err := apps.GetByID(ctx, keptApp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("student application survived: %v", err)
	}
	if err := users.Delete(ctx, student.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleting missing user err = %v", err)
	}
}

func TestJobVisibilityFilter(t *testing.T) {
	db := openTestDB(t)
	users, jobs := NewUserRepo(db), NewJobRepo(db)
	ctx := context.Background()
	company := mustCreateUser(t, users, "co@example.com", model.RoleCompany)
	now := time.Now().UTC()
	open := mustCreateJob(t, jobs, company.ID, now.Add(48*time.Hour))
	mustCreateJob(t, jobs, company.ID, now.Add(-time.Hour))
	closed := mustCreateJob(t, jobs, company.ID, now.Add(48*time.Hour))
	if err := jobs.SetStatus(ctx, closed.ID, model.JobClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	visible, err := jobs.List(ctx, JobFilter{VisibleAt: &now})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != open.ID {
		t.Fatalf("visible = %+v", visible)
	}
	if visible[0].CompanyName != company.CompanyName {
		t.Fatalf("company name = %q", visible[0].CompanyName)
	}
	if got := visible[0].Skills; len(got) != 2 || got[0] != "go" {
		t.Fatalf("skills = %v", got)
	}
}

func TestApplicationCountsAndUpdate(t *testing.T) {
	db := openTestDB(t)
	users, jobs, apps := NewUserRepo(db), NewJobRepo(db), NewApplicationRepo(db)
	ctx := context.Background()
	company := mustCreateUser(t, users, "co@example.com", model.RoleCompany)
	job := mustCreateJob(t, jobs, company.ID, time.Now().Add(time.Hour))
	s1 := mustCreateUser(t, users, "s1@example.com", model.RoleStudent)
	s2 := mustCreateUser(t, users, "s2@example.com", model.RoleStudent)
	a1 := mustApply(t, apps, s1.ID, job)
	mustApply(t, apps, s2.ID, job)

	when := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	a1.Status = model.StatusShortlisted
	a1.InterviewDate = &when
	a1.InterviewMode = "Online"
	if err := apps.Update(ctx, a1); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := apps.GetByID(ctx, a1.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusShortlisted || got.InterviewDate == nil || !got.InterviewDate.Equal(when) {
		t.Fatalf("got %+v", got)
	}

	counts, err := apps.CountByStatus(ctx, ApplicationFilter{CompanyID: company.ID})
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[model.StatusPending] != 1 || counts[model.StatusShortlisted] != 1 || counts.Total() != 2 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewSettingsRepo(db)
	ctx := context.Background()

	s, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if s != model.DefaultSettings {
		t.Fatalf("defaults = %+v", s)
	}
	s.SiteName = "TPO"
	s.AllowHiredRevert = false
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != s {
		t.Fatalf("got %+v, want %+v", got, s)
	}
}

package router

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/placement-portal/internal/config"
	"github.com/iliyamo/placement-portal/internal/handler"
	"github.com/iliyamo/placement-portal/internal/middleware"
	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/queue"
	"github.com/iliyamo/placement-portal/internal/repository"
	"github.com/iliyamo/placement-portal/internal/service"
	"github.com/iliyamo/placement-portal/internal/session"
	"github.com/iliyamo/placement-portal/internal/storage"
)

const testAdminKey = "router-test-admin-key"

type mailbox struct {
	mu     sync.Mutex
	events []queue.MailEvent
	down   bool
}

func (m *mailbox) Notify(_ context.Context, ev queue.MailEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errors.New("broker unreachable")
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *mailbox) last(t *testing.T) queue.MailEvent {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		t.Fatal("no mail queued")
	}
	return m.events[len(m.events)-1]
}

type app struct {
	e     *echo.Echo
	mail  *mailbox
	users *service.UserService
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	schema, err := os.ReadFile("../repository/testdata/schema_sqlite.sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	return db
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := openDB(t)
	cfg := config.Config{
		Env:        "test",
		JWTSecret:  "router-test-secret",
		AccessTTL:  time.Minute,
		SessionTTL: time.Hour,
		ResetTTL:   time.Hour,
		BcryptCost: 4,
		AdminKey:   testAdminKey,
		PublicURL:  "http://portal.test",
	}
	box := &mailbox{}
	users := repository.NewUserRepo(db)
	jobs := repository.NewJobRepo(db)
	apps := repository.NewApplicationRepo(db)
	settings := repository.NewSettingsRepo(db)
	cache := middleware.NewResponseCache(config.CacheConfig{}, nil)
	sessions := session.NewMemoryStore(time.Hour)
	uploadDir := t.TempDir()
	files := storage.NewDisk(uploadDir, "/uploads")

	identity := service.NewIdentityService(users, settings, box, service.IdentityConfig{
		AdminKey: cfg.AdminKey, BcryptCost: cfg.BcryptCost, ResetTTL: cfg.ResetTTL, ResetBaseURL: cfg.PublicURL,
	})
	jobSvc := service.NewJobService(jobs, users, cache)
	appSvc := service.NewApplicationService(apps, jobs, users, settings, box)
	userSvc := service.NewUserService(users, cache, cfg.BcryptCost)
	dash := service.NewDashboardService(users, jobs, apps)

	e := echo.New()
	gateCfg := middleware.AuthConfig{Sessions: sessions, Users: identity, JWTSecret: cfg.JWTSecret}
	gate := middleware.Authenticate(gateCfg)
	gateCfg.Optional = true
	optional := middleware.Authenticate(gateCfg)
	limiter := middleware.NewTokenBucket(config.RateLimitConfig{}, nil)

	RegisterRoutes(e, &handler.HealthHandler{DB: db}, &handler.PublicHandler{Jobs: jobSvc}, cache.Middleware())
	RegisterUploads(e, &handler.FileHandler{Apps: appSvc, Dir: uploadDir, URLPrefix: "/uploads"}, gate)
	RegisterAuth(e, handler.NewAuthHandler(cfg, identity, sessions), gate, optional, limiter)
	RegisterStudent(e, &handler.StudentHandler{Identity: identity, Jobs: jobSvc, Apps: appSvc, Dashboard: dash, Files: files, MaxUpload: 1 << 20}, gate)
	RegisterCompany(e, &handler.CompanyHandler{Identity: identity, Jobs: jobSvc, Apps: appSvc, Dashboard: dash, Files: files, MaxUpload: 1 << 20}, gate)
	RegisterAdmin(e, &handler.AdminHandler{
		Users: userSvc, Jobs: jobSvc, Apps: appSvc, Dashboard: dash,
		Settings: service.NewSettingsService(settings), Sessions: sessions,
	}, gate)

	return &app{e: e, mail: box, users: userSvc}
}

type call struct {
	method, path string
	body         any
	sid          string
	accept       string
}

func (a *app) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(c.method, c.path, rd)
	if c.body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.sid != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: c.sid})
	}
	if c.accept != "" {
		req.Header.Set("Accept", c.accept)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("status %d, want %d: %s", rec.Code, code, rec.Body.String())
	}
}

func (a *app) register(t *testing.T, body map[string]any) uint64 {
	t.Helper()
	rec := a.do(t, call{method: http.MethodPost, path: "/auth/register", body: body})
	wantStatus(t, rec, http.StatusCreated)
	user := decode(t, rec)["user"].(map[string]any)
	return uint64(user["id"].(float64))
}

func (a *app) registerStudent(t *testing.T, email string) uint64 {
	return a.register(t, map[string]any{"name": "Student " + email, "email": email, "password": "secret1", "role": "student"})
}

func (a *app) registerCompany(t *testing.T, email string) uint64 {
	return a.register(t, map[string]any{"name": "HR", "email": email, "password": "secret1", "role": "company", "company_name": "Co " + email})
}

func (a *app) login(t *testing.T, email, password, role, key string) string {
	t.Helper()
	rec := a.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": email, "password": password, "role": role, "admin_key": key,
	}})
	wantStatus(t, rec, http.StatusOK)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookie && ck.Value != "" {
			return ck.Value
		}
	}
	t.Fatal("no session cookie")
	return ""
}

func (a *app) seedAdmin(t *testing.T) (uint64, string) {
	t.Helper()
	u, err := a.users.Create(context.Background(), service.CreateInput{
		Name: "Root", Email: "root@portal.test", Password: "rootpass", Role: "admin",
	})
	if err != nil {
		t.Fatal(err)
	}
	return u.ID, a.login(t, "root@portal.test", "rootpass", "admin", testAdminKey)
}

func (a *app) postJob(t *testing.T, sid string, title string) uint64 {
	t.Helper()
	rec := a.do(t, call{method: http.MethodPost, path: "/company/jobs/post", sid: sid, body: map[string]any{
		"title":           title,
		"description":     "Build services",
		"employment_type": "Full-time",
		"location":        "Pune",
		"skills":          "Go, SQL, go",
		"deadline":        time.Now().Add(30 * 24 * time.Hour).Format("2006-01-02"),
	}})
	wantStatus(t, rec, http.StatusCreated)
	job := decode(t, rec)["job"].(map[string]any)
	if skills := job["skills"].([]any); len(skills) != 2 {
		t.Fatalf("skills not deduplicated: %v", skills)
	}
	return uint64(job["id"].(float64))
}

func (a *app) uploadResume(t *testing.T, sid, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("resume", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("%PDF-1.4 resume"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/student/profile/resume", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sid})
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestGateDecisions(t *testing.T) {
	a := newApp(t)
	a.registerStudent(t, "asha@uni.test")
	sid := a.login(t, "asha@uni.test", "secret1", "student", "")

	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/student/dashboard", sid: sid}), http.StatusOK)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/company/dashboard", sid: sid}), http.StatusForbidden)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/admin/dashboard", sid: sid}), http.StatusForbidden)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/student/dashboard"}), http.StatusUnauthorized)

	rec := a.do(t, call{method: http.MethodGet, path: "/student/dashboard", accept: "text/html"})
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/auth/login" {
		t.Fatalf("anonymous page: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	wantStatus(t, a.do(t, call{method: http.MethodPost, path: "/auth/logout", sid: sid}), http.StatusNoContent)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/student/dashboard", sid: sid}), http.StatusUnauthorized)
}

func TestRegistrationErrors(t *testing.T) {
	a := newApp(t)
	a.registerStudent(t, "dup@uni.test")

	rec := a.do(t, call{method: http.MethodPost, path: "/auth/register", body: map[string]any{
		"name": "Dup Co", "email": "DUP@uni.test", "password": "secret1", "role": "company", "company_name": "Dup",
	}})
	wantStatus(t, rec, http.StatusConflict)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/register", body: map[string]any{
		"name": "Eve", "email": "eve@uni.test", "password": "secret1", "role": "admin",
	}})
	wantStatus(t, rec, http.StatusBadRequest)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/register", body: map[string]any{
		"name": "Short", "email": "short@uni.test", "password": "123", "role": "student",
	}})
	wantStatus(t, rec, http.StatusBadRequest)
	if msg := decode(t, rec)["error"]; msg != "password must be at least 6 characters" {
		t.Fatalf("message %q", msg)
	}
}

func TestAdminLoginNeedsKey(t *testing.T) {
	a := newApp(t)
	a.seedAdmin(t)

	rec := a.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": "root@portal.test", "password": "rootpass", "role": "admin", "admin_key": "wrong",
	}})
	wantStatus(t, rec, http.StatusUnauthorized)
	if msg := decode(t, rec)["error"]; msg != service.ErrInvalidAdminKey.Error() {
		t.Fatalf("message %q", msg)
	}

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": "root@portal.test", "password": "rootpass", "role": "student",
	}})
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestBearerTokenFromLogin(t *testing.T) {
	a := newApp(t)
	a.registerStudent(t, "api@uni.test")
	rec := a.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": "api@uni.test", "password": "secret1", "role": "student",
	}})
	wantStatus(t, rec, http.StatusOK)
	token := decode(t, rec)["access"].(map[string]any)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	out := httptest.NewRecorder()
	a.e.ServeHTTP(out, req)
	wantStatus(t, out, http.StatusOK)
}

func TestApplicationWorkflow(t *testing.T) {
	a := newApp(t)
	a.registerCompany(t, "hr@acme.test")
	a.registerCompany(t, "hr@other.test")
	a.registerStudent(t, "ravi@uni.test")
	company := a.login(t, "hr@acme.test", "secret1", "company", "")
	other := a.login(t, "hr@other.test", "secret1", "company", "")
	student := a.login(t, "ravi@uni.test", "secret1", "student", "")

	jobID := a.postJob(t, company, "Backend Engineer")
	applyPath := fmt.Sprintf("/student/jobs/%d/apply", jobID)

	// no resume yet
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: applyPath, sid: student}), http.StatusBadRequest)

	wantStatus(t, a.uploadResume(t, student, "cv.exe"), http.StatusBadRequest)
	wantStatus(t, a.uploadResume(t, student, "cv.pdf"), http.StatusOK)

	rec := a.do(t, call{method: http.MethodPost, path: applyPath, sid: student})
	wantStatus(t, rec, http.StatusCreated)
	application := decode(t, rec)["application"].(map[string]any)
	appID := uint64(application["id"].(float64))
	if application["status"] != "pending" || !strings.HasPrefix(application["resume_path"].(string), "/uploads/resumes/") {
		t.Fatalf("application %v", application)
	}
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: applyPath, sid: student}), http.StatusConflict)

	rec = a.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/company/jobs/%d/applications", jobID), sid: company})
	wantStatus(t, rec, http.StatusOK)
	if items := decode(t, rec)["items"].([]any); len(items) != 1 {
		t.Fatalf("company sees %d applications", len(items))
	}
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/company/jobs/%d/applications", jobID), sid: other}), http.StatusForbidden)

	statusPath := fmt.Sprintf("/company/applications/%d/status", appID)
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: statusPath, sid: other, body: map[string]string{"status": "hired"}}), http.StatusForbidden)
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: statusPath, sid: company, body: map[string]string{"status": "promoted"}}), http.StatusBadRequest)

	rec = a.do(t, call{method: http.MethodPost, path: statusPath, sid: company, body: map[string]string{"status": "shortlisted", "feedback": "strong SQL"}})
	wantStatus(t, rec, http.StatusOK)
	if label := decode(t, rec)["status_label"]; label != "Shortlisted" {
		t.Fatalf("label %v", label)
	}
	if ev := a.mail.last(t); ev.Kind != queue.KindApplicationStatus || ev.To != "ravi@uni.test" {
		t.Fatalf("mail %+v", ev)
	}

	rec = a.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/company/applications/%d/schedule-interview", appID), sid: company, body: map[string]string{
		"interview_date": "2026-11-02T10:30",
		"interview_mode": "Online",
		"interview_link": "https://meet.example/abc",
	}})
	wantStatus(t, rec, http.StatusOK)
	scheduled := decode(t, rec)["application"].(map[string]any)
	if scheduled["interview_mode"] != "Online" || scheduled["status"] != "shortlisted" || scheduled["feedback"] != "strong SQL" {
		t.Fatalf("scheduled %v", scheduled)
	}

	rec = a.do(t, call{method: http.MethodGet, path: "/student/applications", sid: student})
	wantStatus(t, rec, http.StatusOK)
	items := decode(t, rec)["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["job_title"] != "Backend Engineer" {
		t.Fatalf("student applications %v", items)
	}

	rec = a.do(t, call{method: http.MethodGet, path: "/student/dashboard", sid: student})
	wantStatus(t, rec, http.StatusOK)
	if total := decode(t, rec)["total_applications"]; total != float64(1) {
		t.Fatalf("dashboard total %v", total)
	}
}

func TestClosedJobRejectsApplications(t *testing.T) {
	a := newApp(t)
	a.registerCompany(t, "hr@acme.test")
	a.registerStudent(t, "lee@uni.test")
	company := a.login(t, "hr@acme.test", "secret1", "company", "")
	student := a.login(t, "lee@uni.test", "secret1", "student", "")
	jobID := a.postJob(t, company, "Data Analyst")
	wantStatus(t, a.uploadResume(t, student, "cv.pdf"), http.StatusOK)

	rec := a.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/company/jobs/%d/status", jobID), sid: company, body: map[string]string{"status": "closed"}})
	wantStatus(t, rec, http.StatusOK)

	wantStatus(t, a.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/student/jobs/%d/apply", jobID), sid: student}), http.StatusConflict)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/student/jobs/%d", jobID), sid: student}), http.StatusNotFound)

	rec = a.do(t, call{method: http.MethodGet, path: "/jobs"})
	wantStatus(t, rec, http.StatusOK)
	if items := decode(t, rec)["items"].([]any); len(items) != 0 {
		t.Fatalf("closed job on public board: %v", items)
	}
}

func TestImpersonationStack(t *testing.T) {
	a := newApp(t)
	studentID := a.registerStudent(t, "imp@uni.test")
	companyID := a.registerCompany(t, "hr@imp.test")
	adminID, admin := a.seedAdmin(t)
	student := a.login(t, "imp@uni.test", "secret1", "student", "")

	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/admin/impersonate/stop", sid: student}), http.StatusForbidden)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/admin/impersonate/stop", sid: admin}), http.StatusBadRequest)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/admin/users/impersonate/%d", adminID), sid: admin}), http.StatusBadRequest)

	rec := a.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/admin/users/impersonate/%d", studentID), sid: admin})
	wantStatus(t, rec, http.StatusOK)
	if dest := decode(t, rec)["redirect"]; dest != "/student/dashboard" {
		t.Fatalf("redirect %v", dest)
	}

	// acting as the student: admin rights are gone
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/student/dashboard", sid: admin}), http.StatusOK)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/admin/dashboard", sid: admin}), http.StatusForbidden)

	rec = a.do(t, call{method: http.MethodGet, path: "/auth/me", sid: admin})
	wantStatus(t, rec, http.StatusOK)
	me := decode(t, rec)
	if me["impersonating"] != true || me["impersonator_id"] != float64(adminID) {
		t.Fatalf("me %v", me)
	}

	wantStatus(t, a.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/admin/users/impersonate/%d", companyID), sid: admin}), http.StatusConflict)

	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/admin/impersonate/stop", sid: admin}), http.StatusOK)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/admin/dashboard", sid: admin}), http.StatusOK)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/admin/impersonate/stop", sid: admin}), http.StatusBadRequest)
}

func TestImpersonationEndsWhenAdminDeleted(t *testing.T) {
	a := newApp(t)
	studentID := a.registerStudent(t, "held@uni.test")
	adminID, admin := a.seedAdmin(t)

	wantStatus(t, a.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/admin/users/impersonate/%d", studentID), sid: admin}), http.StatusOK)

	other := model.Identity{UserID: adminID + 1000, Role: model.RoleAdmin}
	if err := a.users.Delete(context.Background(), other, adminID); err != nil {
		t.Fatal(err)
	}

	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/student/dashboard", sid: admin}), http.StatusUnauthorized)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/admin/impersonate/stop", sid: admin}), http.StatusUnauthorized)
}

func TestAdminPostsJobForCompany(t *testing.T) {
	a := newApp(t)
	companyID := a.registerCompany(t, "hr@client.test")
	studentID := a.registerStudent(t, "not-a-company@uni.test")
	_, admin := a.seedAdmin(t)

	body := func(companyID uint64) map[string]any {
		return map[string]any{
			"company_id":      companyID,
			"title":           "Campus Hire",
			"description":     "Graduate programme",
			"employment_type": "Internship",
			"location":        "Remote",
			"deadline":        time.Now().Add(14 * 24 * time.Hour).Format("2006-01-02"),
		}
	}

	rec := a.do(t, call{method: http.MethodPost, path: "/admin/jobs/add", sid: admin, body: body(companyID)})
	wantStatus(t, rec, http.StatusCreated)
	job := decode(t, rec)["job"].(map[string]any)
	if job["company_id"] != float64(companyID) || job["status"] != "active" {
		t.Fatalf("job %v", job)
	}

	rec = a.do(t, call{method: http.MethodPost, path: "/admin/jobs/add", sid: admin, body: body(studentID)})
	wantStatus(t, rec, http.StatusBadRequest)
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: "/admin/jobs/add", sid: admin, body: body(0)}), http.StatusBadRequest)

	company := a.login(t, "hr@client.test", "secret1", "company", "")
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: "/admin/jobs/add", sid: company, body: body(companyID)}), http.StatusForbidden)

	rec = a.do(t, call{method: http.MethodGet, path: "/company/jobs", sid: company})
	wantStatus(t, rec, http.StatusOK)
	if items := decode(t, rec)["items"].([]any); len(items) != 1 {
		t.Fatalf("company sees %d jobs", len(items))
	}
}

func TestPasswordResetOverHTTP(t *testing.T) {
	a := newApp(t)
	a.registerStudent(t, "forgot@uni.test")

	wantStatus(t, a.do(t, call{method: http.MethodPost, path: "/auth/forgot-password", body: map[string]string{"email": "nobody@uni.test"}}), http.StatusNotFound)
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: "/auth/forgot-password", body: map[string]string{"email": "forgot@uni.test"}}), http.StatusOK)

	link := a.mail.last(t).Data["reset_url"]
	if !strings.HasPrefix(link, "http://portal.test/auth/reset-password/") {
		t.Fatalf("reset link %q", link)
	}
	path := strings.TrimPrefix(link, "http://portal.test")

	wantStatus(t, a.do(t, call{method: http.MethodGet, path: path}), http.StatusOK)
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: path, body: map[string]string{"password": "brandnew", "confirm_password": "different"}}), http.StatusBadRequest)
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: path, body: map[string]string{"password": "brandnew"}}), http.StatusOK)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: path}), http.StatusBadRequest)

	a.login(t, "forgot@uni.test", "brandnew", "student", "")
}

func TestPasswordResetMailDown(t *testing.T) {
	a := newApp(t)
	a.registerStudent(t, "down@uni.test")
	a.mail.down = true
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: "/auth/forgot-password", body: map[string]string{"email": "down@uni.test"}}), http.StatusBadGateway)
}

func TestAdminDeletesCompanyWithJobs(t *testing.T) {
	a := newApp(t)
	companyID := a.registerCompany(t, "hr@gone.test")
	company := a.login(t, "hr@gone.test", "secret1", "company", "")
	a.postJob(t, company, "Short Lived")
	adminID, admin := a.seedAdmin(t)

	rec := a.do(t, call{method: http.MethodGet, path: "/jobs"})
	if items := decode(t, rec)["items"].([]any); len(items) != 1 {
		t.Fatalf("public board before delete: %v", items)
	}

	wantStatus(t, a.do(t, call{method: http.MethodDelete, path: fmt.Sprintf("/admin/users/%d", adminID), sid: admin}), http.StatusBadRequest)
	wantStatus(t, a.do(t, call{method: http.MethodDelete, path: fmt.Sprintf("/admin/users/%d", companyID), sid: admin}), http.StatusNoContent)

	rec = a.do(t, call{method: http.MethodGet, path: "/jobs"})
	if items := decode(t, rec)["items"].([]any); len(items) != 0 {
		t.Fatalf("public board after delete: %v", items)
	}
	// the deleted company's session no longer resolves
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/company/dashboard", sid: company}), http.StatusUnauthorized)
}

func TestAdminSettingsCloseRegistration(t *testing.T) {
	a := newApp(t)
	_, admin := a.seedAdmin(t)

	rec := a.do(t, call{method: http.MethodPost, path: "/admin/settings", sid: admin, body: map[string]any{"allow_registration": false}})
	wantStatus(t, rec, http.StatusOK)

	rec = a.do(t, call{method: http.MethodPost, path: "/auth/register", body: map[string]any{
		"name": "Late", "email": "late@uni.test", "password": "secret1", "role": "student",
	}})
	wantStatus(t, rec, http.StatusBadRequest)
	if msg := decode(t, rec)["error"]; msg != "registration is closed" {
		t.Fatalf("message %q", msg)
	}
}

func TestJobBoardExpiresAtEarliestDeadline(t *testing.T) {
	a := newApp(t)
	a.registerCompany(t, "hr@board.test")
	company := a.login(t, "hr@board.test", "secret1", "company", "")
	a.postJob(t, company, "Later")
	soon := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	rec := a.do(t, call{method: http.MethodPost, path: "/company/jobs/post", sid: company, body: map[string]any{
		"title": "Sooner", "description": "d", "employment_type": "Part-time", "location": "Goa",
		"deadline": soon.Format(time.RFC3339),
	}})
	wantStatus(t, rec, http.StatusCreated)

	rec = a.do(t, call{method: http.MethodGet, path: "/jobs"})
	wantStatus(t, rec, http.StatusOK)
	exp, err := http.ParseTime(rec.Header().Get("Expires"))
	if err != nil || !exp.Equal(soon) {
		t.Fatalf("Expires %q, want %v (%v)", rec.Header().Get("Expires"), soon, err)
	}
}

func TestResumeAccess(t *testing.T) {
	a := newApp(t)
	a.registerStudent(t, "owner@uni.test")
	a.registerStudent(t, "nosy@uni.test")
	a.registerCompany(t, "hr@hiring.test")
	a.registerCompany(t, "hr@elsewhere.test")
	owner := a.login(t, "owner@uni.test", "secret1", "student", "")
	nosy := a.login(t, "nosy@uni.test", "secret1", "student", "")
	hiring := a.login(t, "hr@hiring.test", "secret1", "company", "")
	elsewhere := a.login(t, "hr@elsewhere.test", "secret1", "company", "")
	_, admin := a.seedAdmin(t)

	rec := a.uploadResume(t, owner, "cv.pdf")
	wantStatus(t, rec, http.StatusOK)
	resume := decode(t, rec)["resume_path"].(string)

	wantStatus(t, a.do(t, call{method: http.MethodGet, path: resume}), http.StatusUnauthorized)
	rec = a.do(t, call{method: http.MethodGet, path: resume, sid: owner})
	wantStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "%PDF-1.4 resume" {
		t.Fatalf("body %q", rec.Body.String())
	}
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: resume, sid: nosy}), http.StatusForbidden)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: resume, sid: hiring}), http.StatusForbidden)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: resume, sid: admin}), http.StatusOK)

	jobID := a.postJob(t, hiring, "Platform Engineer")
	wantStatus(t, a.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/student/jobs/%d/apply", jobID), sid: owner}), http.StatusCreated)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: resume, sid: hiring}), http.StatusOK)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: resume, sid: elsewhere}), http.StatusForbidden)

	// a new upload keeps the applied snapshot readable by its student
	wantStatus(t, a.uploadResume(t, owner, "cv2.pdf"), http.StatusOK)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: resume, sid: owner}), http.StatusOK)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	wantStatus(t, a.do(t, call{method: http.MethodGet, path: "/healthz"}), http.StatusOK)
}

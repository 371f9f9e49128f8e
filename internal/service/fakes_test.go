package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/queue"
	"github.com/iliyamo/placement-portal/internal/repository"
)

type fakeUsers struct {
	mu           sync.Mutex
	next         uint64
	rows         map[uint64]model.User
	emailLookups int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{rows: map[uint64]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	f.next++
	u.ID = f.next
	f.rows[u.ID] = *u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emailLookups++
	for _, u := range f.rows {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByResetToken(_ context.Context, hash string, now time.Time) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.ResetTokenHash != "" && u.ResetTokenHash == hash && u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, r := range f.rows {
		if id != u.ID && r.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	next := *u
	next.PasswordHash = cur.PasswordHash
	next.ResetTokenHash = cur.ResetTokenHash
	next.ResetTokenExpires = cur.ResetTokenExpires
	f.rows[u.ID] = next
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.ResetTokenHash = ""
	u.ResetTokenExpires = nil
	f.rows[id] = u
	return nil
}

func (f *fakeUsers) SetResetToken(_ context.Context, id uint64, hash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetTokenHash = hash
	u.ResetTokenExpires = nil
	if hash != "" {
		u.ResetTokenExpires = &expires
	}
	f.rows[id] = u
	return nil
}

func (f *fakeUsers) SetStatus(_ context.Context, id uint64, status model.UserStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = status
	f.rows[id] = u
	return nil
}

func (f *fakeUsers) List(_ context.Context, filter repository.UserFilter) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.rows {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeUsers) CountByRole(context.Context) (map[model.Role]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[model.Role]int{}
	for _, u := range f.rows {
		out[u.Role]++
	}
	return out, nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeJobs struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Job
	apps *fakeApps
}

func newFakeJobs(apps *fakeApps) *fakeJobs { return &fakeJobs{rows: map[uint64]model.Job{}, apps: apps} }

func (f *fakeJobs) Create(_ context.Context, j *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	j.ID = f.next
	f.rows[j.ID] = *j
	return nil
}

func (f *fakeJobs) GetByID(_ context.Context, id uint64) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &j, nil
}

func (f *fakeJobs) Update(_ context.Context, j *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[j.ID]; !ok {
		return repository.ErrNotFound
	}
	f.rows[j.ID] = *j
	return nil
}

func (f *fakeJobs) SetStatus(_ context.Context, id uint64, status model.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	j.Status = status
	f.rows[id] = j
	return nil
}

func (f *fakeJobs) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	if f.apps != nil {
		f.apps.deleteForJob(id)
	}
	return nil
}

func (f *fakeJobs) match(j model.Job, filter repository.JobFilter) bool {
	if filter.CompanyID != 0 && j.CompanyID != filter.CompanyID {
		return false
	}
	if filter.Status != "" && j.Status != filter.Status {
		return false
	}
	if filter.VisibleAt != nil && !j.VisibleAt(*filter.VisibleAt) {
		return false
	}
	return true
}

func (f *fakeJobs) List(_ context.Context, filter repository.JobFilter) ([]model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Job{}
	for _, j := range f.rows {
		if f.match(j, filter) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeJobs) Count(ctx context.Context, filter repository.JobFilter) (int, error) {
	filter.Limit = 0
	rows, err := f.List(ctx, filter)
	return len(rows), err
}

type fakeApps struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Application
}

func newFakeApps() *fakeApps { return &fakeApps{rows: map[uint64]model.Application{}} }

func (f *fakeApps) Create(_ context.Context, a *model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.StudentID == a.StudentID && r.JobID == a.JobID {
			return repository.ErrDuplicate
		}
	}
	f.next++
	a.ID = f.next
	f.rows[a.ID] = *a
	return nil
}

func (f *fakeApps) GetByID(_ context.Context, id uint64) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (f *fakeApps) FindByStudentAndJob(_ context.Context, studentID, jobID uint64) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.StudentID == studentID && a.JobID == jobID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeApps) Update(_ context.Context, a *model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[a.ID]; !ok {
		return repository.ErrNotFound
	}
	f.rows[a.ID] = *a
	return nil
}

func (f *fakeApps) List(_ context.Context, filter repository.ApplicationFilter) ([]model.ApplicationView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ApplicationView{}
	for _, a := range f.rows {
		if filter.StudentID != 0 && a.StudentID != filter.StudentID {
			continue
		}
		if filter.CompanyID != 0 && a.CompanyID != filter.CompanyID {
			continue
		}
		if filter.JobID != 0 && a.JobID != filter.JobID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.ResumePath != "" && a.ResumePath != filter.ResumePath {
			continue
		}
		out = append(out, model.ApplicationView{Application: a, StatusLabel: a.Status.Label()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeApps) CountByStatus(ctx context.Context, filter repository.ApplicationFilter) (model.StatusCounts, error) {
	filter.Limit = 0
	rows, _ := f.List(ctx, filter)
	out := model.StatusCounts{}
	for _, s := range model.ApplicationStatuses {
		out[s] = 0
	}
	for _, r := range rows {
		out[r.Status]++
	}
	return out, nil
}

func (f *fakeApps) deleteForJob(jobID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.rows {
		if a.JobID == jobID {
			delete(f.rows, id)
		}
	}
}

type fakeSettings struct {
	mu sync.Mutex
	s  model.Settings
}

func newFakeSettings() *fakeSettings { return &fakeSettings{s: model.DefaultSettings} }

func (f *fakeSettings) Get(context.Context) (model.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s, nil
}

func (f *fakeSettings) Save(_ context.Context, s model.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s = s
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []queue.MailEvent
	fail   bool
}

func (f *fakeNotifier) Notify(_ context.Context, ev queue.MailEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unreachable")
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeNotifier) last() (queue.MailEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return queue.MailEvent{}, false
	}
	return f.events[len(f.events)-1], true
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

package service

import (
	"context"
	"time"

	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/queue"
	"github.com/iliyamo/placement-portal/internal/repository"
)

// UserStore is the persistence contract for accounts; *repository.UserRepo
// satisfies it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	SetResetToken(ctx context.Context, id uint64, tokenHash string, expires time.Time) error
	SetStatus(ctx context.Context, id uint64, status model.UserStatus) error
	List(ctx context.Context, f repository.UserFilter) ([]model.User, error)
	CountByRole(ctx context.Context) (map[model.Role]int, error)
	Delete(ctx context.Context, id uint64) error
}

// JobStore is the persistence contract for the job catalog.
type JobStore interface {
	Create(ctx context.Context, j *model.Job) error
	GetByID(ctx context.Context, id uint64) (*model.Job, error)
	Update(ctx context.Context, j *model.Job) error
	SetStatus(ctx context.Context, id uint64, status model.JobStatus) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, f repository.JobFilter) ([]model.Job, error)
	Count(ctx context.Context, f repository.JobFilter) (int, error)
}

// ApplicationStore is the persistence contract for applications.
type ApplicationStore interface {
	Create(ctx context.Context, a *model.Application) error
	GetByID(ctx context.Context, id uint64) (*model.Application, error)
	FindByStudentAndJob(ctx context.Context, studentID, jobID uint64) (*model.Application, error)
	Update(ctx context.Context, a *model.Application) error
	List(ctx context.Context, f repository.ApplicationFilter) ([]model.ApplicationView, error)
	CountByStatus(ctx context.Context, f repository.ApplicationFilter) (model.StatusCounts, error)
}

// SettingsStore loads and saves portal settings.
type SettingsStore interface {
	Get(ctx context.Context) (model.Settings, error)
	Save(ctx context.Context, s model.Settings) error
}

// Notifier hands mail events to the delivery pipeline.
type Notifier interface {
	Notify(ctx context.Context, ev queue.MailEvent) error
}

// CatalogInvalidator drops cached job listings after the catalog changes.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) error { return nil }

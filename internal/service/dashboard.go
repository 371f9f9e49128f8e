package service

import (
	"context"
	"time"

	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/repository"
)

const recentLimit = 5

// DashboardService assembles the per-role landing pages.
type DashboardService struct {
	users UserStore
	jobs  JobStore
	apps  ApplicationStore
	now   func() time.Time
}

func NewDashboardService(users UserStore, jobs JobStore, apps ApplicationStore) *DashboardService {
	return &DashboardService{users: users, jobs: jobs, apps: apps, now: time.Now}
}

type StudentDashboard struct {
	User               *model.User             `json:"user"`
	ProfileCompletion  int                     `json:"profile_completion"`
	Counts             model.StatusCounts      `json:"counts"`
	TotalApplications  int                     `json:"total_applications"`
	RecentApplications []model.ApplicationView `json:"recent_applications"`
	LatestJobs         []model.Job             `json:"latest_jobs"`
}

func (s *DashboardService) Student(ctx context.Context, userID uint64) (*StudentDashboard, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	f := repository.ApplicationFilter{StudentID: userID}
	counts, err := s.apps.CountByStatus(ctx, f)
	if err != nil {
		return nil, err
	}
	f.Limit = recentLimit
	recent, err := s.apps.List(ctx, f)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	jobs, err := s.jobs.List(ctx, repository.JobFilter{VisibleAt: &now, Limit: recentLimit})
	if err != nil {
		return nil, err
	}
	return &StudentDashboard{
		User:               u,
		ProfileCompletion:  model.ProfileCompletion(u),
		Counts:             counts,
		TotalApplications:  counts.Total(),
		RecentApplications: recent,
		LatestJobs:         jobs,
	}, nil
}

type CompanyDashboard struct {
	User               *model.User             `json:"user"`
	ProfileCompletion  int                     `json:"profile_completion"`
	TotalJobs          int                     `json:"total_jobs"`
	ActiveJobs         int                     `json:"active_jobs"`
	Counts             model.StatusCounts      `json:"counts"`
	TotalApplications  int                     `json:"total_applications"`
	RecentApplications []model.ApplicationView `json:"recent_applications"`
}

func (s *DashboardService) Company(ctx context.Context, userID uint64) (*CompanyDashboard, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	total, err := s.jobs.Count(ctx, repository.JobFilter{CompanyID: userID})
	if err != nil {
		return nil, err
	}
	active, err := s.jobs.Count(ctx, repository.JobFilter{CompanyID: userID, Status: model.JobActive})
	if err != nil {
		return nil, err
	}
	f := repository.ApplicationFilter{CompanyID: userID}
	counts, err := s.apps.CountByStatus(ctx, f)
	if err != nil {
		return nil, err
	}
	f.Limit = recentLimit
	recent, err := s.apps.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &CompanyDashboard{
		User:               u,
		ProfileCompletion:  model.ProfileCompletion(u),
		TotalJobs:          total,
		ActiveJobs:         active,
		Counts:             counts,
		TotalApplications:  counts.Total(),
		RecentApplications: recent,
	}, nil
}

type AdminDashboard struct {
	UsersByRole       map[model.Role]int `json:"users_by_role"`
	TotalUsers        int                `json:"total_users"`
	TotalJobs         int                `json:"total_jobs"`
	ActiveJobs        int                `json:"active_jobs"`
	Counts            model.StatusCounts `json:"counts"`
	TotalApplications int                `json:"total_applications"`
	RecentUsers       []model.User       `json:"recent_users"`
	RecentJobs        []model.Job        `json:"recent_jobs"`
}

func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range []model.Role{model.RoleStudent, model.RoleCompany, model.RoleAdmin} {
		if _, ok := byRole[r]; !ok {
			byRole[r] = 0
		}
	}
	totalUsers := 0
	for _, n := range byRole {
		totalUsers += n
	}
	totalJobs, err := s.jobs.Count(ctx, repository.JobFilter{})
	if err != nil {
		return nil, err
	}
	activeJobs, err := s.jobs.Count(ctx, repository.JobFilter{Status: model.JobActive})
	if err != nil {
		return nil, err
	}
	counts, err := s.apps.CountByStatus(ctx, repository.ApplicationFilter{})
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, repository.UserFilter{Limit: recentLimit})
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobs.List(ctx, repository.JobFilter{Limit: recentLimit})
	if err != nil {
		return nil, err
	}
	return &AdminDashboard{
		UsersByRole:       byRole,
		TotalUsers:        totalUsers,
		TotalJobs:         totalJobs,
		ActiveJobs:        activeJobs,
		Counts:            counts,
		TotalApplications: counts.Total(),
		RecentUsers:       users,
		RecentJobs:        jobs,
	}, nil
}

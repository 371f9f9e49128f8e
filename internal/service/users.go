package service

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/repository"
	"github.com/iliyamo/placement-portal/internal/utils"
)

// UserService is the admin's account management.
type UserService struct {
	users UserStore
	cache CatalogInvalidator
	pw    utils.Passwords
	now   func() time.Time
}

func NewUserService(users UserStore, cache CatalogInvalidator, bcryptCost int) *UserService {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &UserService{users: users, cache: cache, pw: utils.NewPasswords(bcryptCost), now: time.Now}
}

// UserQuery filters the admin user list.
type UserQuery struct {
	Role   string
	Status string
	Search string
	Limit  int
	Offset int
}

// List returns accounts matching q.
func (s *UserService) List(ctx context.Context, q UserQuery) ([]model.User, error) {
	f := repository.UserFilter{Search: q.Search, Limit: q.Limit, Offset: q.Offset}
	if q.Role != "" {
		r, ok := model.ParseRole(q.Role)
		if !ok {
			return nil, invalid("unknown role %q", q.Role)
		}
		f.Role = r
	}
	if q.Status != "" {
		st, ok := parseUserStatus(q.Status)
		if !ok {
			return nil, invalid("status must be active or inactive")
		}
		f.Status = st
	}
	return s.users.List(ctx, f)
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return u, nil
}

// CreateInput is the admin add-user form.  Unlike self-registration it
// may create admin accounts.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Profile  ProfileInput
}

// Create adds an account of any role.
func (s *UserService) Create(ctx context.Context, in CreateInput) (*model.User, error) {
	role, ok := model.ParseRole(in.Role)
	if !ok {
		return nil, invalid("role must be student, company or admin")
	}
	return createAccount(ctx, s.users, s.pw, accountInput{
		Name: in.Name, Email: in.Email, Password: in.Password, Role: role, Profile: in.Profile,
	}, s.now())
}

// UpdateInput is the admin edit form.  Role is fixed at creation.
type UpdateInput struct {
	Email   *string
	Status  *string
	Profile ProfileInput
}

// Update edits an account's email, status and profile fields.
func (s *UserService) Update(ctx context.Context, actor model.Identity, id uint64, in UpdateInput) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !validEmail(email) {
			return nil, invalid("invalid email address")
		}
		u.Email = email
	}
	if in.Status != nil && *in.Status != "" {
		st, ok := parseUserStatus(*in.Status)
		if !ok {
			return nil, invalid("status must be active or inactive")
		}
		if st == model.UserInactive && u.ID == actor.UserID {
			return nil, invalid("you cannot deactivate your own account")
		}
		u.Status = st
	}
	if err := applyProfile(u, in.Profile); err != nil {
		return nil, err
	}
	if u.Role == model.RoleCompany && u.CompanyName == "" {
		return nil, invalid("company name is required")
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, mapStoreErr(err)
	}
	if u.Role == model.RoleCompany {
		s.invalidate(ctx)
	}
	return u, nil
}

// ToggleStatus flips an account between active and inactive.
func (s *UserService) ToggleStatus(ctx context.Context, actor model.Identity, id uint64) (*model.User, error) {
	if id == actor.UserID {
		return nil, invalid("you cannot deactivate your own account")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := model.UserInactive
	if !u.IsActive() {
		next = model.UserActive
	}
	if err := s.users.SetStatus(ctx, u.ID, next); err != nil {
		return nil, mapStoreErr(err)
	}
	u.Status = next
	return u, nil
}

// Delete removes an account with its jobs and applications.
func (s *UserService) Delete(ctx context.Context, actor model.Identity, id uint64) error {
	if id == actor.UserID {
		return invalid("you cannot delete your own account")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return mapStoreErr(err)
	}
	if u.Role == model.RoleCompany {
		s.invalidate(ctx)
	}
	return nil
}

// ImpersonationTarget checks that admin may act as the account id and
// returns it.  Admin accounts and inactive accounts cannot be assumed.
func (s *UserService) ImpersonationTarget(ctx context.Context, admin model.Identity, id uint64) (*model.User, error) {
	if !admin.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	if id == admin.UserID {
		return nil, invalid("you cannot impersonate yourself")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role == model.RoleAdmin {
		return nil, invalid("admin accounts cannot be impersonated")
	}
	if !u.IsActive() {
		return nil, ErrAccountInactive
	}
	return u, nil
}

func (s *UserService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warnf("users: catalog cache purge failed: %v", err)
	}
}

func parseUserStatus(s string) (model.UserStatus, bool) {
	st := model.UserStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st == model.UserActive || st == model.UserInactive
}

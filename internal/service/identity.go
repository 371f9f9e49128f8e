package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/queue"
	"github.com/iliyamo/placement-portal/internal/repository"
	"github.com/iliyamo/placement-portal/internal/utils"
)

const minPasswordLen = 6

// IdentityConfig carries the credential settings of IdentityService.
type IdentityConfig struct {
	AdminKey     string
	BcryptCost   int
	ResetTTL     time.Duration
	ResetBaseURL string // public origin used to build reset links
}

// IdentityService owns registration, login, password reset and profile
// edits.
type IdentityService struct {
	users    UserStore
	settings SettingsStore
	notifier Notifier
	cfg      IdentityConfig
	pw       utils.Passwords
	now      func() time.Time
}

func NewIdentityService(users UserStore, settings SettingsStore, notifier Notifier, cfg IdentityConfig) *IdentityService {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	return &IdentityService{
		users:    users,
		settings: settings,
		notifier: notifier,
		cfg:      cfg,
		pw:       utils.NewPasswords(cfg.BcryptCost),
		now:      time.Now,
	}
}

// ProfileInput is a partial profile update: nil fields are left alone.
// Skills replaces the list when non-nil.
type ProfileInput struct {
	Name        *string
	Phone       *string
	Branch      *string
	Year        *int
	RollNumber  *string
	CGPA        *float64
	Skills      []string
	CompanyName *string
	Industry    *string
	Website     *string
	Description *string
}

// RegisterInput is the self-registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Profile  ProfileInput
}

// Register creates a student or company account.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !st.AllowRegistration {
		return nil, invalid("registration is closed")
	}
	role, ok := model.ParseRole(in.Role)
	if !ok || role == model.RoleAdmin {
		return nil, invalid("role must be student or company")
	}
	return createAccount(ctx, s.users, s.pw, accountInput{
		Name: in.Name, Email: in.Email, Password: in.Password, Role: role, Profile: in.Profile,
	}, s.now())
}

type accountInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
	Profile  ProfileInput
}

// createAccount is shared by self-registration and the admin add-user form.
func createAccount(ctx context.Context, users UserStore, pw utils.Passwords, in accountInput, now time.Time) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, invalid("name, email and password are required")
	}
	if !validEmail(email) {
		return nil, invalid("invalid email address")
	}
	if len(in.Password) < minPasswordLen {
		return nil, invalid("password must be at least %d characters", minPasswordLen)
	}
	u := &model.User{
		Name:      name,
		Email:     email,
		Role:      in.Role,
		Status:    model.UserActive,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := applyProfile(u, in.Profile); err != nil {
		return nil, err
	}
	u.Name = name
	if u.Role == model.RoleCompany && u.CompanyName == "" {
		return nil, invalid("company name is required")
	}
	hash, err := hashPassword(pw, in.Password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

// LoginInput is the login form.  AdminKey is only read for role=admin.
type LoginInput struct {
	Email    string
	Password string
	Role     string
	AdminKey string
}

// Authenticate verifies credentials for the requested role.  For admin
// logins the key is checked before the account is looked up.
func (s *IdentityService) Authenticate(ctx context.Context, in LoginInput) (*model.User, error) {
	role, ok := model.ParseRole(in.Role)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if role == model.RoleAdmin {
		if s.cfg.AdminKey == "" || subtle.ConstantTimeCompare([]byte(in.AdminKey), []byte(s.cfg.AdminKey)) != 1 {
			return nil, ErrInvalidAdminKey
		}
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.Role != role || !s.pw.Verify(u.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive() {
		return nil, ErrAccountInactive
	}
	if s.pw.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u, in.Password)
	}
	return u, nil
}

// RequestPasswordReset stores a fresh reset token for the account and
// mails the link.  If the mail cannot be queued the token is withdrawn.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return invalid("email is required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmailNotFound
		}
		return err
	}
	raw, err := utils.NewResetToken()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if err := s.users.SetResetToken(ctx, u.ID, utils.HashToken(raw), now.Add(s.cfg.ResetTTL)); err != nil {
		return err
	}
	ev := queue.MailEvent{
		Kind: queue.KindPasswordReset,
		To:   u.Email,
		Name: u.DisplayName(),
		Data: map[string]string{
			"reset_url":  strings.TrimRight(s.cfg.ResetBaseURL, "/") + "/auth/reset-password/" + raw,
			"expires_in": s.cfg.ResetTTL.String(),
		},
		CreatedAt: now.Format(time.RFC3339),
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		log.Errorf("identity: reset mail for user %d not queued: %v", u.ID, err)
		if cerr := s.users.SetResetToken(ctx, u.ID, "", time.Time{}); cerr != nil {
			log.Errorf("identity: clear reset token for user %d: %v", u.ID, cerr)
		}
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return nil
}

// ValidateResetToken reports whether raw names an unexpired reset token.
func (s *IdentityService) ValidateResetToken(ctx context.Context, raw string) error {
	_, err := s.userByResetToken(ctx, raw)
	return err
}

// CompleteReset sets a new password and consumes the token.
func (s *IdentityService) CompleteReset(ctx context.Context, raw, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return invalid("password must be at least %d characters", minPasswordLen)
	}
	u, err := s.userByResetToken(ctx, raw)
	if err != nil {
		return err
	}
	hash, err := hashPassword(s.pw, newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

func (s *IdentityService) userByResetToken(ctx context.Context, raw string) (*model.User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	u, err := s.users.GetByResetToken(ctx, utils.HashToken(raw), s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	return u, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *IdentityService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	if len(next) < minPasswordLen {
		return invalid("password must be at least %d characters", minPasswordLen)
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if !s.pw.Verify(u.PasswordHash, current) {
		return ErrIncorrectCurrentCredential
	}
	hash, err := hashPassword(s.pw, next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

// rehash upgrades a hash made at an older cost.  Login proceeds when the
// write fails.
func (s *IdentityService) rehash(ctx context.Context, u *model.User, plain string) {
	hash, err := s.pw.Hash(plain)
	if err == nil {
		err = s.users.UpdatePassword(ctx, u.ID, hash)
	}
	if err != nil {
		log.Warnf("identity: rehash user %d: %v", u.ID, err)
		return
	}
	u.PasswordHash = hash
}

func hashPassword(pw utils.Passwords, plain string) (string, error) {
	hash, err := pw.Hash(plain)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return "", invalid("%s", err.Error())
	}
	return hash, err
}

// CurrentUser re-reads the account behind a session or token.
func (s *IdentityService) CurrentUser(ctx context.Context, userID uint64) (*model.User, error) {
	return s.user(ctx, userID)
}

// UpdateProfile applies the fields that belong to the user's role.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (*model.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(u, in); err != nil {
		return nil, err
	}
	if u.Role == model.RoleCompany && u.CompanyName == "" {
		return nil, invalid("company name is required")
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, mapStoreErr(err)
	}
	return u, nil
}

// SetResume records the stored location of a student's resume.
func (s *IdentityService) SetResume(ctx context.Context, userID uint64, path string) (*model.User, error) {
	return s.setFile(ctx, userID, model.RoleStudent, func(u *model.User) { u.ResumePath = path })
}

// SetLogo records the stored location of a company's logo.
func (s *IdentityService) SetLogo(ctx context.Context, userID uint64, path string) (*model.User, error) {
	return s.setFile(ctx, userID, model.RoleCompany, func(u *model.User) { u.LogoPath = path })
}

func (s *IdentityService) setFile(ctx context.Context, userID uint64, role model.Role, set func(*model.User)) (*model.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, ErrNotAuthorized
	}
	set(u)
	u.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, mapStoreErr(err)
	}
	return u, nil
}

func (s *IdentityService) user(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return u, nil
}

// applyProfile copies the supplied fields of the user's role onto u.
func applyProfile(u *model.User, in ProfileInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalid("name is required")
		}
		u.Name = name
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	switch u.Role {
	case model.RoleStudent:
		if in.Branch != nil {
			u.Branch = strings.TrimSpace(*in.Branch)
		}
		if in.Year != nil {
			if *in.Year < 1 || *in.Year > 6 {
				return invalid("year must be between 1 and 6")
			}
			u.Year = *in.Year
		}
		if in.RollNumber != nil {
			u.RollNumber = strings.TrimSpace(*in.RollNumber)
		}
		if in.CGPA != nil {
			if *in.CGPA < 0 || *in.CGPA > 10 {
				return invalid("cgpa must be between 0 and 10")
			}
			v := *in.CGPA
			u.CGPA = &v
		}
		if in.Skills != nil {
			u.Skills = cleanList(in.Skills)
		}
	case model.RoleCompany:
		if in.CompanyName != nil {
			u.CompanyName = strings.TrimSpace(*in.CompanyName)
		}
		if in.Industry != nil {
			u.Industry = strings.TrimSpace(*in.Industry)
		}
		if in.Website != nil {
			u.Website = strings.TrimSpace(*in.Website)
		}
		if in.Description != nil {
			u.Description = strings.TrimSpace(*in.Description)
		}
	}
	return nil
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

// cleanList trims entries, drops empties and removes case-insensitive
// duplicates while keeping the first spelling.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		k := strings.ToLower(v)
		if v == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// SplitList parses a comma separated form value ("Go, SQL").
func SplitList(s string) []string {
	return cleanList(strings.Split(s, ","))
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrEmailExists):
		return ErrDuplicateEmail
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateApplication
	}
	return err
}

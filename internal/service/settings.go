package service

import (
	"context"
	"strings"

	"github.com/iliyamo/placement-portal/internal/model"
)

// SettingsService exposes the admin-editable portal settings.
type SettingsService struct {
	store SettingsStore
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) Get(ctx context.Context) (model.Settings, error) {
	return s.store.Get(ctx)
}

// SettingsInput is a partial update; nil fields keep their value.
type SettingsInput struct {
	SiteName          *string
	ContactEmail      *string
	AllowRegistration *bool
	AllowHiredRevert  *bool
}

// Update validates and saves the supplied settings.
func (s *SettingsService) Update(ctx context.Context, in SettingsInput) (model.Settings, error) {
	cur, err := s.store.Get(ctx)
	if err != nil {
		return cur, err
	}
	if in.SiteName != nil {
		name := strings.TrimSpace(*in.SiteName)
		if name == "" {
			return cur, invalid("site name is required")
		}
		cur.SiteName = name
	}
	if in.ContactEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*in.ContactEmail))
		if email != "" && !validEmail(email) {
			return cur, invalid("invalid contact email")
		}
		cur.ContactEmail = email
	}
	if in.AllowRegistration != nil {
		cur.AllowRegistration = *in.AllowRegistration
	}
	if in.AllowHiredRevert != nil {
		cur.AllowHiredRevert = *in.AllowHiredRevert
	}
	if err := s.store.Save(ctx, cur); err != nil {
		return cur, err
	}
	return cur, nil
}

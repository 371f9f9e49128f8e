package repository

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/iliyamo/placement-portal/internal/model"
)

// SettingsRepo stores portal settings as name/value rows.
type SettingsRepo struct{ db *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

const (
	settingSiteName          = "site_name"
	settingContactEmail      = "contact_email"
	settingAllowRegistration = "allow_registration"
	settingAllowHiredRevert  = "allow_hired_revert"
)

// Get loads the settings, falling back to model.DefaultSettings for
// rows that were never written.
func (r *SettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	s := model.DefaultSettings
	rows, err := r.db.QueryContext(ctx, "SELECT name, value FROM settings")
	if err != nil {
		return s, err
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return s, err
		}
		switch name {
		case settingSiteName:
			s.SiteName = value
		case settingContactEmail:
			s.ContactEmail = value
		case settingAllowRegistration:
			s.AllowRegistration = parseBool(value, s.AllowRegistration)
		case settingAllowHiredRevert:
			s.AllowHiredRevert = parseBool(value, s.AllowHiredRevert)
		}
	}
	return s, rows.Err()
}

// Save writes every setting inside one transaction.
func (r *SettingsRepo) Save(ctx context.Context, s model.Settings) (err error) {
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
	values := map[string]string{
		settingSiteName:          s.SiteName,
		settingContactEmail:      s.ContactEmail,
		settingAllowRegistration: strconv.FormatBool(s.AllowRegistration),
		settingAllowHiredRevert:  strconv.FormatBool(s.AllowHiredRevert),
	}
	for name, value := range values {
		if err = upsertSetting(ctx, tx, name, value); err != nil {
			return err
		}
	}
	return nil
}

// upsertSetting avoids dialect-specific upsert syntax: update first, and
// insert when nothing matched.  MySQL reports zero affected rows for an
// unchanged value, so a duplicate on the insert means the row is current.
func upsertSetting(ctx context.Context, tx *sql.Tx, name, value string) error {
	res, err := tx.ExecContext(ctx, "UPDATE settings SET value = ? WHERE name = ?", value, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO settings (name, value) VALUES (?, ?)", name, value); err != nil && !isUniqueViolation(err) {
		return err
	}
	return nil
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

package model

// Settings holds the admin-editable portal settings.  They are stored
// as name/value rows in the `settings` table.
type Settings struct {
    SiteName          string `json:"site_name"`
    ContactEmail      string `json:"contact_email"`
    AllowRegistration bool   `json:"allow_registration"`
    AllowHiredRevert  bool   `json:"allow_hired_revert"`
}

// DefaultSettings applies when a setting row has never been written.
var DefaultSettings = Settings{
    SiteName:          "Campus Placement Portal",
    AllowRegistration: true,
    AllowHiredRevert:  true,
}

// TransitionPolicy derives the application status policy.
func (s Settings) TransitionPolicy() TransitionPolicy {
    return TransitionPolicy{AllowHiredRevert: s.AllowHiredRevert}
}

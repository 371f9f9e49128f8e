package model

import (
    "strings"
    "time"
)

// Role names the capability set of an account.  It is stored verbatim in
// the users.role column and carried in session frames and access tokens.
type Role string

const (
    RoleStudent Role = "student"
    RoleCompany Role = "company"
    RoleAdmin   Role = "admin"
)

// ParseRole normalizes a role string.  The second result is false for
// anything outside the three known roles.
func ParseRole(s string) (Role, bool) {
    r := Role(strings.ToLower(strings.TrimSpace(s)))
    switch r {
    case RoleStudent, RoleCompany, RoleAdmin:
        return r, true
    }
    return "", false
}

// UserStatus marks whether an account may sign in.  Accounts are
// deactivated rather than deleted by the admin status toggle.
type UserStatus string

const (
    UserActive   UserStatus = "active"
    UserInactive UserStatus = "inactive"
)

// User represents an account record as stored in the `users` table.
// Student and company profile fields share the same row; the fields
// of the other role are left empty.
//
// Fields:
//  PasswordHash      – bcrypt hash, never serialized.
//  ResetTokenHash    – SHA‑256 hex of the outstanding reset token (empty when none).
//  ResetTokenExpires – expiry of that token (nil when none).
type User struct {
    ID           uint64     `json:"id"`
    Name         string     `json:"name"`
    Email        string     `json:"email"`
    PasswordHash string     `json:"-"`
    Role         Role       `json:"role"`
    Status       UserStatus `json:"status"`
    Phone        string     `json:"phone,omitempty"`

    // student profile
    Branch     string   `json:"branch,omitempty"`
    Year       int      `json:"year,omitempty"`
    RollNumber string   `json:"roll_number,omitempty"`
    CGPA       *float64 `json:"cgpa,omitempty"`
    Skills     []string `json:"skills,omitempty"`
    ResumePath string   `json:"resume_path,omitempty"`

    // company profile
    CompanyName string `json:"company_name,omitempty"`
    Industry    string `json:"industry,omitempty"`
    Website     string `json:"website,omitempty"`
    Description string `json:"description,omitempty"`
    LogoPath    string `json:"logo_path,omitempty"`

    ResetTokenHash    string     `json:"-"`
    ResetTokenExpires *time.Time `json:"-"`

    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the account can authenticate.
func (u *User) IsActive() bool { return u.Status != UserInactive }

// DisplayName returns the company name for company accounts and the
// person's name otherwise.
func (u *User) DisplayName() string {
    if u.Role == RoleCompany && u.CompanyName != "" {
        return u.CompanyName
    }
    return u.Name
}

// Identity is the stable reference a session or access token carries:
// who the caller is and which role they act as.  Profile data is always
// re-read from the store.
type Identity struct {
    UserID uint64 `json:"user_id"`
    Role   Role   `json:"role"`
}

// IsAdmin reports whether the identity acts with admin capabilities.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

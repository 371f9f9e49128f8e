package model

import (
    "strings"
    "time"

    "golang.org/x/text/cases"
    "golang.org/x/text/language"
)

// ApplicationStatus is the workflow state of an application.
type ApplicationStatus string

const (
    StatusPending     ApplicationStatus = "pending"
    StatusShortlisted ApplicationStatus = "shortlisted"
    StatusRejected    ApplicationStatus = "rejected"
    StatusHired       ApplicationStatus = "hired"
)

// ApplicationStatuses lists every status in display order.
var ApplicationStatuses = []ApplicationStatus{StatusPending, StatusShortlisted, StatusRejected, StatusHired}

// ParseApplicationStatus normalizes s and reports whether it names a
// known status.
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
    st := ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
    for _, known := range ApplicationStatuses {
        if st == known {
            return st, true
        }
    }
    return "", false
}

var titleCaser = cases.Title(language.English)

// Label returns the capitalized form shown in views ("Shortlisted").
func (s ApplicationStatus) Label() string {
    return titleCaser.String(string(s))
}

// TransitionPolicy decides which status changes are accepted.  The
// table is deliberately permissive: every status may follow every
// other, except that leaving hired is gated by AllowHiredRevert.
type TransitionPolicy struct {
    AllowHiredRevert bool
}

// DefaultTransitionPolicy accepts every transition.
var DefaultTransitionPolicy = TransitionPolicy{AllowHiredRevert: true}

var transitions = map[ApplicationStatus][]ApplicationStatus{
    StatusPending:     {StatusShortlisted, StatusRejected, StatusHired},
    StatusShortlisted: {StatusPending, StatusRejected, StatusHired},
    StatusRejected:    {StatusPending, StatusShortlisted, StatusHired},
    StatusHired:       {StatusPending, StatusShortlisted, StatusRejected},
}

// Allows reports whether an application in status from may move to to.
// Re-applying the current status is always allowed.
func (p TransitionPolicy) Allows(from, to ApplicationStatus) bool {
    if from == to {
        return true
    }
    if from == StatusHired && !p.AllowHiredRevert {
        return false
    }
    for _, next := range transitions[from] {
        if next == to {
            return true
        }
    }
    return false
}

// InterviewModes lists the accepted values of Application.InterviewMode.
var InterviewModes = []string{"Online", "Offline"}

// ParseInterviewMode matches s case-insensitively against InterviewModes.
func ParseInterviewMode(s string) (string, bool) {
    for _, m := range InterviewModes {
        if strings.EqualFold(strings.TrimSpace(s), m) {
            return m, true
        }
    }
    return "", false
}

// Application links one student to one job.  CompanyID duplicates the
// job's owner for query convenience.  ResumePath is the student's
// resume at the moment of applying, not a live reference.
type Application struct {
    ID                uint64            `json:"id"`
    StudentID         uint64            `json:"student_id"`
    JobID             uint64            `json:"job_id"`
    CompanyID         uint64            `json:"company_id"`
    Status            ApplicationStatus `json:"status"`
    AppliedAt         time.Time         `json:"applied_at"`
    ResumePath        string            `json:"resume_path"`
    InterviewDate     *time.Time        `json:"interview_date,omitempty"`
    InterviewMode     string            `json:"interview_mode,omitempty"`
    InterviewLocation string            `json:"interview_location,omitempty"`
    InterviewLink     string            `json:"interview_link,omitempty"`
    Feedback          string            `json:"feedback,omitempty"`
    UpdatedAt         time.Time         `json:"updated_at"`
}

// ApplicationView is an application joined with the summary fields of
// its job, company and student for listings.
type ApplicationView struct {
    Application
    StatusLabel  string `json:"status_label"`
    JobTitle     string `json:"job_title"`
    CompanyName  string `json:"company_name"`
    StudentName  string `json:"student_name"`
    StudentEmail string `json:"student_email"`
}

// StatusCounts maps each status to the number of applications in it.
type StatusCounts map[ApplicationStatus]int

// Total sums all statuses.
func (c StatusCounts) Total() int {
    n := 0
    for _, v := range c {
        n += v
    }
    return n
}

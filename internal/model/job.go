package model

import "time"

// JobStatus toggles whether a posting accepts applications.
type JobStatus string

const (
    JobActive JobStatus = "active"
    JobClosed JobStatus = "closed"
)

// EmploymentTypes lists the accepted values of Job.EmploymentType in the
// order forms present them.
var EmploymentTypes = []string{"Full-time", "Part-time", "Internship"}

// ValidEmploymentType reports whether t is one of EmploymentTypes.
func ValidEmploymentType(t string) bool {
    for _, v := range EmploymentTypes {
        if v == t {
            return true
        }
    }
    return false
}

// Job is a posting owned by exactly one company user.
//
// Fields:
//  CompanyID   – users.id of the owning company.
//  Salary      – free text ("6-8 LPA").
//  Eligibility – free text.
//  Skills      – required skills, stored as a JSON array.
//  CompanyName – populated on reads for display; not a column of jobs.
type Job struct {
    ID             uint64    `json:"id"`
    CompanyID      uint64    `json:"company_id"`
    Title          string    `json:"title"`
    Description    string    `json:"description"`
    EmploymentType string    `json:"employment_type"`
    Location       string    `json:"location"`
    Salary         string    `json:"salary,omitempty"`
    Eligibility    string    `json:"eligibility,omitempty"`
    Skills         []string  `json:"skills"`
    Deadline       time.Time `json:"deadline"`
    Status         JobStatus `json:"status"`
    CompanyName    string    `json:"company_name,omitempty"`
    CreatedAt      time.Time `json:"created_at"`
    UpdatedAt      time.Time `json:"updated_at"`
}

// VisibleAt reports whether students may see and apply to the job at t:
// it must be active and its deadline must not have passed.
func (j *Job) VisibleAt(t time.Time) bool {
    return j.Status == JobActive && !j.DeadlinePassed(t)
}

// DeadlinePassed reports whether the deadline has been reached at t.  It
// is the exact complement of the deadline half of VisibleAt.
func (j *Job) DeadlinePassed(t time.Time) bool {
    return !j.Deadline.After(t)
}

// Package queue carries outbound mail over RabbitMQ: the event payload,
// a publisher used by the services and the consumer that delivers it.
package queue

// Mail event kinds.  The consumer picks the template by kind.
const (
	KindPasswordReset      = "password_reset"
	KindApplicationStatus  = "application_status"
	KindInterviewScheduled = "interview_scheduled"
)

// MailEvent is published whenever the portal needs to email someone.
// Data holds the template fields of the kind (reset_url, job_title,
// status, interview_date, ...).
type MailEvent struct {
	Kind      string            `json:"kind"`
	To        string            `json:"to"`
	Name      string            `json:"name"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt string            `json:"created_at"`
}

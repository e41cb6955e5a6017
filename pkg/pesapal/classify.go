package pesapal

import "strings"

// PaymentStatus is the classified outcome of a status description
type PaymentStatus string

const (
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusPending   PaymentStatus = "pending"
)

// ClassifyStatus maps Pesapal's free-text payment_status_description onto a
// payment status. The substring match is a known weak contract with the
// upstream wording, so all of it lives here: unknown text classifies as
// pending rather than a terminal state, which can only delay a transition,
// never corrupt one.
func ClassifyStatus(description string) PaymentStatus {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "completed"):
		return StatusCompleted
	case strings.Contains(d, "failed"), strings.Contains(d, "invalid"), strings.Contains(d, "reversed"):
		return StatusFailed
	default:
		return StatusPending
	}
}

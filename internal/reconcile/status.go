package reconcile

import "github.com/jamiihub/jamii-portal-backend/internal/models"

// Status is the client-facing view of a tracked transaction. It forms a
// small lattice: unknown < loading < pending < {completed, failed, timeout}.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusLoading   Status = "loading"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
)

var statusRank = map[Status]int{
	StatusUnknown:   0,
	StatusLoading:   1,
	StatusPending:   2,
	StatusCompleted: 3,
	StatusFailed:    3,
	StatusTimeout:   3,
}

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return statusRank[s] >= statusRank[StatusCompleted]
}

// Merge combines the current view with a newly observed status and only ever
// moves forward in the lattice. A stale "pending" read arriving after a
// terminal status leaves the terminal status in place; when two terminal
// statuses race, the first one observed wins.
func Merge(current, observed Status) Status {
	if statusRank[observed] > statusRank[current] {
		return observed
	}
	return current
}

// FromTransaction maps a stored transaction status onto the lattice.
func FromTransaction(s models.TransactionStatus) Status {
	switch s {
	case models.TransactionPending:
		return StatusPending
	case models.TransactionCompleted:
		return StatusCompleted
	case models.TransactionFailed:
		return StatusFailed
	case models.TransactionTimeout:
		return StatusTimeout
	default:
		return StatusUnknown
	}
}

package reconcile

import (
	"testing"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
)

func TestMergeOnlyMovesForward(t *testing.T) {
	tests := []struct {
		name     string
		current  Status
		observed Status
		want     Status
	}{
		{name: "unknown to loading", current: StatusUnknown, observed: StatusLoading, want: StatusLoading},
		{name: "loading to pending", current: StatusLoading, observed: StatusPending, want: StatusPending},
		{name: "pending to completed", current: StatusPending, observed: StatusCompleted, want: StatusCompleted},
		{name: "pending to failed", current: StatusPending, observed: StatusFailed, want: StatusFailed},
		{name: "pending to timeout", current: StatusPending, observed: StatusTimeout, want: StatusTimeout},
		{name: "stale pending after completed", current: StatusCompleted, observed: StatusPending, want: StatusCompleted},
		{name: "stale pending after failed", current: StatusFailed, observed: StatusPending, want: StatusFailed},
		{name: "stale unknown after completed", current: StatusCompleted, observed: StatusUnknown, want: StatusCompleted},
		{name: "first terminal wins over second", current: StatusCompleted, observed: StatusFailed, want: StatusCompleted},
		{name: "loading does not regress to unknown", current: StatusLoading, observed: StatusUnknown, want: StatusLoading},
		{name: "same status is stable", current: StatusPending, observed: StatusPending, want: StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(tt.current, tt.observed); got != tt.want {
				t.Errorf("Merge(%s, %s) = %s, want %s", tt.current, tt.observed, got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusTimeout} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	for _, s := range []Status{StatusUnknown, StatusLoading, StatusPending} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}

func TestFromTransaction(t *testing.T) {
	tests := []struct {
		in   models.TransactionStatus
		want Status
	}{
		{models.TransactionPending, StatusPending},
		{models.TransactionCompleted, StatusCompleted},
		{models.TransactionFailed, StatusFailed},
		{models.TransactionTimeout, StatusTimeout},
		{models.TransactionStatus("garbage"), StatusUnknown},
	}
	for _, tt := range tests {
		if got := FromTransaction(tt.in); got != tt.want {
			t.Errorf("FromTransaction(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

package pesapal

import "testing"

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		description string
		want        PaymentStatus
	}{
		{"Completed", StatusCompleted},
		{"Transaction completed successfully", StatusCompleted},
		{"COMPLETED", StatusCompleted},
		{"Failed", StatusFailed},
		{"Payment failed: insufficient funds", StatusFailed},
		{"Invalid", StatusFailed},
		{"Reversed", StatusFailed},
		{"Pending", StatusPending},
		{"Awaiting payment", StatusPending},
		{"", StatusPending},
		// unfamiliar upstream wording must never classify as terminal
		{"Settlement in escrow review", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if got := ClassifyStatus(tt.description); got != tt.want {
				t.Errorf("ClassifyStatus(%q) = %s, want %s", tt.description, got, tt.want)
			}
		})
	}
}

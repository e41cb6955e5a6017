package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError reports a request field rejected before any provider call
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Kenyan mobile numbers: Safaricom/Airtel prefixes 07XX and 01XX
var (
	localForm         = regexp.MustCompile(`^0[17]\d{8}$`)
	internationalForm = regexp.MustCompile(`^254[17]\d{8}$`)
)

// NormalizePhone converts a Kenyan mobile number to the canonical
// +254XXXXXXXXX form. Accepted inputs are 0XXXXXXXXX, 254XXXXXXXXX and
// +254XXXXXXXXX; anything else is rejected with a ValidationError.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))

	switch {
	case localForm.MatchString(cleaned):
		return "+254" + cleaned[1:], nil
	case internationalForm.MatchString(cleaned):
		return "+" + cleaned, nil
	case strings.HasPrefix(cleaned, "+") && internationalForm.MatchString(cleaned[1:]):
		return cleaned, nil
	}

	return "", &ValidationError{Field: "phoneNumber", Reason: "must be a valid Kenyan mobile number"}
}

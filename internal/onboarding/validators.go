// Package onboarding implements the nine-step onboarding state machine
// spec.md §4.5 describes, built on internal/fsm the same way the teacher
// builds its approval lifecycle on internal/domain/workflow: buildMachine
// wires the transition table for each inbound message or callback, starting
// from the persisted session's current state, and fires one trigger.
package onboarding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	taxIDPattern = regexp.MustCompile(`^\d{9}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[+]?[\d\s\-()]{9,15}$`)
)

// OwnerDetails is the parsed four-tuple the owner_details step collects.
type OwnerDetails struct {
	Name  string
	TaxID string
	Phone string
	Email string
}

// ParseOwnerDetails validates the comma-separated "name, taxId, phone, email"
// message spec.md §4.5 requires for the owner_details step.
func ParseOwnerDetails(input string) (OwnerDetails, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 4 {
		return OwnerDetails{}, fmt.Errorf("expected 4 comma-separated fields (name, tax id, phone, email), got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	d := OwnerDetails{Name: parts[0], TaxID: parts[1], Phone: parts[2], Email: parts[3]}

	if d.Name == "" {
		return OwnerDetails{}, fmt.Errorf("name cannot be empty")
	}
	if !taxIDPattern.MatchString(d.TaxID) {
		return OwnerDetails{}, fmt.Errorf("tax id must be exactly 9 digits")
	}
	if !phonePattern.MatchString(d.Phone) {
		return OwnerDetails{}, fmt.Errorf("phone number looks invalid")
	}
	if !emailPattern.MatchString(d.Email) {
		return OwnerDetails{}, fmt.Errorf("email address looks invalid")
	}
	return d, nil
}

// ParseCounterSeed validates the counter step's input: either the literal
// "start-from-1" or a positive integer used to seed the counter document.
func ParseCounterSeed(input string) (int64, error) {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "start-from-1") {
		return 1, nil
	}
	n, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected \"start-from-1\" or a positive integer")
	}
	if n <= 0 {
		return 0, fmt.Errorf("counter seed must be positive")
	}
	return n, nil
}

// ValidTaxStatus reports whether s is one of the recognized tax-status
// answers.
func ValidTaxStatus(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "licensed_dealer", "exempt_dealer", "company":
		return true
	default:
		return false
	}
}

// ValidLanguage reports whether s is one of the two supported languages.
func ValidLanguage(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "he":
		return true
	default:
		return false
	}
}

package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// emailPattern is intentionally loose. It catches obvious typos without
// rejecting uncommon but deliverable addresses.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// dueDateSkew tolerates small clock drift between client and server when
// validating that a due date is not in the past.
const dueDateSkew = time.Minute

func validEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// validationError wraps ErrInvalidInput with the collected field messages
// so handlers can map it to a 400 with a readable detail string.
func validationError(messages []string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(messages, "; "))
}

// parseDateTime accepts RFC 3339 timestamps and bare dates, normalizing
// both to UTC.
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t.UTC(), nil
}

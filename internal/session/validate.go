package session

import (
	"fmt"
	"regexp"
	"strings"
)

// sessionIDLen is the length of a hex Session ID including its 05 prefix.
const sessionIDLen = 66

var (
	nameRegexp      = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)
	recipientRegexp = regexp.MustCompile(`^[0-9A-Za-z._:!-]{1,256}$`)
	sessionIDRegexp = regexp.MustCompile(`^05[0-9a-f]{64}$`)
)

// ValidateName checks that name conforms to session naming rules.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid session name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}

// ValidateRecipient checks that id can name a thread: a Session ID, a
// closed group key or a public chat identifier. Anything that looks like a
// Session ID must be a well-formed one.
func ValidateRecipient(id string) error {
	if !recipientRegexp.MatchString(id) {
		return fmt.Errorf("invalid recipient %q", id)
	}
	if len(id) == sessionIDLen && strings.HasPrefix(id, "05") && !sessionIDRegexp.MatchString(id) {
		return fmt.Errorf("invalid session id %q: want 05 followed by 64 lowercase hex digits", id)
	}
	return nil
}

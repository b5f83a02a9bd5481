package referral

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// VisitorIDLength is the number of hex characters in a visitor id.
const VisitorIDLength = 16

var visitorIDPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// NewVisitorID returns 16 lowercase hex characters taken from a random UUID
// with the dashes stripped.
func NewVisitorID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:VisitorIDLength]
}

// IsValidVisitorID reports whether id has the shape NewVisitorID produces.
func IsValidVisitorID(id string) bool {
	return visitorIDPattern.MatchString(id)
}

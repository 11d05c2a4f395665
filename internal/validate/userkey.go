// Package validate implements the one syntactic user-key predicate used
// everywhere a user key enters the system: both the websocket auth path
// and the demo login collaborator call UserKey so the two paths can never
// disagree.
package validate

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"presencefabric/pkg/apperrors"
)

var lower = cases.Lower(language.Und)

// Normalize trims surrounding whitespace and lower-cases a user key in a
// unicode-aware way. The result is what gets compared bytewise and stored,
// per the glossary's "User key" definition.
func Normalize(raw string) string {
	return lower.String(strings.TrimSpace(raw))
}

// UserKey normalizes raw and checks it is email-shaped: exactly one '@', a
// non-empty local part, and a domain part that contains at least one '.' and
// neither starts nor ends with one.
func UserKey(raw string) (string, error) {
	key := Normalize(raw)

	at := strings.Count(key, "@")
	if at != 1 {
		return "", apperrors.ErrInvalidUserKey
	}

	parts := strings.SplitN(key, "@", 2)
	local, domain := parts[0], parts[1]
	if local == "" || domain == "" {
		return "", apperrors.ErrInvalidUserKey
	}

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return "", apperrors.ErrInvalidUserKey
	}
	if strings.HasPrefix(domain, ".") {
		return "", apperrors.ErrInvalidUserKey
	}

	return key, nil
}

package access

import (
	"strings"

	"edustream-access-svc/src/internal/models"
)

// Decision is the outcome of a content-access check. On a deny the
// required and held sets are carried for the caller's diagnostic message.
type Decision struct {
	Allowed  bool     `json:"allowed"`
	Required []string `json:"required"`
	Held     []string `json:"held"`
}

// Authorize decides whether an authenticated identity may reach a content
// item. Admins always may. Students may when the item requires nothing, or
// when at least one required tag overlaps a held subscription,
// case-insensitively.
func Authorize(role string, held, required []string) Decision {
	if role == models.RoleAdmin {
		return Decision{Allowed: true, Required: required, Held: held}
	}

	if len(required) == 0 {
		return Decision{Allowed: true, Required: required, Held: held}
	}

	heldSet := make(map[string]struct{}, len(held))
	for _, tag := range held {
		heldSet[strings.ToLower(tag)] = struct{}{}
	}

	for _, tag := range required {
		if _, ok := heldSet[strings.ToLower(tag)]; ok {
			return Decision{Allowed: true, Required: required, Held: held}
		}
	}

	return Decision{Allowed: false, Required: required, Held: held}
}

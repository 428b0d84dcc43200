package auth

import "strings"

// Role values embedded in session tokens and stored on user records
const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// RoleResolver determines an account's role at verification time. The
// email-pattern implementation below is a placeholder rule; a real deployment
// substitutes one backed by the account record.
type RoleResolver interface {
	Resolve(email string) string
}

// EmailRoleResolver derives the role from substrings of the email address:
// "admin" wins over "organizer", anything else is a plain user.
type EmailRoleResolver struct{}

func (EmailRoleResolver) Resolve(email string) string {
	lower := strings.ToLower(email)
	switch {
	case strings.Contains(lower, "admin"):
		return RoleAdmin
	case strings.Contains(lower, "organizer"):
		return RoleOrganizer
	default:
		return RoleUser
	}
}

// RoleAtLeast reports whether have grants the privileges of want.
// Admins can do everything an organizer can.
func RoleAtLeast(have, want string) bool {
	if have == want {
		return true
	}
	if have == RoleAdmin {
		return true
	}
	return false
}

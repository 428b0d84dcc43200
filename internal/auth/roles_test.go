package auth

import "testing"

func TestEmailRoleResolver(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"alice@example.com", RoleUser},
		{"admin@example.com", RoleAdmin},
		{"site-admin@example.com", RoleAdmin},
		{"ADMIN@EXAMPLE.COM", RoleAdmin},
		{"organizer@example.com", RoleOrganizer},
		{"events.organizer@example.com", RoleOrganizer},
		// admin wins when both substrings are present
		{"organizer-admin@example.com", RoleAdmin},
		{"bob+tickets@example.com", RoleUser},
	}

	resolver := EmailRoleResolver{}
	for _, tt := range tests {
		if got := resolver.Resolve(tt.email); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		have string
		want string
		ok   bool
	}{
		{RoleUser, RoleUser, true},
		{RoleUser, RoleOrganizer, false},
		{RoleUser, RoleAdmin, false},
		{RoleOrganizer, RoleOrganizer, true},
		{RoleOrganizer, RoleAdmin, false},
		{RoleAdmin, RoleUser, true},
		{RoleAdmin, RoleOrganizer, true},
		{RoleAdmin, RoleAdmin, true},
	}

	for _, tt := range tests {
		if got := RoleAtLeast(tt.have, tt.want); got != tt.ok {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.have, tt.want, got, tt.ok)
		}
	}
}

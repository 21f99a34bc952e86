package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRoles(t *testing.T) {
	tests := []struct {
		role    string
		minimum string
		known   bool
		allowed bool
	}{
		{RoleSuperAdmin, RoleUser, true, true},
		{RoleSuperAdmin, RoleSuperAdmin, true, true},
		{RoleAdmin, RoleUser, true, true},
		{RoleAdmin, RoleAdmin, true, true},
		{RoleAdmin, RoleSuperAdmin, true, false},
		{RoleUser, RoleUser, true, true},
		{RoleUser, RoleAdmin, true, false},
		// Unknown roles never pass.
		{"Admin", RoleUser, false, false},
		{"owner", RoleUser, false, false},
		{"", RoleUser, false, false},
		{RoleAdmin, "", true, false},
	}

	for _, tt := range tests {
		if got := IsRole(tt.role); got != tt.known {
			t.Errorf("IsRole(%q) = %v, want %v", tt.role, got, tt.known)
		}
		if got := RoleAtLeast(tt.role, tt.minimum); got != tt.allowed {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.allowed)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	for _, pw := range []string{"", "abc", strings.Repeat("x", MinPasswordLength-1)} {
		if ValidatePassword(pw) == nil {
			t.Errorf("ValidatePassword(%q) accepted a short password", pw)
		}
	}
	for _, pw := range []string{strings.Repeat("x", MinPasswordLength), "correct horse battery"} {
		if err := ValidatePassword(pw); err != nil {
			t.Errorf("ValidatePassword(%q) = %v", pw, err)
		}
	}
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	data, err := json.Marshal(User{ID: "u1", Email: "clerk@example.com", PasswordHash: "secret-hash", Role: RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret-hash") {
		t.Errorf("password hash leaked into JSON: %s", data)
	}
	if strings.Contains(string(data), "deletedAt") {
		t.Errorf("deletedAt should be omitted for live users: %s", data)
	}
}

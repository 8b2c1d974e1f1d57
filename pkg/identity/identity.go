package identity

import (
	"strings"
)

// Role is the server-assigned role of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole normalizes a role string. Unknown values map to RoleUser,
// the least privileged role.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return RoleUser
	}
	return r
}

// Credential is an opaque proof of identity attached to outgoing requests.
type Credential struct {
	Token string `json:"token"`
	// ExpiresImplicitly marks tokens whose lifetime is decided by the server only;
	// the client learns about expiry through a rejected call.
	ExpiresImplicitly bool `json:"expires_implicitly"`
}

// IsZero reports whether the credential carries no token.
func (c Credential) IsZero() bool {
	return strings.TrimSpace(c.Token) == ""
}

// Snapshot is the cached view of the signed-in user.
type Snapshot struct {
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
}

// IsAdmin reports whether the snapshot belongs to an administrator.
func (s *Snapshot) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// IsAgent reports whether the snapshot may act as an agent. Admins are agents too.
func (s *Snapshot) IsAgent() bool {
	return s != nil && (s.Role == RoleAgent || s.Role == RoleAdmin)
}

// IsUser reports whether the snapshot belongs to a regular requester.
func (s *Snapshot) IsUser() bool {
	return s != nil && s.Role == RoleUser
}

// Clone returns a copy that can be handed out without sharing memory.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

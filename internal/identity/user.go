package identity

import "strings"

// Role of an actor as supplied by the identity provider.
type Role string

const (
	RoleClient  Role = "client"
	RoleAdvisor Role = "advisor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdvisor, RoleAdmin:
		return true
	}
	return false
}

// ParseRole maps provider role names onto Role. The provider historically
// used "user" for clients and "conseiller" for advisors.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client", "user":
		return RoleClient, true
	case "advisor", "conseiller":
		return RoleAdvisor, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// UserRef is an opaque reference to an already-identified actor.
type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

func (u UserRef) IsAdmin() bool { return u.Role == RoleAdmin }

// DisplayName falls back to the email, then to a generic label.
func (u UserRef) DisplayName() string {
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	if e := strings.TrimSpace(u.Email); e != "" {
		return e
	}
	return "unknown user"
}

package policy

import (
	"fmt"
	"strings"
)

// Role is the closed set of actor kinds. The zero value is not a valid role.
type Role uint8

const (
	RoleClient Role = iota + 1
	RoleAdmin
	RoleManager
)

// ParseRole maps the wire form ("client", "admin", "manager") to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client":
		return RoleClient, nil
	case "admin":
		return RoleAdmin, nil
	case "manager":
		return RoleManager, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleManager:
		return true
	default:
		return false
	}
}

// IsResolver reports whether the role may review transaction requests at all.
func (r Role) IsResolver() bool {
	switch r {
	case RoleAdmin, RoleManager:
		return true
	case RoleClient:
		return false
	default:
		return false
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of profile roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// ParseRole converts s into a Role, rejecting anything outside the set.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleParent, RoleChild:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	PINHash   string     `json:"pinHash,omitempty"`
	Color     string     `json:"color"`
	Avatar    string     `json:"avatar"`
	Points    int        `json:"points"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// HasPIN reports whether the profile is protected by a PIN.
func (p Profile) HasPIN() bool {
	return p.PINHash != ""
}

func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "is required")
	}
	role, err := ParseRole(string(p.Role))
	if err != nil {
		return invalid("role", err.Error())
	}
	p.Role = role
	if p.Points < 0 {
		return invalid("points", "must not be negative")
	}
	if !ValidColor(p.Color) {
		return invalid("color", "must be a hex color like #4A90D9")
	}
	return nil
}

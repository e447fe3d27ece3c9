package models

import (
	"database/sql/driver"
	"fmt"
)

// Role is the closed set of account kinds. The zero value is not a valid role.
type Role uint8

const (
	RoleEntrepreneur Role = iota + 1
	RoleInvestor
	RoleAdmin
)

// ParseRole converts the wire form ("entrepreneur", "investor", "admin").
func ParseRole(s string) (Role, error) {
	switch s {
	case "entrepreneur":
		return RoleEntrepreneur, nil
	case "investor":
		return RoleInvestor, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	switch r {
	case RoleEntrepreneur:
		return "entrepreneur"
	case RoleInvestor:
		return "investor"
	case RoleAdmin:
		return "admin"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEntrepreneur, RoleInvestor, RoleAdmin:
		return true
	}
	return false
}

// SelfRegistrable reports whether a user may sign up with this role.
// Admins are only created by other admins or the create-admin command.
func (r Role) SelfRegistrable() bool {
	switch r {
	case RoleEntrepreneur, RoleInvestor:
		return true
	case RoleAdmin:
		return false
	}
	return false
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value stores the role in its wire form.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot store invalid role %d", uint8(r))
	}
	return r.String(), nil
}

// Scan reads a role stored by Value.
func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	}
	return fmt.Errorf("cannot scan %T into Role", src)
}

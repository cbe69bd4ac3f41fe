package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of permission levels. Keep values stable; they are
// stored in the users table and carried in access tokens.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleComando Role = "comando"
	RoleOficial Role = "oficial"
	RoleDonoOrg Role = "dono_org"
	RolePending Role = "pending"
	RoleUser    Role = "user"
)

var ErrUnknownRole = errors.New("rbac: unknown role")

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleComando, RoleOficial, RoleDonoOrg, RoleUser, RolePending}

var labels = map[Role]string{
	RoleAdmin:   "Administrador",
	RoleComando: "Comando",
	RoleOficial: "Oficial",
	RoleDonoOrg: "Dono da Org",
	RolePending: "Pendente",
	RoleUser:    "Usuário",
}

// ParseRole validates a role string coming from storage or a request.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := labels[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := labels[r]
	return ok
}

// Label returns the display string for r. The raw value is returned for a role
// outside the enumeration, which ParseRole keeps from happening.
func (r Role) Label() string {
	if l, ok := labels[r]; ok {
		return l
	}
	return string(r)
}

func (r Role) String() string { return string(r) }

// legacyRoles maps role values written by older revisions of the app.
var legacyRoles = map[string]Role{
	"administrador": RoleAdmin,
	"owner":         RoleDonoOrg,
	"dono":          RoleDonoOrg,
	"officer":       RoleOficial,
	"command":       RoleComando,
	"pendente":      RolePending,
	"usuario":       RoleUser,
}

// MigrateLegacyRole maps a stored role from any known revision onto the
// current enumeration. Matching is case-insensitive.
func MigrateLegacyRole(s string) (Role, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if r, err := ParseRole(norm); err == nil {
		return r, nil
	}
	if r, ok := legacyRoles[norm]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

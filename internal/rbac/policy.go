package rbac

// Permission is a pure predicate over the caller's role.
type Permission func(Role) bool

// Allowed evaluates p for an optional session. No session means no permission.
func Allowed(p Permission, role Role, hasSession bool) bool {
	if !hasSession || p == nil {
		return false
	}
	return p(role)
}

func IsAdmin(r Role) bool { return r == RoleAdmin }

// IsOwner is role-based: the organisation owner holds dono_org. There is no
// fixed-username special case.
func IsOwner(r Role) bool { return r == RoleDonoOrg }

func CanCreateRecords(r Role) bool { return r.Valid() && r != RolePending }

func CanEditRecords(r Role) bool {
	return r == RoleAdmin || r == RoleComando || r == RoleOficial
}

func CanDeleteRecords(r Role) bool {
	return r == RoleAdmin || r == RoleComando
}

func CanViewAllRecords(r Role) bool {
	return r == RoleAdmin || r == RoleComando || r == RoleOficial || r == RoleDonoOrg
}

func CanManageUsers(r Role) bool {
	return r == RoleAdmin || r == RoleComando
}

func CanManageSettings(r Role) bool {
	return IsAdmin(r) || IsOwner(r)
}

// rank orders roles for delegation between user managers.
var rank = map[Role]int{
	RoleAdmin:   5,
	RoleDonoOrg: 4,
	RoleComando: 3,
	RoleOficial: 2,
	RoleUser:    1,
	RolePending: 0,
}

// Outranks reports whether actor may act on an account holding target.
// Admins act on anyone; other roles only on strictly lower ranks.
func Outranks(actor, target Role) bool {
	if IsAdmin(actor) {
		return true
	}
	return actor.Valid() && target.Valid() && rank[actor] > rank[target]
}

// CanAssign reports whether actor may move a user from current to next.
// Neither may rank at or above a non-admin actor.
func CanAssign(actor, current, next Role) bool {
	return CanManageUsers(actor) && Outranks(actor, current) && Outranks(actor, next)
}

// CanRemove reports whether actor may delete an account holding target.
func CanRemove(actor, target Role) bool {
	return CanManageUsers(actor) && Outranks(actor, target)
}

// Permissions is the named set exposed to clients (GET /v1/me/permissions).
var Permissions = map[string]Permission{
	"isAdmin":           IsAdmin,
	"isOwner":           IsOwner,
	"canCreateRecords":  CanCreateRecords,
	"canEditRecords":    CanEditRecords,
	"canDeleteRecords":  CanDeleteRecords,
	"canViewAllRecords": CanViewAllRecords,
	"canManageUsers":    CanManageUsers,
	"canManageSettings": CanManageSettings,
}

// Evaluate returns every named permission for role.
func Evaluate(role Role, hasSession bool) map[string]bool {
	out := make(map[string]bool, len(Permissions))
	for name, p := range Permissions {
		out[name] = Allowed(p, role, hasSession)
	}
	return out
}

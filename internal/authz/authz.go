package authz

import "errors"

// ErrDenied is returned whenever a user may not perform an action. Callers
// surface it as a generic denial without detailing the failed rule.
var ErrDenied = errors.New("access denied")

// Role is a user's privilege level within a single project.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleTester    Role = "tester"
	RoleViewer    Role = "viewer"
)

// Level returns the rank of a role. Higher means more privileged; an unknown
// role ranks below viewer, so a missing membership never passes a check.
func (r Role) Level() int {
	switch r {
	case RoleOwner:
		return 5
	case RoleAdmin:
		return 4
	case RoleDeveloper:
		return 3
	case RoleTester:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r is at least as privileged as other.
func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// Normalize maps an arbitrary string to a known role, defaulting to viewer.
func Normalize(role string) Role {
	r := Role(role)
	if r.Valid() {
		return r
	}
	return RoleViewer
}

// Action is an operation against a project-scoped entity.
type Action string

const (
	ActionCreateDeliverable   Action = "create_deliverable"
	ActionUpdateDeliverable   Action = "update_deliverable"
	ActionReorderDeliverables Action = "reorder_deliverables"
	ActionCreateTicket        Action = "create_ticket"
	ActionReorderTickets      Action = "reorder_tickets"
	ActionMoveTicket          Action = "move_ticket"
	ActionAssignTicket        Action = "assign_ticket"
	ActionCreateComment       Action = "create_comment"
	ActionManageMembers       Action = "manage_members"
	ActionUpdateProject       Action = "update_project"
	ActionDeleteProject       Action = "delete_project"
	ActionViewActivity        Action = "view_activity"
)

// minRole is the policy table: the least privileged role allowed to perform
// each action. Ticket updates, status changes and deletes are not listed
// because they additionally depend on who created the entity; see
// CanModifyTicket and CanDelete.
var minRole = map[Action]Role{
	ActionCreateDeliverable:   RoleDeveloper,
	ActionUpdateDeliverable:   RoleDeveloper,
	ActionReorderDeliverables: RoleDeveloper,
	ActionCreateTicket:        RoleDeveloper,
	ActionReorderTickets:      RoleDeveloper,
	ActionMoveTicket:          RoleDeveloper,
	ActionAssignTicket:        RoleDeveloper,
	ActionCreateComment:       RoleTester,
	ActionManageMembers:       RoleAdmin,
	ActionUpdateProject:       RoleOwner,
	ActionDeleteProject:       RoleOwner,
	ActionViewActivity:        RoleViewer,
}

// Authorize decides whether a role may perform an action. Unknown actions are
// always denied.
func Authorize(role Role, action Action) error {
	required, ok := minRole[action]
	if !ok {
		return ErrDenied
	}
	if !role.AtLeast(required) {
		return ErrDenied
	}
	return nil
}

// CanModifyTicket reports whether the actor may update a ticket or change its
// status. Developers and above always can; a tester only on tickets they
// created themselves.
func CanModifyTicket(role Role, creatorID, actorID uint64) bool {
	if role.AtLeast(RoleDeveloper) {
		return true
	}
	if role == RoleTester && creatorID == actorID {
		return true
	}
	return false
}

// CanDelete reports whether the actor may delete an entity: the original
// creator always can, otherwise developer or above is required.
func CanDelete(role Role, creatorID, actorID uint64) bool {
	if creatorID == actorID && role.AtLeast(RoleTester) {
		return true
	}
	return role.AtLeast(RoleDeveloper)
}

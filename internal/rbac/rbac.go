package rbac

import "github.com/samirnavas/who-gets-it/internal/models"

// Permission constants
const (
	PermPlaceBid      = "place_bid"
	PermCreateAuction = "create_auction"
	PermStopBid       = "stop_bid"
	PermEndAuction    = "end_auction"
	PermCancelAuction = "cancel_auction"
	PermManageAdmins  = "manage_admins"
	PermSweepExpired  = "sweep_expired"
	PermViewAudit     = "view_audit"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	models.RoleUser: {
		PermPlaceBid, PermCreateAuction,
	},
	models.RoleAdmin: {
		PermPlaceBid, PermCreateAuction,
		PermStopBid, PermEndAuction, PermCancelAuction,
		PermManageAdmins, PermSweepExpired, PermViewAudit,
	},
}

// actionPermissions maps each admin action type to the permission it needs.
var actionPermissions = map[string]string{
	models.ActionStopBid:        PermStopBid,
	models.ActionBulkStopBids:   PermStopBid,
	models.ActionEndAuction:     PermEndAuction,
	models.ActionCancelAuction:  PermCancelAuction,
	models.ActionAssignAdmin:    PermManageAdmins,
	models.ActionRemoveAdmin:    PermManageAdmins,
	models.ActionAutoEndExpired: PermSweepExpired,
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// PermissionForAction returns the permission guarding an admin action type.
func PermissionForAction(actionType string) (string, bool) {
	p, ok := actionPermissions[actionType]
	return p, ok
}

// CanPerform reports whether role may perform the admin action type.
// Unknown action types are never allowed.
func CanPerform(role, actionType string) bool {
	p, ok := PermissionForAction(actionType)
	return ok && HasPermission(role, p)
}

package services

import (
	"fmt"

	"servicesync-server/models"
)

// Action names an operation a route performs on behalf of a caller.
type Action string

const (
	ActionLogout         Action = "logout"
	ActionViewProfile    Action = "view-profile"
	ActionUpdateProfile  Action = "update-profile"
	ActionChangePassword Action = "change-password"
	ActionManageUsers    Action = "manage-users"

	ActionReadCatalog   Action = "read-catalog"
	ActionManageCatalog Action = "manage-catalog"

	ActionCreateRequest         Action = "create-request"
	ActionViewRequest           Action = "view-request"
	ActionViewAllRequests       Action = "view-all-requests"
	ActionViewOpenRequests      Action = "view-open-requests"
	ActionViewOwnRequests       Action = "view-own-requests"
	ActionViewAcceptedRequests  Action = "view-accepted-requests"
	ActionViewCompletedRequests Action = "view-completed-requests"
	ActionAcceptRequest         Action = "accept-request"
	ActionCompleteRequest       Action = "complete-request"
	ActionUpdateRequest         Action = "update-request"
	ActionDeleteRequest         Action = "delete-request"

	ActionAttachFeedback    Action = "attach-feedback"
	ActionViewFeedback      Action = "view-feedback"
	ActionViewAllFeedback   Action = "view-all-feedback"
	ActionViewStoreFeedback Action = "view-store-feedback"
	ActionDeleteFeedback    Action = "delete-feedback"
)

// Policy maps each action to the roles allowed to perform it.
type Policy map[Action]map[models.UserRole]bool

func allow(roles ...models.UserRole) map[models.UserRole]bool {
	set := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	return set
}

// DefaultPolicy is the role table the HTTP API enforces.
func DefaultPolicy() Policy {
	anyone := []models.UserRole{models.RoleCustomer, models.RoleStoreOwner, models.RoleSuperAdmin}
	return Policy{
		ActionLogout:         allow(anyone...),
		ActionViewProfile:    allow(anyone...),
		ActionUpdateProfile:  allow(anyone...),
		ActionChangePassword: allow(anyone...),
		ActionManageUsers:    allow(models.RoleSuperAdmin),

		ActionReadCatalog:   allow(anyone...),
		ActionManageCatalog: allow(models.RoleSuperAdmin),

		ActionCreateRequest:         allow(models.RoleCustomer),
		ActionViewRequest:           allow(anyone...),
		ActionViewAllRequests:       allow(models.RoleSuperAdmin),
		ActionViewOpenRequests:      allow(models.RoleStoreOwner),
		ActionViewOwnRequests:       allow(models.RoleCustomer),
		ActionViewAcceptedRequests:  allow(models.RoleStoreOwner),
		ActionViewCompletedRequests: allow(models.RoleStoreOwner),
		ActionAcceptRequest:         allow(models.RoleStoreOwner),
		ActionCompleteRequest:       allow(models.RoleStoreOwner),
		ActionUpdateRequest:         allow(anyone...),
		ActionDeleteRequest:         allow(models.RoleSuperAdmin),

		ActionAttachFeedback:    allow(models.RoleCustomer),
		ActionViewFeedback:      allow(anyone...),
		ActionViewAllFeedback:   allow(models.RoleSuperAdmin),
		ActionViewStoreFeedback: allow(models.RoleStoreOwner),
		ActionDeleteFeedback:    allow(models.RoleSuperAdmin),
	}
}

// Authorize returns nil when role may perform action. Unknown actions are
// denied. The error names the caller's role for diagnostics only.
func (p Policy) Authorize(role models.UserRole, action Action) error {
	if p[action][role] {
		return nil
	}
	return fmt.Errorf("%w: role %q is not allowed to %s", ErrForbidden, role, action)
}

// Actor is the authenticated caller as established by token claims.
type Actor struct {
	ID   uint
	Role models.UserRole
}

func (a Actor) IsSuperAdmin() bool {
	return a.Role == models.RoleSuperAdmin
}

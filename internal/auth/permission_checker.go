package auth

import "context"

type PermissionChecker interface {
	CanViewAllRequests(role Role) bool
	CanChangeStatus(role Role) bool
	CanViewRequesterRollup(role Role) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) HasAnyRole(role Role, allowed ...Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

func (c *DefaultPermissionChecker) HasRole(ctx context.Context, role Role, allowed ...Role) (bool, error) {
	return c.HasAnyRole(role, allowed...), nil
}

func (c *DefaultPermissionChecker) CanViewAllRequests(role Role) bool {
	return c.HasAnyRole(role, RoleApprover, RoleAdmin)
}

func (c *DefaultPermissionChecker) CanChangeStatus(role Role) bool {
	return c.HasAnyRole(role, RoleApprover, RoleAdmin)
}

func (c *DefaultPermissionChecker) CanViewRequesterRollup(role Role) bool {
	return c.HasAnyRole(role, RoleApprover, RoleAdmin)
}

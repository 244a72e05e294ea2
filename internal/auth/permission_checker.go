package auth

import "context"

type PermissionChecker interface {
	CanView(role Role, surface Surface) bool
	CanEdit(role Role, capability Capability) bool
	CanManage(role Role, capability Capability) bool
	VisibleSurfaces(role Role) []Surface
}

// DefaultPermissionChecker answers from the static access control table.
type DefaultPermissionChecker struct{}

func NewPermissionChecker() *DefaultPermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) CanView(role Role, surface Surface) bool {
	return role.Valid() && CanView(role, surface)
}

func (c *DefaultPermissionChecker) CanEdit(role Role, capability Capability) bool {
	return role.Valid() && CanEdit(role, capability)
}

func (c *DefaultPermissionChecker) CanManage(role Role, capability Capability) bool {
	return role.Valid() && CanManage(role, capability)
}

func (c *DefaultPermissionChecker) VisibleSurfaces(role Role) []Surface {
	if !role.Valid() {
		return nil
	}
	return VisibleSurfaces(role)
}

func (c *DefaultPermissionChecker) CanViewCtx(ctx context.Context, role Role, surface Surface) (bool, error) {
	return c.CanView(role, surface), nil
}

func (c *DefaultPermissionChecker) CanManageCtx(ctx context.Context, role Role, capability Capability) (bool, error) {
	return c.CanManage(role, capability), nil
}

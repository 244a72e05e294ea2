package auth

import (
	"fmt"
	"slices"
	"strings"
)

// Role is the closed set of access levels a session can carry.
type Role string

const (
	RoleUser       Role = "user"
	RoleResearcher Role = "researcher"
	RoleAdmin      Role = "admin"
)

// Roles lists every role from least to most privileged.
func Roles() []Role {
	return []Role{RoleUser, RoleResearcher, RoleAdmin}
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleResearcher, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Surface identifies a top-level area of the dashboard.
type Surface string

const (
	SurfaceDashboard      Surface = "dashboard"
	SurfaceSearch         Surface = "search"
	SurfaceVisualization  Surface = "visualization"
	SurfaceDataIngestion  Surface = "data-ingestion"
	SurfaceOtolith        Surface = "otolith"
	SurfaceEDNA           Surface = "edna"
	SurfaceAPI            Surface = "api"
	SurfaceReports        Surface = "reports"
	SurfaceUserManagement Surface = "user-management"
)

// AllSurfaces returns every surface in sidebar order.
func AllSurfaces() []Surface {
	return []Surface{
		SurfaceDashboard,
		SurfaceSearch,
		SurfaceVisualization,
		SurfaceDataIngestion,
		SurfaceOtolith,
		SurfaceEDNA,
		SurfaceAPI,
		SurfaceReports,
		SurfaceUserManagement,
	}
}

// Capability names something a role may edit or manage.
type Capability string

const (
	CapabilityDataIngestion Capability = "data-ingestion"
	CapabilityAnalysis      Capability = "analysis"
	CapabilityUsers         Capability = "users"
	CapabilityRoles         Capability = "roles"
	CapabilityDatasets      Capability = "datasets"
	CapabilitySystem        Capability = "system"
)

// Permissions is one row of the access control table.
type Permissions struct {
	CanView   []Surface    `json:"canView"`
	CanEdit   []Capability `json:"canEdit"`
	CanManage []Capability `json:"canManage"`
}

var accessControl = map[Role]Permissions{
	RoleUser: {
		CanView:   []Surface{SurfaceDashboard, SurfaceSearch, SurfaceVisualization, SurfaceReports},
		CanEdit:   []Capability{},
		CanManage: []Capability{},
	},
	RoleResearcher: {
		CanView: []Surface{
			SurfaceDashboard, SurfaceSearch, SurfaceVisualization, SurfaceDataIngestion,
			SurfaceOtolith, SurfaceEDNA, SurfaceAPI, SurfaceReports,
		},
		CanEdit:   []Capability{CapabilityDataIngestion, CapabilityAnalysis},
		CanManage: []Capability{CapabilityDatasets},
	},
	RoleAdmin: {
		CanView: []Surface{
			SurfaceDashboard, SurfaceSearch, SurfaceVisualization, SurfaceDataIngestion,
			SurfaceOtolith, SurfaceEDNA, SurfaceAPI, SurfaceReports, SurfaceUserManagement,
		},
		CanEdit:   []Capability{CapabilityDataIngestion, CapabilityAnalysis, CapabilityUsers, CapabilityRoles},
		CanManage: []Capability{CapabilityDatasets, CapabilityUsers, CapabilitySystem},
	},
}

// PermissionsFor returns a copy of the row for role.
// An unknown role is a programming error and panics.
func PermissionsFor(role Role) Permissions {
	p, ok := accessControl[role]
	if !ok {
		panic(fmt.Sprintf("auth: unknown role %q", role))
	}
	return Permissions{
		CanView:   slices.Clone(p.CanView),
		CanEdit:   slices.Clone(p.CanEdit),
		CanManage: slices.Clone(p.CanManage),
	}
}

// VisibleSurfaces is the canView set of role, in sidebar order.
func VisibleSurfaces(role Role) []Surface {
	return PermissionsFor(role).CanView
}

func CanView(role Role, surface Surface) bool {
	return slices.Contains(PermissionsFor(role).CanView, surface)
}

func CanEdit(role Role, capability Capability) bool {
	return slices.Contains(PermissionsFor(role).CanEdit, capability)
}

func CanManage(role Role, capability Capability) bool {
	return slices.Contains(PermissionsFor(role).CanManage, capability)
}

package auth

import (
	"slices"

	"github.com/gosuda/planboard/internal/domain"
)

// Permission names an action the dashboard may offer.
type Permission string

const (
	PermBoardView     Permission = "board:view"
	PermTaskMove      Permission = "task:move"
	PermTaskArchive   Permission = "task:archive"
	PermProjectManage Permission = "project:manage"
	PermMemberManage  Permission = "member:manage"
	PermAPIKeyManage  Permission = "apikey:manage"
)

var rolePermissions = map[string][]Permission{ //nolint:gochecknoglobals // static role table
	domain.RoleAdmin: {
		PermBoardView, PermTaskMove, PermTaskArchive,
		PermProjectManage, PermMemberManage, PermAPIKeyManage,
	},
	domain.RoleMember: {PermBoardView, PermTaskMove, PermTaskArchive},
	domain.RoleViewer: {PermBoardView},
}

// PermissionsFor returns the permissions granted to role. Unknown roles get none.
func PermissionsFor(role string) []Permission {
	return slices.Clone(rolePermissions[role])
}

// Can reports whether role grants p.
func Can(role string, p Permission) bool {
	return slices.Contains(rolePermissions[role], p)
}

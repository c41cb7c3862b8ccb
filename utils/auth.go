package utils

// Permission levels
const (
	DeveloperPermission  = "developer"
	SuperAdminPermission = "super_admin"
	AdminPermission      = "admin"
	MemberPermission     = "member"
)

// contains checks if a slice of strings contains an element.
func contains(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// CheckPermission returns the highest permission level the invoking
// member holds, given their role IDs and the configured role lists.
func CheckPermission(memberRoleIDs []string, userID string, developerUserIDs, superAdminRoleIDs, adminRoleIDs []string) string {
	if contains(developerUserIDs, userID) {
		return DeveloperPermission
	}
	for _, roleID := range memberRoleIDs {
		if contains(superAdminRoleIDs, roleID) {
			return SuperAdminPermission
		}
	}
	for _, roleID := range memberRoleIDs {
		if contains(adminRoleIDs, roleID) {
			return AdminPermission
		}
	}
	return MemberPermission
}

// IsAdmin reports whether a permission level carries admin authority.
func IsAdmin(level string) bool {
	return level == DeveloperPermission || level == SuperAdminPermission || level == AdminPermission
}

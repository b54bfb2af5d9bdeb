package permissions

import api "github.com/OvyFlash/telegram-bot-api"

// CanManagePolicy reports whether the member may change the community's
// moderation policy.
func CanManagePolicy(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	if member.IsCreator() {
		return true
	}
	return member.IsAdministrator() && (member.CanManageChat || member.CanPromoteMembers)
}

// CanModerate reports whether the member may issue and lift punishments
// and rule on appeals.
func CanModerate(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	if CanManagePolicy(member) {
		return true
	}
	return member.IsAdministrator() && member.CanRestrictMembers
}

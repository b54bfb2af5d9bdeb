package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/wardenbot/internal/moderation"
)

const msgNoPrivileges = "not enough rights to restrict/unrestrict chat member"

var targetNotFoundMarkers = []string{
	"user not found",
	"PARTICIPANT_ID_INVALID",
	"USER_ID_INVALID",
}

type requester interface {
	Request(c api.Chattable) (*api.APIResponse, error)
}

// Actuator applies moderation punishments through the Telegram Bot API.
type Actuator struct {
	bot requester
}

func NewActuator(bot requester) *Actuator {
	return &Actuator{bot: bot}
}

// GrantMuteRole strips the user's messaging permissions. A nil until
// restricts indefinitely.
func (a *Actuator) GrantMuteRole(ctx context.Context, communityID, userID int64, until *time.Time) error {
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig:              chatMember(communityID, userID),
		Permissions:                   &api.ChatPermissions{},
		UseIndependentChatPermissions: true,
	}
	if until != nil {
		config.UntilDate = until.Unix()
	}
	if _, err := a.bot.Request(config); err != nil {
		return mapPlatformError(err, "restrict")
	}
	return nil
}

// RevokeMuteRole restores the default messaging permissions.
func (a *Actuator) RevokeMuteRole(ctx context.Context, communityID, userID int64) error {
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig: chatMember(communityID, userID),
		Permissions: &api.ChatPermissions{
			CanSendMessages:       true,
			CanSendAudios:         true,
			CanSendDocuments:      true,
			CanSendPhotos:         true,
			CanSendVideos:         true,
			CanSendVideoNotes:     true,
			CanSendVoiceNotes:     true,
			CanSendPolls:          true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
			CanChangeInfo:         true,
			CanInviteUsers:        true,
			CanPinMessages:        true,
			CanManageTopics:       true,
		},
	}
	if _, err := a.bot.Request(config); err != nil {
		return mapPlatformError(err, "unrestrict")
	}
	return nil
}

func (a *Actuator) BanUser(ctx context.Context, communityID, userID int64) error {
	config := api.BanChatMemberConfig{
		ChatMemberConfig: chatMember(communityID, userID),
		RevokeMessages:   true,
	}
	if _, err := a.bot.Request(config); err != nil {
		return mapPlatformError(err, "ban")
	}
	return nil
}

func (a *Actuator) UnbanUser(ctx context.Context, communityID, userID int64) error {
	config := api.UnbanChatMemberConfig{
		ChatMemberConfig: chatMember(communityID, userID),
	}
	if _, err := a.bot.Request(config); err != nil {
		return mapPlatformError(err, "unban")
	}
	return nil
}

// KickUser removes the user without a lasting ban: a ban immediately
// followed by an unban, so they can rejoin.
func (a *Actuator) KickUser(ctx context.Context, communityID, userID int64) error {
	config := api.BanChatMemberConfig{
		ChatMemberConfig: chatMember(communityID, userID),
	}
	if _, err := a.bot.Request(config); err != nil {
		return mapPlatformError(err, "kick")
	}
	return a.UnbanUser(ctx, communityID, userID)
}

func chatMember(communityID, userID int64) api.ChatMemberConfig {
	return api.ChatMemberConfig{
		ChatConfig: api.ChatConfig{ChatID: communityID},
		UserID:     userID,
	}
}

func mapPlatformError(err error, operation string) error {
	message := err.Error()
	if strings.Contains(message, msgNoPrivileges) || strings.Contains(message, "not enough rights") {
		return moderation.ErrNoPrivileges
	}
	for _, marker := range targetNotFoundMarkers {
		if strings.Contains(message, marker) {
			return moderation.ErrTargetNotFound
		}
	}
	return fmt.Errorf("failed to %s user: %w", operation, err)
}

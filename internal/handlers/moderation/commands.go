package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/config"
	"github.com/iamwavecut/wardenbot/internal/db"
	"github.com/iamwavecut/wardenbot/internal/moderation"
	"github.com/iamwavecut/wardenbot/internal/observability"
	"github.com/iamwavecut/wardenbot/internal/policy/permissions"
)

type telegramGateway interface {
	Send(c api.Chattable) (api.Message, error)
	GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error)
}

type warningIssuer interface {
	IssueWarning(ctx context.Context, communityID, userID, issuerID int64, reason string) (*moderation.EscalationResult, error)
}

type caseActions interface {
	ApplyMute(ctx context.Context, communityID, userID, issuerID int64, reason string, duration time.Duration, appealable bool) (*db.Infraction, error)
	ApplyBan(ctx context.Context, communityID, userID, issuerID int64, reason string, appealable bool) (*db.Infraction, error)
	Unmute(ctx context.Context, communityID, userID, issuerID int64, reason string) (*db.Infraction, error)
	Unban(ctx context.Context, communityID, userID, issuerID int64, reason string) (*db.Infraction, error)
	Kick(ctx context.Context, communityID, userID, issuerID int64, reason string) (*db.Infraction, error)
	AddNote(ctx context.Context, communityID, userID, issuerID int64, text string) (*db.Infraction, error)
	ClearWarnings(ctx context.Context, communityID, userID, issuerID int64) (int64, error)
	History(ctx context.Context, communityID, userID int64, filter db.InfractionFilter) ([]*db.Infraction, error)
	GetCase(ctx context.Context, communityID int64, caseID string) (*db.Infraction, error)
}

type policyAdmin interface {
	Resolve(ctx context.Context, communityID int64) moderation.Policy
	Stored(ctx context.Context, communityID int64) (*db.CommunityPolicy, error)
	Set(ctx context.Context, policy *db.CommunityPolicy) error
}

// Commands is the privileged moderation command surface. It gates every
// command on the issuer's chat-member rights before touching the engine.
type Commands struct {
	bot      telegramGateway
	engine   warningIssuer
	actions  caseActions
	policies policyAdmin
	pageSize int
}

var moderationCommands = map[string]struct{}{
	"warn":       {},
	"mute":       {},
	"unmute":     {},
	"ban":        {},
	"unban":      {},
	"kick":       {},
	"note":       {},
	"history":    {},
	"case":       {},
	"clearwarns": {},
	"clear":      {},
	"policy":     {},
}

func NewCommands(bot telegramGateway, engine warningIssuer, actions caseActions, policies policyAdmin, cfg config.Moderation) *Commands {
	pageSize := cfg.HistoryPageSize
	if pageSize < 1 {
		pageSize = 15
	}
	c := &Commands{
		bot:      bot,
		engine:   engine,
		actions:  actions,
		policies: policies,
		pageSize: pageSize,
	}
	c.getLogEntry().Debug("created moderation command handler")
	return c
}

func (c *Commands) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u == nil || u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message
	if !msg.IsCommand() {
		return true, nil
	}
	command := msg.Command()
	if _, ok := moderationCommands[command]; !ok {
		return true, nil
	}

	done := observability.StartCommandProcessing()

	if msg.Chat.Type == "private" {
		c.reply(msg, "this command only works in groups")
		done("rejected")
		return false, nil
	}

	member, err := c.chatMember(chat.ID, user.ID)
	if err != nil {
		done("error")
		return false, errors.Wrap(err, "failed to get chat member")
	}
	if command == "policy" {
		if !permissions.CanManagePolicy(&member) {
			c.reply(msg, "changing the policy needs chat management rights")
			done("rejected")
			return false, nil
		}
	} else if !permissions.CanModerate(&member) {
		c.reply(msg, "this command needs moderator rights")
		done("rejected")
		return false, nil
	}

	if err := c.dispatch(ctx, command, msg, chat, user); err != nil {
		done("error")
		return false, errors.WithMessage(err, command+" command")
	}
	done("ok")
	return false, nil
}

func (c *Commands) dispatch(ctx context.Context, command string, msg *api.Message, chat *api.Chat, user *api.User) error {
	switch command {
	case "warn":
		return c.warnCommand(ctx, msg, chat, user)
	case "mute":
		return c.muteCommand(ctx, msg, chat, user)
	case "unmute":
		return c.unmuteCommand(ctx, msg, chat, user)
	case "ban":
		return c.banCommand(ctx, msg, chat, user)
	case "unban":
		return c.unbanCommand(ctx, msg, chat, user)
	case "kick":
		return c.kickCommand(ctx, msg, chat, user)
	case "note":
		return c.noteCommand(ctx, msg, chat, user)
	case "history":
		return c.historyCommand(ctx, msg, chat)
	case "case":
		return c.caseCommand(ctx, msg, chat)
	case "clearwarns", "clear":
		return c.clearWarningsCommand(ctx, msg, chat, user)
	case "policy":
		return c.policyCommand(ctx, msg, chat)
	}
	return nil
}

func (c *Commands) warnCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	target, ok := parseTarget(msg)
	if !ok {
		c.reply(msg, "reply to the user or pass their id: /warn <user id> [reason]")
		return nil
	}

	result, err := c.engine.IssueWarning(ctx, chat.ID, target.userID, user.ID, reasonOrDefault(target.rest))
	if err != nil {
		if result != nil && result.Warning != nil {
			c.reply(msg, fmt.Sprintf("warned user %d (%d active warnings), but escalation failed and will retry on the next warning", target.userID, result.WarningCount))
			return errors.WithMessage(err, "escalation failed")
		}
		return c.replyEngineError(msg, err)
	}

	text := fmt.Sprintf("warned user %d (%d/%d active warnings)", target.userID, result.WarningCount, result.Threshold)
	if result.Punishment != nil {
		text += fmt.Sprintf("\nescalated to %s, case %s", result.Punishment.Kind, result.Punishment.ID)
	}
	c.reply(msg, text)
	return nil
}

func (c *Commands) muteCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	target, ok := parseTarget(msg)
	if !ok {
		c.reply(msg, "reply to the user or pass their id: /mute <user id> [duration] [reason]")
		return nil
	}
	duration, reason := splitDuration(target.rest)

	infraction, err := c.actions.ApplyMute(ctx, chat.ID, target.userID, user.ID, reasonOrDefault(reason), duration, true)
	if err != nil {
		return c.replyEngineError(msg, err)
	}

	if infraction.ExpiresAt != nil {
		c.reply(msg, fmt.Sprintf("muted user %d until %s (case %s)", target.userID, infraction.ExpiresAt.UTC().Format(timeLayout), infraction.ID))
	} else {
		c.reply(msg, fmt.Sprintf("muted user %d indefinitely (case %s)", target.userID, infraction.ID))
	}
	return nil
}

func (c *Commands) unmuteCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	target, ok := parseTarget(msg)
	if !ok {
		c.reply(msg, "reply to the user or pass their id: /unmute <user id> [reason]")
		return nil
	}

	if _, err := c.actions.Unmute(ctx, chat.ID, target.userID, user.ID, reasonOrDefault(target.rest)); err != nil {
		return c.replyEngineError(msg, err)
	}
	c.reply(msg, fmt.Sprintf("unmuted user %d", target.userID))
	return nil
}

func (c *Commands) banCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	target, ok := parseTarget(msg)
	if !ok {
		c.reply(msg, "reply to the user or pass their id: /ban <user id> [reason]")
		return nil
	}

	infraction, err := c.actions.ApplyBan(ctx, chat.ID, target.userID, user.ID, reasonOrDefault(target.rest), true)
	if err != nil {
		return c.replyEngineError(msg, err)
	}
	c.reply(msg, fmt.Sprintf("banned user %d (case %s)", target.userID, infraction.ID))
	return nil
}

func (c *Commands) unbanCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	target, ok := parseTarget(msg)
	if !ok {
		c.reply(msg, "pass the user id: /unban <user id> [reason]")
		return nil
	}

	if _, err := c.actions.Unban(ctx, chat.ID, target.userID, user.ID, reasonOrDefault(target.rest)); err != nil {
		return c.replyEngineError(msg, err)
	}
	c.reply(msg, fmt.Sprintf("unbanned user %d", target.userID))
	return nil
}

func (c *Commands) kickCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	target, ok := parseTarget(msg)
	if !ok {
		c.reply(msg, "reply to the user or pass their id: /kick <user id> [reason]")
		return nil
	}

	infraction, err := c.actions.Kick(ctx, chat.ID, target.userID, user.ID, reasonOrDefault(target.rest))
	if err != nil {
		return c.replyEngineError(msg, err)
	}
	c.reply(msg, fmt.Sprintf("kicked user %d (case %s)", target.userID, infraction.ID))
	return nil
}

func (c *Commands) noteCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	target, ok := parseTarget(msg)
	if !ok || target.rest == "" {
		c.reply(msg, "reply to the user or pass their id: /note <user id> <text>")
		return nil
	}

	infraction, err := c.actions.AddNote(ctx, chat.ID, target.userID, user.ID, target.rest)
	if err != nil {
		return c.replyEngineError(msg, err)
	}
	c.reply(msg, fmt.Sprintf("noted (case %s)", infraction.ID))
	return nil
}

func (c *Commands) historyCommand(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	target, ok := parseTarget(msg)
	if !ok {
		c.reply(msg, "reply to the user or pass their id: /history <user id> [active]")
		return nil
	}

	filter := db.InfractionFilter{Limit: c.pageSize}
	if strings.EqualFold(strings.TrimSpace(target.rest), "active") {
		filter.ActiveOnly = true
	}

	infractions, err := c.actions.History(ctx, chat.ID, target.userID, filter)
	if err != nil {
		return errors.Wrap(err, "failed to list history")
	}
	c.reply(msg, renderHistory(target.userID, infractions))
	return nil
}

func (c *Commands) caseCommand(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		c.reply(msg, "pass the case id: /case <case id>")
		return nil
	}

	infraction, err := c.actions.GetCase(ctx, chat.ID, args[0])
	if err != nil {
		return c.replyEngineError(msg, err)
	}
	c.reply(msg, renderCase(infraction))
	return nil
}

func (c *Commands) clearWarningsCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	target, ok := parseTarget(msg)
	if !ok {
		c.reply(msg, "reply to the user or pass their id: /clearwarns <user id>")
		return nil
	}

	count, err := c.actions.ClearWarnings(ctx, chat.ID, target.userID, user.ID)
	if err != nil {
		return errors.Wrap(err, "failed to clear warnings")
	}
	c.reply(msg, fmt.Sprintf("cleared %d active warnings for user %d", count, target.userID))
	return nil
}

func (c *Commands) policyCommand(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) == 0 {
		c.reply(msg, renderPolicy(c.policies.Resolve(ctx, chat.ID)))
		return nil
	}

	stored, err := c.policies.Stored(ctx, chat.ID)
	if err != nil {
		return errors.Wrap(err, "failed to load policy")
	}
	if stored == nil {
		stored = db.DefaultCommunityPolicy(chat.ID)
	}

	if err := applyPolicyChange(stored, fields); err != nil {
		c.reply(msg, err.Error())
		return nil
	}
	if err := c.policies.Set(ctx, stored); err != nil {
		return errors.Wrap(err, "failed to store policy")
	}

	c.reply(msg, "policy updated\n"+renderPolicy(c.policies.Resolve(ctx, chat.ID)))
	return nil
}

// replyEngineError turns well-known engine failures into command replies.
// Anything unrecognized propagates to the update processor's log.
func (c *Commands) replyEngineError(msg *api.Message, err error) error {
	switch {
	case errors.Is(err, moderation.ErrNoPrivileges):
		c.reply(msg, "I am missing the rights to do that here")
	case errors.Is(err, moderation.ErrTargetNotFound):
		c.reply(msg, "that user is not part of this chat")
	case errors.Is(err, moderation.ErrNoActiveMute):
		c.reply(msg, "that user has no active mute")
	case errors.Is(err, moderation.ErrNoActiveBan):
		c.reply(msg, "that user has no active ban")
	case errors.Is(err, moderation.ErrInfractionNotFound):
		c.reply(msg, "no case with that id here")
	default:
		return err
	}
	return nil
}

func (c *Commands) reply(msg *api.Message, text string) {
	responseMsg := api.NewMessage(msg.Chat.ID, text)
	responseMsg.ReplyParameters.MessageID = msg.MessageID
	responseMsg.ReplyParameters.ChatID = msg.Chat.ID
	responseMsg.ReplyParameters.AllowSendingWithoutReply = true
	if msg.Chat.IsForum {
		responseMsg.MessageThreadID = msg.MessageThreadID
	}
	if _, err := c.bot.Send(responseMsg); err != nil {
		c.getLogEntry().WithError(err).Warn("failed to send command reply")
	}
}

func (c *Commands) chatMember(chatID, userID int64) (api.ChatMember, error) {
	return c.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	})
}

func (c *Commands) getLogEntry() *log.Entry {
	return log.WithField("object", "ModerationCommands")
}

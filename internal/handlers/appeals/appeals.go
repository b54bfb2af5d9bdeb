package handlers

import (
	"context"
	"fmt"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/db"
	"github.com/iamwavecut/wardenbot/internal/moderation"
	"github.com/iamwavecut/wardenbot/internal/observability"
	"github.com/iamwavecut/wardenbot/internal/policy/permissions"
)

type appealGateway interface {
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
	GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error)
}

type appealDesk interface {
	Submit(ctx context.Context, communityID, userID int64, caseID string, reason string) (*db.Appeal, error)
	Resolve(ctx context.Context, communityID int64, appealID string, reviewerID int64, approve bool, reviewReason string) (*db.Appeal, error)
	ListPending(ctx context.Context, communityID int64) ([]*db.Appeal, error)
}

// Commands is the appeal command surface. /appeal is open to the
// punished user themselves, in the group or in a direct message; the
// review commands are gated on moderator rights.
type Commands struct {
	bot      appealGateway
	workflow appealDesk
}

var appealCommands = map[string]struct{}{
	"appeal":  {},
	"appeals": {},
	"approve": {},
	"deny":    {},
}

func NewCommands(bot appealGateway, workflow appealDesk) *Commands {
	c := &Commands{bot: bot, workflow: workflow}
	c.getLogEntry().Debug("created appeal command handler")
	return c
}

func (h *Commands) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
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
	if _, ok := appealCommands[command]; !ok {
		return true, nil
	}

	done := observability.StartCommandProcessing()

	if command == "appeal" {
		if err := h.appealCommand(ctx, msg, chat, user); err != nil {
			done("error")
			return false, errors.WithMessage(err, "appeal command")
		}
		done("ok")
		return false, nil
	}

	if msg.Chat.Type == "private" {
		h.reply(msg, "this command only works in groups")
		done("rejected")
		return false, nil
	}
	member, err := h.chatMember(chat.ID, user.ID)
	if err != nil {
		done("error")
		return false, errors.Wrap(err, "failed to get chat member")
	}
	if !permissions.CanModerate(&member) {
		h.reply(msg, "this command needs moderator rights")
		done("rejected")
		return false, nil
	}

	switch command {
	case "appeals":
		err = h.listCommand(ctx, msg, chat)
	case "approve":
		err = h.resolveCommand(ctx, msg, chat, user, true)
	case "deny":
		err = h.resolveCommand(ctx, msg, chat, user, false)
	}
	if err != nil {
		done("error")
		return false, errors.WithMessage(err, command+" command")
	}
	done("ok")
	return false, nil
}

func (h *Commands) appealCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	caseID, reason, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	if caseID == "" {
		h.reply(msg, "pass the case id: /appeal <case id> <why the decision should be reverted>")
		return nil
	}

	communityID := chat.ID
	inGroup := msg.Chat.Type != "private"
	if !inGroup {
		parsed, err := moderation.CommunityFromCaseID(caseID)
		if err != nil {
			h.reply(msg, "that does not look like a case id")
			return nil
		}
		communityID = parsed
	}

	appeal, err := h.workflow.Submit(ctx, communityID, user.ID, caseID, strings.TrimSpace(reason))
	if err != nil {
		return h.replySubmitError(msg, err)
	}

	if inGroup {
		_, _ = h.bot.Request(api.NewDeleteMessage(chat.ID, msg.MessageID))
	}
	h.reply(msg, fmt.Sprintf("appeal %s submitted for case %s, a reviewer will take a look", appeal.ID, appeal.CaseID))
	return nil
}

func (h *Commands) listCommand(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	appeals, err := h.workflow.ListPending(ctx, chat.ID)
	if err != nil {
		return errors.Wrap(err, "failed to list pending appeals")
	}
	h.reply(msg, renderPendingAppeals(appeals))
	return nil
}

func (h *Commands) resolveCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User, approve bool) error {
	appealID, reason, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	if appealID == "" {
		verb := "deny"
		if approve {
			verb = "approve"
		}
		h.reply(msg, fmt.Sprintf("pass the appeal id: /%s <appeal id> [reason]", verb))
		return nil
	}

	appeal, err := h.workflow.Resolve(ctx, chat.ID, appealID, user.ID, approve, strings.TrimSpace(reason))
	if err != nil {
		return h.replyResolveError(msg, err)
	}

	if approve {
		h.reply(msg, fmt.Sprintf("appeal %s approved, case %s reverted", appeal.ID, appeal.CaseID))
	} else {
		h.reply(msg, fmt.Sprintf("appeal %s denied", appeal.ID))
	}
	return nil
}

func (h *Commands) replySubmitError(msg *api.Message, err error) error {
	switch {
	case errors.Is(err, moderation.ErrAppealsDisabled):
		h.reply(msg, "appeals are disabled in that community")
	case errors.Is(err, moderation.ErrInfractionNotFound):
		h.reply(msg, "no appealable case with that id for you")
	case errors.Is(err, moderation.ErrNotAppealable):
		h.reply(msg, "that case cannot be appealed")
	case errors.Is(err, moderation.ErrAppealAlreadyPending):
		h.reply(msg, "you already have a pending appeal there, wait for the review")
	case errors.Is(err, moderation.ErrAppealCooldown):
		h.reply(msg, "your last appeal was reviewed recently, try again later")
	default:
		return err
	}
	return nil
}

func (h *Commands) replyResolveError(msg *api.Message, err error) error {
	switch {
	case errors.Is(err, moderation.ErrAppealNotFound):
		h.reply(msg, "no appeal with that id here")
	case errors.Is(err, moderation.ErrAlreadyResolved):
		h.reply(msg, "that appeal is already resolved")
	case errors.Is(err, moderation.ErrNoPrivileges):
		h.reply(msg, "I am missing the rights to revert the punishment, the appeal stays pending")
	default:
		return err
	}
	return nil
}

func renderPendingAppeals(appeals []*db.Appeal) string {
	if len(appeals) == 0 {
		return "no pending appeals"
	}

	var b strings.Builder
	b.WriteString("pending appeals:")
	for _, appeal := range appeals {
		fmt.Fprintf(&b, "\n%s  user %d  case %s (%s)", appeal.ID, appeal.UserID, appeal.CaseID, appeal.InfractionKind)
		if appeal.Reason != "" {
			fmt.Fprintf(&b, "\n    %s", appeal.Reason)
		}
	}
	return b.String()
}

func (h *Commands) reply(msg *api.Message, text string) {
	responseMsg := api.NewMessage(msg.Chat.ID, text)
	responseMsg.ReplyParameters.MessageID = msg.MessageID
	responseMsg.ReplyParameters.ChatID = msg.Chat.ID
	responseMsg.ReplyParameters.AllowSendingWithoutReply = true
	if msg.Chat.IsForum {
		responseMsg.MessageThreadID = msg.MessageThreadID
	}
	if _, err := h.bot.Send(responseMsg); err != nil {
		h.getLogEntry().WithError(err).Warn("failed to send command reply")
	}
}

func (h *Commands) chatMember(chatID, userID int64) (api.ChatMember, error) {
	return h.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	})
}

func (h *Commands) getLogEntry() *log.Entry {
	return log.WithField("object", "AppealCommands")
}

package telegram

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/db"
	"github.com/iamwavecut/wardenbot/internal/moderation"
)

type sender interface {
	Send(c api.Chattable) (api.Message, error)
}

// Notifier mirrors committed moderation outcomes into the community's
// configured log channel. Posting is best-effort: a failed send is
// logged and never propagates into the moderation flow.
type Notifier struct {
	bot      sender
	policies moderation.PolicyProvider
}

func NewNotifier(bot sender, policies moderation.PolicyProvider) *Notifier {
	return &Notifier{bot: bot, policies: policies}
}

func (n *Notifier) PunishmentIssued(ctx context.Context, infraction *db.Infraction) {
	text := fmt.Sprintf("case %s: %s for user %d", infraction.ID, infraction.Kind, infraction.UserID)
	if infraction.Reason != "" {
		text += fmt.Sprintf("\nreason: %s", infraction.Reason)
	}
	if infraction.ExpiresAt != nil {
		text += fmt.Sprintf("\nexpires: %s", infraction.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	n.post(ctx, infraction.CommunityID, text)
}

func (n *Notifier) PunishmentLifted(ctx context.Context, infraction *db.Infraction, cause string) {
	text := fmt.Sprintf("case %s: %s lifted for user %d (%s)", infraction.ID, infraction.Kind, infraction.UserID, cause)
	n.post(ctx, infraction.CommunityID, text)
}

func (n *Notifier) AppealUpdated(ctx context.Context, appeal *db.Appeal) {
	text := fmt.Sprintf("appeal %s for case %s: %s", appeal.ID, appeal.CaseID, appeal.Status)
	if appeal.Status != db.AppealPending && appeal.ReviewReason != "" {
		text += fmt.Sprintf("\nverdict: %s", appeal.ReviewReason)
	}
	n.post(ctx, appeal.CommunityID, text)
}

func (n *Notifier) post(ctx context.Context, communityID int64, text string) {
	channelID := n.policies.Resolve(ctx, communityID).LogChannelID
	if channelID == 0 {
		return
	}
	if _, err := n.bot.Send(api.NewMessage(channelID, text)); err != nil {
		n.getLogEntry().WithField("error", err.Error()).WithField("community_id", communityID).
			Warn("failed to post to moderation log channel")
	}
}

func (n *Notifier) getLogEntry() *log.Entry {
	return log.WithField("object", "Notifier")
}

package moderation

import (
	"context"
	"time"

	"github.com/iamwavecut/wardenbot/internal/db"
)

// PunishmentActuator performs the platform side of a punishment. Every
// call may fail with ErrNoPrivileges or ErrTargetNotFound, which callers
// surface without recording anything.
type PunishmentActuator interface {
	GrantMuteRole(ctx context.Context, communityID, userID int64, until *time.Time) error
	RevokeMuteRole(ctx context.Context, communityID, userID int64) error
	BanUser(ctx context.Context, communityID, userID int64) error
	UnbanUser(ctx context.Context, communityID, userID int64) error
	KickUser(ctx context.Context, communityID, userID int64) error
}

// NotificationSink publishes moderation outcomes. Implementations are
// best-effort: they log their own failures and never propagate them.
type NotificationSink interface {
	PunishmentIssued(ctx context.Context, infraction *db.Infraction)
	PunishmentLifted(ctx context.Context, infraction *db.Infraction, cause string)
	AppealUpdated(ctx context.Context, appeal *db.Appeal)
}

// PolicyProvider resolves the effective policy of a community, falling
// back to configured defaults when no override is stored.
type PolicyProvider interface {
	Resolve(ctx context.Context, communityID int64) Policy
}

type infractionStore interface {
	CreateInfraction(ctx context.Context, infraction *db.Infraction) error
	GetInfraction(ctx context.Context, communityID int64, id string) (*db.Infraction, error)
	ListInfractions(ctx context.Context, communityID, userID int64, filter db.InfractionFilter) ([]*db.Infraction, error)
	CountActiveInfractions(ctx context.Context, communityID, userID int64, kind db.InfractionKind) (int, error)
	DeactivateInfraction(ctx context.Context, communityID int64, id string) (bool, error)
	DeactivateUserInfractions(ctx context.Context, communityID, userID int64, kind db.InfractionKind) (int64, error)
	SetInfractionAppeal(ctx context.Context, communityID int64, id string, appealID string) error
	GetActiveMute(ctx context.Context, communityID, userID int64) (*db.Infraction, error)
	ListActiveTimedMutes(ctx context.Context) ([]*db.Infraction, error)
}

type appealStore interface {
	CreateAppeal(ctx context.Context, appeal *db.Appeal) error
	GetAppeal(ctx context.Context, communityID int64, id string) (*db.Appeal, error)
	GetPendingAppealByUser(ctx context.Context, communityID, userID int64) (*db.Appeal, error)
	ListPendingAppeals(ctx context.Context, communityID int64) ([]*db.Appeal, error)
	ResolveAppeal(ctx context.Context, communityID int64, id string, reviewerID int64, status db.AppealStatus, reviewReason string, reviewedAt time.Time) (bool, error)
	GetLastReviewedAppealAt(ctx context.Context, communityID, userID int64) (*time.Time, error)
}

type policyStore interface {
	GetPolicy(ctx context.Context, communityID int64) (*db.CommunityPolicy, error)
	SetPolicy(ctx context.Context, policy *db.CommunityPolicy) error
}

package db

import (
	"context"
	"time"
)

// InfractionFilter narrows ListInfractions. Zero value lists everything,
// newest first.
type InfractionFilter struct {
	ActiveOnly bool
	Kind       InfractionKind
	Limit      int
}

type Client interface {
	Close() error

	CreateInfraction(ctx context.Context, infraction *Infraction) error
	GetInfraction(ctx context.Context, communityID int64, id string) (*Infraction, error)
	ListInfractions(ctx context.Context, communityID, userID int64, filter InfractionFilter) ([]*Infraction, error)
	CountActiveInfractions(ctx context.Context, communityID, userID int64, kind InfractionKind) (int, error)
	DeactivateInfraction(ctx context.Context, communityID int64, id string) (bool, error)
	DeactivateUserInfractions(ctx context.Context, communityID, userID int64, kind InfractionKind) (int64, error)
	SetInfractionAppeal(ctx context.Context, communityID int64, id string, appealID string) error
	GetActiveMute(ctx context.Context, communityID, userID int64) (*Infraction, error)
	ListActiveTimedMutes(ctx context.Context) ([]*Infraction, error)

	CreateAppeal(ctx context.Context, appeal *Appeal) error
	GetAppeal(ctx context.Context, communityID int64, id string) (*Appeal, error)
	GetPendingAppealByUser(ctx context.Context, communityID, userID int64) (*Appeal, error)
	ListPendingAppeals(ctx context.Context, communityID int64) ([]*Appeal, error)
	ResolveAppeal(ctx context.Context, communityID int64, id string, reviewerID int64, status AppealStatus, reviewReason string, reviewedAt time.Time) (bool, error)
	GetLastReviewedAppealAt(ctx context.Context, communityID, userID int64) (*time.Time, error)

	GetPolicy(ctx context.Context, communityID int64) (*CommunityPolicy, error)
	SetPolicy(ctx context.Context, policy *CommunityPolicy) error
}

package db

import "time"

type InfractionKind string

const (
	InfractionWarning InfractionKind = "warning"
	InfractionMute    InfractionKind = "mute"
	InfractionUnmute  InfractionKind = "unmute"
	InfractionBan     InfractionKind = "ban"
	InfractionUnban   InfractionKind = "unban"
	InfractionKick    InfractionKind = "kick"
	InfractionNote    InfractionKind = "note"
)

type AppealStatus string

const (
	AppealPending  AppealStatus = "pending"
	AppealApproved AppealStatus = "approved"
	AppealDenied   AppealStatus = "denied"
)

type (
	// Infraction is an append-only audit record of a moderation action.
	// Records are deactivated, never deleted.
	Infraction struct {
		ID          string         `db:"id"`
		CommunityID int64          `db:"community_id"`
		UserID      int64          `db:"user_id"`
		IssuerID    int64          `db:"issuer_id"`
		Kind        InfractionKind `db:"kind"`
		Reason      string         `db:"reason"`
		CreatedAt   time.Time      `db:"created_at"`
		ExpiresAt   *time.Time     `db:"expires_at"`
		Active      bool           `db:"active"`
		Appealable  bool           `db:"appealable"`
		Appealed    bool           `db:"appealed"`
		AppealID    string         `db:"appeal_id"`
	}

	Appeal struct {
		ID             string         `db:"id"`
		CommunityID    int64          `db:"community_id"`
		UserID         int64          `db:"user_id"`
		CaseID         string         `db:"case_id"`
		InfractionKind InfractionKind `db:"infraction_kind"`
		Reason         string         `db:"reason"`
		Status         AppealStatus   `db:"status"`
		SubmittedAt    time.Time      `db:"submitted_at"`
		ReviewerID     int64          `db:"reviewer_id"`
		ReviewReason   string         `db:"review_reason"`
		ReviewedAt     *time.Time     `db:"reviewed_at"`
	}

	// CommunityPolicy holds raw per-community overrides. Fields set to
	// PolicyOverrideInherit fall back to the configured defaults.
	CommunityPolicy struct {
		CommunityID         int64 `db:"community_id"`
		WarnThreshold       int   `db:"warn_threshold"`
		AllowAppeals        int   `db:"allow_appeals"`
		AppealCooldownHours int   `db:"appeal_cooldown_hours"`
		LogChannelID        int64 `db:"log_channel_id"`
	}
)

const PolicyOverrideInherit = -1

func DefaultCommunityPolicy(communityID int64) *CommunityPolicy {
	return &CommunityPolicy{
		CommunityID:         communityID,
		WarnThreshold:       PolicyOverrideInherit,
		AllowAppeals:        PolicyOverrideInherit,
		AppealCooldownHours: PolicyOverrideInherit,
		LogChannelID:        0,
	}
}

// IsTimedMute reports whether the infraction is a mute with an expiry,
// the only shape the expiry scheduler arms timers for.
func (i *Infraction) IsTimedMute() bool {
	return i != nil && i.Kind == InfractionMute && i.ExpiresAt != nil
}

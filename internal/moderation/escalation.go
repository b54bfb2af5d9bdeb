package moderation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iamwavecut/wardenbot/internal/db"
	"github.com/iamwavecut/wardenbot/internal/observability"
)

type punisher interface {
	ApplyMute(ctx context.Context, communityID, userID, issuerID int64, reason string, duration time.Duration, appealable bool) (*db.Infraction, error)
	ApplyBan(ctx context.Context, communityID, userID, issuerID int64, reason string, appealable bool) (*db.Infraction, error)
}

// EscalationResult reports what a warning amounted to: the warning record
// itself, the user's active warning count against the community threshold,
// and the punishment the ladder applied, if the threshold was crossed.
type EscalationResult struct {
	Warning      *db.Infraction
	Punishment   *db.Infraction
	WarningCount int
	Threshold    int
}

// EscalationEngine records warnings and escalates repeat offenders along
// the punishment ladder once they exceed the community threshold.
type EscalationEngine struct {
	store    infractionStore
	actions  punisher
	sink     NotificationSink
	policies PolicyProvider
	ladder   *Ladder
	clock    Clock
}

func NewEscalationEngine(store infractionStore, actions punisher, sink NotificationSink, policies PolicyProvider, ladder *Ladder, clock Clock) *EscalationEngine {
	if clock == nil {
		clock = SystemClock()
	}
	return &EscalationEngine{
		store:    store,
		actions:  actions,
		sink:     sink,
		policies: policies,
		ladder:   ladder,
		clock:    clock,
	}
}

// IssueWarning records a warning and, when the user's active warnings
// exceed the community threshold, applies the ladder tier for the excess.
// The warning is durable either way: if the escalated punishment fails at
// the platform, the warning stays on record and the error surfaces so the
// command can be retried.
func (e *EscalationEngine) IssueWarning(ctx context.Context, communityID, userID, issuerID int64, reason string) (*EscalationResult, error) {
	policy := e.policies.Resolve(ctx, communityID)

	now := e.clock.Now()
	warning := &db.Infraction{
		ID:          NewCaseID(communityID, now),
		CommunityID: communityID,
		UserID:      userID,
		IssuerID:    issuerID,
		Kind:        db.InfractionWarning,
		Reason:      reason,
		CreatedAt:   now,
		Active:      true,
		Appealable:  true,
	}
	if err := e.store.CreateInfraction(ctx, warning); err != nil {
		return nil, err
	}
	observability.RecordInfraction(string(db.InfractionWarning), issuerOrigin(issuerID))
	if e.sink != nil {
		e.sink.PunishmentIssued(ctx, warning)
	}
	observability.AuditEvent("warning_issued",
		zap.String("case_id", warning.ID),
		zap.Int64("community_id", communityID),
		zap.Int64("user_id", userID),
		zap.Int64("issuer_id", issuerID),
	)

	count, err := e.store.CountActiveInfractions(ctx, communityID, userID, db.InfractionWarning)
	if err != nil {
		return nil, err
	}
	result := &EscalationResult{
		Warning:      warning,
		WarningCount: count,
		Threshold:    policy.WarnThreshold,
	}
	if count <= policy.WarnThreshold {
		return result, nil
	}

	tier := e.ladder.Tier(count - policy.WarnThreshold)
	escalationReason := fmt.Sprintf("automatic escalation after %d warnings", count)

	var punishment *db.Infraction
	switch tier.Action {
	case ActionMute:
		punishment, err = e.actions.ApplyMute(ctx, communityID, userID, SystemIssuerID, escalationReason, tier.Duration, tier.Appealable)
	case ActionBan:
		punishment, err = e.actions.ApplyBan(ctx, communityID, userID, SystemIssuerID, escalationReason, tier.Appealable)
	default:
		return result, fmt.Errorf("unknown ladder action %q", tier.Action)
	}
	if err != nil {
		return result, fmt.Errorf("apply escalation: %w", err)
	}

	result.Punishment = punishment
	observability.RecordEscalation(string(tier.Action))
	observability.AuditEvent("escalation_applied",
		zap.String("warning_case_id", warning.ID),
		zap.String("punishment_case_id", punishment.ID),
		zap.String("action", string(tier.Action)),
		zap.Int64("community_id", communityID),
		zap.Int64("user_id", userID),
		zap.Int("warning_count", count),
	)
	return result, nil
}

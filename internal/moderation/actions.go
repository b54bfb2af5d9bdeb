package moderation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iamwavecut/wardenbot/internal/db"
	"github.com/iamwavecut/wardenbot/internal/observability"
)

// ModActions applies punishments and lifts them again. Platform calls
// happen before anything is recorded, so a failed call leaves no trace
// and the command can simply be retried.
type ModActions struct {
	store     infractionStore
	actuator  PunishmentActuator
	scheduler *MuteScheduler
	sink      NotificationSink
	clock     Clock
}

func NewModActions(store infractionStore, actuator PunishmentActuator, scheduler *MuteScheduler, sink NotificationSink, clock Clock) *ModActions {
	if clock == nil {
		clock = SystemClock()
	}
	return &ModActions{
		store:     store,
		actuator:  actuator,
		scheduler: scheduler,
		sink:      sink,
		clock:     clock,
	}
}

// ApplyMute restricts the user and records the mute. A non-positive
// duration mutes indefinitely; a prior active mute is superseded in
// place, its timer disarmed without a lift notification.
func (a *ModActions) ApplyMute(ctx context.Context, communityID, userID, issuerID int64, reason string, duration time.Duration, appealable bool) (*db.Infraction, error) {
	now := a.clock.Now()
	var expiresAt *time.Time
	if duration > 0 {
		expiry := now.Add(duration)
		expiresAt = &expiry
	}

	infraction := &db.Infraction{
		ID:          NewCaseID(communityID, now),
		CommunityID: communityID,
		UserID:      userID,
		IssuerID:    issuerID,
		Kind:        db.InfractionMute,
		Reason:      reason,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
		Active:      true,
		Appealable:  appealable,
	}
	err := a.scheduler.Impose(ctx, infraction, func(ctx context.Context) error {
		return a.actuator.GrantMuteRole(ctx, communityID, userID, expiresAt)
	})
	if err != nil {
		return nil, err
	}

	a.recordIssued(ctx, infraction)
	return infraction, nil
}

// ApplyBan bans the user and records it. An active mute becomes moot
// once the user is banned, so its record and timer are retired quietly.
func (a *ModActions) ApplyBan(ctx context.Context, communityID, userID, issuerID int64, reason string, appealable bool) (*db.Infraction, error) {
	if err := a.actuator.BanUser(ctx, communityID, userID); err != nil {
		return nil, err
	}

	a.scheduler.CancelTimer(communityID, userID)
	if _, err := a.store.DeactivateUserInfractions(ctx, communityID, userID, db.InfractionMute); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	infraction := &db.Infraction{
		ID:          NewCaseID(communityID, now),
		CommunityID: communityID,
		UserID:      userID,
		IssuerID:    issuerID,
		Kind:        db.InfractionBan,
		Reason:      reason,
		CreatedAt:   now,
		Active:      true,
		Appealable:  appealable,
	}
	if err := a.store.CreateInfraction(ctx, infraction); err != nil {
		return nil, err
	}

	a.recordIssued(ctx, infraction)
	return infraction, nil
}

// Unmute lifts the active mute and records the reversal. The lift
// notification comes from the scheduler release path.
func (a *ModActions) Unmute(ctx context.Context, communityID, userID, issuerID int64, reason string) (*db.Infraction, error) {
	released, changed, err := a.scheduler.Release(ctx, communityID, userID, "", ReleaseCauseManual)
	if err != nil {
		return nil, err
	}
	if released == nil || !changed {
		return nil, ErrNoActiveMute
	}
	return a.recordReversal(ctx, communityID, userID, issuerID, db.InfractionUnmute, reason)
}

// Unban lifts the active ban and records the reversal.
func (a *ModActions) Unban(ctx context.Context, communityID, userID, issuerID int64, reason string) (*db.Infraction, error) {
	bans, err := a.store.ListInfractions(ctx, communityID, userID, db.InfractionFilter{
		ActiveOnly: true,
		Kind:       db.InfractionBan,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(bans) == 0 {
		return nil, ErrNoActiveBan
	}

	if err := a.actuator.UnbanUser(ctx, communityID, userID); err != nil {
		return nil, err
	}
	changed, err := a.store.DeactivateInfraction(ctx, communityID, bans[0].ID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrNoActiveBan
	}
	ban := bans[0]
	ban.Active = false
	if a.sink != nil {
		a.sink.PunishmentLifted(ctx, ban, ReleaseCauseManual)
	}

	return a.recordReversal(ctx, communityID, userID, issuerID, db.InfractionUnban, reason)
}

// Kick removes the user without a lasting restriction and records it.
func (a *ModActions) Kick(ctx context.Context, communityID, userID, issuerID int64, reason string) (*db.Infraction, error) {
	if err := a.actuator.KickUser(ctx, communityID, userID); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	infraction := &db.Infraction{
		ID:          NewCaseID(communityID, now),
		CommunityID: communityID,
		UserID:      userID,
		IssuerID:    issuerID,
		Kind:        db.InfractionKick,
		Reason:      reason,
		CreatedAt:   now,
		Active:      true,
		Appealable:  true,
	}
	if err := a.store.CreateInfraction(ctx, infraction); err != nil {
		return nil, err
	}

	a.recordIssued(ctx, infraction)
	return infraction, nil
}

// AddNote attaches a moderator note to the user's record. Notes carry no
// platform action and are not announced, but they can be appealed off
// the record like any other entry.
func (a *ModActions) AddNote(ctx context.Context, communityID, userID, issuerID int64, text string) (*db.Infraction, error) {
	now := a.clock.Now()
	infraction := &db.Infraction{
		ID:          NewCaseID(communityID, now),
		CommunityID: communityID,
		UserID:      userID,
		IssuerID:    issuerID,
		Kind:        db.InfractionNote,
		Reason:      text,
		CreatedAt:   now,
		Active:      true,
		Appealable:  true,
	}
	if err := a.store.CreateInfraction(ctx, infraction); err != nil {
		return nil, err
	}

	observability.RecordInfraction(string(infraction.Kind), issuerOrigin(issuerID))
	a.auditInfraction("infraction_recorded", infraction)
	return infraction, nil
}

// ClearWarnings retires every active warning of the user and returns how
// many it cleared.
func (a *ModActions) ClearWarnings(ctx context.Context, communityID, userID, issuerID int64) (int64, error) {
	cleared, err := a.store.DeactivateUserInfractions(ctx, communityID, userID, db.InfractionWarning)
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		observability.AuditEvent("warnings_cleared",
			zap.Int64("community_id", communityID),
			zap.Int64("user_id", userID),
			zap.Int64("issuer_id", issuerID),
			zap.Int64("count", cleared),
		)
	}
	return cleared, nil
}

func (a *ModActions) History(ctx context.Context, communityID, userID int64, filter db.InfractionFilter) ([]*db.Infraction, error) {
	return a.store.ListInfractions(ctx, communityID, userID, filter)
}

func (a *ModActions) GetCase(ctx context.Context, communityID int64, caseID string) (*db.Infraction, error) {
	infraction, err := a.store.GetInfraction(ctx, communityID, caseID)
	if err == db.ErrNotFound {
		return nil, ErrInfractionNotFound
	}
	if err != nil {
		return nil, err
	}
	return infraction, nil
}

// recordReversal stores the bookkeeping entry for a lifted punishment.
// The entry starts inactive: it documents the reversal, it is not a
// restriction on the user.
func (a *ModActions) recordReversal(ctx context.Context, communityID, userID, issuerID int64, kind db.InfractionKind, reason string) (*db.Infraction, error) {
	now := a.clock.Now()
	infraction := &db.Infraction{
		ID:          NewCaseID(communityID, now),
		CommunityID: communityID,
		UserID:      userID,
		IssuerID:    issuerID,
		Kind:        kind,
		Reason:      reason,
		CreatedAt:   now,
		Active:      false,
		Appealable:  false,
	}
	if err := a.store.CreateInfraction(ctx, infraction); err != nil {
		return nil, err
	}

	observability.RecordInfraction(string(kind), issuerOrigin(issuerID))
	a.auditInfraction("infraction_recorded", infraction)
	return infraction, nil
}

func (a *ModActions) recordIssued(ctx context.Context, infraction *db.Infraction) {
	observability.RecordInfraction(string(infraction.Kind), issuerOrigin(infraction.IssuerID))
	if a.sink != nil {
		a.sink.PunishmentIssued(ctx, infraction)
	}
	a.auditInfraction("punishment_issued", infraction)
}

func (a *ModActions) auditInfraction(event string, infraction *db.Infraction) {
	observability.AuditEvent(event,
		zap.String("case_id", infraction.ID),
		zap.String("kind", string(infraction.Kind)),
		zap.Int64("community_id", infraction.CommunityID),
		zap.Int64("user_id", infraction.UserID),
		zap.Int64("issuer_id", infraction.IssuerID),
	)
}

func issuerOrigin(issuerID int64) string {
	if issuerID == SystemIssuerID {
		return "escalation"
	}
	return "manual"
}

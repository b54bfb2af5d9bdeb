package moderation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/iamwavecut/wardenbot/internal/db"
	"github.com/iamwavecut/wardenbot/internal/observability"
)

// AppealWorkflow lets a punished user contest a case and a moderator rule
// on it. A user holds at most one pending appeal per community, and a
// resolved appeal never changes again. Approval undoes the punishment
// before the verdict is committed, so a failed platform call leaves the
// appeal pending and reviewable again.
type AppealWorkflow struct {
	infractions infractionStore
	appeals     appealStore
	scheduler   *MuteScheduler
	actuator    PunishmentActuator
	sink        NotificationSink
	policies    PolicyProvider
	clock       Clock

	mu sync.Mutex
}

func NewAppealWorkflow(infractions infractionStore, appeals appealStore, scheduler *MuteScheduler, actuator PunishmentActuator, sink NotificationSink, policies PolicyProvider, clock Clock) *AppealWorkflow {
	if clock == nil {
		clock = SystemClock()
	}
	return &AppealWorkflow{
		infractions: infractions,
		appeals:     appeals,
		scheduler:   scheduler,
		actuator:    actuator,
		sink:        sink,
		policies:    policies,
		clock:       clock,
	}
}

// Submit opens an appeal against one of the user's own cases.
func (w *AppealWorkflow) Submit(ctx context.Context, communityID, userID int64, caseID string, reason string) (*db.Appeal, error) {
	policy := w.policies.Resolve(ctx, communityID)
	if !policy.AllowAppeals {
		return nil, ErrAppealsDisabled
	}

	infraction, err := w.infractions.GetInfraction(ctx, communityID, caseID)
	if err == db.ErrNotFound {
		return nil, ErrInfractionNotFound
	}
	if err != nil {
		return nil, err
	}
	if infraction.UserID != userID || !infraction.Active {
		return nil, ErrInfractionNotFound
	}
	if !infraction.Appealable {
		return nil, ErrNotAppealable
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	pending, err := w.appeals.GetPendingAppealByUser(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrAppealAlreadyPending
	}

	now := w.clock.Now()
	if policy.AppealCooldown > 0 {
		lastReviewed, err := w.appeals.GetLastReviewedAppealAt(ctx, communityID, userID)
		if err != nil {
			return nil, err
		}
		if lastReviewed != nil && now.Sub(*lastReviewed) < policy.AppealCooldown {
			return nil, ErrAppealCooldown
		}
	}

	appeal := &db.Appeal{
		ID:             NewAppealID(communityID, now),
		CommunityID:    communityID,
		UserID:         userID,
		CaseID:         caseID,
		InfractionKind: infraction.Kind,
		Reason:         reason,
		Status:         db.AppealPending,
		SubmittedAt:    now,
	}
	if err := w.appeals.CreateAppeal(ctx, appeal); err != nil {
		if err == db.ErrAppealPending {
			return nil, ErrAppealAlreadyPending
		}
		return nil, err
	}
	if err := w.infractions.SetInfractionAppeal(ctx, communityID, caseID, appeal.ID); err != nil {
		return nil, err
	}

	observability.RecordAppeal(string(db.AppealPending))
	if w.sink != nil {
		w.sink.AppealUpdated(ctx, appeal)
	}
	observability.AuditEvent("appeal_submitted",
		zap.String("appeal_id", appeal.ID),
		zap.String("case_id", caseID),
		zap.Int64("community_id", communityID),
		zap.Int64("user_id", userID),
	)
	return appeal, nil
}

// Resolve rules on a pending appeal. Approving compensates the punishment
// first; denial just closes the appeal. Either way the verdict is final.
func (w *AppealWorkflow) Resolve(ctx context.Context, communityID int64, appealID string, reviewerID int64, approve bool, reviewReason string) (*db.Appeal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	appeal, err := w.appeals.GetAppeal(ctx, communityID, appealID)
	if err == db.ErrNotFound {
		return nil, ErrAppealNotFound
	}
	if err != nil {
		return nil, err
	}
	if appeal.Status != db.AppealPending {
		return nil, ErrAlreadyResolved
	}

	status := db.AppealDenied
	if approve {
		if err := w.compensate(ctx, appeal); err != nil {
			return nil, err
		}
		status = db.AppealApproved
	}

	now := w.clock.Now()
	changed, err := w.appeals.ResolveAppeal(ctx, communityID, appealID, reviewerID, status, reviewReason, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrAlreadyResolved
	}

	appeal.Status = status
	appeal.ReviewerID = reviewerID
	appeal.ReviewReason = reviewReason
	appeal.ReviewedAt = &now

	observability.RecordAppeal(string(status))
	if w.sink != nil {
		w.sink.AppealUpdated(ctx, appeal)
	}
	observability.AuditEvent("appeal_resolved",
		zap.String("appeal_id", appeal.ID),
		zap.String("case_id", appeal.CaseID),
		zap.String("status", string(status)),
		zap.Int64("community_id", communityID),
		zap.Int64("reviewer_id", reviewerID),
	)
	return appeal, nil
}

func (w *AppealWorkflow) Get(ctx context.Context, communityID int64, appealID string) (*db.Appeal, error) {
	appeal, err := w.appeals.GetAppeal(ctx, communityID, appealID)
	if err == db.ErrNotFound {
		return nil, ErrAppealNotFound
	}
	if err != nil {
		return nil, err
	}
	return appeal, nil
}

func (w *AppealWorkflow) ListPending(ctx context.Context, communityID int64) ([]*db.Appeal, error) {
	return w.appeals.ListPendingAppeals(ctx, communityID)
}

// compensate undoes the appealed punishment. A case that is already
// inactive needs no undoing and approval proceeds over it.
func (w *AppealWorkflow) compensate(ctx context.Context, appeal *db.Appeal) error {
	infraction, err := w.infractions.GetInfraction(ctx, appeal.CommunityID, appeal.CaseID)
	if err == db.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if !infraction.Active {
		return nil
	}

	switch infraction.Kind {
	case db.InfractionMute:
		_, _, err := w.scheduler.Release(ctx, appeal.CommunityID, appeal.UserID, infraction.ID, ReleaseCauseAppeal)
		return err
	case db.InfractionBan:
		if err := w.actuator.UnbanUser(ctx, appeal.CommunityID, appeal.UserID); err != nil {
			return err
		}
		changed, err := w.infractions.DeactivateInfraction(ctx, appeal.CommunityID, infraction.ID)
		if err != nil {
			return err
		}
		if changed && w.sink != nil {
			infraction.Active = false
			w.sink.PunishmentLifted(ctx, infraction, ReleaseCauseAppeal)
		}
		return nil
	default:
		_, err := w.infractions.DeactivateInfraction(ctx, appeal.CommunityID, infraction.ID)
		return err
	}
}

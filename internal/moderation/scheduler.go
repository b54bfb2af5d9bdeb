package moderation

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/wardenbot/internal/db"
	"github.com/iamwavecut/wardenbot/internal/observability"
)

// Release causes, recorded in audit events and expiry metrics.
const (
	ReleaseCauseExpired   = "expired"
	ReleaseCauseRecovered = "recovered"
	ReleaseCauseManual    = "manual"
	ReleaseCauseAppeal    = "appeal"
)

type muteKey struct {
	communityID int64
	userID      int64
}

type armedTimer struct {
	caseID string
	timer  Timer
}

// MuteScheduler arms one expiry timer per muted user and lifts the mute when
// it fires. On start it reconciles persisted timed mutes with the clock:
// overdue mutes are released immediately, future ones get their timer back.
type MuteScheduler struct {
	store    muteStore
	actuator PunishmentActuator
	sink     NotificationSink
	clock    Clock

	recoveryConcurrency int

	timersMu sync.Mutex
	timers   map[muteKey]*armedTimer

	// releaseMu serializes releases so a manual unmute racing an expiry
	// cannot double-apply the platform call.
	releaseMu sync.Mutex

	runMutex  sync.Mutex
	started   bool
	runCtx    context.Context
	runCancel context.CancelFunc
}

type muteStore interface {
	CreateInfraction(ctx context.Context, infraction *db.Infraction) error
	GetInfraction(ctx context.Context, communityID int64, id string) (*db.Infraction, error)
	GetActiveMute(ctx context.Context, communityID, userID int64) (*db.Infraction, error)
	ListActiveTimedMutes(ctx context.Context) ([]*db.Infraction, error)
	DeactivateInfraction(ctx context.Context, communityID int64, id string) (bool, error)
}

func NewMuteScheduler(store muteStore, actuator PunishmentActuator, sink NotificationSink, clock Clock, recoveryConcurrency int) *MuteScheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if recoveryConcurrency < 1 {
		recoveryConcurrency = 1
	}
	return &MuteScheduler{
		store:               store,
		actuator:            actuator,
		sink:                sink,
		clock:               clock,
		recoveryConcurrency: recoveryConcurrency,
		timers:              make(map[muteKey]*armedTimer),
	}
}

func (s *MuteScheduler) Name() string {
	return "mute scheduler"
}

func (s *MuteScheduler) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.started {
		return nil
	}

	s.runCtx, s.runCancel = context.WithCancel(ctx)
	if err := s.recoverOutstanding(s.runCtx); err != nil {
		s.runCancel()
		s.runCtx, s.runCancel = nil, nil
		return err
	}
	s.started = true
	return nil
}

func (s *MuteScheduler) Stop(_ context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if !s.started {
		return nil
	}
	s.runCancel()
	s.runCtx, s.runCancel = nil, nil
	s.started = false

	s.timersMu.Lock()
	for key, armed := range s.timers {
		armed.timer.Stop()
		delete(s.timers, key)
	}
	s.timersMu.Unlock()
	return nil
}

// recoverOutstanding walks every persisted timed mute. Mutes already past due
// are lifted before the scheduler reports started, future ones are re-armed.
func (s *MuteScheduler) recoverOutstanding(ctx context.Context) error {
	mutes, err := s.store.ListActiveTimedMutes(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	overdue := make([]*db.Infraction, 0, len(mutes))
	for _, mute := range mutes {
		if !mute.IsTimedMute() {
			continue
		}
		if mute.ExpiresAt.After(now) {
			s.ScheduleMute(mute)
			continue
		}
		overdue = append(overdue, mute)
	}
	if len(overdue) == 0 {
		return nil
	}

	s.getLogEntry().WithField("count", len(overdue)).Info("releasing overdue mutes")
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.recoveryConcurrency)
	for _, mute := range overdue {
		eg.Go(func() error {
			if _, _, err := s.releaseMute(egCtx, mute.CommunityID, mute.UserID, mute.ID, ReleaseCauseRecovered); err != nil {
				s.getLogEntry().WithField("error", err.Error()).WithField("case_id", mute.ID).
					Warn("failed to release overdue mute")
			}
			return nil
		})
	}
	return eg.Wait()
}

// ScheduleMute arms the expiry timer for a timed mute, replacing any timer
// already armed for the same user in the same community.
func (s *MuteScheduler) ScheduleMute(infraction *db.Infraction) {
	if infraction == nil || !infraction.IsTimedMute() || !infraction.Active {
		return
	}

	delay := infraction.ExpiresAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	key := muteKey{communityID: infraction.CommunityID, userID: infraction.UserID}
	caseID := infraction.ID

	s.timersMu.Lock()
	if existing, ok := s.timers[key]; ok {
		existing.timer.Stop()
	}
	s.timers[key] = &armedTimer{
		caseID: caseID,
		timer: s.clock.AfterFunc(delay, func() {
			s.onExpiry(key, caseID)
		}),
	}
	s.timersMu.Unlock()
}

// CancelTimer disarms the pending expiry timer for a user, if any. The mute
// record itself is untouched.
func (s *MuteScheduler) CancelTimer(communityID, userID int64) {
	key := muteKey{communityID: communityID, userID: userID}
	s.timersMu.Lock()
	if armed, ok := s.timers[key]; ok {
		armed.timer.Stop()
		delete(s.timers, key)
	}
	s.timersMu.Unlock()
}

// Impose grants the mute, retires any prior active mute for the user and
// records the new one, all under the release lock. A release already past its
// active-check therefore cannot land its platform call between the grant and
// the new record, which would leave the user unmuted under an active record.
// The prior mute is retired quietly: its timer is disarmed and its record
// deactivated without a lift notification.
func (s *MuteScheduler) Impose(ctx context.Context, infraction *db.Infraction, grant func(context.Context) error) error {
	s.releaseMu.Lock()
	defer s.releaseMu.Unlock()

	if err := grant(ctx); err != nil {
		return err
	}

	prior, err := s.store.GetActiveMute(ctx, infraction.CommunityID, infraction.UserID)
	if err != nil {
		return err
	}
	if prior != nil {
		s.CancelTimer(infraction.CommunityID, infraction.UserID)
		if _, err := s.store.DeactivateInfraction(ctx, infraction.CommunityID, prior.ID); err != nil {
			return err
		}
	}

	if err := s.store.CreateInfraction(ctx, infraction); err != nil {
		return err
	}
	s.ScheduleMute(infraction)
	return nil
}

// Release lifts a mute outside the timer path. With an empty caseID the
// current active mute is looked up; otherwise the release only applies if the
// named case is still the active mute. Returns the released infraction and
// whether this call deactivated it.
func (s *MuteScheduler) Release(ctx context.Context, communityID, userID int64, caseID string, cause string) (*db.Infraction, bool, error) {
	return s.releaseMute(ctx, communityID, userID, caseID, cause)
}

func (s *MuteScheduler) onExpiry(key muteKey, caseID string) {
	s.runMutex.Lock()
	ctx := s.runCtx
	s.runMutex.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	s.timersMu.Lock()
	if armed, ok := s.timers[key]; ok && armed.caseID == caseID {
		delete(s.timers, key)
	}
	s.timersMu.Unlock()

	if _, _, err := s.releaseMute(ctx, key.communityID, key.userID, caseID, ReleaseCauseExpired); err != nil {
		s.getLogEntry().WithField("error", err.Error()).WithField("case_id", caseID).
			Warn("failed to release expired mute")
	}
}

func (s *MuteScheduler) releaseMute(ctx context.Context, communityID, userID int64, caseID string, cause string) (*db.Infraction, bool, error) {
	s.releaseMu.Lock()
	defer s.releaseMu.Unlock()

	var mute *db.Infraction
	var err error
	if caseID == "" {
		mute, err = s.store.GetActiveMute(ctx, communityID, userID)
	} else {
		mute, err = s.store.GetInfraction(ctx, communityID, caseID)
		if err == db.ErrNotFound {
			return nil, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	if mute == nil || mute.Kind != db.InfractionMute || !mute.Active {
		return nil, false, nil
	}

	s.CancelTimer(communityID, userID)

	if err := s.actuator.RevokeMuteRole(ctx, communityID, userID); err != nil {
		if cause == ReleaseCauseExpired || cause == ReleaseCauseRecovered {
			observability.RecordMuteExpiration("failed")
		}
		return nil, false, err
	}

	changed, err := s.store.DeactivateInfraction(ctx, communityID, mute.ID)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return mute, false, nil
	}

	mute.Active = false
	if cause == ReleaseCauseExpired || cause == ReleaseCauseRecovered {
		observability.RecordMuteExpiration(cause)
	}
	if s.sink != nil {
		s.sink.PunishmentLifted(ctx, mute, cause)
	}
	observability.AuditEvent("mute_released",
		zap.String("case_id", mute.ID),
		zap.Int64("community_id", communityID),
		zap.Int64("user_id", userID),
		zap.String("cause", cause),
	)
	return mute, true, nil
}

func (s *MuteScheduler) timerCount() int {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	return len(s.timers)
}

func (s *MuteScheduler) getLogEntry() *log.Entry {
	return log.WithField("object", "MuteScheduler")
}

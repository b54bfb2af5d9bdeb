package moderation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/wardenbot/internal/db"
	"github.com/iamwavecut/wardenbot/internal/db/sqlite"
)

func newTestStore(t *testing.T) db.Client {
	t.Helper()
	client, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "moderation.db")
	if err != nil {
		t.Fatalf("failed to create sqlite client: %v", err)
	}
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Errorf("failed to close sqlite client: %v", err)
		}
	})
	return client
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, timer)
	return timer
}

// Advance moves the clock and runs every due timer synchronously, so
// tests observe expiry effects without sleeping.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired && !timer.deadline.After(c.now) {
			timer.fired = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()

	for _, timer := range due {
		timer.fn()
	}
}

func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			pending++
		}
	}
	return pending
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeActuator struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func newFakeActuator() *fakeActuator {
	return &fakeActuator{fail: map[string]error{}}
}

func (a *fakeActuator) invoke(method string, communityID, userID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.fail[method]; err != nil {
		return err
	}
	a.calls = append(a.calls, fmt.Sprintf("%s:%d:%d", method, communityID, userID))
	return nil
}

func (a *fakeActuator) GrantMuteRole(_ context.Context, communityID, userID int64, _ *time.Time) error {
	return a.invoke("mute", communityID, userID)
}

func (a *fakeActuator) RevokeMuteRole(_ context.Context, communityID, userID int64) error {
	return a.invoke("unmute", communityID, userID)
}

func (a *fakeActuator) BanUser(_ context.Context, communityID, userID int64) error {
	return a.invoke("ban", communityID, userID)
}

func (a *fakeActuator) UnbanUser(_ context.Context, communityID, userID int64) error {
	return a.invoke("unban", communityID, userID)
}

func (a *fakeActuator) KickUser(_ context.Context, communityID, userID int64) error {
	return a.invoke("kick", communityID, userID)
}

func (a *fakeActuator) failWith(method string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fail[method] = err
}

func (a *fakeActuator) clearFailure(method string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.fail, method)
}

func (a *fakeActuator) callCount(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := 0
	for _, call := range a.calls {
		if strings.HasPrefix(call, method+":") {
			count++
		}
	}
	return count
}

type fakeSink struct {
	mu      sync.Mutex
	issued  []*db.Infraction
	lifted  []string
	appeals []*db.Appeal
}

func (s *fakeSink) PunishmentIssued(_ context.Context, infraction *db.Infraction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued = append(s.issued, infraction)
}

func (s *fakeSink) PunishmentLifted(_ context.Context, infraction *db.Infraction, cause string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lifted = append(s.lifted, fmt.Sprintf("%s:%s", infraction.ID, cause))
}

func (s *fakeSink) AppealUpdated(_ context.Context, appeal *db.Appeal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appeals = append(s.appeals, appeal)
}

func (s *fakeSink) liftedEvents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.lifted...)
}

func (s *fakeSink) issuedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

type staticPolicies struct {
	policy Policy
}

func (p staticPolicies) Resolve(context.Context, int64) Policy {
	return p.policy
}

func defaultTestPolicy() Policy {
	return Policy{WarnThreshold: 3, AllowAppeals: true}
}

func testLadder(t *testing.T) *Ladder {
	t.Helper()
	ladder, err := NewLadder(
		TempMute(2*time.Hour, true),
		TempMute(24*time.Hour, true),
		PermBan(true),
		PermBan(false),
	)
	if err != nil {
		t.Fatalf("failed to build ladder: %v", err)
	}
	return ladder
}

// testEnv wires the moderation services against a real sqlite store and
// fake platform dependencies.
type testEnv struct {
	store     db.Client
	clock     *fakeClock
	actuator  *fakeActuator
	sink      *fakeSink
	scheduler *MuteScheduler
	actions   *ModActions
	engine    *EscalationEngine
	appeals   *AppealWorkflow
}

func newTestEnv(t *testing.T, policy Policy) *testEnv {
	t.Helper()
	store := newTestStore(t)
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	actuator := newFakeActuator()
	sink := &fakeSink{}
	policies := staticPolicies{policy: policy}

	scheduler := NewMuteScheduler(store, actuator, sink, clock, 2)
	actions := NewModActions(store, actuator, scheduler, sink, clock)
	engine := NewEscalationEngine(store, actions, sink, policies, testLadder(t), clock)
	appeals := NewAppealWorkflow(store, store, scheduler, actuator, sink, policies, clock)

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("failed to start scheduler: %v", err)
	}
	t.Cleanup(func() {
		if err := scheduler.Stop(context.Background()); err != nil {
			t.Errorf("failed to stop scheduler: %v", err)
		}
	})

	return &testEnv{
		store:     store,
		clock:     clock,
		actuator:  actuator,
		sink:      sink,
		scheduler: scheduler,
		actions:   actions,
		engine:    engine,
		appeals:   appeals,
	}
}

package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iamwavecut/wardenbot/internal/db"
)

func TestAppealsSinglePendingPerUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	now := time.Now()
	first := &db.Appeal{
		ID: "appeal-1", CommunityID: 1, UserID: 7, CaseID: "case-1",
		InfractionKind: db.InfractionMute, Reason: "was not me",
		Status: db.AppealPending, SubmittedAt: now,
	}
	if err := client.CreateAppeal(ctx, first); err != nil {
		t.Fatalf("create first appeal: %v", err)
	}

	dup := &db.Appeal{
		ID: "appeal-1", CommunityID: 1, UserID: 8, CaseID: "case-9",
		InfractionKind: db.InfractionBan,
		Status:         db.AppealPending, SubmittedAt: now,
	}
	if err := client.CreateAppeal(ctx, dup); !errors.Is(err, db.ErrDuplicateID) {
		t.Fatalf("unexpected error for duplicate id: %v", err)
	}

	second := &db.Appeal{
		ID: "appeal-2", CommunityID: 1, UserID: 7, CaseID: "case-2",
		InfractionKind: db.InfractionBan,
		Status:         db.AppealPending, SubmittedAt: now,
	}
	if err := client.CreateAppeal(ctx, second); !errors.Is(err, db.ErrAppealPending) {
		t.Fatalf("unexpected error for second pending appeal: %v", err)
	}

	otherCommunity := &db.Appeal{
		ID: "appeal-3", CommunityID: 2, UserID: 7, CaseID: "case-3",
		InfractionKind: db.InfractionMute,
		Status:         db.AppealPending, SubmittedAt: now,
	}
	if err := client.CreateAppeal(ctx, otherCommunity); err != nil {
		t.Fatalf("create appeal in other community: %v", err)
	}

	pending, err := client.GetPendingAppealByUser(ctx, 1, 7)
	if err != nil {
		t.Fatalf("get pending appeal: %v", err)
	}
	if pending == nil || pending.ID != "appeal-1" {
		t.Fatalf("unexpected pending appeal: %#v", pending)
	}
}

func TestAppealsResolveTransitionsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	now := time.Now()
	appeal := &db.Appeal{
		ID: "appeal-res", CommunityID: 1, UserID: 7, CaseID: "case-1",
		InfractionKind: db.InfractionMute, Reason: "please",
		Status: db.AppealPending, SubmittedAt: now,
	}
	if err := client.CreateAppeal(ctx, appeal); err != nil {
		t.Fatalf("create appeal: %v", err)
	}

	changed, err := client.ResolveAppeal(ctx, 1, "appeal-res", 42, db.AppealApproved, "checked logs", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("resolve appeal: %v", err)
	}
	if !changed {
		t.Fatalf("expected first resolve to transition the appeal")
	}

	changed, err = client.ResolveAppeal(ctx, 1, "appeal-res", 43, db.AppealDenied, "too late", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if changed {
		t.Fatalf("expected second resolve to be rejected")
	}

	got, err := client.GetAppeal(ctx, 1, "appeal-res")
	if err != nil {
		t.Fatalf("get appeal: %v", err)
	}
	if got.Status != db.AppealApproved || got.ReviewerID != 42 || got.ReviewReason != "checked logs" {
		t.Fatalf("unexpected resolved appeal: %#v", got)
	}
	if got.ReviewedAt == nil {
		t.Fatalf("expected reviewed_at to be set")
	}

	// The pending slot frees up once the previous appeal is resolved.
	next := &db.Appeal{
		ID: "appeal-next", CommunityID: 1, UserID: 7, CaseID: "case-2",
		InfractionKind: db.InfractionBan,
		Status:         db.AppealPending, SubmittedAt: now.Add(3 * time.Minute),
	}
	if err := client.CreateAppeal(ctx, next); err != nil {
		t.Fatalf("create follow-up appeal: %v", err)
	}

	lastReviewed, err := client.GetLastReviewedAppealAt(ctx, 1, 7)
	if err != nil {
		t.Fatalf("get last reviewed at: %v", err)
	}
	if lastReviewed == nil || lastReviewed.Unix() != now.Add(time.Minute).Unix() {
		t.Fatalf("unexpected last reviewed at: %v", lastReviewed)
	}
}

func TestAppealsListPendingOrderedBySubmission(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	now := time.Now()
	appeals := []*db.Appeal{
		{ID: "a-2", CommunityID: 3, UserID: 11, CaseID: "c-2", InfractionKind: db.InfractionBan, Status: db.AppealPending, SubmittedAt: now.Add(time.Minute)},
		{ID: "a-1", CommunityID: 3, UserID: 10, CaseID: "c-1", InfractionKind: db.InfractionMute, Status: db.AppealPending, SubmittedAt: now},
		{ID: "a-3", CommunityID: 4, UserID: 10, CaseID: "c-3", InfractionKind: db.InfractionMute, Status: db.AppealPending, SubmittedAt: now},
	}
	for _, appeal := range appeals {
		if err := client.CreateAppeal(ctx, appeal); err != nil {
			t.Fatalf("create %s: %v", appeal.ID, err)
		}
	}

	pending, err := client.ListPendingAppeals(ctx, 3)
	if err != nil {
		t.Fatalf("list pending appeals: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "a-1" || pending[1].ID != "a-2" {
		t.Fatalf("unexpected pending list: %#v", pending)
	}
}

func TestPoliciesUpsertRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	missing, err := client.GetPolicy(ctx, 100)
	if err != nil {
		t.Fatalf("get missing policy: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil policy, got %#v", missing)
	}

	policy := db.DefaultCommunityPolicy(100)
	policy.WarnThreshold = 5
	if err := client.SetPolicy(ctx, policy); err != nil {
		t.Fatalf("set policy: %v", err)
	}

	policy.AllowAppeals = 0
	policy.LogChannelID = -100900
	if err := client.SetPolicy(ctx, policy); err != nil {
		t.Fatalf("update policy: %v", err)
	}

	got, err := client.GetPolicy(ctx, 100)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if got.WarnThreshold != 5 || got.AllowAppeals != 0 || got.LogChannelID != -100900 {
		t.Fatalf("unexpected policy: %#v", got)
	}
	if got.AppealCooldownHours != db.PolicyOverrideInherit {
		t.Fatalf("unexpected cooldown override: %d", got.AppealCooldownHours)
	}
}

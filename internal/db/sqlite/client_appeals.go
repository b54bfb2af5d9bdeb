package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iamwavecut/wardenbot/internal/db"
)

func (s *sqliteClient) CreateAppeal(ctx context.Context, appeal *db.Appeal) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO appeals (id, community_id, user_id, case_id, infraction_kind, reason,
			status, submitted_at, reviewer_id, review_reason, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		appeal.ID,
		appeal.CommunityID,
		appeal.UserID,
		appeal.CaseID,
		appeal.InfractionKind,
		appeal.Reason,
		appeal.Status,
		appeal.SubmittedAt,
		appeal.ReviewerID,
		appeal.ReviewReason,
		appeal.ReviewedAt,
	)
	if err != nil {
		return classifyAppealInsertError(err)
	}
	return nil
}

// classifyAppealInsertError distinguishes the two unique constraints on
// appeals: the primary key and the single-pending-per-user partial index.
func classifyAppealInsertError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "appeals.id"):
		return db.ErrDuplicateID
	case strings.Contains(msg, "idx_appeals_pending"):
		return db.ErrAppealPending
	}
	return fmt.Errorf("failed to create appeal: %w", err)
}

func (s *sqliteClient) GetAppeal(ctx context.Context, communityID int64, id string) (*db.Appeal, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var appeal db.Appeal
	err := s.db.GetContext(ctx, &appeal, `
		SELECT * FROM appeals
		WHERE community_id = ? AND id = ?
	`, communityID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appeal: %w", err)
	}
	return &appeal, nil
}

func (s *sqliteClient) GetPendingAppealByUser(ctx context.Context, communityID, userID int64) (*db.Appeal, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var appeal db.Appeal
	err := s.db.GetContext(ctx, &appeal, `
		SELECT * FROM appeals
		WHERE community_id = ? AND user_id = ? AND status = ?
		LIMIT 1
	`, communityID, userID, db.AppealPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending appeal: %w", err)
	}
	return &appeal, nil
}

func (s *sqliteClient) ListPendingAppeals(ctx context.Context, communityID int64) ([]*db.Appeal, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var appeals []*db.Appeal
	err := s.db.SelectContext(ctx, &appeals, `
		SELECT * FROM appeals
		WHERE community_id = ? AND status = ?
		ORDER BY submitted_at ASC, id ASC
	`, communityID, db.AppealPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending appeals: %w", err)
	}
	return appeals, nil
}

func (s *sqliteClient) ResolveAppeal(ctx context.Context, communityID int64, id string, reviewerID int64, status db.AppealStatus, reviewReason string, reviewedAt time.Time) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE appeals
		SET status = ?, reviewer_id = ?, review_reason = ?, reviewed_at = ?
		WHERE community_id = ? AND id = ? AND status = ?
	`, status, reviewerID, reviewReason, reviewedAt, communityID, id, db.AppealPending)
	if err != nil {
		return false, fmt.Errorf("failed to resolve appeal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *sqliteClient) GetLastReviewedAppealAt(ctx context.Context, communityID, userID int64) (*time.Time, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var reviewedAt time.Time
	err := s.db.GetContext(ctx, &reviewedAt, `
		SELECT reviewed_at FROM appeals
		WHERE community_id = ? AND user_id = ? AND reviewed_at IS NOT NULL
		ORDER BY reviewed_at DESC
		LIMIT 1
	`, communityID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last reviewed appeal: %w", err)
	}
	return &reviewedAt, nil
}

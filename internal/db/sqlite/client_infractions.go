package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamwavecut/wardenbot/internal/db"
)

func (s *sqliteClient) CreateInfraction(ctx context.Context, infraction *db.Infraction) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT OR IGNORE INTO infractions (id, community_id, user_id, issuer_id, kind, reason,
			created_at, expires_at, active, appealable, appealed, appeal_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		infraction.ID,
		infraction.CommunityID,
		infraction.UserID,
		infraction.IssuerID,
		infraction.Kind,
		infraction.Reason,
		infraction.CreatedAt,
		infraction.ExpiresAt,
		infraction.Active,
		infraction.Appealable,
		infraction.Appealed,
		infraction.AppealID,
	)
	if err != nil {
		return fmt.Errorf("failed to create infraction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return db.ErrDuplicateID
	}
	return nil
}

func (s *sqliteClient) GetInfraction(ctx context.Context, communityID int64, id string) (*db.Infraction, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var infraction db.Infraction
	err := s.db.GetContext(ctx, &infraction, `
		SELECT * FROM infractions
		WHERE community_id = ? AND id = ?
	`, communityID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get infraction: %w", err)
	}
	return &infraction, nil
}

func (s *sqliteClient) ListInfractions(ctx context.Context, communityID, userID int64, filter db.InfractionFilter) ([]*db.Infraction, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	query := `SELECT * FROM infractions WHERE community_id = ? AND user_id = ?`
	args := []any{communityID, userID}
	if filter.ActiveOnly {
		query += ` AND active = TRUE`
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var infractions []*db.Infraction
	if err := s.db.SelectContext(ctx, &infractions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list infractions: %w", err)
	}
	return infractions, nil
}

func (s *sqliteClient) CountActiveInfractions(ctx context.Context, communityID, userID int64, kind db.InfractionKind) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM infractions
		WHERE community_id = ? AND user_id = ? AND kind = ? AND active = TRUE
	`, communityID, userID, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to count active infractions: %w", err)
	}
	return count, nil
}

func (s *sqliteClient) DeactivateInfraction(ctx context.Context, communityID int64, id string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE infractions SET active = FALSE
		WHERE community_id = ? AND id = ? AND active = TRUE
	`, communityID, id)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate infraction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *sqliteClient) DeactivateUserInfractions(ctx context.Context, communityID, userID int64, kind db.InfractionKind) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE infractions SET active = FALSE
		WHERE community_id = ? AND user_id = ? AND kind = ? AND active = TRUE
	`, communityID, userID, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate user infractions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}

func (s *sqliteClient) SetInfractionAppeal(ctx context.Context, communityID int64, id string, appealID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE infractions SET appealed = TRUE, appeal_id = ?
		WHERE community_id = ? AND id = ?
	`, appealID, communityID, id)
	if err != nil {
		return fmt.Errorf("failed to set infraction appeal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *sqliteClient) GetActiveMute(ctx context.Context, communityID, userID int64) (*db.Infraction, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var infraction db.Infraction
	err := s.db.GetContext(ctx, &infraction, `
		SELECT * FROM infractions
		WHERE community_id = ? AND user_id = ? AND kind = ? AND active = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, communityID, userID, db.InfractionMute)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active mute: %w", err)
	}
	return &infraction, nil
}

func (s *sqliteClient) ListActiveTimedMutes(ctx context.Context) ([]*db.Infraction, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var infractions []*db.Infraction
	err := s.db.SelectContext(ctx, &infractions, `
		SELECT * FROM infractions
		WHERE kind = ? AND active = TRUE AND expires_at IS NOT NULL
		ORDER BY expires_at ASC
	`, db.InfractionMute)
	if err != nil {
		return nil, fmt.Errorf("failed to list active timed mutes: %w", err)
	}
	return infractions, nil
}

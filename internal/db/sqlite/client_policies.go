package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/wardenbot/internal/db"
)

func (s *sqliteClient) GetPolicy(ctx context.Context, communityID int64) (*db.CommunityPolicy, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var policy db.CommunityPolicy
	err := s.db.GetContext(ctx, &policy, `
		SELECT * FROM policies WHERE community_id = ?
	`, communityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return &policy, nil
}

func (s *sqliteClient) SetPolicy(ctx context.Context, policy *db.CommunityPolicy) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO policies (community_id, warn_threshold, allow_appeals, appeal_cooldown_hours, log_channel_id)
		VALUES (:community_id, :warn_threshold, :allow_appeals, :appeal_cooldown_hours, :log_channel_id)
		ON CONFLICT(community_id) DO UPDATE SET
		warn_threshold = excluded.warn_threshold,
		allow_appeals = excluded.allow_appeals,
		appeal_cooldown_hours = excluded.appeal_cooldown_hours,
		log_channel_id = excluded.log_channel_id
	`
	return tool.Err(s.db.NamedExecContext(ctx, query, policy))
}

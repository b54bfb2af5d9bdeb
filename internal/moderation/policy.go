package moderation

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/config"
	"github.com/iamwavecut/wardenbot/internal/db"
	"github.com/iamwavecut/wardenbot/internal/infra/reg"
)

// Policy is the effective, normalized moderation policy of a community.
type Policy struct {
	WarnThreshold  int
	AllowAppeals   bool
	AppealCooldown time.Duration
	LogChannelID   int64
}

type PolicyService struct {
	store policyStore
	base  config.Moderation
	cache *reg.PolicyCache
}

func NewPolicyService(store policyStore, base config.Moderation) *PolicyService {
	return &PolicyService{store: store, base: base, cache: reg.NewPolicyCache()}
}

func (p *PolicyService) Resolve(ctx context.Context, communityID int64) Policy {
	stored, err := p.loadStored(ctx, communityID)
	if err != nil {
		p.getLogEntry().WithField("error", err.Error()).WithField("community_id", communityID).
			Warn("failed to load community policy, using defaults")
		return resolvePolicy(p.base, nil)
	}
	return resolvePolicy(p.base, stored)
}

// Stored returns a copy of the raw override row, nil when the community
// never set one.
func (p *PolicyService) Stored(ctx context.Context, communityID int64) (*db.CommunityPolicy, error) {
	row, err := p.loadStored(ctx, communityID)
	if err != nil || row == nil {
		return nil, err
	}
	copied := *row
	return &copied, nil
}

func (p *PolicyService) Set(ctx context.Context, policy *db.CommunityPolicy) error {
	if err := p.store.SetPolicy(ctx, policy); err != nil {
		return err
	}
	copied := *policy
	p.cache.Set(policy.CommunityID, &copied)
	return nil
}

func (p *PolicyService) loadStored(ctx context.Context, communityID int64) (*db.CommunityPolicy, error) {
	if row, ok := p.cache.Get(communityID); ok {
		return row, nil
	}
	row, err := p.store.GetPolicy(ctx, communityID)
	if err != nil {
		return nil, err
	}
	p.cache.Set(communityID, row)
	return row, nil
}

func (p *PolicyService) getLogEntry() *log.Entry {
	return log.WithField("object", "PolicyService")
}

func resolvePolicy(base config.Moderation, stored *db.CommunityPolicy) Policy {
	policy := Policy{
		WarnThreshold:  base.WarnThreshold,
		AllowAppeals:   base.AllowAppeals,
		AppealCooldown: base.AppealCooldown,
		LogChannelID:   base.LogChannelID,
	}

	if stored == nil {
		return normalizePolicy(policy)
	}
	if stored.WarnThreshold != db.PolicyOverrideInherit {
		policy.WarnThreshold = stored.WarnThreshold
	}
	if stored.AllowAppeals != db.PolicyOverrideInherit {
		policy.AllowAppeals = stored.AllowAppeals > 0
	}
	if stored.AppealCooldownHours != db.PolicyOverrideInherit {
		policy.AppealCooldown = time.Duration(stored.AppealCooldownHours) * time.Hour
	}
	if stored.LogChannelID != 0 {
		policy.LogChannelID = stored.LogChannelID
	}

	return normalizePolicy(policy)
}

func normalizePolicy(policy Policy) Policy {
	if policy.WarnThreshold < 1 {
		policy.WarnThreshold = 1
	}
	if policy.AppealCooldown < 0 {
		policy.AppealCooldown = 0
	}
	return policy
}

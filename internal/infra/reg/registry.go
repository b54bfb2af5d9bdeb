package reg

import (
	"sync"

	"github.com/iamwavecut/wardenbot/internal/db"
)

// PolicyCache keeps community policy rows warm between commands. A nil
// cached row is meaningful: the community is known to have no override.
type PolicyCache struct {
	mu   sync.RWMutex
	rows map[int64]*db.CommunityPolicy
}

func NewPolicyCache() *PolicyCache {
	return &PolicyCache{rows: map[int64]*db.CommunityPolicy{}}
}

func (c *PolicyCache) Get(communityID int64) (*db.CommunityPolicy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, ok := c.rows[communityID]
	return row, ok
}

func (c *PolicyCache) Set(communityID int64, row *db.CommunityPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[communityID] = row
}

func (c *PolicyCache) Remove(communityID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, communityID)
}

package moderation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pborman/uuid"
)

// SystemIssuerID marks infractions recorded by the bot itself, such as
// automatic escalations.
const SystemIssuerID int64 = 0

// NewCaseID builds a community-scoped, creation-ordered infraction id:
// community, millisecond timestamp, random suffix.
func NewCaseID(communityID int64, at time.Time) string {
	return fmt.Sprintf("%d.%d.%s", communityID, at.UnixMilli(), idSuffix())
}

func NewAppealID(communityID int64, at time.Time) string {
	return fmt.Sprintf("ap.%d.%d.%s", communityID, at.UnixMilli(), idSuffix())
}

func idSuffix() string {
	return uuid.NewRandom().String()[:8]
}

// CommunityFromCaseID recovers the community a case id belongs to,
// letting direct-message commands address a case without naming the
// community separately.
func CommunityFromCaseID(caseID string) (int64, error) {
	head, _, found := strings.Cut(caseID, ".")
	if !found {
		return 0, fmt.Errorf("malformed case id %q", caseID)
	}
	communityID, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed case id %q", caseID)
	}
	return communityID, nil
}

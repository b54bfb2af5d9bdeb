package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iamwavecut/wardenbot/internal/db"
	"github.com/iamwavecut/wardenbot/internal/moderation"
)

const timeLayout = "2006-01-02 15:04 MST"

func renderHistory(userID int64, infractions []*db.Infraction) string {
	if len(infractions) == 0 {
		return fmt.Sprintf("no records for user %d", userID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "records for user %d:", userID)
	for _, infraction := range infractions {
		fmt.Fprintf(&b, "\n%s  %s  %s", infraction.CreatedAt.UTC().Format("2006-01-02"), infraction.Kind, infraction.ID)
		if infraction.Active {
			b.WriteString("  [active]")
		}
		if infraction.Reason != "" {
			fmt.Fprintf(&b, "\n    %s", infraction.Reason)
		}
	}
	return b.String()
}

func renderCase(infraction *db.Infraction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "case %s\n", infraction.ID)
	fmt.Fprintf(&b, "kind: %s\n", infraction.Kind)
	fmt.Fprintf(&b, "user: %d\n", infraction.UserID)
	if infraction.IssuerID == moderation.SystemIssuerID {
		b.WriteString("issued by: automatic escalation\n")
	} else {
		fmt.Fprintf(&b, "issued by: %d\n", infraction.IssuerID)
	}
	fmt.Fprintf(&b, "issued at: %s\n", infraction.CreatedAt.UTC().Format(timeLayout))
	if infraction.ExpiresAt != nil {
		fmt.Fprintf(&b, "expires: %s\n", infraction.ExpiresAt.UTC().Format(timeLayout))
	}
	fmt.Fprintf(&b, "active: %t\n", infraction.Active)
	fmt.Fprintf(&b, "appealable: %t", infraction.Appealable)
	if infraction.Appealed {
		fmt.Fprintf(&b, "\nappeal: %s", infraction.AppealID)
	}
	if infraction.Reason != "" {
		fmt.Fprintf(&b, "\nreason: %s", infraction.Reason)
	}
	return b.String()
}

func renderPolicy(policy moderation.Policy) string {
	appeals := "off"
	if policy.AllowAppeals {
		appeals = "on"
	}
	cooldown := "none"
	if policy.AppealCooldown > 0 {
		cooldown = policy.AppealCooldown.String()
	}
	logChannel := "not set"
	if policy.LogChannelID != 0 {
		logChannel = strconv.FormatInt(policy.LogChannelID, 10)
	}
	return fmt.Sprintf("warn threshold: %d\nappeals: %s\nappeal cooldown: %s\nlog channel: %s",
		policy.WarnThreshold, appeals, cooldown, logChannel)
}

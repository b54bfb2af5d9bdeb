package handlers

import (
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	"github.com/iamwavecut/wardenbot/internal/db"
)

// commandTarget is the subject a command acts on plus the argument tail
// that follows the subject reference.
type commandTarget struct {
	userID int64
	rest   string
}

// parseTarget resolves the subject of a command: the replied-to author
// when the command is a reply, otherwise a leading numeric user id in
// the arguments.
func parseTarget(msg *api.Message) (commandTarget, bool) {
	args := strings.TrimSpace(msg.CommandArguments())
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return commandTarget{userID: msg.ReplyToMessage.From.ID, rest: args}, true
	}

	fields := strings.Fields(args)
	if len(fields) == 0 {
		return commandTarget{}, false
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || userID <= 0 {
		return commandTarget{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(args, fields[0]))
	return commandTarget{userID: userID, rest: rest}, true
}

// splitDuration peels a leading duration off the argument tail. A tail
// without one leaves the whole tail as the reason and the mute
// indefinite.
func splitDuration(rest string) (time.Duration, string) {
	rest = strings.TrimSpace(rest)
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, ""
	}
	duration, err := time.ParseDuration(fields[0])
	if err != nil || duration <= 0 {
		return 0, rest
	}
	return duration, strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
}

func reasonOrDefault(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "no reason given"
	}
	return reason
}

var errPolicyUsage = errors.New("usage: /policy [threshold <n> | appeals on|off | cooldown <hours> | logchannel <chat id>|off | reset]")

// applyPolicyChange patches one override field on the stored policy row.
// Returned errors are user-facing usage messages.
func applyPolicyChange(policy *db.CommunityPolicy, fields []string) error {
	switch fields[0] {
	case "reset":
		*policy = *db.DefaultCommunityPolicy(policy.CommunityID)
	case "threshold":
		if len(fields) != 2 {
			return errPolicyUsage
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return errors.New("threshold must be a positive number")
		}
		policy.WarnThreshold = n
	case "appeals":
		if len(fields) != 2 {
			return errPolicyUsage
		}
		switch fields[1] {
		case "on":
			policy.AllowAppeals = 1
		case "off":
			policy.AllowAppeals = 0
		default:
			return errPolicyUsage
		}
	case "cooldown":
		if len(fields) != 2 {
			return errPolicyUsage
		}
		hours, err := parseCooldownHours(fields[1])
		if err != nil {
			return err
		}
		policy.AppealCooldownHours = hours
	case "logchannel":
		if len(fields) != 2 {
			return errPolicyUsage
		}
		if fields[1] == "off" {
			policy.LogChannelID = 0
			break
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return errors.New("log channel must be a chat id or off")
		}
		policy.LogChannelID = id
	default:
		return errPolicyUsage
	}
	return nil
}

// parseCooldownHours accepts a whole number of hours or a duration like
// 24h, truncating to hours either way.
func parseCooldownHours(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, errors.New("cooldown cannot be negative")
		}
		return n, nil
	}
	duration, err := time.ParseDuration(raw)
	if err != nil || duration < 0 {
		return 0, errors.New("cooldown must be a number of hours or a duration like 24h")
	}
	return int(duration / time.Hour), nil
}

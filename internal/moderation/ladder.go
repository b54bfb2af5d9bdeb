package moderation

import (
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v2"
)

type PunishmentAction string

const (
	ActionMute PunishmentAction = "mute"
	ActionBan  PunishmentAction = "ban"
)

// Punishment is one rung of the escalation ladder. Duration is zero for
// permanent punishments.
type Punishment struct {
	Action     PunishmentAction
	Duration   time.Duration
	Appealable bool
}

func TempMute(duration time.Duration, appealable bool) Punishment {
	return Punishment{Action: ActionMute, Duration: duration, Appealable: appealable}
}

func PermBan(appealable bool) Punishment {
	return Punishment{Action: ActionBan, Appealable: appealable}
}

// Ladder is the ordered list of punishments applied past the warning
// threshold. Tier indexes beyond the end clamp to the last entry.
type Ladder struct {
	tiers []Punishment
}

func NewLadder(tiers ...Punishment) (*Ladder, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("ladder needs at least one tier")
	}
	for i, tier := range tiers {
		switch tier.Action {
		case ActionMute:
			if tier.Duration <= 0 {
				return nil, fmt.Errorf("ladder tier %d: mute needs a positive duration", i+1)
			}
		case ActionBan:
			if tier.Duration != 0 {
				return nil, fmt.Errorf("ladder tier %d: ban cannot carry a duration", i+1)
			}
		default:
			return nil, fmt.Errorf("ladder tier %d: unknown action %q", i+1, tier.Action)
		}
	}
	return &Ladder{tiers: tiers}, nil
}

// Tier returns the punishment for a 1-based index past the threshold.
func (l *Ladder) Tier(index int) Punishment {
	if index < 1 {
		index = 1
	}
	if index > len(l.tiers) {
		index = len(l.tiers)
	}
	return l.tiers[index-1]
}

func (l *Ladder) Len() int { return len(l.tiers) }

type ladderFile struct {
	Tiers []struct {
		Action     string `yaml:"action"`
		Duration   string `yaml:"duration"`
		Appealable bool   `yaml:"appealable"`
	} `yaml:"tiers"`
}

// LoadLadder parses an escalation ladder resource. A malformed resource
// is a startup failure, never a silent fallback.
func LoadLadder(fsys fs.FS, name string) (*Ladder, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read ladder resource %s: %w", name, err)
	}

	var file ladderFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse ladder resource %s: %w", name, err)
	}

	tiers := make([]Punishment, 0, len(file.Tiers))
	for i, entry := range file.Tiers {
		tier := Punishment{
			Action:     PunishmentAction(entry.Action),
			Appealable: entry.Appealable,
		}
		if entry.Duration != "" {
			duration, err := time.ParseDuration(entry.Duration)
			if err != nil {
				return nil, fmt.Errorf("ladder tier %d: parse duration %q: %w", i+1, entry.Duration, err)
			}
			tier.Duration = duration
		}
		tiers = append(tiers, tier)
	}
	return NewLadder(tiers...)
}

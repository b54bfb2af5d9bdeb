package moderation

import (
	"testing"
	"testing/fstest"
	"time"
)

func TestLadderTierClampsBothEnds(t *testing.T) {
	t.Parallel()

	ladder := testLadder(t)

	tests := []struct {
		name           string
		index          int
		wantAction     PunishmentAction
		wantDuration   time.Duration
		wantAppealable bool
	}{
		{name: "below range clamps to first", index: 0, wantAction: ActionMute, wantDuration: 2 * time.Hour, wantAppealable: true},
		{name: "first tier", index: 1, wantAction: ActionMute, wantDuration: 2 * time.Hour, wantAppealable: true},
		{name: "second tier", index: 2, wantAction: ActionMute, wantDuration: 24 * time.Hour, wantAppealable: true},
		{name: "third tier", index: 3, wantAction: ActionBan, wantDuration: 0, wantAppealable: true},
		{name: "fourth tier", index: 4, wantAction: ActionBan, wantDuration: 0, wantAppealable: false},
		{name: "beyond range clamps to last", index: 9, wantAction: ActionBan, wantDuration: 0, wantAppealable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tier := ladder.Tier(tt.index)
			if tier.Action != tt.wantAction || tier.Duration != tt.wantDuration || tier.Appealable != tt.wantAppealable {
				t.Fatalf("unexpected tier %d: got %#v", tt.index, tier)
			}
		})
	}
}

func TestNewLadderValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tiers   []Punishment
		wantErr bool
	}{
		{name: "empty ladder", tiers: nil, wantErr: true},
		{name: "mute without duration", tiers: []Punishment{{Action: ActionMute}}, wantErr: true},
		{name: "ban with duration", tiers: []Punishment{{Action: ActionBan, Duration: time.Hour}}, wantErr: true},
		{name: "unknown action", tiers: []Punishment{{Action: "exile", Duration: time.Hour}}, wantErr: true},
		{name: "valid single tier", tiers: []Punishment{TempMute(time.Hour, true)}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewLadder(tt.tiers...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected validation result: err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadLadderParsesResource(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"escalation.yml": &fstest.MapFile{Data: []byte(`tiers:
  - action: mute
    duration: 2h
    appealable: true
  - action: mute
    duration: 24h
    appealable: true
  - action: ban
    appealable: true
  - action: ban
    appealable: false
`)},
	}

	ladder, err := LoadLadder(fsys, "escalation.yml")
	if err != nil {
		t.Fatalf("LoadLadder returned error: %v", err)
	}
	if ladder.Len() != 4 {
		t.Fatalf("unexpected tier count: got %d want 4", ladder.Len())
	}
	first := ladder.Tier(1)
	if first.Action != ActionMute || first.Duration != 2*time.Hour || !first.Appealable {
		t.Fatalf("unexpected first tier: %#v", first)
	}
	last := ladder.Tier(4)
	if last.Action != ActionBan || last.Duration != 0 || last.Appealable {
		t.Fatalf("unexpected last tier: %#v", last)
	}
}

func TestLoadLadderRejectsBrokenResources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "not yaml", data: "{{nope"},
		{name: "bad duration", data: "tiers:\n  - action: mute\n    duration: soon\n"},
		{name: "no tiers", data: "tiers: []\n"},
		{name: "unknown action", data: "tiers:\n  - action: exile\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fsys := fstest.MapFS{"escalation.yml": &fstest.MapFile{Data: []byte(tt.data)}}
			if _, err := LoadLadder(fsys, "escalation.yml"); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}

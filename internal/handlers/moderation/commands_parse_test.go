package handlers

import (
	"strings"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/wardenbot/internal/db"
)

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		replyTo  *api.Message
		wantOK   bool
		wantUser int64
		wantRest string
	}{
		{
			name:     "reply resolves subject",
			text:     "/warn spamming links",
			replyTo:  &api.Message{From: &api.User{ID: 99}},
			wantOK:   true,
			wantUser: 99,
			wantRest: "spamming links",
		},
		{
			name:     "leading id resolves subject",
			text:     "/warn 1234 spamming links",
			wantOK:   true,
			wantUser: 1234,
			wantRest: "spamming links",
		},
		{
			name:     "id without tail",
			text:     "/warn 1234",
			wantOK:   true,
			wantUser: 1234,
			wantRest: "",
		},
		{
			name:   "no subject",
			text:   "/warn",
			wantOK: false,
		},
		{
			name:   "word instead of id",
			text:   "/warn somebody",
			wantOK: false,
		},
		{
			name:   "negative id",
			text:   "/warn -5 spam",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := commandMessage(tt.text)
			msg.ReplyToMessage = tt.replyTo

			target, ok := parseTarget(msg)
			if ok != tt.wantOK {
				t.Fatalf("parseTarget ok = %t, want %t", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if target.userID != tt.wantUser || target.rest != tt.wantRest {
				t.Fatalf("parseTarget = (%d, %q), want (%d, %q)", target.userID, target.rest, tt.wantUser, tt.wantRest)
			}
		})
	}
}

func TestSplitDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rest         string
		wantDuration time.Duration
		wantReason   string
	}{
		{rest: "2h too noisy", wantDuration: 2 * time.Hour, wantReason: "too noisy"},
		{rest: "30m", wantDuration: 30 * time.Minute, wantReason: ""},
		{rest: "1h30m cool off", wantDuration: 90 * time.Minute, wantReason: "cool off"},
		{rest: "being rude", wantDuration: 0, wantReason: "being rude"},
		{rest: "-5m sneaky", wantDuration: 0, wantReason: "-5m sneaky"},
		{rest: "", wantDuration: 0, wantReason: ""},
	}

	for _, tt := range tests {
		t.Run(tt.rest, func(t *testing.T) {
			t.Parallel()
			duration, reason := splitDuration(tt.rest)
			if duration != tt.wantDuration || reason != tt.wantReason {
				t.Fatalf("splitDuration(%q) = (%v, %q), want (%v, %q)", tt.rest, duration, reason, tt.wantDuration, tt.wantReason)
			}
		})
	}
}

func TestApplyPolicyChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fields  []string
		wantErr string
		check   func(*db.CommunityPolicy) bool
	}{
		{
			name:   "threshold",
			fields: []string{"threshold", "5"},
			check:  func(p *db.CommunityPolicy) bool { return p.WarnThreshold == 5 },
		},
		{
			name:    "threshold rejects zero",
			fields:  []string{"threshold", "0"},
			wantErr: "positive",
		},
		{
			name:   "appeals on",
			fields: []string{"appeals", "on"},
			check:  func(p *db.CommunityPolicy) bool { return p.AllowAppeals == 1 },
		},
		{
			name:   "appeals off",
			fields: []string{"appeals", "off"},
			check:  func(p *db.CommunityPolicy) bool { return p.AllowAppeals == 0 },
		},
		{
			name:    "appeals junk",
			fields:  []string{"appeals", "maybe"},
			wantErr: "usage:",
		},
		{
			name:   "cooldown hours",
			fields: []string{"cooldown", "12"},
			check:  func(p *db.CommunityPolicy) bool { return p.AppealCooldownHours == 12 },
		},
		{
			name:   "cooldown duration",
			fields: []string{"cooldown", "48h"},
			check:  func(p *db.CommunityPolicy) bool { return p.AppealCooldownHours == 48 },
		},
		{
			name:    "cooldown negative",
			fields:  []string{"cooldown", "-3"},
			wantErr: "negative",
		},
		{
			name:   "log channel",
			fields: []string{"logchannel", "-1009999"},
			check:  func(p *db.CommunityPolicy) bool { return p.LogChannelID == -1009999 },
		},
		{
			name:   "log channel off",
			fields: []string{"logchannel", "off"},
			check:  func(p *db.CommunityPolicy) bool { return p.LogChannelID == 0 },
		},
		{
			name:   "reset",
			fields: []string{"reset"},
			check:  func(p *db.CommunityPolicy) bool { return p.WarnThreshold == db.PolicyOverrideInherit },
		},
		{
			name:    "unknown field",
			fields:  []string{"verbosity", "11"},
			wantErr: "usage:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			policy := db.DefaultCommunityPolicy(-100500)
			policy.WarnThreshold = 2
			policy.LogChannelID = -1001

			err := applyPolicyChange(policy, tt.fields)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("got error %v, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("applyPolicyChange returned error: %v", err)
			}
			if !tt.check(policy) {
				t.Fatalf("unexpected policy after change: %+v", policy)
			}
		})
	}
}

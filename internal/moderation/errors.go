package moderation

import "errors"

var (
	ErrInfractionNotFound   = errors.New("infraction not found")
	ErrAppealNotFound       = errors.New("appeal not found")
	ErrAppealsDisabled      = errors.New("appeals are disabled")
	ErrAppealAlreadyPending = errors.New("appeal already pending")
	ErrAlreadyResolved      = errors.New("appeal already resolved")
	ErrAppealCooldown       = errors.New("appeal cooldown in effect")
	ErrNotAppealable        = errors.New("infraction is not appealable")
	ErrNoActiveMute         = errors.New("no active mute")
	ErrNoActiveBan          = errors.New("no active ban")

	// ErrNoPrivileges and ErrTargetNotFound are produced by actuator
	// implementations when the platform rejects a moderation call.
	ErrNoPrivileges   = errors.New("no privileges")
	ErrTargetNotFound = errors.New("target not found")
)

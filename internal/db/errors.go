package db

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicateID = errors.New("duplicate id")

	// ErrAppealPending surfaces the partial unique index guarding one
	// pending appeal per (community, user). The workflow pre-checks the
	// same condition; this is the durable backstop for races.
	ErrAppealPending = errors.New("pending appeal exists")
)

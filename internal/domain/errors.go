package domain

import "github.com/cockroachdb/errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")

	ErrNoEventSelected = errors.New("select an event before scanning")
	ErrBusy            = errors.New("scan dropped: previous scan not finished")
	ErrCooldown        = errors.New("scan dropped: same code within cooldown")
)

package forkset

import "errors"

var (
	// ErrForkExtend is returned when a block's parent hash does not match the
	// head of the fork it tries to extend. The fork is left unchanged.
	ErrForkExtend = errors.New("forkset: block does not extend fork head")

	ErrUnknownFork = errors.New("forkset: unknown fork id")
)

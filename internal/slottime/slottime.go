// Package slottime maps wall-clock time onto the chain's discrete slot grid.
package slottime

import (
	"time"
)

var now = time.Now

const SlotDuration = 6 * time.Second

// ChainEpoch is the instant of slot zero.
// 2024-01-01 12:00:00 UTC
var ChainEpoch = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// Timeslot is a discrete consensus time unit. At most one canonical block is
// expected per timeslot.
type Timeslot uint64

// Current returns the timeslot the wall clock is in right now.
func Current() Timeslot {
	return FromTime(now())
}

// FromTime converts a wall-clock instant to its timeslot. Instants before the
// chain epoch map to slot zero.
func FromTime(t time.Time) Timeslot {
	if t.Before(ChainEpoch) {
		return 0
	}
	return Timeslot(t.Sub(ChainEpoch) / SlotDuration)
}

// Start returns the wall-clock instant the timeslot begins.
func (ts Timeslot) Start() time.Time {
	return ChainEpoch.Add(time.Duration(ts) * SlotDuration)
}

// Next returns the following timeslot.
func (ts Timeslot) Next() Timeslot {
	return ts + 1
}

// UntilNext returns the duration from now until the next slot boundary.
func UntilNext() time.Duration {
	t := now()
	next := FromTime(t).Next().Start()
	return next.Sub(t)
}

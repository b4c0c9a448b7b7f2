package slottime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTime(t *testing.T) {
	assert.Equal(t, Timeslot(0), FromTime(ChainEpoch))
	assert.Equal(t, Timeslot(0), FromTime(ChainEpoch.Add(SlotDuration-time.Nanosecond)))
	assert.Equal(t, Timeslot(1), FromTime(ChainEpoch.Add(SlotDuration)))
	assert.Equal(t, Timeslot(10), FromTime(ChainEpoch.Add(10*SlotDuration)))
}

func TestFromTimeBeforeEpoch(t *testing.T) {
	assert.Equal(t, Timeslot(0), FromTime(ChainEpoch.Add(-time.Hour)))
}

func TestStartRoundTrip(t *testing.T) {
	ts := Timeslot(12345)
	require.Equal(t, ts, FromTime(ts.Start()))
}

func TestUntilNext(t *testing.T) {
	fixed := ChainEpoch.Add(4 * time.Second)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	require.Equal(t, 2*time.Second, UntilNext())
}

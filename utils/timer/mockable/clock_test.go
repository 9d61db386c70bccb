// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mockable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockSet(t *testing.T) {
	require := require.New(t)

	clock := Clock{}
	clock.Set(time.Unix(1000000, 0))
	require.Equal(time.Unix(1000000, 0), clock.Time())
	require.Equal(uint64(1000000), clock.Unix())

	clock.Sync()
	require.WithinDuration(time.Now(), clock.Time(), time.Second)
}

func TestClockAdvance(t *testing.T) {
	require := require.New(t)

	clock := Clock{}
	clock.Set(time.Unix(10, 0))
	clock.Advance(3591 * time.Second)
	require.Equal(uint64(3601), clock.Unix())
}

func TestClockUnixClampsNegative(t *testing.T) {
	clock := Clock{}
	clock.Set(time.Unix(-5, 0))
	require.Zero(t, clock.Unix())
}

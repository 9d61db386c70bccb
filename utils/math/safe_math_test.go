// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package math

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	require := require.New(t)

	sum, err := Add[uint64](3600, 0)
	require.NoError(err)
	require.Equal(uint64(3600), sum)

	_, err = Add[uint64](math.MaxUint64, 1)
	require.ErrorIs(err, ErrOverflow)

	_, err = Add[uint8](200, 56)
	require.ErrorIs(err, ErrOverflow)
}

func TestSub(t *testing.T) {
	require := require.New(t)

	diff, err := Sub[uint64](10, 3)
	require.NoError(err)
	require.Equal(uint64(7), diff)

	_, err = Sub[uint64](3, 10)
	require.ErrorIs(err, ErrUnderflow)
}

func TestAmounts(t *testing.T) {
	require := require.New(t)

	maxAmount := new(uint256.Int).SetAllOne()

	sum, err := AddAmount(uint256.NewInt(1), uint256.NewInt(2))
	require.NoError(err)
	require.Equal(uint256.NewInt(3), sum)

	_, err = AddAmount(maxAmount, uint256.NewInt(1))
	require.ErrorIs(err, ErrOverflow)

	diff, err := SubAmount(uint256.NewInt(5), uint256.NewInt(5))
	require.NoError(err)
	require.True(diff.IsZero())

	_, err = SubAmount(uint256.NewInt(1), uint256.NewInt(2))
	require.ErrorIs(err, ErrUnderflow)
}

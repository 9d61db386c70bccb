// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/stretchr/testify/require"
)

func TestVoteLedger(t *testing.T) {
	require := require.New(t)
	ledger := NewVoteLedger(memdb.New())

	voted, err := ledger.HasVoted(1, voterA)
	require.NoError(err)
	require.False(voted)

	require.NoError(ledger.Record(1, voterA))
	require.ErrorIs(ledger.Record(1, voterA), ErrAlreadyVoted)

	// votes are scoped to a proposal
	require.NoError(ledger.Record(2, voterA))
	require.NoError(ledger.Record(1, voterB))

	voted, err = ledger.HasVoted(1, voterB)
	require.NoError(err)
	require.True(voted)
	voted, err = ledger.HasVoted(2, voterB)
	require.NoError(err)
	require.False(voted)

	n, err := ledger.Voters(1)
	require.NoError(err)
	require.Equal(uint64(2), n)
	n, err = ledger.Voters(2)
	require.NoError(err)
	require.Equal(uint64(1), n)
	n, err = ledger.Voters(3)
	require.NoError(err)
	require.Zero(n)
}

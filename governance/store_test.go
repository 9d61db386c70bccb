// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func newTestStore() *ProposalStore {
	db := memdb.New()
	return NewProposalStore(
		prefixdb.New(proposalPrefix, db),
		prefixdb.New(metaPrefix, db),
		lru.NewCache[uint64, *Proposal](16),
	)
}

func TestProposalStoreLifecycle(t *testing.T) {
	require := require.New(t)
	store := newTestStore()

	_, err := store.Get(firstProposalID)
	require.ErrorIs(err, ErrNotFound)

	yes, no := ids.GenerateTestID(), ids.GenerateTestID()
	p, err := store.Create("title", 30, proposer, 5, uint256.NewInt(7), yes, no)
	require.NoError(err)
	require.Equal(firstProposalID, p.ID)
	require.Equal(uint64(35), p.Expiration)

	open, err := store.OpenCount()
	require.NoError(err)
	require.Equal(uint64(1), open)

	got, err := store.Get(p.ID)
	require.NoError(err)
	require.Equal(p, got)

	// callers receive copies
	got.Title = "changed"
	again, err := store.Get(p.ID)
	require.NoError(err)
	require.Equal("title", again.Title)

	newYes, newNo := ids.GenerateTestID(), ids.GenerateTestID()
	require.NoError(store.UpdateTally(again, newYes, newNo))

	ended, err := store.HasVotingEnded(p.ID, 34)
	require.NoError(err)
	require.False(ended)
	ended, err = store.HasVotingEnded(p.ID, 35)
	require.NoError(err)
	require.True(ended)

	result := ids.GenerateTestID()
	require.NoError(store.MarkEnded(again, result))
	store.Flush()

	final, err := store.Get(p.ID)
	require.NoError(err)
	require.Equal(newYes, final.EncryptedYes)
	require.Equal(newNo, final.EncryptedNo)
	require.Equal(result, final.EncryptedResult)
	require.Equal(StatusEnded, final.Status)

	open, err = store.OpenCount()
	require.NoError(err)
	require.Zero(open)
}

func TestProposalStoreInvalidDuration(t *testing.T) {
	require := require.New(t)
	store := newTestStore()

	_, err := store.Create("zero", 0, proposer, 0, uint256.NewInt(0), ids.Empty, ids.Empty)
	require.ErrorIs(err, ErrInvalidDuration)

	_, err = store.Create("overflow", ^uint64(0), proposer, 1, uint256.NewInt(0), ids.Empty, ids.Empty)
	require.ErrorIs(err, ErrInvalidDuration)

	next, err := store.NextID()
	require.NoError(err)
	require.Equal(firstProposalID, next)
}

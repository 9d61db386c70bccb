// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
)

var voteMarker = []byte{1}

// VoteLedger records which addresses have voted on which proposal. Records
// are write-once and never removed.
type VoteLedger struct {
	db database.Database
}

func NewVoteLedger(db database.Database) *VoteLedger {
	return &VoteLedger{db: db}
}

// voteKey is proposalID (8 bytes, big endian) followed by the voter.
func voteKey(proposalID uint64, voter common.Address) []byte {
	key := make([]byte, 8, 8+common.AddressLength)
	binary.BigEndian.PutUint64(key, proposalID)
	return append(key, voter[:]...)
}

// HasVoted reports whether voter has a record for proposalID.
func (l *VoteLedger) HasVoted(proposalID uint64, voter common.Address) (bool, error) {
	return l.db.Has(voteKey(proposalID, voter))
}

// Record inserts the (proposalID, voter) record, failing with
// ErrAlreadyVoted if it exists.
func (l *VoteLedger) Record(proposalID uint64, voter common.Address) error {
	key := voteKey(proposalID, voter)
	has, err := l.db.Has(key)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("%w: %s on proposal %d", ErrAlreadyVoted, voter, proposalID)
	}
	return l.db.Put(key, voteMarker)
}

// Voters returns how many records exist for proposalID.
func (l *VoteLedger) Voters(proposalID uint64) (uint64, error) {
	it := l.db.NewIteratorWithPrefix(binary.BigEndian.AppendUint64(nil, proposalID))
	defer it.Release()

	var n uint64
	for it.Next() {
		n++
	}
	return n, it.Error()
}

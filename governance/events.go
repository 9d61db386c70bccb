// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
)

var eventSeqKey = []byte("eventSeq")

// EventKind identifies what an Event reports.
type EventKind uint8

const (
	EventProposalCreated EventKind = iota
	EventVoteCast
	EventVotingEnded
	EventFeeChanged
	EventFeesWithdrawn
	EventOwnershipTransferred
	EventDecryptionAuthorized
)

func (k EventKind) String() string {
	switch k {
	case EventProposalCreated:
		return "ProposalCreated"
	case EventVoteCast:
		return "VoteCast"
	case EventVotingEnded:
		return "VotingEnded"
	case EventFeeChanged:
		return "FeeChanged"
	case EventFeesWithdrawn:
		return "FeesWithdrawn"
	case EventOwnershipTransferred:
		return "OwnershipTransferred"
	case EventDecryptionAuthorized:
		return "DecryptionAuthorized"
	default:
		return "Unknown"
	}
}

// Event is a notification produced by a successful operation. A VoteCast
// event names the voter but never the choice.
type Event struct {
	Seq        uint64         `serialize:"true" json:"seq"`
	Kind       EventKind      `serialize:"true" json:"kind"`
	Timestamp  uint64         `serialize:"true" json:"timestamp"`
	ProposalID uint64         `serialize:"true" json:"proposalID,omitempty"`
	Title      string         `serialize:"true" json:"title,omitempty"`
	Expiration uint64         `serialize:"true" json:"expiration,omitempty"`
	Account    common.Address `serialize:"true" json:"account"`
	Amount     uint256.Int    `serialize:"true" json:"amount"`
}

// EventLog appends events under increasing sequence numbers in the same
// transaction as the change they describe.
type EventLog struct {
	db      database.Database
	meta    database.Database
	pending []*Event
}

func NewEventLog(db, meta database.Database) *EventLog {
	return &EventLog{
		db:   db,
		meta: meta,
	}
}

func eventKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

func (l *EventLog) nextSeq() (uint64, error) {
	seq, err := database.GetUInt64(l.meta, eventSeqKey)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return seq, err
}

// Append assigns e the next sequence number and stores it.
func (l *EventLog) Append(e *Event) error {
	seq, err := l.nextSeq()
	if err != nil {
		return err
	}
	e.Seq = seq
	bytes, err := Codec.Marshal(codecVersion, e)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", e.Kind, err)
	}
	if err := l.db.Put(eventKey(seq), bytes); err != nil {
		return err
	}
	if err := database.PutUInt64(l.meta, eventSeqKey, seq+1); err != nil {
		return err
	}
	l.pending = append(l.pending, e)
	return nil
}

// Pending returns the events appended through this log.
func (l *EventLog) Pending() []*Event {
	return l.pending
}

// List returns up to limit events starting at sequence number start.
func (l *EventLog) List(start uint64, limit int) ([]*Event, error) {
	it := l.db.NewIteratorWithStart(eventKey(start))
	defer it.Release()

	var events []*Event
	for len(events) < limit && it.Next() {
		e := &Event{}
		if _, err := Codec.Unmarshal(it.Value(), e); err != nil {
			return nil, fmt.Errorf("failed to parse event: %w", err)
		}
		events = append(events, e)
	}
	return events, it.Error()
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// ProposalStatus is the lifecycle stage of a proposal. A proposal moves from
// StatusOpen to StatusEnded exactly once and never back.
type ProposalStatus uint8

const (
	StatusOpen ProposalStatus = iota
	StatusEnded
)

func (s ProposalStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Proposal is the persisted record of one proposal. Only the accumulator
// handles change while it is open; EncryptedResult and Status change once,
// when voting ends.
type Proposal struct {
	ID              uint64         `serialize:"true" json:"id"`
	Title           string         `serialize:"true" json:"title"`
	Proposer        common.Address `serialize:"true" json:"proposer"`
	CreatedAt       uint64         `serialize:"true" json:"createdAt"`
	Expiration      uint64         `serialize:"true" json:"expiration"`
	FeePaid         uint256.Int    `serialize:"true" json:"feePaid"`
	EncryptedYes    ids.ID         `serialize:"true" json:"encryptedYes"`
	EncryptedNo     ids.ID         `serialize:"true" json:"encryptedNo"`
	EncryptedResult ids.ID         `serialize:"true" json:"encryptedResult"`
	Status          ProposalStatus `serialize:"true" json:"status"`
}

// IsActive reports whether the proposal still accepts votes, ignoring time.
func (p *Proposal) IsActive() bool {
	return p.Status == StatusOpen
}

// ResultComputed reports whether EncryptedResult holds the final outcome.
func (p *Proposal) ResultComputed() bool {
	return p.Status == StatusEnded
}

// HasVotingEnded reports whether the voting window is closed at now.
func (p *Proposal) HasVotingEnded(now uint64) bool {
	return now >= p.Expiration
}

// Outcome is the decrypted result of a proposal.
type Outcome bool

const (
	Rejected Outcome = false
	Passed   Outcome = true
)

func (o Outcome) String() string {
	if o {
		return "PASSED"
	}
	return "REJECTED"
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/govvm/fhe"
)

// TallyType is the encrypted width of the yes and no accumulators.
const TallyType = fhe.EUint32

// TallyEngine accumulates encrypted votes. It only ever sees handles: the
// choice inside a vote is folded into both accumulators through Select, so
// which one grew is never observable.
type TallyEngine struct {
	arith     fhe.Arithmetic
	proposals *ProposalStore
	ledger    *VoteLedger
}

func NewTallyEngine(arith fhe.Arithmetic, proposals *ProposalStore, ledger *VoteLedger) *TallyEngine {
	return &TallyEngine{
		arith:     arith,
		proposals: proposals,
		ledger:    ledger,
	}
}

// Zero returns a fresh encrypted accumulator.
func (t *TallyEngine) Zero() (ids.ID, error) {
	return t.arith.TrivialEncrypt(0, TallyType)
}

// CastVote folds the encrypted boolean input into the accumulators of p and
// records voter. Every check runs before the first ciphertext operation.
func (t *TallyEngine) CastVote(p *Proposal, voter common.Address, input ids.ID, proof []byte, now uint64) error {
	if !p.IsActive() || p.HasVotingEnded(now) {
		return fmt.Errorf("%w: %d", ErrProposalNotActive, p.ID)
	}
	voted, err := t.ledger.HasVoted(p.ID, voter)
	if err != nil {
		return err
	}
	if voted {
		return fmt.Errorf("%w: %s on proposal %d", ErrAlreadyVoted, voter, p.ID)
	}

	support, err := t.arith.VerifyInput(input, proof, voter, fhe.EBool)
	if err != nil {
		return err
	}

	one, err := t.arith.TrivialEncrypt(1, TallyType)
	if err != nil {
		return err
	}
	zero, err := t.arith.TrivialEncrypt(0, TallyType)
	if err != nil {
		return err
	}
	inc, err := t.arith.Select(support, one, zero)
	if err != nil {
		return fmt.Errorf("select yes increment: %w", err)
	}
	dec, err := t.arith.Select(support, zero, one)
	if err != nil {
		return fmt.Errorf("select no increment: %w", err)
	}
	yes, err := t.arith.Add(p.EncryptedYes, inc)
	if err != nil {
		return fmt.Errorf("accumulate yes: %w", err)
	}
	no, err := t.arith.Add(p.EncryptedNo, dec)
	if err != nil {
		return fmt.Errorf("accumulate no: %w", err)
	}

	if err := t.proposals.UpdateTally(p, yes, no); err != nil {
		return err
	}
	return t.ledger.Record(p.ID, voter)
}

// ComputeResult returns an encrypted yes > no. A tie is false.
func (t *TallyEngine) ComputeResult(p *Proposal) (ids.ID, error) {
	result, err := t.arith.GreaterThan(p.EncryptedYes, p.EncryptedNo)
	if err != nil {
		return ids.Empty, fmt.Errorf("compare tally: %w", err)
	}
	return result, nil
}

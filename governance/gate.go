// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"fmt"
	"math"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/govvm/fhe"

	safemath "github.com/luxfi/govvm/utils/math"
)

// DecryptionGate is the only way a plaintext tally becomes readable. Once a
// proposal has ended, its owner or proposer may obtain permits on the yes,
// no and result handles.
type DecryptionGate struct {
	arith     fhe.Arithmetic
	permitTTL uint64
}

// NewDecryptionGate returns a gate whose permits last permitTTL seconds, or
// forever when permitTTL is 0.
func NewDecryptionGate(arith fhe.Arithmetic, permitTTL uint64) *DecryptionGate {
	return &DecryptionGate{
		arith:     arith,
		permitTTL: permitTTL,
	}
}

// Check validates that requester may decrypt p without granting anything.
func (g *DecryptionGate) Check(p *Proposal, requester, owner common.Address) error {
	if !p.ResultComputed() {
		return fmt.Errorf("%w: proposal %d", ErrResultNotReady, p.ID)
	}
	if requester != owner && requester != p.Proposer {
		return fmt.Errorf("%w: %s may not decrypt proposal %d", ErrUnauthorized, requester, p.ID)
	}
	return nil
}

// Expiry returns when a permit granted at now expires, 0 for never.
func (g *DecryptionGate) Expiry(now uint64) uint64 {
	if g.permitTTL == 0 {
		return 0
	}
	expiry, err := safemath.Add(now, g.permitTTL)
	if err != nil {
		return math.MaxUint64
	}
	return expiry
}

// Authorize grants requester decryption permits, valid until expiry, on
// every ciphertext of p.
func (g *DecryptionGate) Authorize(p *Proposal, requester, owner common.Address, expiry uint64) error {
	if err := g.Check(p, requester, owner); err != nil {
		return err
	}
	for _, handle := range []ids.ID{p.EncryptedYes, p.EncryptedNo, p.EncryptedResult} {
		if err := g.arith.Allow(handle, requester, owner, expiry); err != nil {
			return fmt.Errorf("grant decrypt permit: %w", err)
		}
	}
	return nil
}

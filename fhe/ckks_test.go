// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhe

import (
	"testing"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/govvm/utils/timer/mockable"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	return openTestProcessor(t, memdb.New())
}

func openTestProcessor(t *testing.T, db database.Database) *Processor {
	t.Helper()

	clock := &mockable.Clock{}
	clock.Set(time.Unix(100, 0))
	p, err := NewProcessor(log.NewNoOpLogger(), DefaultCKKSConfig(), db, clock)
	require.NoError(t, err)
	return p
}

func TestDefaultCKKSConfig(t *testing.T) {
	require := require.New(t)

	config := DefaultCKKSConfig()
	require.Equal(13, config.LogN)
	require.Len(config.LogQ, 3)
	require.NotEmpty(config.LogP)
}

func TestProcessorEncryptDecrypt(t *testing.T) {
	require := require.New(t)
	p := newTestProcessor(t)

	h, err := p.TrivialEncrypt(42, EUint32)
	require.NoError(err)
	require.Equal(Plaintext{Type: EUint32, Value: 42}, allowAndDecrypt(t, p, h))
}

// Accumulates votes exactly the way the tally does.
func TestProcessorTally(t *testing.T) {
	require := require.New(t)
	p := newTestProcessor(t)

	one, err := p.TrivialEncrypt(1, EUint32)
	require.NoError(err)
	zero, err := p.TrivialEncrypt(0, EUint32)
	require.NoError(err)
	yes, err := p.TrivialEncrypt(0, EUint32)
	require.NoError(err)
	no, err := p.TrivialEncrypt(0, EUint32)
	require.NoError(err)

	for _, support := range []uint64{1, 1, 0, 1, 0} {
		in, err := p.EncryptInput(support, EBool, alice)
		require.NoError(err)
		vote, err := p.VerifyInput(in.Handle, in.Proof, alice, EBool)
		require.NoError(err)

		inc, err := p.Select(vote, one, zero)
		require.NoError(err)
		dec, err := p.Select(vote, zero, one)
		require.NoError(err)
		yes, err = p.Add(yes, inc)
		require.NoError(err)
		no, err = p.Add(no, dec)
		require.NoError(err)
	}

	require.Equal(uint64(3), allowAndDecrypt(t, p, yes).Value)
	require.Equal(uint64(2), allowAndDecrypt(t, p, no).Value)

	passed, err := p.GreaterThan(yes, no)
	require.NoError(err)
	require.True(allowAndDecrypt(t, p, passed).Bool())

	rejected, err := p.GreaterThan(no, yes)
	require.NoError(err)
	require.False(allowAndDecrypt(t, p, rejected).Bool())

	// a sign-encoded result cannot drive a select
	_, err = p.Select(passed, one, zero)
	require.ErrorIs(err, errNotCanonical)
}

func TestProcessorTie(t *testing.T) {
	require := require.New(t)
	p := newTestProcessor(t)

	a, err := p.TrivialEncrypt(4, EUint32)
	require.NoError(err)
	b, err := p.TrivialEncrypt(4, EUint32)
	require.NoError(err)

	gt, err := p.GreaterThan(a, b)
	require.NoError(err)
	require.False(allowAndDecrypt(t, p, gt).Bool())
}

func TestProcessorSelectEncryptedBranches(t *testing.T) {
	require := require.New(t)
	p := newTestProcessor(t)

	x, err := p.EncryptInput(9, EUint32, alice)
	require.NoError(err)
	y, err := p.EncryptInput(2, EUint32, alice)
	require.NoError(err)
	cond, err := p.EncryptInput(1, EBool, alice)
	require.NoError(err)

	sel, err := p.Select(cond.Handle, x.Handle, y.Handle)
	require.NoError(err)
	require.Equal(uint64(9), allowAndDecrypt(t, p, sel).Value)
}

func TestProcessorAccessControl(t *testing.T) {
	require := require.New(t)
	p := newTestProcessor(t)

	in, err := p.EncryptInput(1, EBool, alice)
	require.NoError(err)

	_, err = p.VerifyInput(in.Handle, in.Proof, bob, EBool)
	require.ErrorIs(err, ErrInvalidProof)

	_, err = p.Decrypt(in.Handle, alice)
	require.ErrorIs(err, ErrNotPermitted)

	err = p.Allow(ids.GenerateTestID(), alice, alice, 0)
	require.ErrorIs(err, ErrUnknownHandle)
}

// Results of the constant select paths feed straight into further
// arithmetic, including another select's branches.
func TestProcessorSelectConstantsChain(t *testing.T) {
	require := require.New(t)
	p := newTestProcessor(t)

	one, err := p.TrivialEncrypt(1, EUint32)
	require.NoError(err)
	zero, err := p.TrivialEncrypt(0, EUint32)
	require.NoError(err)
	seven, err := p.TrivialEncrypt(7, EUint32)
	require.NoError(err)

	cond, err := p.EncryptInput(1, EBool, alice)
	require.NoError(err)

	inc, err := p.Select(cond.Handle, one, zero)
	require.NoError(err)
	dec, err := p.Select(cond.Handle, zero, one)
	require.NoError(err)

	sum, err := p.Add(inc, dec)
	require.NoError(err)
	sum, err = p.Add(sum, seven)
	require.NoError(err)
	require.Equal(uint64(8), allowAndDecrypt(t, p, sum).Value)

	gt, err := p.GreaterThan(inc, dec)
	require.NoError(err)
	require.True(allowAndDecrypt(t, p, gt).Bool())

	sel, err := p.Select(cond.Handle, sum, dec)
	require.NoError(err)
	require.Equal(uint64(8), allowAndDecrypt(t, p, sel).Value)
}

func TestProcessorReopen(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	p := openTestProcessor(t, db)

	in, err := p.EncryptInput(1, EBool, alice)
	require.NoError(err)
	one, err := p.TrivialEncrypt(1, EUint32)
	require.NoError(err)
	zero, err := p.TrivialEncrypt(0, EUint32)
	require.NoError(err)
	tally, err := p.Select(in.Handle, one, zero)
	require.NoError(err)
	require.NoError(p.Allow(tally, alice, alice, 0))

	reopened := openTestProcessor(t, db)

	// keys, ciphertexts, permits and input proofs all carry over
	_, err = reopened.VerifyInput(in.Handle, in.Proof, alice, EBool)
	require.NoError(err)
	pt, err := reopened.Decrypt(tally, alice)
	require.NoError(err)
	require.Equal(Plaintext{Type: EUint32, Value: 1}, pt)

	sum, err := reopened.Add(tally, one)
	require.NoError(err)
	require.NotContains([]ids.ID{in.Handle, one, zero, tally}, sum)
	require.Equal(uint64(2), allowAndDecrypt(t, reopened, sum).Value)

	_, err = reopened.Add(ids.GenerateTestID(), one)
	require.ErrorIs(err, ErrUnknownHandle)
}

func TestProcessorReopenWithOtherConfig(t *testing.T) {
	db := memdb.New()
	openTestProcessor(t, db)

	config := DefaultCKKSConfig()
	config.LogDefaultScale = 40
	_, err := NewProcessor(log.NewNoOpLogger(), config, db, &mockable.Clock{})
	require.ErrorIs(t, err, errConfigMismatch)
}

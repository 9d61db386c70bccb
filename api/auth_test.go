// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"testing"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/utils/json"
	"github.com/stretchr/testify/require"
)

var testChainID = ids.ID{'g', 'o', 'v'}

func TestAddress(t *testing.T) {
	require := require.New(t)

	b := make([]byte, secp256k1.PrivateKeyLen)
	b[len(b)-1] = 1
	key, err := secp256k1.ToPrivateKey(b)
	require.NoError(err)
	require.Equal(
		common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"),
		Address(key.PublicKey()),
	)
}

func TestAuthenticate(t *testing.T) {
	require := require.New(t)

	key, err := secp256k1.NewPrivateKey()
	require.NoError(err)
	from := Address(key.PublicKey())
	auth := NewAuthenticator(testChainID, memdb.New())

	next, err := auth.NextNonce(from)
	require.NoError(err)
	require.Zero(next)

	args := &SetProposalFeeArgs{Fee: "10"}
	require.NoError(Sign(testChainID, MethodSetProposalFee, args, key))
	require.Equal(from, args.Auth.From)

	signer, err := auth.Authenticate(MethodSetProposalFee, args)
	require.NoError(err)
	require.Equal(from, signer)

	next, err = auth.NextNonce(from)
	require.NoError(err)
	require.Equal(uint64(1), next)

	// replay
	_, err = auth.Authenticate(MethodSetProposalFee, args)
	require.ErrorIs(err, ErrStaleNonce)

	// nonces may skip ahead
	args.Auth.Nonce = 5
	require.NoError(Sign(testChainID, MethodSetProposalFee, args, key))
	_, err = auth.Authenticate(MethodSetProposalFee, args)
	require.NoError(err)

	args.Auth.Nonce = 4
	require.NoError(Sign(testChainID, MethodSetProposalFee, args, key))
	_, err = auth.Authenticate(MethodSetProposalFee, args)
	require.ErrorIs(err, ErrStaleNonce)
}

func TestAuthenticateRejectsForgeries(t *testing.T) {
	key, err := secp256k1.NewPrivateKey()
	require.NoError(t, err)
	other, err := secp256k1.NewPrivateKey()
	require.NoError(t, err)

	tests := []struct {
		name        string
		chainID     ids.ID
		method      string
		tamper      func(*SetProposalFeeArgs)
		expectedErr error
	}{
		{
			name:        "missing signature",
			method:      MethodSetProposalFee,
			tamper:      func(a *SetProposalFeeArgs) { a.Auth.Signature = nil },
			expectedErr: ErrMissingSignature,
		},
		{
			name:        "modified request",
			method:      MethodSetProposalFee,
			tamper:      func(a *SetProposalFeeArgs) { a.Fee = "0" },
			expectedErr: ErrInvalidSignature,
		},
		{
			name:        "modified nonce",
			method:      MethodSetProposalFee,
			tamper:      func(a *SetProposalFeeArgs) { a.Auth.Nonce = json.Uint64(7) },
			expectedErr: ErrInvalidSignature,
		},
		{
			name:        "claimed sender",
			method:      MethodSetProposalFee,
			tamper:      func(a *SetProposalFeeArgs) { a.Auth.From = Address(other.PublicKey()) },
			expectedErr: ErrInvalidSignature,
		},
		{
			name:        "other method",
			method:      MethodWithdrawFees,
			tamper:      func(*SetProposalFeeArgs) {},
			expectedErr: ErrInvalidSignature,
		},
		{
			name:        "other chain",
			chainID:     ids.ID{'x'},
			method:      MethodSetProposalFee,
			tamper:      func(*SetProposalFeeArgs) {},
			expectedErr: ErrInvalidSignature,
		},
		{
			name:        "truncated signature",
			method:      MethodSetProposalFee,
			tamper:      func(a *SetProposalFeeArgs) { a.Auth.Signature = a.Auth.Signature[:10] },
			expectedErr: ErrInvalidSignature,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			args := &SetProposalFeeArgs{Fee: "10"}
			require.NoError(Sign(testChainID, MethodSetProposalFee, args, key))
			test.tamper(args)

			chainID := testChainID
			if test.chainID != ids.Empty {
				chainID = test.chainID
			}
			_, err := NewAuthenticator(chainID, memdb.New()).Authenticate(test.method, args)
			require.ErrorIs(err, test.expectedErr)
		})
	}
}

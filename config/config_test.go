// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/govvm/governance"
)

func TestParseConfigEmpty(t *testing.T) {
	require := require.New(t)

	cfg, err := ParseConfig(nil)
	require.NoError(err)
	require.Equal(DefaultConfig, cfg)
}

func TestParseConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := ParseConfig([]byte(`{
		"owner": "0x1000000000000000000000000000000000000001",
		"proposalFee": "1000000000000000000",
		"feePolicy": "refund",
		"allocations": [
			{"address": "0x2000000000000000000000000000000000000002", "balance": "5000000000000000000"}
		],
		"fhe": {"backend": "ckks", "permitTTL": 0}
	}`))
	require.NoError(err)

	// unset fields keep their defaults
	require.Equal(DefaultConfig.FHE.CKKS, cfg.FHE.CKKS)
	require.Equal(DefaultConfig.HTTPPort, cfg.HTTPPort)
	require.Equal(BackendCKKS, cfg.FHE.Backend)

	gov, err := cfg.Governance()
	require.NoError(err)
	require.Equal(common.HexToAddress("0x1000000000000000000000000000000000000001"), gov.Owner)
	require.Equal(uint256.NewInt(1_000_000_000_000_000_000), gov.ProposalFee)
	require.Equal(governance.FeePolicyRefund, gov.FeePolicy)
	require.Zero(gov.PermitTTL)
	require.Equal(
		uint256.NewInt(5_000_000_000_000_000_000),
		gov.Allocations[common.HexToAddress("0x2000000000000000000000000000000000000002")],
	)
}

func TestParseConfigInvalid(t *testing.T) {
	const owner = `"owner": "0x1000000000000000000000000000000000000001"`
	tests := []struct {
		name        string
		config      string
		expectedErr error
	}{
		{
			name:        "missing owner",
			config:      `{"proposalFee": "1"}`,
			expectedErr: ErrMissingOwner,
		},
		{
			name:        "negative fee",
			config:      `{` + owner + `, "proposalFee": "-1"}`,
			expectedErr: ErrInvalidAmount,
		},
		{
			name:        "unknown fee policy",
			config:      `{` + owner + `, "feePolicy": "keep"}`,
			expectedErr: governance.ErrInvalidFeePolicy,
		},
		{
			name:        "unknown backend",
			config:      `{` + owner + `, "fhe": {"backend": "tfhe"}}`,
			expectedErr: ErrUnknownBackend,
		},
		{
			name:        "negative cache size",
			config:      `{` + owner + `, "cacheSize": -1}`,
			expectedErr: ErrInvalidCacheSize,
		},
		{
			name: "duplicate allocation",
			config: `{` + owner + `, "allocations": [
				{"address": "0x2000000000000000000000000000000000000002", "balance": "1"},
				{"address": "0x2000000000000000000000000000000000000002", "balance": "2"}
			]}`,
			expectedErr: ErrDuplicateAllocation,
		},
		{
			name: "bad allocation balance",
			config: `{` + owner + `, "allocations": [
				{"address": "0x2000000000000000000000000000000000000002", "balance": "lots"}
			]}`,
			expectedErr: ErrInvalidAmount,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(test.config))
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

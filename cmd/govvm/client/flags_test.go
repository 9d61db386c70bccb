// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"testing"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	require := require.New(t)

	key, err := secp256k1.NewPrivateKey()
	require.NoError(err)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addKeyFlag(flags)

	_, err = parseKey(flags)
	require.ErrorIs(err, errMissingPrivateKey)

	require.NoError(flags.Parse([]string{
		"--" + PrivateKeyKey, key.String(),
	}))
	parsed, err := parseKey(flags)
	require.NoError(err)
	require.Equal(key.Bytes(), parsed.Bytes())

	require.NoError(flags.Set(PrivateKeyKey, "deadbeef"))
	_, err = parseKey(flags)
	require.Error(err)
}

func TestParseAddress(t *testing.T) {
	require := require.New(t)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(VoterKey, "", "")

	require.NoError(flags.Parse([]string{"--" + VoterKey, "not-an-address"}))
	_, err := parseAddress(flags, VoterKey)
	require.ErrorIs(err, errInvalidAddress)

	require.NoError(flags.Set(VoterKey, "0x0200000000000000000000000000000000000000"))
	addr, err := parseAddress(flags, VoterKey)
	require.NoError(err)
	require.Equal(byte(2), addr[0])
}

func TestCommandsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range Commands() {
		require.False(t, seen[c.Use], c.Use)
		seen[c.Use] = true
	}
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/require"
)

func TestErrorCodesRoundTrip(t *testing.T) {
	require := require.New(t)

	seen := make(map[json2.ErrorCode]error)
	for _, c := range errorCodes {
		prev, ok := seen[c.code]
		require.False(ok, "%s and %s share code %d", prev, c.err, c.code)
		seen[c.code] = c.err

		rpcErr := toRPCError(fmt.Errorf("context: %w", c.err))
		var jsonErr *json2.Error
		require.ErrorAs(rpcErr, &jsonErr)
		require.Equal(c.code, jsonErr.Code)
		require.ErrorIs(fromRPCError(rpcErr), c.err)
	}
}

func TestUnmappedErrors(t *testing.T) {
	require := require.New(t)

	err := errors.New("unexpected")
	require.Equal(err, toRPCError(err))
	require.NoError(toRPCError(nil))

	rpcErr := &json2.Error{Code: json2.E_SERVER, Message: "boom"}
	require.Equal(rpcErr, fromRPCError(rpcErr))
}

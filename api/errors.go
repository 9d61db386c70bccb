// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"errors"
	"fmt"

	"github.com/gorilla/rpc/v2/json2"

	"github.com/luxfi/govvm/fhe"
	"github.com/luxfi/govvm/governance"
)

// errorCodes gives every error a caller can act on a stable JSON-RPC code.
var errorCodes = []struct {
	err  error
	code json2.ErrorCode
}{
	{governance.ErrInsufficientFee, -32010},
	{governance.ErrFeeOverpayment, -32011},
	{governance.ErrInvalidDuration, -32012},
	{governance.ErrNotFound, -32013},
	{governance.ErrNotYetExpired, -32014},
	{governance.ErrAlreadyEnded, -32015},
	{governance.ErrProposalNotActive, -32016},
	{governance.ErrAlreadyVoted, -32017},
	{governance.ErrUnauthorized, -32018},
	{governance.ErrResultNotReady, -32019},
	{governance.ErrNothingToWithdraw, -32020},
	{governance.ErrInsufficientFunds, -32021},
	{governance.ErrInvalidOwner, -32022},

	{fhe.ErrUnknownHandle, -32030},
	{fhe.ErrTypeMismatch, -32031},
	{fhe.ErrInvalidProof, -32032},
	{fhe.ErrNotPermitted, -32033},
	{fhe.ErrPermitExpired, -32034},
	{fhe.ErrValueOutOfRange, -32035},
	{fhe.ErrUnsupportedType, -32036},

	{ErrMissingSignature, -32040},
	{ErrInvalidSignature, -32041},
	{ErrStaleNonce, -32042},
	{ErrInvalidAmount, -32043},
}

func toRPCError(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return &json2.Error{
				Code:    c.code,
				Message: err.Error(),
			}
		}
	}
	return err
}

// fromRPCError restores the error a server side code stands for.
func fromRPCError(err error) error {
	var rpcErr *json2.Error
	if !errors.As(err, &rpcErr) {
		return err
	}
	for _, c := range errorCodes {
		if c.code == rpcErr.Code {
			return fmt.Errorf("%w: %s", c.err, rpcErr.Message)
		}
	}
	return err
}

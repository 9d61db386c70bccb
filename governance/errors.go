// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import "errors"

var (
	ErrInsufficientFee   = errors.New("insufficient proposal fee")
	ErrFeeOverpayment    = errors.New("payment exceeds proposal fee")
	ErrInvalidDuration   = errors.New("invalid voting duration")
	ErrNotFound          = errors.New("proposal not found")
	ErrNotYetExpired     = errors.New("voting period has not expired")
	ErrAlreadyEnded      = errors.New("voting already ended")
	ErrProposalNotActive = errors.New("proposal is not active")
	ErrAlreadyVoted      = errors.New("already voted")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrResultNotReady    = errors.New("result not computed")
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidOwner      = errors.New("invalid owner")
	ErrInvalidFeePolicy  = errors.New("invalid fee policy")
)

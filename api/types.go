// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
	"github.com/luxfi/utils/json"

	"github.com/luxfi/govvm/governance"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1024
)

var ErrInvalidAmount = errors.New("invalid amount")

// EmptyReply is returned by calls that have nothing to report.
type EmptyReply struct{}

type SubmitProposalArgs struct {
	Auth     Envelope    `json:"auth"`
	Title    string      `json:"title"`
	Duration json.Uint64 `json:"duration"`
	// Payment is a decimal amount taken from the sender's balance.
	Payment string `json:"payment"`
}

func (a *SubmitProposalArgs) Envelope() *Envelope { return &a.Auth }

type SubmitProposalReply struct {
	ProposalID json.Uint64 `json:"proposalID"`
}

type VoteArgs struct {
	Auth       Envelope      `json:"auth"`
	ProposalID json.Uint64   `json:"proposalID"`
	Handle     ids.ID        `json:"handle"`
	Type       string        `json:"type"`
	Proof      hexutil.Bytes `json:"proof"`
}

func (a *VoteArgs) Envelope() *Envelope { return &a.Auth }

type SetProposalFeeArgs struct {
	Auth Envelope `json:"auth"`
	Fee  string   `json:"fee"`
}

func (a *SetProposalFeeArgs) Envelope() *Envelope { return &a.Auth }

type WithdrawFeesArgs struct {
	Auth Envelope `json:"auth"`
}

func (a *WithdrawFeesArgs) Envelope() *Envelope { return &a.Auth }

type WithdrawFeesReply struct {
	Amount string `json:"amount"`
}

type TransferOwnershipArgs struct {
	Auth     Envelope       `json:"auth"`
	NewOwner common.Address `json:"newOwner"`
}

func (a *TransferOwnershipArgs) Envelope() *Envelope { return &a.Auth }

type AuthorizeDecryptionArgs struct {
	Auth       Envelope    `json:"auth"`
	ProposalID json.Uint64 `json:"proposalID"`
}

func (a *AuthorizeDecryptionArgs) Envelope() *Envelope { return &a.Auth }

type AuthorizeDecryptionReply struct {
	// Expiry is the unix time the permits lapse at, 0 for never.
	Expiry json.Uint64 `json:"expiry"`
}

type ProposalIDArgs struct {
	ProposalID json.Uint64 `json:"proposalID"`
}

type ProposalReply struct {
	ID              json.Uint64    `json:"id"`
	Title           string         `json:"title"`
	Proposer        common.Address `json:"proposer"`
	CreatedAt       json.Uint64    `json:"createdAt"`
	Expiration      json.Uint64    `json:"expiration"`
	FeePaid         string         `json:"feePaid"`
	Status          string         `json:"status"`
	EncryptedYes    ids.ID         `json:"encryptedYes"`
	EncryptedNo     ids.ID         `json:"encryptedNo"`
	EncryptedResult ids.ID         `json:"encryptedResult"`
	ResultComputed  bool           `json:"resultComputed"`
}

func newProposalReply(p *governance.Proposal) ProposalReply {
	return ProposalReply{
		ID:              json.Uint64(p.ID),
		Title:           p.Title,
		Proposer:        p.Proposer,
		CreatedAt:       json.Uint64(p.CreatedAt),
		Expiration:      json.Uint64(p.Expiration),
		FeePaid:         p.FeePaid.Dec(),
		Status:          p.Status.String(),
		EncryptedYes:    p.EncryptedYes,
		EncryptedNo:     p.EncryptedNo,
		EncryptedResult: p.EncryptedResult,
		ResultComputed:  p.ResultComputed(),
	}
}

type HasVotingEndedReply struct {
	Ended bool `json:"ended"`
}

type HasVotedArgs struct {
	ProposalID json.Uint64    `json:"proposalID"`
	Voter      common.Address `json:"voter"`
}

type HasVotedReply struct {
	Voted bool `json:"voted"`
}

type GetVoteCountsReply struct {
	Yes    ids.ID      `json:"yes"`
	No     ids.ID      `json:"no"`
	Voters json.Uint64 `json:"voters"`
}

type GetProposalResultReply struct {
	Result   ids.ID `json:"result"`
	Computed bool   `json:"computed"`
}

type StatusReply struct {
	Owner          common.Address `json:"owner"`
	ProposalFee    string         `json:"proposalFee"`
	VaultBalance   string         `json:"vaultBalance"`
	NextProposalID json.Uint64    `json:"nextProposalID"`
	TotalProposals json.Uint64    `json:"totalProposals"`
	OpenProposals  json.Uint64    `json:"openProposals"`
	FeePolicy      string         `json:"feePolicy"`
}

type ListArgs struct {
	Start json.Uint64 `json:"start"`
	Limit json.Uint32 `json:"limit"`
}

func (a *ListArgs) limit() int {
	switch {
	case a.Limit == 0:
		return defaultListLimit
	case a.Limit > maxListLimit:
		return maxListLimit
	default:
		return int(a.Limit)
	}
}

type ListProposalsReply struct {
	Proposals []ProposalReply `json:"proposals"`
}

type EventReply struct {
	Seq        json.Uint64    `json:"seq"`
	Kind       string         `json:"kind"`
	Timestamp  json.Uint64    `json:"timestamp"`
	ProposalID json.Uint64    `json:"proposalID"`
	Title      string         `json:"title,omitempty"`
	Expiration json.Uint64    `json:"expiration"`
	Account    common.Address `json:"account"`
	Amount     string         `json:"amount"`
}

func newEventReply(e *governance.Event) EventReply {
	return EventReply{
		Seq:        json.Uint64(e.Seq),
		Kind:       e.Kind.String(),
		Timestamp:  json.Uint64(e.Timestamp),
		ProposalID: json.Uint64(e.ProposalID),
		Title:      e.Title,
		Expiration: json.Uint64(e.Expiration),
		Account:    e.Account,
		Amount:     e.Amount.Dec(),
	}
}

type GetEventsReply struct {
	Events []EventReply `json:"events"`
}

type AddressArgs struct {
	Address common.Address `json:"address"`
}

type GetBalanceReply struct {
	Balance string `json:"balance"`
}

// GetNonceReply carries what a sender needs to sign its next request.
type GetNonceReply struct {
	Nonce   json.Uint64 `json:"nonce"`
	ChainID ids.ID      `json:"chainID"`
}

type EncryptInputArgs struct {
	Value  json.Uint64    `json:"value"`
	Type   string         `json:"type"`
	Sender common.Address `json:"sender"`
}

type EncryptInputReply struct {
	Handle ids.ID        `json:"handle"`
	Type   string        `json:"type"`
	Proof  hexutil.Bytes `json:"proof"`
}

type DecryptArgs struct {
	Auth   Envelope `json:"auth"`
	Handle ids.ID   `json:"handle"`
}

func (a *DecryptArgs) Envelope() *Envelope { return &a.Auth }

type DecryptReply struct {
	Type  string      `json:"type"`
	Value json.Uint64 `json:"value"`
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidAmount, s, err)
	}
	return amount, nil
}

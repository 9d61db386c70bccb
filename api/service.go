// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"fmt"
	"net/http"

	"github.com/luxfi/log"
	"github.com/luxfi/utils/json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/luxfi/govvm/fhe"
	"github.com/luxfi/govvm/governance"
)

// Method names, as signed in request envelopes.
const (
	MethodSubmitProposal      = "gov.SubmitProposal"
	MethodVote                = "gov.Vote"
	MethodEndVoting           = "gov.EndVoting"
	MethodSetProposalFee      = "gov.SetProposalFee"
	MethodWithdrawFees        = "gov.WithdrawFees"
	MethodTransferOwnership   = "gov.TransferOwnership"
	MethodAuthorizeDecryption = "gov.AuthorizeDecryption"
	MethodGetProposal         = "gov.GetProposal"
	MethodHasVotingEnded      = "gov.HasVotingEnded"
	MethodHasVoted            = "gov.HasVoted"
	MethodGetVoteCounts       = "gov.GetVoteCounts"
	MethodGetProposalResult   = "gov.GetProposalResult"
	MethodStatus              = "gov.Status"
	MethodListProposals       = "gov.ListProposals"
	MethodGetEvents           = "gov.GetEvents"
	MethodGetBalance          = "gov.GetBalance"
	MethodGetNonce            = "gov.GetNonce"
	MethodEncryptInput        = "fhe.EncryptInput"
	MethodDecrypt             = "fhe.Decrypt"
)

// GovService exposes the governance engine over JSON-RPC.
type GovService struct {
	log    log.Logger
	tracer trace.Tracer
	engine *governance.Engine
	auth   *Authenticator
}

func (s *GovService) start(r *http.Request, method string) trace.Span {
	s.log.Debug("API called",
		log.String("service", "gov"),
		log.String("method", method),
	)
	_, span := s.tracer.Start(r.Context(), method)
	return span
}

func (s *GovService) SubmitProposal(r *http.Request, args *SubmitProposalArgs, reply *SubmitProposalReply) (err error) {
	span := s.start(r, MethodSubmitProposal)
	defer func() { err = finish(span, err) }()

	from, err := s.auth.Authenticate(MethodSubmitProposal, args)
	if err != nil {
		return err
	}
	payment, err := parseAmount(args.Payment)
	if err != nil {
		return err
	}
	id, err := s.engine.CreateProposal(args.Title, uint64(args.Duration), payment, from)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int64("proposal.id", int64(id)))
	reply.ProposalID = json.Uint64(id)
	return nil
}

func (s *GovService) Vote(r *http.Request, args *VoteArgs, _ *EmptyReply) (err error) {
	span := s.start(r, MethodVote)
	defer func() { err = finish(span, err) }()
	span.SetAttributes(attribute.Int64("proposal.id", int64(args.ProposalID)))

	from, err := s.auth.Authenticate(MethodVote, args)
	if err != nil {
		return err
	}
	t, err := fhe.ParseEncryptedType(args.Type)
	if err != nil {
		return err
	}
	return s.engine.Vote(uint64(args.ProposalID), fhe.Input{
		Handle: args.Handle,
		Type:   t,
		Proof:  args.Proof,
	}, from)
}

// EndVoting may be called by anyone once a proposal has expired.
func (s *GovService) EndVoting(r *http.Request, args *ProposalIDArgs, _ *EmptyReply) (err error) {
	span := s.start(r, MethodEndVoting)
	defer func() { err = finish(span, err) }()
	span.SetAttributes(attribute.Int64("proposal.id", int64(args.ProposalID)))

	return s.engine.EndVoting(uint64(args.ProposalID))
}

func (s *GovService) SetProposalFee(r *http.Request, args *SetProposalFeeArgs, _ *EmptyReply) (err error) {
	span := s.start(r, MethodSetProposalFee)
	defer func() { err = finish(span, err) }()

	from, err := s.auth.Authenticate(MethodSetProposalFee, args)
	if err != nil {
		return err
	}
	fee, err := parseAmount(args.Fee)
	if err != nil {
		return err
	}
	return s.engine.SetProposalFee(fee, from)
}

func (s *GovService) WithdrawFees(r *http.Request, args *WithdrawFeesArgs, reply *WithdrawFeesReply) (err error) {
	span := s.start(r, MethodWithdrawFees)
	defer func() { err = finish(span, err) }()

	from, err := s.auth.Authenticate(MethodWithdrawFees, args)
	if err != nil {
		return err
	}
	amount, err := s.engine.WithdrawFees(from)
	if err != nil {
		return err
	}
	reply.Amount = amount.Dec()
	return nil
}

func (s *GovService) TransferOwnership(r *http.Request, args *TransferOwnershipArgs, _ *EmptyReply) (err error) {
	span := s.start(r, MethodTransferOwnership)
	defer func() { err = finish(span, err) }()

	from, err := s.auth.Authenticate(MethodTransferOwnership, args)
	if err != nil {
		return err
	}
	return s.engine.TransferOwnership(args.NewOwner, from)
}

func (s *GovService) AuthorizeDecryption(r *http.Request, args *AuthorizeDecryptionArgs, reply *AuthorizeDecryptionReply) (err error) {
	span := s.start(r, MethodAuthorizeDecryption)
	defer func() { err = finish(span, err) }()
	span.SetAttributes(attribute.Int64("proposal.id", int64(args.ProposalID)))

	from, err := s.auth.Authenticate(MethodAuthorizeDecryption, args)
	if err != nil {
		return err
	}
	expiry, err := s.engine.AuthorizeDecryption(uint64(args.ProposalID), from)
	if err != nil {
		return err
	}
	reply.Expiry = json.Uint64(expiry)
	return nil
}

func (s *GovService) GetProposal(r *http.Request, args *ProposalIDArgs, reply *ProposalReply) (err error) {
	span := s.start(r, MethodGetProposal)
	defer func() { err = finish(span, err) }()

	p, err := s.engine.GetProposal(uint64(args.ProposalID))
	if err != nil {
		return err
	}
	*reply = newProposalReply(p)
	return nil
}

func (s *GovService) HasVotingEnded(r *http.Request, args *ProposalIDArgs, reply *HasVotingEndedReply) (err error) {
	span := s.start(r, MethodHasVotingEnded)
	defer func() { err = finish(span, err) }()

	reply.Ended, err = s.engine.HasVotingEnded(uint64(args.ProposalID))
	return err
}

func (s *GovService) HasVoted(r *http.Request, args *HasVotedArgs, reply *HasVotedReply) (err error) {
	span := s.start(r, MethodHasVoted)
	defer func() { err = finish(span, err) }()

	reply.Voted, err = s.engine.HasVoted(args.Voter, uint64(args.ProposalID))
	return err
}

func (s *GovService) GetVoteCounts(r *http.Request, args *ProposalIDArgs, reply *GetVoteCountsReply) (err error) {
	span := s.start(r, MethodGetVoteCounts)
	defer func() { err = finish(span, err) }()

	id := uint64(args.ProposalID)
	if reply.Yes, reply.No, err = s.engine.GetVoteCounts(id); err != nil {
		return err
	}
	voters, err := s.engine.Voters(id)
	if err != nil {
		return err
	}
	reply.Voters = json.Uint64(voters)
	return nil
}

func (s *GovService) GetProposalResult(r *http.Request, args *ProposalIDArgs, reply *GetProposalResultReply) (err error) {
	span := s.start(r, MethodGetProposalResult)
	defer func() { err = finish(span, err) }()

	reply.Result, reply.Computed, err = s.engine.GetProposalResult(uint64(args.ProposalID))
	return err
}

func (s *GovService) Status(r *http.Request, _ *struct{}, reply *StatusReply) (err error) {
	span := s.start(r, MethodStatus)
	defer func() { err = finish(span, err) }()

	status, err := s.engine.Status()
	if err != nil {
		return err
	}
	*reply = StatusReply{
		Owner:          status.Owner,
		ProposalFee:    status.ProposalFee.Dec(),
		VaultBalance:   status.VaultBalance.Dec(),
		NextProposalID: json.Uint64(status.NextProposalID),
		TotalProposals: json.Uint64(status.TotalProposals),
		OpenProposals:  json.Uint64(status.OpenProposals),
		FeePolicy:      string(status.FeePolicy),
	}
	return nil
}

func (s *GovService) ListProposals(r *http.Request, args *ListArgs, reply *ListProposalsReply) (err error) {
	span := s.start(r, MethodListProposals)
	defer func() { err = finish(span, err) }()

	proposals, err := s.engine.ListProposals(uint64(args.Start), args.limit())
	if err != nil {
		return err
	}
	reply.Proposals = make([]ProposalReply, len(proposals))
	for i, p := range proposals {
		reply.Proposals[i] = newProposalReply(p)
	}
	return nil
}

func (s *GovService) GetEvents(r *http.Request, args *ListArgs, reply *GetEventsReply) (err error) {
	span := s.start(r, MethodGetEvents)
	defer func() { err = finish(span, err) }()

	events, err := s.engine.Events(uint64(args.Start), args.limit())
	if err != nil {
		return err
	}
	reply.Events = make([]EventReply, len(events))
	for i, e := range events {
		reply.Events[i] = newEventReply(e)
	}
	return nil
}

func (s *GovService) GetBalance(r *http.Request, args *AddressArgs, reply *GetBalanceReply) (err error) {
	span := s.start(r, MethodGetBalance)
	defer func() { err = finish(span, err) }()

	balance, err := s.engine.BalanceOf(args.Address)
	if err != nil {
		return err
	}
	reply.Balance = balance.Dec()
	return nil
}

// GetNonce returns the lowest nonce the address may sign its next request
// with, and the chain the signature must be bound to.
func (s *GovService) GetNonce(r *http.Request, args *AddressArgs, reply *GetNonceReply) (err error) {
	span := s.start(r, MethodGetNonce)
	defer func() { err = finish(span, err) }()

	nonce, err := s.auth.NextNonce(args.Address)
	if err != nil {
		return err
	}
	reply.Nonce = json.Uint64(nonce)
	reply.ChainID = s.auth.ChainID()
	return nil
}

// FHEService is the gateway to the encryption backend: it produces vote
// inputs and decrypts handles for holders of a permit.
type FHEService struct {
	log     log.Logger
	tracer  trace.Tracer
	backend Backend
	auth    *Authenticator
}

// Backend is the part of the encryption backend reachable over the API.
type Backend interface {
	fhe.InputEncryptor
	fhe.Decrypter
}

func (s *FHEService) start(r *http.Request, method string) trace.Span {
	s.log.Debug("API called",
		log.String("service", "fhe"),
		log.String("method", method),
	)
	_, span := s.tracer.Start(r.Context(), method)
	return span
}

func (s *FHEService) EncryptInput(r *http.Request, args *EncryptInputArgs, reply *EncryptInputReply) (err error) {
	span := s.start(r, MethodEncryptInput)
	defer func() { err = finish(span, err) }()

	t, err := fhe.ParseEncryptedType(args.Type)
	if err != nil {
		return err
	}
	input, err := s.backend.EncryptInput(uint64(args.Value), t, args.Sender)
	if err != nil {
		return err
	}
	*reply = EncryptInputReply{
		Handle: input.Handle,
		Type:   input.Type.String(),
		Proof:  input.Proof,
	}
	return nil
}

func (s *FHEService) Decrypt(r *http.Request, args *DecryptArgs, reply *DecryptReply) (err error) {
	span := s.start(r, MethodDecrypt)
	defer func() { err = finish(span, err) }()

	from, err := s.auth.Authenticate(MethodDecrypt, args)
	if err != nil {
		return err
	}
	plaintext, err := s.backend.Decrypt(args.Handle, from)
	if err != nil {
		return fmt.Errorf("decrypt %s: %w", args.Handle, err)
	}
	*reply = DecryptReply{
		Type:  plaintext.Type.String(),
		Value: json.Uint64(plaintext.Value),
	}
	return nil
}

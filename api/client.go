// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/holiman/uint256"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/utils/json"

	"github.com/luxfi/govvm/fhe"
	"github.com/luxfi/govvm/governance"
)

// cleanlyCloseBody drains and closes an HTTP response body to prevent
// HTTP/2 GOAWAY errors caused by closing bodies with unread data.
func cleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// Client for a govvm node. Errors returned by the node wrap the same
// sentinel errors the engine returns.
type Client struct {
	govURI string
	fheURI string
	http   *http.Client
}

// NewClient returns a client for the node serving its API at uri, such as
// "http://127.0.0.1:9650".
func NewClient(uri string) *Client {
	return &Client{
		govURI: uri + "/ext/gov",
		fheURI: uri + "/ext/fhe",
		http:   http.DefaultClient,
	}
}

func (c *Client) call(ctx context.Context, uri, method string, args, reply interface{}) error {
	body, err := json2.EncodeClientRequest(method, args)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", method, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(request)
	if err != nil {
		return fmt.Errorf("failed to issue request: %w", err)
	}
	defer cleanlyCloseBody(resp.Body)

	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("received status code %d: %w", resp.StatusCode, fromRPCError(err))
		}
		return fromRPCError(err)
	}
	return nil
}

// signed signs args for the holder of key with its next nonce, on the chain
// the node reports, and calls method.
func (c *Client) signed(ctx context.Context, uri, method string, key *secp256k1.PrivateKey, args Signed, reply interface{}) error {
	nonce := &GetNonceReply{}
	err := c.call(ctx, c.govURI, MethodGetNonce, &AddressArgs{Address: Address(key.PublicKey())}, nonce)
	if err != nil {
		return err
	}
	args.Envelope().Nonce = nonce.Nonce
	if err := Sign(nonce.ChainID, method, args, key); err != nil {
		return err
	}
	return c.call(ctx, uri, method, args, reply)
}

func (c *Client) SubmitProposal(ctx context.Context, key *secp256k1.PrivateKey, title string, duration uint64, payment *uint256.Int) (uint64, error) {
	args := &SubmitProposalArgs{
		Title:    title,
		Duration: json.Uint64(duration),
		Payment:  payment.Dec(),
	}
	reply := &SubmitProposalReply{}
	err := c.signed(ctx, c.govURI, MethodSubmitProposal, key, args, reply)
	return uint64(reply.ProposalID), err
}

// Vote encrypts support for the holder of key and casts it.
func (c *Client) Vote(ctx context.Context, key *secp256k1.PrivateKey, proposalID uint64, support bool) error {
	var v uint64
	if support {
		v = 1
	}
	input, err := c.EncryptInput(ctx, v, fhe.EBool, Address(key.PublicKey()))
	if err != nil {
		return err
	}
	return c.VoteInput(ctx, key, proposalID, input)
}

// VoteInput casts an already encrypted input.
func (c *Client) VoteInput(ctx context.Context, key *secp256k1.PrivateKey, proposalID uint64, input fhe.Input) error {
	args := &VoteArgs{
		ProposalID: json.Uint64(proposalID),
		Handle:     input.Handle,
		Type:       input.Type.String(),
		Proof:      input.Proof,
	}
	return c.signed(ctx, c.govURI, MethodVote, key, args, &EmptyReply{})
}

func (c *Client) EndVoting(ctx context.Context, proposalID uint64) error {
	return c.call(ctx, c.govURI, MethodEndVoting, &ProposalIDArgs{
		ProposalID: json.Uint64(proposalID),
	}, &EmptyReply{})
}

func (c *Client) SetProposalFee(ctx context.Context, key *secp256k1.PrivateKey, fee *uint256.Int) error {
	args := &SetProposalFeeArgs{Fee: fee.Dec()}
	return c.signed(ctx, c.govURI, MethodSetProposalFee, key, args, &EmptyReply{})
}

func (c *Client) WithdrawFees(ctx context.Context, key *secp256k1.PrivateKey) (*uint256.Int, error) {
	reply := &WithdrawFeesReply{}
	if err := c.signed(ctx, c.govURI, MethodWithdrawFees, key, &WithdrawFeesArgs{}, reply); err != nil {
		return nil, err
	}
	return parseAmount(reply.Amount)
}

func (c *Client) TransferOwnership(ctx context.Context, key *secp256k1.PrivateKey, newOwner common.Address) error {
	args := &TransferOwnershipArgs{NewOwner: newOwner}
	return c.signed(ctx, c.govURI, MethodTransferOwnership, key, args, &EmptyReply{})
}

// AuthorizeDecryption returns when the granted permits expire, 0 for never.
func (c *Client) AuthorizeDecryption(ctx context.Context, key *secp256k1.PrivateKey, proposalID uint64) (uint64, error) {
	args := &AuthorizeDecryptionArgs{ProposalID: json.Uint64(proposalID)}
	reply := &AuthorizeDecryptionReply{}
	err := c.signed(ctx, c.govURI, MethodAuthorizeDecryption, key, args, reply)
	return uint64(reply.Expiry), err
}

func (c *Client) GetProposal(ctx context.Context, proposalID uint64) (*ProposalReply, error) {
	reply := &ProposalReply{}
	err := c.call(ctx, c.govURI, MethodGetProposal, &ProposalIDArgs{
		ProposalID: json.Uint64(proposalID),
	}, reply)
	return reply, err
}

func (c *Client) HasVotingEnded(ctx context.Context, proposalID uint64) (bool, error) {
	reply := &HasVotingEndedReply{}
	err := c.call(ctx, c.govURI, MethodHasVotingEnded, &ProposalIDArgs{
		ProposalID: json.Uint64(proposalID),
	}, reply)
	return reply.Ended, err
}

func (c *Client) HasVoted(ctx context.Context, voter common.Address, proposalID uint64) (bool, error) {
	reply := &HasVotedReply{}
	err := c.call(ctx, c.govURI, MethodHasVoted, &HasVotedArgs{
		ProposalID: json.Uint64(proposalID),
		Voter:      voter,
	}, reply)
	return reply.Voted, err
}

func (c *Client) GetVoteCounts(ctx context.Context, proposalID uint64) (*GetVoteCountsReply, error) {
	reply := &GetVoteCountsReply{}
	err := c.call(ctx, c.govURI, MethodGetVoteCounts, &ProposalIDArgs{
		ProposalID: json.Uint64(proposalID),
	}, reply)
	return reply, err
}

func (c *Client) GetProposalResult(ctx context.Context, proposalID uint64) (ids.ID, bool, error) {
	reply := &GetProposalResultReply{}
	err := c.call(ctx, c.govURI, MethodGetProposalResult, &ProposalIDArgs{
		ProposalID: json.Uint64(proposalID),
	}, reply)
	return reply.Result, reply.Computed, err
}

func (c *Client) Status(ctx context.Context) (*StatusReply, error) {
	reply := &StatusReply{}
	err := c.call(ctx, c.govURI, MethodStatus, &struct{}{}, reply)
	return reply, err
}

func (c *Client) ListProposals(ctx context.Context, start uint64, limit uint32) ([]ProposalReply, error) {
	reply := &ListProposalsReply{}
	err := c.call(ctx, c.govURI, MethodListProposals, &ListArgs{
		Start: json.Uint64(start),
		Limit: json.Uint32(limit),
	}, reply)
	return reply.Proposals, err
}

func (c *Client) GetEvents(ctx context.Context, start uint64, limit uint32) ([]EventReply, error) {
	reply := &GetEventsReply{}
	err := c.call(ctx, c.govURI, MethodGetEvents, &ListArgs{
		Start: json.Uint64(start),
		Limit: json.Uint32(limit),
	}, reply)
	return reply.Events, err
}

func (c *Client) GetBalance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	reply := &GetBalanceReply{}
	if err := c.call(ctx, c.govURI, MethodGetBalance, &AddressArgs{Address: addr}, reply); err != nil {
		return nil, err
	}
	return parseAmount(reply.Balance)
}

func (c *Client) GetNonce(ctx context.Context, addr common.Address) (uint64, error) {
	reply := &GetNonceReply{}
	err := c.call(ctx, c.govURI, MethodGetNonce, &AddressArgs{Address: addr}, reply)
	return uint64(reply.Nonce), err
}

func (c *Client) EncryptInput(ctx context.Context, value uint64, t fhe.EncryptedType, sender common.Address) (fhe.Input, error) {
	reply := &EncryptInputReply{}
	err := c.call(ctx, c.fheURI, MethodEncryptInput, &EncryptInputArgs{
		Value:  json.Uint64(value),
		Type:   t.String(),
		Sender: sender,
	}, reply)
	if err != nil {
		return fhe.Input{}, err
	}
	parsed, err := fhe.ParseEncryptedType(reply.Type)
	if err != nil {
		return fhe.Input{}, err
	}
	return fhe.Input{
		Handle: reply.Handle,
		Type:   parsed,
		Proof:  reply.Proof,
	}, nil
}

func (c *Client) Decrypt(ctx context.Context, key *secp256k1.PrivateKey, handle ids.ID) (fhe.Plaintext, error) {
	reply := &DecryptReply{}
	if err := c.signed(ctx, c.fheURI, MethodDecrypt, key, &DecryptArgs{Handle: handle}, reply); err != nil {
		return fhe.Plaintext{}, err
	}
	t, err := fhe.ParseEncryptedType(reply.Type)
	if err != nil {
		return fhe.Plaintext{}, err
	}
	return fhe.Plaintext{
		Type:  t,
		Value: uint64(reply.Value),
	}, nil
}

// DecryptVotes authorizes the holder of key on an ended proposal and
// returns its decrypted yes and no counts.
func (c *Client) DecryptVotes(ctx context.Context, key *secp256k1.PrivateKey, proposalID uint64) (uint64, uint64, error) {
	if _, err := c.AuthorizeDecryption(ctx, key, proposalID); err != nil {
		return 0, 0, err
	}
	counts, err := c.GetVoteCounts(ctx, proposalID)
	if err != nil {
		return 0, 0, err
	}
	yes, err := c.Decrypt(ctx, key, counts.Yes)
	if err != nil {
		return 0, 0, err
	}
	no, err := c.Decrypt(ctx, key, counts.No)
	if err != nil {
		return 0, 0, err
	}
	return yes.Value, no.Value, nil
}

// DecryptResult authorizes the holder of key on an ended proposal and
// returns its outcome.
func (c *Client) DecryptResult(ctx context.Context, key *secp256k1.PrivateKey, proposalID uint64) (governance.Outcome, error) {
	if _, err := c.AuthorizeDecryption(ctx, key, proposalID); err != nil {
		return governance.Rejected, err
	}
	result, _, err := c.GetProposalResult(ctx, proposalID)
	if err != nil {
		return governance.Rejected, err
	}
	plaintext, err := c.Decrypt(ctx, key, result)
	if err != nil {
		return governance.Rejected, err
	}
	return governance.Outcome(plaintext.Bool()), nil
}

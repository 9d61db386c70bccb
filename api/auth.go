// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
	utilsjson "github.com/luxfi/utils/json"

	safemath "github.com/luxfi/govvm/utils/math"
)

var (
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrStaleNonce       = errors.New("stale nonce")
)

// Envelope identifies and authenticates the caller of a request. Signature
// covers the chain, the nonce, the method name and the request with an
// empty signature.
type Envelope struct {
	From      common.Address   `json:"from"`
	Nonce     utilsjson.Uint64 `json:"nonce"`
	Signature hexutil.Bytes    `json:"signature"`
}

// Signed is implemented by every request made on behalf of an address.
type Signed interface {
	Envelope() *Envelope
}

// Address returns the 20 byte account address of key: the last 20 bytes of
// the keccak256 hash of its uncompressed coordinates.
func Address(key *secp256k1.PublicKey) common.Address {
	pk := key.ToECDSA()
	xy := make([]byte, 64)
	pk.X.FillBytes(xy[:32])
	pk.Y.FillBytes(xy[32:])
	return common.BytesToAddress(secp256k1.Keccak256(xy)[12:])
}

// Digest returns the hash signed for method and args on chainID.
func Digest(chainID ids.ID, method string, args Signed) (hash.Hash256, error) {
	env := args.Envelope()
	sig := env.Signature
	env.Signature = nil
	payload, err := json.Marshal(args)
	env.Signature = sig
	if err != nil {
		return hash.Hash256{}, fmt.Errorf("failed to encode request: %w", err)
	}

	buf := make([]byte, 0, ids.IDLen+8+4+len(method)+len(payload))
	buf = append(buf, chainID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(env.Nonce))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(method)))
	buf = append(buf, method...)
	buf = append(buf, payload...)
	return hash.ComputeHash256Array(buf), nil
}

// Sign fills in the envelope of args for the holder of key. The nonce must
// already be set.
func Sign(chainID ids.ID, method string, args Signed, key *secp256k1.PrivateKey) error {
	env := args.Envelope()
	env.From = Address(key.PublicKey())
	digest, err := Digest(chainID, method, args)
	if err != nil {
		return err
	}
	env.Signature, err = key.SignHash(digest[:])
	return err
}

// Authenticator verifies envelopes and enforces strictly increasing nonces
// per sender.
type Authenticator struct {
	chainID ids.ID

	mu sync.Mutex
	db database.Database // sender -> last accepted nonce
}

// NewAuthenticator accepts envelopes signed for chainID only.
func NewAuthenticator(chainID ids.ID, db database.Database) *Authenticator {
	return &Authenticator{
		chainID: chainID,
		db:      db,
	}
}

func (a *Authenticator) ChainID() ids.ID {
	return a.chainID
}

// Authenticate returns the sender of args. A nonce is consumed as soon as the
// signature is accepted, whether or not the request then succeeds.
func (a *Authenticator) Authenticate(method string, args Signed) (common.Address, error) {
	env := args.Envelope()
	if len(env.Signature) == 0 {
		return common.Address{}, ErrMissingSignature
	}
	digest, err := Digest(a.chainID, method, args)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := secp256k1.RecoverPublicKeyFromHash(digest[:], env.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if signer := Address(pub); signer != env.From {
		return common.Address{}, fmt.Errorf("%w: signed by %s, not %s", ErrInvalidSignature, signer, env.From)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	next, err := a.nextNonce(env.From)
	if err != nil {
		return common.Address{}, err
	}
	if uint64(env.Nonce) < next {
		return common.Address{}, fmt.Errorf("%w: got %d, expected at least %d", ErrStaleNonce, env.Nonce, next)
	}
	if err := database.PutUInt64(a.db, env.From[:], uint64(env.Nonce)); err != nil {
		return common.Address{}, err
	}
	return env.From, nil
}

// NextNonce returns the lowest nonce addr may use next.
func (a *Authenticator) NextNonce(addr common.Address) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.nextNonce(addr)
}

func (a *Authenticator) nextNonce(addr common.Address) (uint64, error) {
	last, err := database.GetUInt64(a.db, addr[:])
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	next, err := safemath.Add(last, 1)
	if err != nil {
		return 0, fmt.Errorf("%w: nonces of %s are exhausted", ErrStaleNonce, addr)
	}
	return next, nil
}

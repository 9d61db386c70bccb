// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fhe defines the encrypted-arithmetic capability consumed by the
// governance engine and ships two backends for it: an in-process reference
// coprocessor and a CKKS processor built on luxfi/lattice.
//
// Ciphertexts never leave a backend. Callers hold opaque handles
// ([ids.ID]) and ask the backend to operate on them. Decryption is only
// possible through [Decrypter] and only for addresses holding a live permit.
package fhe

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

var (
	ErrUnknownHandle   = errors.New("unknown ciphertext handle")
	ErrTypeMismatch    = errors.New("encrypted type mismatch")
	ErrInvalidProof    = errors.New("invalid input proof")
	ErrValueOutOfRange = errors.New("value out of range for encrypted type")
	ErrUnsupportedType = errors.New("unsupported encrypted type")
)

// EncryptedType represents the type of encrypted value
type EncryptedType uint8

const (
	// EBool represents an encrypted boolean
	EBool EncryptedType = iota
	// EUint8 represents an encrypted 8-bit unsigned integer
	EUint8
	// EUint16 represents an encrypted 16-bit unsigned integer
	EUint16
	// EUint32 represents an encrypted 32-bit unsigned integer
	EUint32
	// EUint64 represents an encrypted 64-bit unsigned integer
	EUint64
)

// String returns the string representation of the encrypted type
func (t EncryptedType) String() string {
	switch t {
	case EBool:
		return "ebool"
	case EUint8:
		return "euint8"
	case EUint16:
		return "euint16"
	case EUint32:
		return "euint32"
	case EUint64:
		return "euint64"
	default:
		return "unknown"
	}
}

// ParseEncryptedType is the inverse of [EncryptedType.String].
func ParseEncryptedType(s string) (EncryptedType, error) {
	for t := EBool; t <= EUint64; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

// MaxValue returns the maximum value for the encrypted type
func (t EncryptedType) MaxValue() uint64 {
	switch t {
	case EBool:
		return 1
	case EUint8:
		return 1<<8 - 1
	case EUint16:
		return 1<<16 - 1
	case EUint32:
		return 1<<32 - 1
	case EUint64:
		return 1<<64 - 1
	default:
		return 0
	}
}

// Valid reports whether the type is one a backend can hold.
func (t EncryptedType) Valid() bool {
	return t <= EUint64
}

// wrap truncates v to the width of t, the way fixed-width encrypted integers
// overflow.
func (t EncryptedType) wrap(v uint64) uint64 {
	if t == EBool {
		return v & 1
	}
	return v & t.MaxValue()
}

// Plaintext is the result of an authorized decryption.
type Plaintext struct {
	Type  EncryptedType `json:"type"`
	Value uint64        `json:"value"`
}

// Bool interprets the plaintext as a boolean.
func (p Plaintext) Bool() bool {
	return p.Value != 0
}

// Input is a client-encrypted value together with the proof that binds it
// to the address that produced it.
type Input struct {
	Handle ids.ID        `json:"handle"`
	Type   EncryptedType `json:"type"`
	Proof  []byte        `json:"proof"`
}

// Arithmetic is the encrypted-integer capability the governance engine
// computes with. Implementations must not reveal plaintexts through any of
// these methods.
type Arithmetic interface {
	// TrivialEncrypt produces a ciphertext of a public constant.
	TrivialEncrypt(value uint64, t EncryptedType) (ids.ID, error)
	// VerifyInput checks that input was produced for sender with type t and
	// returns the handle the caller may compute on.
	VerifyInput(input ids.ID, proof []byte, sender common.Address, t EncryptedType) (ids.ID, error)
	// Add returns a + b, wrapping at the width of the operands' type.
	Add(a, b ids.ID) (ids.ID, error)
	// Select returns ifTrue when cond encrypts true, ifFalse otherwise.
	Select(cond, ifTrue, ifFalse ids.ID) (ids.ID, error)
	// GreaterThan returns an encrypted boolean of a > b.
	GreaterThan(a, b ids.ID) (ids.ID, error)
	// Allow lets grantee decrypt handle until expiry (unix seconds, 0 for
	// no expiry).
	Allow(handle ids.ID, grantee, grantor common.Address, expiry uint64) error
}

// Decrypter is the authorized, out-of-band decryption path.
type Decrypter interface {
	Decrypt(handle ids.ID, requester common.Address) (Plaintext, error)
}

// InputEncryptor is the gateway used by clients to create encrypted inputs.
type InputEncryptor interface {
	EncryptInput(value uint64, t EncryptedType, sender common.Address) (Input, error)
}

// Backend is a complete encrypted-arithmetic provider.
type Backend interface {
	Arithmetic
	Decrypter
	InputEncryptor
}

// Clock reports the current time in unix seconds.
type Clock interface {
	Unix() uint64
}

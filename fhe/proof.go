// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhe

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

const proofKeyLen = 32

var proofKeyKey = []byte("proofKey")

// inputProof binds an input handle to its type and to the sender that asked
// for it. Only the backend holding key can produce one.
func inputProof(key []byte, handle ids.ID, t EncryptedType, sender common.Address) []byte {
	return secp256k1.Keccak256(key, handle[:], []byte{byte(t)}, sender[:])
}

func verifyInputProof(key []byte, handle ids.ID, t EncryptedType, sender common.Address, proof []byte) error {
	expected := inputProof(key, handle, t, sender)
	if subtle.ConstantTimeCompare(expected, proof) != 1 {
		return ErrInvalidProof
	}
	return nil
}

// loadProofKey returns the persisted proof key, creating it on first use.
func loadProofKey(db database.Database) ([]byte, error) {
	key, err := db.Get(proofKeyKey)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load proof key: %w", err)
	}

	key = make([]byte, proofKeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate proof key: %w", err)
	}
	if err := db.Put(proofKeyKey, key); err != nil {
		return nil, fmt.Errorf("failed to store proof key: %w", err)
	}
	return key, nil
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	safemath "github.com/luxfi/govvm/utils/math"
)

// Bank holds native-token balances. Proposal fees are paid out of it and
// vault withdrawals are paid into it.
type Bank struct {
	db database.Database
}

func NewBank(db database.Database) *Bank {
	return &Bank{db: db}
}

// Balance returns the balance of addr, zero if it never held funds.
func (b *Bank) Balance(addr common.Address) (*uint256.Int, error) {
	return getAmount(b.db, addr[:])
}

// Credit adds amount to addr.
func (b *Bank) Credit(addr common.Address, amount *uint256.Int) error {
	balance, err := b.Balance(addr)
	if err != nil {
		return err
	}
	balance, err = safemath.AddAmount(balance, amount)
	if err != nil {
		return fmt.Errorf("crediting %s: %w", addr, err)
	}
	return putAmount(b.db, addr[:], balance)
}

// Debit removes amount from addr, failing with ErrInsufficientFunds.
func (b *Bank) Debit(addr common.Address, amount *uint256.Int) error {
	balance, err := b.Balance(addr)
	if err != nil {
		return err
	}
	balance, err = safemath.SubAmount(balance, amount)
	if err != nil {
		return fmt.Errorf("%w: %s cannot cover %s", ErrInsufficientFunds, addr, amount.Dec())
	}
	return putAmount(b.db, addr[:], balance)
}

func getAmount(db database.KeyValueReader, key []byte) (*uint256.Int, error) {
	bytes, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes32(bytes), nil
}

func putAmount(db database.KeyValueWriter, key []byte, amount *uint256.Int) error {
	bytes := amount.Bytes32()
	return db.Put(key, bytes[:])
}

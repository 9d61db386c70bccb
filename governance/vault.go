// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	safemath "github.com/luxfi/govvm/utils/math"
)

var (
	ownerKey   = []byte("owner")
	feeKey     = []byte("fee")
	balanceKey = []byte("balance")
)

// FeeVault holds the proposal fee, the fees collected so far and the owner
// allowed to change the former and withdraw the latter.
type FeeVault struct {
	db   database.Database
	bank *Bank
}

func NewFeeVault(db database.Database, bank *Bank) *FeeVault {
	return &FeeVault{
		db:   db,
		bank: bank,
	}
}

func (v *FeeVault) Owner() (common.Address, error) {
	bytes, err := v.db.Get(ownerKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read owner: %w", err)
	}
	return common.BytesToAddress(bytes), nil
}

func (v *FeeVault) Fee() (*uint256.Int, error) {
	return getAmount(v.db, feeKey)
}

func (v *FeeVault) Balance() (*uint256.Int, error) {
	return getAmount(v.db, balanceKey)
}

func (v *FeeVault) authorize(caller common.Address) error {
	owner, err := v.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, caller)
	}
	return nil
}

// Deposit adds a collected fee to the balance.
func (v *FeeVault) Deposit(amount *uint256.Int) error {
	balance, err := v.Balance()
	if err != nil {
		return err
	}
	balance, err = safemath.AddAmount(balance, amount)
	if err != nil {
		return fmt.Errorf("vault balance: %w", err)
	}
	return putAmount(v.db, balanceKey, balance)
}

// SetFee changes the fee charged to proposals created from now on.
func (v *FeeVault) SetFee(fee *uint256.Int, caller common.Address) error {
	if err := v.authorize(caller); err != nil {
		return err
	}
	if fee == nil {
		fee = new(uint256.Int)
	}
	return putAmount(v.db, feeKey, fee)
}

// Withdraw pays the whole balance to the owner. The balance is zeroed before
// the transfer is made.
func (v *FeeVault) Withdraw(caller common.Address) (*uint256.Int, error) {
	if err := v.authorize(caller); err != nil {
		return nil, err
	}
	amount, err := v.Balance()
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, ErrNothingToWithdraw
	}
	if err := putAmount(v.db, balanceKey, new(uint256.Int)); err != nil {
		return nil, err
	}
	if err := v.bank.Credit(caller, amount); err != nil {
		return nil, fmt.Errorf("fee transfer failed: %w", err)
	}
	return amount, nil
}

// TransferOwnership hands the vault to newOwner.
func (v *FeeVault) TransferOwnership(newOwner, caller common.Address) error {
	if err := v.authorize(caller); err != nil {
		return err
	}
	return v.setOwner(newOwner)
}

func (v *FeeVault) setOwner(owner common.Address) error {
	if owner == (common.Address{}) {
		return ErrInvalidOwner
	}
	return v.db.Put(ownerKey, owner[:])
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package math provides overflow-checked arithmetic for timestamps and
// token amounts.
package math

import (
	"errors"

	"github.com/holiman/uint256"
)

// Unsigned is a constraint that permits any unsigned integer type.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

var (
	ErrOverflow  = errors.New("overflow")
	ErrUnderflow = errors.New("underflow")
)

// Add returns a + b, or ErrOverflow.
func Add[T Unsigned](a, b T) (T, error) {
	if a > ^T(0)-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a - b, or ErrUnderflow.
func Sub[T Unsigned](a, b T) (T, error) {
	if a < b {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// AddAmount returns a + b as a new value, or ErrOverflow.
func AddAmount(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// SubAmount returns a - b as a new value, or ErrUnderflow.
func SubAmount(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrUnderflow
	}
	return diff, nil
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/govvm/fhe"
	"github.com/luxfi/govvm/governance"
)

const (
	// BackendCoprocessor selects the in-process reference coprocessor.
	BackendCoprocessor = "coprocessor"
	// BackendCKKS selects the lattice based CKKS processor.
	BackendCKKS = "ckks"
)

var (
	ErrMissingOwner        = errors.New("missing owner")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDuplicateAllocation = errors.New("duplicate allocation")
	ErrUnknownBackend      = errors.New("unknown fhe backend")
	ErrInvalidCacheSize    = errors.New("invalid cache size")
)

var DefaultConfig = Config{
	ProposalFee: "0",
	FeePolicy:   governance.FeePolicyExact,
	FHE: FHEConfig{
		Backend:   BackendCoprocessor,
		PermitTTL: 3600,
		CKKS:      fhe.DefaultCKKSConfig(),
	},
	CacheSize: 1024,
	HTTPHost:  "127.0.0.1",
	HTTPPort:  9650,
}

// Allocation credits Balance, a decimal amount, to Address at genesis.
type Allocation struct {
	Address common.Address `json:"address"`
	Balance string         `json:"balance"`
}

type FHEConfig struct {
	Backend string `json:"backend"`
	// PermitTTL is how long a decryption authorization lasts, in seconds.
	// 0 never expires.
	PermitTTL uint64         `json:"permitTTL"`
	CKKS      fhe.CKKSConfig `json:"ckks"`
}

// Config is the node configuration. Owner, ProposalFee and Allocations seed
// an empty database and are ignored afterwards.
type Config struct {
	Owner       common.Address       `json:"owner"`
	ProposalFee string               `json:"proposalFee"`
	FeePolicy   governance.FeePolicy `json:"feePolicy"`
	Allocations []Allocation         `json:"allocations"`
	FHE         FHEConfig            `json:"fhe"`
	CacheSize   int                  `json:"cacheSize"`

	HTTPHost string `json:"httpHost"`
	HTTPPort uint16 `json:"httpPort"`
	// DataDir holds the database. Empty keeps all state in memory.
	DataDir string `json:"dataDir"`
}

func ParseConfig(configBytes []byte) (Config, error) {
	if len(configBytes) == 0 {
		return DefaultConfig, nil
	}

	cfg := DefaultConfig
	cfg.FHE.CKKS = fhe.DefaultCKKSConfig()
	if err := json.Unmarshal(configBytes, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate ensures the configuration can start an engine.
func (c *Config) Validate() error {
	if c.Owner == (common.Address{}) {
		return ErrMissingOwner
	}
	if _, err := parseAmount(c.ProposalFee); err != nil {
		return fmt.Errorf("proposal fee: %w", err)
	}
	if !c.FeePolicy.Valid() {
		return fmt.Errorf("%w: %q", governance.ErrInvalidFeePolicy, c.FeePolicy)
	}
	if c.FHE.Backend != BackendCoprocessor && c.FHE.Backend != BackendCKKS {
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.FHE.Backend)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.CacheSize)
	}
	_, err := c.allocations()
	return err
}

// Governance returns the engine configuration described by c.
func (c *Config) Governance() (governance.Config, error) {
	if err := c.Validate(); err != nil {
		return governance.Config{}, err
	}
	fee, err := parseAmount(c.ProposalFee)
	if err != nil {
		return governance.Config{}, err
	}
	allocations, err := c.allocations()
	if err != nil {
		return governance.Config{}, err
	}
	return governance.Config{
		Owner:       c.Owner,
		ProposalFee: fee,
		FeePolicy:   c.FeePolicy,
		PermitTTL:   c.FHE.PermitTTL,
		Allocations: allocations,
		CacheSize:   c.CacheSize,
	}, nil
}

func (c *Config) allocations() (map[common.Address]*uint256.Int, error) {
	allocations := make(map[common.Address]*uint256.Int, len(c.Allocations))
	for _, a := range c.Allocations {
		if _, ok := allocations[a.Address]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAllocation, a.Address)
		}
		balance, err := parseAmount(a.Balance)
		if err != nil {
			return nil, fmt.Errorf("allocation to %s: %w", a.Address, err)
		}
		allocations[a.Address] = balance
	}
	return allocations, nil
}

// parseAmount parses a non-negative decimal amount. An empty string is zero.
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

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/geth/common"
	"github.com/spf13/pflag"
)

const (
	URIKey        = "uri"
	PrivateKeyKey = "private-key"
	ProposalIDKey = "proposal-id"
	TitleKey      = "title"
	DurationKey   = "duration"
	PaymentKey    = "payment"
	SupportKey    = "support"
	VoterKey      = "voter"
	AddressKey    = "address"
	FeeKey        = "fee"
	NewOwnerKey   = "new-owner"
	StartKey      = "start"
	LimitKey      = "limit"

	defaultURI = "http://127.0.0.1:9650"
)

var (
	errMissingPrivateKey = errors.New("--" + PrivateKeyKey + " is required")
	errInvalidAddress    = errors.New("invalid address")
)

func addURIFlag(flags *pflag.FlagSet) {
	flags.String(URIKey, defaultURI, "URI of the node to call")
}

func addKeyFlag(flags *pflag.FlagSet) {
	flags.String(PrivateKeyKey, "", "secp256k1 private key to sign with, as printed by keygen (PrivateKey-...)")
}

func addProposalIDFlag(flags *pflag.FlagSet) {
	flags.Uint64(ProposalIDKey, 1, "Proposal to act on")
}

func addPageFlags(flags *pflag.FlagSet) {
	flags.Uint64(StartKey, 0, "First entry to return")
	flags.Uint32(LimitKey, 0, "Maximum entries to return, 0 for the node's default")
}

func parseKey(flags *pflag.FlagSet) (*secp256k1.PrivateKey, error) {
	skStr, err := flags.GetString(PrivateKeyKey)
	if err != nil {
		return nil, err
	}
	if skStr == "" {
		return nil, errMissingPrivateKey
	}

	var sk secp256k1.PrivateKey
	if err := sk.UnmarshalJSON([]byte(`"` + skStr + `"`)); err != nil {
		return nil, err
	}
	return &sk, nil
}

func parseAddress(flags *pflag.FlagSet, key string) (common.Address, error) {
	addrStr, err := flags.GetString(key)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(addrStr) {
		return common.Address{}, fmt.Errorf("%w: %q", errInvalidAddress, addrStr)
	}
	return common.HexToAddress(addrStr), nil
}

func parseAmount(flags *pflag.FlagSet, key string) (*uint256.Int, error) {
	amountStr, err := flags.GetString(key)
	if err != nil {
		return nil, err
	}
	return uint256.FromDecimal(amountStr)
}

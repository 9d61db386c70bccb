// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package client implements the CLI commands that call a running node.
package client

import (
	"encoding/json"
	"fmt"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/luxfi/govvm/api"
)

type runner func(c *cobra.Command, client *api.Client) error

func newCommand(use, short string, addFlags func(*pflag.FlagSet), run runner) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			uri, err := c.Flags().GetString(URIKey)
			if err != nil {
				return err
			}
			return run(c, api.NewClient(uri))
		},
	}
	addURIFlag(c.Flags())
	if addFlags != nil {
		addFlags(c.Flags())
	}
	return c
}

func printJSON(c *cobra.Command, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.OutOrStdout(), string(b))
	return err
}

// Commands returns every client command.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		submitProposal(),
		vote(),
		endVoting(),
		getProposal(),
		checkVoteStatus(),
		decryptVotes(),
		decryptResult(),
		status(),
		listProposals(),
		events(),
		balance(),
		setProposalFee(),
		withdrawFees(),
		transferOwnership(),
		keygen(),
	}
}

func submitProposal() *cobra.Command {
	return newCommand(
		"submit-proposal",
		"Pays the proposal fee and opens a proposal",
		func(flags *pflag.FlagSet) {
			addKeyFlag(flags)
			flags.String(TitleKey, "", "Proposal title")
			flags.Uint64(DurationKey, 3600, "Voting period in seconds")
			flags.String(PaymentKey, "0", "Amount paid towards the proposal fee")
		},
		func(c *cobra.Command, client *api.Client) error {
			flags := c.Flags()
			key, err := parseKey(flags)
			if err != nil {
				return err
			}
			title, err := flags.GetString(TitleKey)
			if err != nil {
				return err
			}
			duration, err := flags.GetUint64(DurationKey)
			if err != nil {
				return err
			}
			payment, err := parseAmount(flags, PaymentKey)
			if err != nil {
				return err
			}
			id, err := client.SubmitProposal(c.Context(), key, title, duration, payment)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]uint64{"proposalID": id})
		},
	)
}

func vote() *cobra.Command {
	return newCommand(
		"vote",
		"Casts an encrypted vote",
		func(flags *pflag.FlagSet) {
			addKeyFlag(flags)
			addProposalIDFlag(flags)
			flags.Bool(SupportKey, false, "Vote yes")
		},
		func(c *cobra.Command, client *api.Client) error {
			flags := c.Flags()
			key, err := parseKey(flags)
			if err != nil {
				return err
			}
			proposalID, err := flags.GetUint64(ProposalIDKey)
			if err != nil {
				return err
			}
			support, err := flags.GetBool(SupportKey)
			if err != nil {
				return err
			}
			return client.Vote(c.Context(), key, proposalID, support)
		},
	)
}

func endVoting() *cobra.Command {
	return newCommand(
		"end-voting",
		"Closes a proposal whose voting period has passed",
		addProposalIDFlag,
		func(c *cobra.Command, client *api.Client) error {
			proposalID, err := c.Flags().GetUint64(ProposalIDKey)
			if err != nil {
				return err
			}
			return client.EndVoting(c.Context(), proposalID)
		},
	)
}

func getProposal() *cobra.Command {
	return newCommand(
		"get-proposal",
		"Prints a proposal",
		addProposalIDFlag,
		func(c *cobra.Command, client *api.Client) error {
			proposalID, err := c.Flags().GetUint64(ProposalIDKey)
			if err != nil {
				return err
			}
			proposal, err := client.GetProposal(c.Context(), proposalID)
			if err != nil {
				return err
			}
			return printJSON(c, proposal)
		},
	)
}

func checkVoteStatus() *cobra.Command {
	return newCommand(
		"check-vote-status",
		"Reports whether voting has ended and whether an address voted",
		func(flags *pflag.FlagSet) {
			addProposalIDFlag(flags)
			flags.String(VoterKey, "", "Address to check")
		},
		func(c *cobra.Command, client *api.Client) error {
			flags := c.Flags()
			proposalID, err := flags.GetUint64(ProposalIDKey)
			if err != nil {
				return err
			}
			voter, err := parseAddress(flags, VoterKey)
			if err != nil {
				return err
			}
			ended, err := client.HasVotingEnded(c.Context(), proposalID)
			if err != nil {
				return err
			}
			voted, err := client.HasVoted(c.Context(), voter, proposalID)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]bool{
				"ended": ended,
				"voted": voted,
			})
		},
	)
}

func decryptVotes() *cobra.Command {
	return newCommand(
		"decrypt-votes",
		"Decrypts the yes and no counts of an ended proposal",
		func(flags *pflag.FlagSet) {
			addKeyFlag(flags)
			addProposalIDFlag(flags)
		},
		func(c *cobra.Command, client *api.Client) error {
			flags := c.Flags()
			key, err := parseKey(flags)
			if err != nil {
				return err
			}
			proposalID, err := flags.GetUint64(ProposalIDKey)
			if err != nil {
				return err
			}
			yes, no, err := client.DecryptVotes(c.Context(), key, proposalID)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]uint64{
				"yes": yes,
				"no":  no,
			})
		},
	)
}

func decryptResult() *cobra.Command {
	return newCommand(
		"decrypt-result",
		"Decrypts the outcome of an ended proposal",
		func(flags *pflag.FlagSet) {
			addKeyFlag(flags)
			addProposalIDFlag(flags)
		},
		func(c *cobra.Command, client *api.Client) error {
			flags := c.Flags()
			key, err := parseKey(flags)
			if err != nil {
				return err
			}
			proposalID, err := flags.GetUint64(ProposalIDKey)
			if err != nil {
				return err
			}
			outcome, err := client.DecryptResult(c.Context(), key, proposalID)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]string{"outcome": outcome.String()})
		},
	)
}

func status() *cobra.Command {
	return newCommand(
		"status",
		"Prints the owner, fee and vault balance",
		nil,
		func(c *cobra.Command, client *api.Client) error {
			reply, err := client.Status(c.Context())
			if err != nil {
				return err
			}
			return printJSON(c, reply)
		},
	)
}

func listProposals() *cobra.Command {
	return newCommand(
		"list-proposals",
		"Lists proposals in creation order",
		addPageFlags,
		func(c *cobra.Command, client *api.Client) error {
			start, limit, err := parsePage(c.Flags())
			if err != nil {
				return err
			}
			proposals, err := client.ListProposals(c.Context(), start, limit)
			if err != nil {
				return err
			}
			return printJSON(c, proposals)
		},
	)
}

func events() *cobra.Command {
	return newCommand(
		"events",
		"Lists emitted events in order",
		addPageFlags,
		func(c *cobra.Command, client *api.Client) error {
			start, limit, err := parsePage(c.Flags())
			if err != nil {
				return err
			}
			events, err := client.GetEvents(c.Context(), start, limit)
			if err != nil {
				return err
			}
			return printJSON(c, events)
		},
	)
}

func parsePage(flags *pflag.FlagSet) (uint64, uint32, error) {
	start, err := flags.GetUint64(StartKey)
	if err != nil {
		return 0, 0, err
	}
	limit, err := flags.GetUint32(LimitKey)
	return start, limit, err
}

func balance() *cobra.Command {
	return newCommand(
		"balance",
		"Prints the spendable balance of an address",
		func(flags *pflag.FlagSet) {
			flags.String(AddressKey, "", "Address to look up")
		},
		func(c *cobra.Command, client *api.Client) error {
			addr, err := parseAddress(c.Flags(), AddressKey)
			if err != nil {
				return err
			}
			balance, err := client.GetBalance(c.Context(), addr)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]string{"balance": balance.Dec()})
		},
	)
}

func setProposalFee() *cobra.Command {
	return newCommand(
		"set-proposal-fee",
		"Sets the fee charged to open a proposal",
		func(flags *pflag.FlagSet) {
			addKeyFlag(flags)
			flags.String(FeeKey, "0", "New proposal fee")
		},
		func(c *cobra.Command, client *api.Client) error {
			key, err := parseKey(c.Flags())
			if err != nil {
				return err
			}
			fee, err := parseAmount(c.Flags(), FeeKey)
			if err != nil {
				return err
			}
			return client.SetProposalFee(c.Context(), key, fee)
		},
	)
}

func withdrawFees() *cobra.Command {
	return newCommand(
		"withdraw-fees",
		"Moves the collected fees to the owner",
		addKeyFlag,
		func(c *cobra.Command, client *api.Client) error {
			key, err := parseKey(c.Flags())
			if err != nil {
				return err
			}
			amount, err := client.WithdrawFees(c.Context(), key)
			if err != nil {
				return err
			}
			return printJSON(c, map[string]string{"amount": amount.Dec()})
		},
	)
}

func transferOwnership() *cobra.Command {
	return newCommand(
		"transfer-ownership",
		"Hands the owner role to another address",
		func(flags *pflag.FlagSet) {
			addKeyFlag(flags)
			flags.String(NewOwnerKey, "", "Address of the new owner")
		},
		func(c *cobra.Command, client *api.Client) error {
			key, err := parseKey(c.Flags())
			if err != nil {
				return err
			}
			newOwner, err := parseAddress(c.Flags(), NewOwnerKey)
			if err != nil {
				return err
			}
			return client.TransferOwnership(c.Context(), key, newOwner)
		},
	)
}

func keygen() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generates a signing key",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			key, err := secp256k1.NewPrivateKey()
			if err != nil {
				return err
			}
			return printJSON(c, map[string]string{
				"privateKey": key.String(),
				"address":    api.Address(key.PublicKey()).Hex(),
			})
		},
	}
}

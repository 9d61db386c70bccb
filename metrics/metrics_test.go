// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	require := require.New(t)

	registry := prometheus.NewRegistry()
	m, err := New(registry)
	require.NoError(err)

	m.MarkProposalCreated()
	m.MarkProposalCreated()
	m.MarkVoteAccepted()
	m.MarkVoteRejected("already_voted")
	m.MarkVoteRejected("already_voted")
	m.MarkVoteRejected("voting_closed")
	m.SetVaultBalance(150)
	m.SetOpenProposals(2)

	families, err := registry.Gather()
	require.NoError(err)

	values := make(map[string]float64)
	for _, family := range families {
		for _, sample := range family.GetMetric() {
			name := family.GetName()
			for _, label := range sample.GetLabel() {
				name += "/" + label.GetValue()
			}
			switch {
			case sample.GetCounter() != nil:
				values[name] = sample.GetCounter().GetValue()
			case sample.GetGauge() != nil:
				values[name] = sample.GetGauge().GetValue()
			}
		}
	}
	require.Equal(map[string]float64{
		"proposals_created":            2,
		"votes_accepted":               1,
		"votes_rejected/already_voted": 2,
		"votes_rejected/voting_closed": 1,
		"votings_ended":                0,
		"decryptions_authorized":       0,
		"fee_withdrawals":              0,
		"vault_balance":                150,
		"open_proposals":               2,
	}, values)
}

func TestDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New(registry)
	require.NoError(t, err)

	_, err = New(registry)
	require.Error(t, err)
}

func TestNoOp(*testing.T) {
	m := NewNoOp()
	m.MarkProposalCreated()
	m.MarkVoteRejected("already_voted")
	m.SetVaultBalance(1)
	m.SetOpenProposals(1)
}

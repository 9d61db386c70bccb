// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"

	"github.com/luxfi/metric"
)

const reasonLabel = "reason"

var _ Metrics = (*metricsImpl)(nil)

// Metrics records what the governance engine does.
type Metrics interface {
	MarkProposalCreated()
	MarkVoteAccepted()
	// MarkVoteRejected counts a failed vote under a short reason such as
	// "already_voted".
	MarkVoteRejected(reason string)
	MarkVotingEnded()
	MarkDecryptionAuthorized()
	MarkFeesWithdrawn()
	SetVaultBalance(balance float64)
	SetOpenProposals(n int)
}

type metricsImpl struct {
	proposalsCreated      metric.Counter
	votesAccepted         metric.Counter
	votesRejected         metric.CounterVec
	votingsEnded          metric.Counter
	decryptionsAuthorized metric.Counter
	withdrawals           metric.Counter
	vaultBalance          metric.Gauge
	openProposals         metric.Gauge
}

// New registers the engine metrics with registerer.
func New(registerer metric.Registerer) (Metrics, error) {
	m := &metricsImpl{
		proposalsCreated: metric.NewCounter(metric.CounterOpts{
			Name: "proposals_created",
			Help: "Number of proposals created",
		}),
		votesAccepted: metric.NewCounter(metric.CounterOpts{
			Name: "votes_accepted",
			Help: "Number of encrypted votes folded into a tally",
		}),
		votesRejected: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "votes_rejected",
				Help: "Number of votes rejected, by reason",
			},
			[]string{reasonLabel},
		),
		votingsEnded: metric.NewCounter(metric.CounterOpts{
			Name: "votings_ended",
			Help: "Number of proposals whose voting has been ended",
		}),
		decryptionsAuthorized: metric.NewCounter(metric.CounterOpts{
			Name: "decryptions_authorized",
			Help: "Number of decryption authorizations granted",
		}),
		withdrawals: metric.NewCounter(metric.CounterOpts{
			Name: "fee_withdrawals",
			Help: "Number of fee withdrawals",
		}),
		vaultBalance: metric.NewGauge(metric.GaugeOpts{
			Name: "vault_balance",
			Help: "Fees held by the vault",
		}),
		openProposals: metric.NewGauge(metric.GaugeOpts{
			Name: "open_proposals",
			Help: "Number of proposals that have not been ended",
		}),
	}

	err := errors.Join(
		registerer.Register(metric.AsCollector(m.proposalsCreated)),
		registerer.Register(metric.AsCollector(m.votesAccepted)),
		registerer.Register(metric.AsCollector(m.votesRejected)),
		registerer.Register(metric.AsCollector(m.votingsEnded)),
		registerer.Register(metric.AsCollector(m.decryptionsAuthorized)),
		registerer.Register(metric.AsCollector(m.withdrawals)),
		registerer.Register(metric.AsCollector(m.vaultBalance)),
		registerer.Register(metric.AsCollector(m.openProposals)),
	)
	return m, err
}

func (m *metricsImpl) MarkProposalCreated() {
	m.proposalsCreated.Inc()
}

func (m *metricsImpl) MarkVoteAccepted() {
	m.votesAccepted.Inc()
}

func (m *metricsImpl) MarkVoteRejected(reason string) {
	m.votesRejected.With(metric.Labels{
		reasonLabel: reason,
	}).Inc()
}

func (m *metricsImpl) MarkVotingEnded() {
	m.votingsEnded.Inc()
}

func (m *metricsImpl) MarkDecryptionAuthorized() {
	m.decryptionsAuthorized.Inc()
}

func (m *metricsImpl) MarkFeesWithdrawn() {
	m.withdrawals.Inc()
}

func (m *metricsImpl) SetVaultBalance(balance float64) {
	m.vaultBalance.Set(balance)
}

func (m *metricsImpl) SetOpenProposals(n int) {
	m.openProposals.Set(float64(n))
}

type noMetrics struct{}

// NewNoOp returns a Metrics that records nothing.
func NewNoOp() Metrics {
	return noMetrics{}
}

func (noMetrics) MarkProposalCreated()      {}
func (noMetrics) MarkVoteAccepted()         {}
func (noMetrics) MarkVoteRejected(string)   {}
func (noMetrics) MarkVotingEnded()          {}
func (noMetrics) MarkDecryptionAuthorized() {}
func (noMetrics) MarkFeesWithdrawn()        {}
func (noMetrics) SetVaultBalance(float64)   {}
func (noMetrics) SetOpenProposals(int)      {}

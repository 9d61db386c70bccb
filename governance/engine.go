// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/govvm/fhe"
	"github.com/luxfi/govvm/metrics"
)

var (
	proposalPrefix = []byte("proposal")
	votePrefix     = []byte("vote")
	vaultPrefix    = []byte("vault")
	bankPrefix     = []byte("bank")
	eventPrefix    = []byte("event")
	metaPrefix     = []byte("meta")

	initializedKey = []byte("initialized")
)

const defaultCacheSize = 1024

// FeePolicy decides what happens when a proposer offers more than the fee.
type FeePolicy string

const (
	// FeePolicyExact rejects any payment other than the exact fee.
	FeePolicyExact FeePolicy = "exact"
	// FeePolicyRefund charges the fee and leaves the excess with the payer.
	FeePolicyRefund FeePolicy = "refund"
)

func (p FeePolicy) Valid() bool {
	return p == FeePolicyExact || p == FeePolicyRefund
}

// Clock reports the current logical time in unix seconds.
type Clock interface {
	Unix() uint64
}

// Config is the genesis and policy configuration of an Engine. Owner,
// ProposalFee and Allocations only apply when the database is empty.
type Config struct {
	Owner       common.Address
	ProposalFee *uint256.Int
	FeePolicy   FeePolicy
	// PermitTTL bounds decryption permits, in seconds. 0 never expires.
	PermitTTL   uint64
	Allocations map[common.Address]*uint256.Int
	CacheSize   int
}

// Status is a snapshot of the engine's global state.
type Status struct {
	Owner          common.Address `json:"owner"`
	ProposalFee    *uint256.Int   `json:"proposalFee"`
	VaultBalance   *uint256.Int   `json:"vaultBalance"`
	NextProposalID uint64         `json:"nextProposalID"`
	TotalProposals uint64         `json:"totalProposals"`
	OpenProposals  uint64         `json:"openProposals"`
	FeePolicy      FeePolicy      `json:"feePolicy"`
}

// Engine is the confidential proposal and tally engine. Every mutating
// operation runs as a single serialized transaction: it either commits all of
// its writes or none of them.
type Engine struct {
	log       log.Logger
	arith     fhe.Arithmetic
	clock     Clock
	metrics   metrics.Metrics
	feePolicy FeePolicy
	permitTTL uint64

	mu            sync.RWMutex
	db            database.Database
	proposalCache cache.Cacher[uint64, *Proposal]
}

// state is the set of components bound to one transaction or read view.
type state struct {
	now       uint64
	proposals *ProposalStore
	ledger    *VoteLedger
	bank      *Bank
	vault     *FeeVault
	events    *EventLog
	tally     *TallyEngine
	gate      *DecryptionGate

	// onCommit runs, in order, once the transaction's writes are committed.
	onCommit []func() error
}

// afterCommit defers f until the transaction has been committed. f is
// dropped if the transaction aborts.
func (s *state) afterCommit(f func() error) {
	s.onCommit = append(s.onCommit, f)
}

func New(
	logger log.Logger,
	db database.Database,
	arith fhe.Arithmetic,
	clock Clock,
	m metrics.Metrics,
	config Config,
) (*Engine, error) {
	if !config.FeePolicy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFeePolicy, config.FeePolicy)
	}
	cacheSize := config.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	e := &Engine{
		log:           logger,
		arith:         arith,
		clock:         clock,
		metrics:       m,
		feePolicy:     config.FeePolicy,
		permitTTL:     config.PermitTTL,
		db:            db,
		proposalCache: lru.NewCache[uint64, *Proposal](cacheSize),
	}
	if err := e.initialize(config); err != nil {
		return nil, err
	}

	status, err := e.Status()
	if err != nil {
		return nil, err
	}
	e.metrics.SetOpenProposals(int(status.OpenProposals))
	e.metrics.SetVaultBalance(amountFloat(status.VaultBalance))
	e.log.Info("governance engine started",
		log.Stringer("owner", status.Owner),
		log.String("proposalFee", status.ProposalFee.Dec()),
		log.Uint64("nextProposalID", status.NextProposalID),
		log.String("feePolicy", string(e.feePolicy)),
	)
	return e, nil
}

func (e *Engine) initialize(config Config) error {
	meta := prefixdb.New(metaPrefix, e.db)
	initialized, err := meta.Has(initializedKey)
	if err != nil {
		return err
	}
	if initialized {
		return nil
	}

	fee := config.ProposalFee
	if fee == nil {
		fee = new(uint256.Int)
	}
	return e.transact(func(s *state) error {
		if err := s.vault.setOwner(config.Owner); err != nil {
			return err
		}
		if err := putAmount(s.vault.db, feeKey, fee); err != nil {
			return err
		}
		for addr, amount := range config.Allocations {
			if err := s.bank.Credit(addr, amount); err != nil {
				return err
			}
		}
		return s.proposals.meta.Put(initializedKey, []byte{1})
	})
}

func (e *Engine) newState(db database.Database, now uint64) *state {
	meta := prefixdb.New(metaPrefix, db)
	proposals := NewProposalStore(prefixdb.New(proposalPrefix, db), meta, e.proposalCache)
	ledger := NewVoteLedger(prefixdb.New(votePrefix, db))
	bank := NewBank(prefixdb.New(bankPrefix, db))
	return &state{
		now:       now,
		proposals: proposals,
		ledger:    ledger,
		bank:      bank,
		vault:     NewFeeVault(prefixdb.New(vaultPrefix, db), bank),
		events:    NewEventLog(prefixdb.New(eventPrefix, db), meta),
		tally:     NewTallyEngine(e.arith, proposals, ledger),
		gate:      NewDecryptionGate(e.arith, e.permitTTL),
	}
}

// transact runs fn against a versioned view of the database, committing its
// writes only if fn succeeds.
func (e *Engine) transact(fn func(*state) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	vdb := versiondb.New(e.db)
	s := e.newState(vdb, e.clock.Unix())
	if err := fn(s); err != nil {
		vdb.Abort()
		return err
	}
	if err := vdb.Commit(); err != nil {
		vdb.Abort()
		return fmt.Errorf("failed to commit: %w", err)
	}
	s.proposals.Flush()

	for _, f := range s.onCommit {
		if err := f(); err != nil {
			return err
		}
	}
	for _, event := range s.events.Pending() {
		e.log.Info("governance event",
			log.Stringer("kind", event.Kind),
			log.Uint64("seq", event.Seq),
			log.Uint64("proposalID", event.ProposalID),
			log.Stringer("account", event.Account),
		)
	}
	return nil
}

// view runs fn against the committed state.
func (e *Engine) view(fn func(*state) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return fn(e.newState(e.db, e.clock.Unix()))
}

// CreateProposal charges the proposal fee to proposer and opens a proposal
// that accepts votes for duration seconds.
func (e *Engine) CreateProposal(title string, duration uint64, payment *uint256.Int, proposer common.Address) (uint64, error) {
	if payment == nil {
		payment = new(uint256.Int)
	}
	var (
		id      uint64
		balance *uint256.Int
	)
	err := e.transact(func(s *state) error {
		if _, err := expirationOf(s.now, duration); err != nil {
			return err
		}
		fee, err := s.vault.Fee()
		if err != nil {
			return err
		}
		charged, err := e.charge(fee, payment)
		if err != nil {
			return err
		}
		if err := s.bank.Debit(proposer, charged); err != nil {
			return err
		}
		if err := s.vault.Deposit(charged); err != nil {
			return err
		}

		yes, err := s.tally.Zero()
		if err != nil {
			return err
		}
		no, err := s.tally.Zero()
		if err != nil {
			return err
		}
		p, err := s.proposals.Create(title, duration, proposer, s.now, charged, yes, no)
		if err != nil {
			return err
		}
		id = p.ID

		balance, err = s.vault.Balance()
		if err != nil {
			return err
		}
		return s.events.Append(&Event{
			Kind:       EventProposalCreated,
			Timestamp:  s.now,
			ProposalID: p.ID,
			Title:      p.Title,
			Expiration: p.Expiration,
			Account:    proposer,
			Amount:     *charged,
		})
	})
	if err != nil {
		return 0, err
	}

	e.metrics.MarkProposalCreated()
	e.metrics.SetVaultBalance(amountFloat(balance))
	e.refreshOpenProposals()
	return id, nil
}

// charge returns the amount to take from a proposer offering payment.
func (e *Engine) charge(fee, payment *uint256.Int) (*uint256.Int, error) {
	if payment.Lt(fee) {
		return nil, fmt.Errorf("%w: paid %s, fee is %s", ErrInsufficientFee, payment.Dec(), fee.Dec())
	}
	if payment.Gt(fee) && e.feePolicy == FeePolicyExact {
		return nil, fmt.Errorf("%w: paid %s, fee is %s", ErrFeeOverpayment, payment.Dec(), fee.Dec())
	}
	return fee.Clone(), nil
}

// Vote casts voter's encrypted support on a proposal. The input must have
// been produced for voter.
func (e *Engine) Vote(proposalID uint64, support fhe.Input, voter common.Address) error {
	err := e.transact(func(s *state) error {
		if support.Type != fhe.EBool {
			return fmt.Errorf("%w: vote must be %s, got %s", fhe.ErrTypeMismatch, fhe.EBool, support.Type)
		}
		p, err := s.proposals.Get(proposalID)
		if err != nil {
			return err
		}
		if err := s.tally.CastVote(p, voter, support.Handle, support.Proof, s.now); err != nil {
			return err
		}
		return s.events.Append(&Event{
			Kind:       EventVoteCast,
			Timestamp:  s.now,
			ProposalID: proposalID,
			Account:    voter,
		})
	})
	if err != nil {
		e.metrics.MarkVoteRejected(rejectReason(err))
		return err
	}
	e.metrics.MarkVoteAccepted()
	return nil
}

// EndVoting closes an expired proposal and computes its encrypted result.
// Anyone may call it.
func (e *Engine) EndVoting(proposalID uint64) error {
	err := e.transact(func(s *state) error {
		p, err := s.proposals.Get(proposalID)
		if err != nil {
			return err
		}
		if !p.HasVotingEnded(s.now) {
			return fmt.Errorf("%w: proposal %d expires at %d", ErrNotYetExpired, p.ID, p.Expiration)
		}
		if !p.IsActive() {
			return fmt.Errorf("%w: %d", ErrAlreadyEnded, p.ID)
		}
		result, err := s.tally.ComputeResult(p)
		if err != nil {
			return err
		}
		if err := s.proposals.MarkEnded(p, result); err != nil {
			return err
		}
		return s.events.Append(&Event{
			Kind:       EventVotingEnded,
			Timestamp:  s.now,
			ProposalID: p.ID,
		})
	})
	if err != nil {
		return err
	}
	e.metrics.MarkVotingEnded()
	e.refreshOpenProposals()
	return nil
}

// SetProposalFee changes the fee of proposals created afterwards. A nil fee
// is zero.
func (e *Engine) SetProposalFee(fee *uint256.Int, caller common.Address) error {
	if fee == nil {
		fee = new(uint256.Int)
	}
	return e.transact(func(s *state) error {
		if err := s.vault.SetFee(fee, caller); err != nil {
			return err
		}
		return s.events.Append(&Event{
			Kind:      EventFeeChanged,
			Timestamp: s.now,
			Account:   caller,
			Amount:    *fee,
		})
	})
}

// WithdrawFees pays every collected fee to the owner and returns the amount.
func (e *Engine) WithdrawFees(caller common.Address) (*uint256.Int, error) {
	var amount *uint256.Int
	err := e.transact(func(s *state) error {
		var err error
		amount, err = s.vault.Withdraw(caller)
		if err != nil {
			return err
		}
		return s.events.Append(&Event{
			Kind:      EventFeesWithdrawn,
			Timestamp: s.now,
			Account:   caller,
			Amount:    *amount,
		})
	})
	if err != nil {
		return nil, err
	}
	e.metrics.MarkFeesWithdrawn()
	e.metrics.SetVaultBalance(0)
	return amount, nil
}

// TransferOwnership hands fee control and decryption rights to newOwner.
func (e *Engine) TransferOwnership(newOwner, caller common.Address) error {
	return e.transact(func(s *state) error {
		if err := s.vault.TransferOwnership(newOwner, caller); err != nil {
			return err
		}
		return s.events.Append(&Event{
			Kind:      EventOwnershipTransferred,
			Timestamp: s.now,
			Account:   newOwner,
		})
	})
}

// AuthorizeDecryption grants requester permits on the tally and result of
// an ended proposal and returns when they expire (0 for never).
func (e *Engine) AuthorizeDecryption(proposalID uint64, requester common.Address) (uint64, error) {
	var expiry uint64
	err := e.transact(func(s *state) error {
		p, err := s.proposals.Get(proposalID)
		if err != nil {
			return err
		}
		owner, err := s.vault.Owner()
		if err != nil {
			return err
		}
		if err := s.gate.Check(p, requester, owner); err != nil {
			return err
		}
		if err := s.events.Append(&Event{
			Kind:       EventDecryptionAuthorized,
			Timestamp:  s.now,
			ProposalID: p.ID,
			Account:    requester,
		}); err != nil {
			return err
		}
		expiry = s.gate.Expiry(s.now)
		// Permits live outside the transaction, so they are only granted
		// once the authorization is committed.
		s.afterCommit(func() error {
			return s.gate.Authorize(p, requester, owner, expiry)
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.metrics.MarkDecryptionAuthorized()
	return expiry, nil
}

func (e *Engine) GetProposal(proposalID uint64) (*Proposal, error) {
	var p *Proposal
	err := e.view(func(s *state) error {
		var err error
		p, err = s.proposals.Get(proposalID)
		return err
	})
	return p, err
}

func (e *Engine) HasVotingEnded(proposalID uint64) (bool, error) {
	var ended bool
	err := e.view(func(s *state) error {
		var err error
		ended, err = s.proposals.HasVotingEnded(proposalID, s.now)
		return err
	})
	return ended, err
}

// HasVoted reports whether voter has voted on proposalID.
func (e *Engine) HasVoted(voter common.Address, proposalID uint64) (bool, error) {
	var voted bool
	err := e.view(func(s *state) error {
		if _, err := s.proposals.Get(proposalID); err != nil {
			return err
		}
		var err error
		voted, err = s.ledger.HasVoted(proposalID, voter)
		return err
	})
	return voted, err
}

// GetVoteCounts returns the handles of the encrypted yes and no tallies.
func (e *Engine) GetVoteCounts(proposalID uint64) (ids.ID, ids.ID, error) {
	p, err := e.GetProposal(proposalID)
	if err != nil {
		return ids.Empty, ids.Empty, err
	}
	return p.EncryptedYes, p.EncryptedNo, nil
}

// GetProposalResult returns the encrypted result handle and whether it has
// been computed.
func (e *Engine) GetProposalResult(proposalID uint64) (ids.ID, bool, error) {
	p, err := e.GetProposal(proposalID)
	if err != nil {
		return ids.Empty, false, err
	}
	return p.EncryptedResult, p.ResultComputed(), nil
}

// Voters returns how many addresses have voted on proposalID.
func (e *Engine) Voters(proposalID uint64) (uint64, error) {
	var n uint64
	err := e.view(func(s *state) error {
		if _, err := s.proposals.Get(proposalID); err != nil {
			return err
		}
		var err error
		n, err = s.ledger.Voters(proposalID)
		return err
	})
	return n, err
}

func (e *Engine) Owner() (common.Address, error) {
	var owner common.Address
	err := e.view(func(s *state) error {
		var err error
		owner, err = s.vault.Owner()
		return err
	})
	return owner, err
}

func (e *Engine) ProposalFee() (*uint256.Int, error) {
	var fee *uint256.Int
	err := e.view(func(s *state) error {
		var err error
		fee, err = s.vault.Fee()
		return err
	})
	return fee, err
}

func (e *Engine) NextProposalID() (uint64, error) {
	var id uint64
	err := e.view(func(s *state) error {
		var err error
		id, err = s.proposals.NextID()
		return err
	})
	return id, err
}

// BalanceOf returns the bank balance of addr.
func (e *Engine) BalanceOf(addr common.Address) (*uint256.Int, error) {
	var balance *uint256.Int
	err := e.view(func(s *state) error {
		var err error
		balance, err = s.bank.Balance(addr)
		return err
	})
	return balance, err
}

func (e *Engine) Status() (*Status, error) {
	status := &Status{FeePolicy: e.feePolicy}
	err := e.view(func(s *state) error {
		var err error
		if status.Owner, err = s.vault.Owner(); err != nil {
			return err
		}
		if status.ProposalFee, err = s.vault.Fee(); err != nil {
			return err
		}
		if status.VaultBalance, err = s.vault.Balance(); err != nil {
			return err
		}
		if status.NextProposalID, err = s.proposals.NextID(); err != nil {
			return err
		}
		status.TotalProposals = status.NextProposalID - firstProposalID
		status.OpenProposals, err = s.proposals.OpenCount()
		return err
	})
	return status, err
}

// ListProposals returns up to limit proposals starting at id start.
func (e *Engine) ListProposals(start uint64, limit int) ([]*Proposal, error) {
	var proposals []*Proposal
	err := e.view(func(s *state) error {
		var err error
		proposals, err = s.proposals.List(start, limit)
		return err
	})
	return proposals, err
}

// Events returns up to limit events starting at sequence number start.
func (e *Engine) Events(start uint64, limit int) ([]*Event, error) {
	var events []*Event
	err := e.view(func(s *state) error {
		var err error
		events, err = s.events.List(start, limit)
		return err
	})
	return events, err
}

func (e *Engine) refreshOpenProposals() {
	var open uint64
	err := e.view(func(s *state) error {
		var err error
		open, err = s.proposals.OpenCount()
		return err
	})
	if err != nil {
		e.log.Warn("failed to read open proposal count", log.Err(err))
		return
	}
	e.metrics.SetOpenProposals(int(open))
}

func amountFloat(a *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(a.ToBig()).Float64()
	return f
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrProposalNotActive):
		return "not_active"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, fhe.ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, fhe.ErrTypeMismatch), errors.Is(err, fhe.ErrUnknownHandle):
		return "invalid_input"
	default:
		return "internal"
	}
}

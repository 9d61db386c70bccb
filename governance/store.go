// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/cache"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	safemath "github.com/luxfi/govvm/utils/math"
)

var (
	nextIDKey = []byte("nextID")
	openKey   = []byte("open")
)

// firstProposalID is the id of the first proposal ever created.
const firstProposalID uint64 = 1

// ProposalStore is the append-only proposal arena. Ids are dense, starting
// at 1, so membership is a range check against the next id.
//
// A store is bound to one transaction. Proposals it writes are staged in
// dirty and only reach the shared cache through Flush, after the
// transaction commits.
type ProposalStore struct {
	db    database.Database // proposals, keyed by big endian id
	meta  database.Database
	cache cache.Cacher[uint64, *Proposal]
	dirty map[uint64]*Proposal
}

func NewProposalStore(db, meta database.Database, c cache.Cacher[uint64, *Proposal]) *ProposalStore {
	return &ProposalStore{
		db:    db,
		meta:  meta,
		cache: c,
		dirty: make(map[uint64]*Proposal),
	}
}

func proposalKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

// NextID returns the id the next proposal will receive.
func (s *ProposalStore) NextID() (uint64, error) {
	id, err := database.GetUInt64(s.meta, nextIDKey)
	if errors.Is(err, database.ErrNotFound) {
		return firstProposalID, nil
	}
	return id, err
}

// expirationOf returns when a proposal opened at now for duration seconds
// stops accepting votes.
func expirationOf(now, duration uint64) (uint64, error) {
	if duration == 0 {
		return 0, fmt.Errorf("%w: duration must be positive", ErrInvalidDuration)
	}
	expiration, err := safemath.Add(now, duration)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidDuration, err)
	}
	return expiration, nil
}

// Create allocates a new open proposal. yes and no are handles of encrypted
// zeros.
func (s *ProposalStore) Create(
	title string,
	duration uint64,
	proposer common.Address,
	now uint64,
	feePaid *uint256.Int,
	yes, no ids.ID,
) (*Proposal, error) {
	expiration, err := expirationOf(now, duration)
	if err != nil {
		return nil, err
	}
	id, err := s.NextID()
	if err != nil {
		return nil, err
	}

	p := &Proposal{
		ID:           id,
		Title:        title,
		Proposer:     proposer,
		CreatedAt:    now,
		Expiration:   expiration,
		FeePaid:      *feePaid,
		EncryptedYes: yes,
		EncryptedNo:  no,
		Status:       StatusOpen,
	}
	if err := s.put(p); err != nil {
		return nil, err
	}
	if err := database.PutUInt64(s.meta, nextIDKey, id+1); err != nil {
		return nil, err
	}
	open, err := s.OpenCount()
	if err != nil {
		return nil, err
	}
	if err := database.PutUInt64(s.meta, openKey, open+1); err != nil {
		return nil, err
	}
	return p, nil
}

// OpenCount returns how many proposals have not been ended.
func (s *ProposalStore) OpenCount() (uint64, error) {
	n, err := database.GetUInt64(s.meta, openKey)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return n, err
}

// Get returns a copy of the proposal with the given id.
func (s *ProposalStore) Get(id uint64) (*Proposal, error) {
	next, err := s.NextID()
	if err != nil {
		return nil, err
	}
	if id < firstProposalID || id >= next {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if p, ok := s.dirty[id]; ok {
		cp := *p
		return &cp, nil
	}
	if p, ok := s.cache.Get(id); ok {
		cp := *p
		return &cp, nil
	}

	bytes, err := s.db.Get(proposalKey(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	p := &Proposal{}
	if _, err := Codec.Unmarshal(bytes, p); err != nil {
		return nil, fmt.Errorf("failed to parse proposal %d: %w", id, err)
	}
	s.cache.Put(id, p)

	cp := *p
	return &cp, nil
}

// HasVotingEnded reports whether the voting window of id is closed at now.
func (s *ProposalStore) HasVotingEnded(id, now uint64) (bool, error) {
	p, err := s.Get(id)
	if err != nil {
		return false, err
	}
	return p.HasVotingEnded(now), nil
}

// UpdateTally replaces the accumulators of an open proposal.
func (s *ProposalStore) UpdateTally(p *Proposal, yes, no ids.ID) error {
	if !p.IsActive() {
		return fmt.Errorf("%w: %d", ErrProposalNotActive, p.ID)
	}
	p.EncryptedYes = yes
	p.EncryptedNo = no
	return s.put(p)
}

// MarkEnded finalizes p with its encrypted result.
func (s *ProposalStore) MarkEnded(p *Proposal, result ids.ID) error {
	if !p.IsActive() {
		return fmt.Errorf("%w: %d", ErrAlreadyEnded, p.ID)
	}
	open, err := s.OpenCount()
	if err != nil {
		return err
	}
	open, err = safemath.Sub(open, 1)
	if err != nil {
		return fmt.Errorf("open proposal count: %w", err)
	}
	if err := database.PutUInt64(s.meta, openKey, open); err != nil {
		return err
	}
	p.EncryptedResult = result
	p.Status = StatusEnded
	return s.put(p)
}

// List returns up to limit proposals with ids starting at start.
func (s *ProposalStore) List(start uint64, limit int) ([]*Proposal, error) {
	next, err := s.NextID()
	if err != nil {
		return nil, err
	}
	start = max(start, firstProposalID)

	var proposals []*Proposal
	for id := start; id < next && len(proposals) < limit; id++ {
		p, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}

// Flush publishes staged proposals to the shared cache. It must only be
// called once the owning transaction has committed.
func (s *ProposalStore) Flush() {
	for id, p := range s.dirty {
		s.cache.Put(id, p)
	}
	clear(s.dirty)
}

func (s *ProposalStore) put(p *Proposal) error {
	bytes, err := Codec.Marshal(codecVersion, p)
	if err != nil {
		return fmt.Errorf("failed to marshal proposal %d: %w", p.ID, err)
	}
	if err := s.db.Put(proposalKey(p.ID), bytes); err != nil {
		return err
	}
	cp := *p
	s.dirty[p.ID] = &cp
	return nil
}

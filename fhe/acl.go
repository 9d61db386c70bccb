// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhe

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

var (
	ErrNotPermitted  = errors.New("not permitted to access ciphertext")
	ErrPermitExpired = errors.New("permit expired")
)

// PermitOps defines allowed operations in permits
const (
	PermitOpDecrypt uint32 = 1 << iota
	PermitOpReencrypt
)

// Permit grants an address access to a single ciphertext handle.
type Permit struct {
	Handle     ids.ID         `json:"handle"`
	Grantee    common.Address `json:"grantee"`
	Grantor    common.Address `json:"grantor"`
	Operations uint32         `json:"operations"`
	Expiry     uint64         `json:"expiry"` // unix seconds, 0 never expires
	CreatedAt  uint64         `json:"createdAt"`
}

// Expired reports whether the permit is no longer usable at now.
func (p *Permit) Expired(now uint64) bool {
	return p.Expiry != 0 && now >= p.Expiry
}

// ACL is the database-backed permit table shared by the backends.
// Keys are handle || grantee so a lookup never scans.
type ACL struct {
	mu    sync.RWMutex
	db    database.Database
	clock Clock
}

func NewACL(db database.Database, clock Clock) *ACL {
	return &ACL{
		db:    db,
		clock: clock,
	}
}

func permitKey(handle ids.ID, grantee common.Address) []byte {
	key := make([]byte, 0, ids.IDLen+common.AddressLength)
	key = append(key, handle[:]...)
	return append(key, grantee[:]...)
}

// Grant records a permit. Granting again to the same grantee widens the
// operation set and keeps the later of the two expiries.
func (a *ACL) Grant(handle ids.ID, grantee, grantor common.Address, ops uint32, expiry uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Unix()
	permit := &Permit{
		Handle:     handle,
		Grantee:    grantee,
		Grantor:    grantor,
		Operations: ops,
		Expiry:     expiry,
		CreatedAt:  now,
	}

	existing, err := a.get(handle, grantee)
	switch {
	case err == nil && !existing.Expired(now):
		permit.Operations |= existing.Operations
		permit.CreatedAt = existing.CreatedAt
		if existing.Expiry == 0 || (expiry != 0 && existing.Expiry > expiry) {
			permit.Expiry = existing.Expiry
		}
	case err != nil && !errors.Is(err, database.ErrNotFound):
		return err
	}

	data, err := json.Marshal(permit)
	if err != nil {
		return fmt.Errorf("failed to marshal permit: %w", err)
	}
	return a.db.Put(permitKey(handle, grantee), data)
}

// Get returns the permit held by grantee on handle.
func (a *ACL) Get(handle ids.ID, grantee common.Address) (*Permit, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.get(handle, grantee)
}

func (a *ACL) get(handle ids.ID, grantee common.Address) (*Permit, error) {
	data, err := a.db.Get(permitKey(handle, grantee))
	if err != nil {
		return nil, err
	}
	var permit Permit
	if err := json.Unmarshal(data, &permit); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permit: %w", err)
	}
	return &permit, nil
}

// Check fails unless grantee holds a live permit for op on handle.
func (a *ACL) Check(handle ids.ID, grantee common.Address, op uint32) error {
	permit, err := a.Get(handle, grantee)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotPermitted
	}
	if err != nil {
		return err
	}
	if permit.Operations&op == 0 {
		return ErrNotPermitted
	}
	if permit.Expired(a.clock.Unix()) {
		return ErrPermitExpired
	}
	return nil
}

// Revoke removes the permit held by grantee on handle, if any.
func (a *ACL) Revoke(handle ids.ID, grantee common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.db.Delete(permitKey(handle, grantee))
}

// List returns every permit issued on handle.
func (a *ACL) List(handle ids.ID) ([]*Permit, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	it := a.db.NewIteratorWithPrefix(handle[:])
	defer it.Release()

	var permits []*Permit
	for it.Next() {
		var permit Permit
		if err := json.Unmarshal(it.Value(), &permit); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permit: %w", err)
		}
		permits = append(permits, &permit)
	}
	return permits, it.Error()
}

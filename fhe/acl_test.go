// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhe

import (
	"testing"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/govvm/utils/timer/mockable"
)

func newTestACL(t *testing.T) (*ACL, *mockable.Clock) {
	t.Helper()

	clock := &mockable.Clock{}
	clock.Set(time.Unix(1000, 0))
	return NewACL(memdb.New(), clock), clock
}

func TestACLGrantAndCheck(t *testing.T) {
	require := require.New(t)
	acl, clock := newTestACL(t)
	handle := ids.GenerateTestID()

	require.ErrorIs(acl.Check(handle, alice, PermitOpDecrypt), ErrNotPermitted)

	require.NoError(acl.Grant(handle, alice, bob, PermitOpDecrypt, 2000))
	require.NoError(acl.Check(handle, alice, PermitOpDecrypt))
	require.ErrorIs(acl.Check(handle, alice, PermitOpReencrypt), ErrNotPermitted)
	require.ErrorIs(acl.Check(handle, bob, PermitOpDecrypt), ErrNotPermitted)

	permit, err := acl.Get(handle, alice)
	require.NoError(err)
	require.Equal(bob, permit.Grantor)
	require.Equal(uint64(1000), permit.CreatedAt)

	clock.Set(time.Unix(2000, 0))
	require.ErrorIs(acl.Check(handle, alice, PermitOpDecrypt), ErrPermitExpired)
}

func TestACLRegrantMerges(t *testing.T) {
	require := require.New(t)
	acl, _ := newTestACL(t)
	handle := ids.GenerateTestID()

	require.NoError(acl.Grant(handle, alice, bob, PermitOpDecrypt, 0))
	require.NoError(acl.Grant(handle, alice, bob, PermitOpReencrypt, 1500))

	permit, err := acl.Get(handle, alice)
	require.NoError(err)
	require.Equal(PermitOpDecrypt|PermitOpReencrypt, permit.Operations)
	require.Zero(permit.Expiry)
}

func TestACLRevokeAndList(t *testing.T) {
	require := require.New(t)
	acl, _ := newTestACL(t)
	handle := ids.GenerateTestID()

	require.NoError(acl.Grant(handle, alice, alice, PermitOpDecrypt, 0))
	require.NoError(acl.Grant(handle, bob, alice, PermitOpDecrypt, 0))
	require.NoError(acl.Grant(ids.GenerateTestID(), bob, alice, PermitOpDecrypt, 0))

	permits, err := acl.List(handle)
	require.NoError(err)
	require.Len(permits, 2)

	require.NoError(acl.Revoke(handle, bob))
	_, err = acl.Get(handle, bob)
	require.ErrorIs(err, database.ErrNotFound)
	require.ErrorIs(acl.Check(handle, bob, PermitOpDecrypt), ErrNotPermitted)
}

// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package govvm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/govvm/api"
	"github.com/luxfi/govvm/config"
	"github.com/luxfi/govvm/utils/timer/mockable"
)

func TestLifecycle(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	ownerKey, err := secp256k1.NewPrivateKey()
	require.NoError(err)
	owner := api.Address(ownerKey.PublicKey())

	clock := &mockable.Clock{}
	clock.Set(time.Unix(100, 0))

	vm := New(log.NewNoOpLogger())
	require.Equal(Unknown, vm.State())
	require.ErrorIs(vm.SetState(ctx, NormalOp), errNotInitialized)
	_, err = vm.CreateHandlers(ctx)
	require.ErrorIs(err, errNotInitialized)

	require.NoError(vm.Initialize(ctx, &Config{
		ChainID:     ids.GenerateTestID(),
		DB:          memdb.New(),
		ConfigBytes: []byte(`{"owner": "` + owner.Hex() + `", "proposalFee": "0"}`),
		Clock:       clock,
	}))
	require.Equal(Bootstrapping, vm.State())
	require.ErrorIs(vm.Initialize(ctx, &Config{DB: memdb.New()}), errAlreadyInitialized)

	handlers, err := vm.CreateHandlers(ctx)
	require.NoError(err)
	require.Contains(handlers, "/gov")
	require.Contains(handlers, "/fhe")

	mux := http.NewServeMux()
	for endpoint, handler := range handlers {
		mux.Handle("/ext"+endpoint, handler)
	}
	server := httptest.NewServer(mux)
	defer server.Close()
	client := api.NewClient(server.URL)

	// requests are refused until the vm is serving
	_, err = client.Status(ctx)
	require.ErrorContains(err, "503")
	_, err = vm.HealthCheck(ctx)
	require.Error(err)

	require.NoError(vm.SetState(ctx, NormalOp))
	status, err := client.Status(ctx)
	require.NoError(err)
	require.Equal(owner, status.Owner)

	id, err := client.SubmitProposal(ctx, ownerKey, "vm", 10, uint256.NewInt(0))
	require.NoError(err)
	require.NoError(client.Vote(ctx, ownerKey, id, false))

	clock.Set(time.Unix(110, 0))
	require.NoError(client.EndVoting(ctx, id))
	outcome, err := client.DecryptResult(ctx, ownerKey, id)
	require.NoError(err)
	require.Equal("REJECTED", outcome.String())

	health, err := vm.HealthCheck(ctx)
	require.NoError(err)
	require.NotNil(health)

	version, err := vm.Version(ctx)
	require.NoError(err)
	require.Equal(Version, version)

	require.NoError(vm.Shutdown(ctx))
	require.Equal(Stopped, vm.State())
	require.ErrorIs(vm.SetState(ctx, NormalOp), errStopped)
	require.NoError(vm.Shutdown(ctx))
}

func TestInitializeRejectsBadConfig(t *testing.T) {
	require := require.New(t)

	vm := New(log.NewNoOpLogger())
	err := vm.Initialize(context.Background(), &Config{
		DB:          memdb.New(),
		ConfigBytes: []byte(`{"proposalFee": "1"}`),
	})
	require.ErrorIs(err, config.ErrMissingOwner)
	require.Equal(Unknown, vm.State())
}

func TestFactory(t *testing.T) {
	require := require.New(t)

	vmIntf, err := (&Factory{}).New(log.NewNoOpLogger())
	require.NoError(err)
	require.IsType(&VM{}, vmIntf)
}

// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpe-storage/iscsid/collab/fake"
	"github.com/hpe-storage/iscsid/model"
	"github.com/hpe-storage/iscsid/store/memstore"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *fake.SessionManager, *fake.SendTargetsClient, *fake.IsnsClient) {
	t.Helper()
	s := memstore.New()
	sessMgr := fake.NewSessionManager()
	stClient := fake.NewSendTargetsClient()
	isnsClient := fake.NewIsnsClient()

	c, err := Init(Config{
		Store:             s,
		SessionManager:    sessMgr,
		SendTargetsClient: stClient,
		IsnsClient:        isnsClient,
	}, false)
	require.NoError(t, err)
	t.Cleanup(c.Fini)
	return c, sessMgr, stClient, isnsClient
}

func TestPokeWaitsForEveryMethod(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)

	require.NoError(t, c.store.PutStaticTarget(ctx, model.StaticTarget{
		Name: "iqn.2000-01.com.example:disk1",
		Addr: model.SockAddr{Host: "10.0.0.5", Port: 3260},
	}))
	require.NoError(t, c.Enable(ctx, model.All, false))

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, c.Poke(ctx, model.Unknown))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Poke did not return; barrier likely stuck")
	}

	sessions := c.Registry().Snapshot()
	require.Len(t, sessions, 1)
	require.Equal(t, "iqn.2000-01.com.example:disk1", sessions[0].TargetName)
	require.Equal(t, model.Static, sessions[0].Method)
}

func TestPokeSingleMethodDoesNotBlockOnOthers(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)
	require.NoError(t, c.Enable(ctx, model.All, false))

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, c.Poke(ctx, model.Static))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Poke(Static) should complete without waiting on other methods")
	}
}

func TestEnableDisableRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)

	require.NoError(t, c.Enable(ctx, model.Static|model.SendTargets, false))
	_, status, err := c.Props(ctx)
	require.NoError(t, err)
	require.Equal(t, model.Static|model.SendTargets, status.Enabled)
	require.Equal(t, model.SettableMethods, status.Settable)

	require.NoError(t, c.Disable(ctx, model.SendTargets))
	_, status, err = c.Props(ctx)
	require.NoError(t, err)
	require.Equal(t, model.Static, status.Enabled)
}

func TestDisableRemovesEveryMatchingSession(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)
	require.NoError(t, c.Enable(ctx, model.SendTargets, false))

	server := model.SockAddr{Host: "10.0.0.1", Port: 3260}
	target := model.StaticTarget{Name: "iqn.2000-01.com.example:disk7", Addr: model.SockAddr{Host: "10.0.0.9", Port: 3260}}
	require.NoError(t, loginTarget(ctx, c, target, model.SendTargets, server))
	require.Equal(t, 1, c.Registry().Len())

	require.NoError(t, c.Disable(ctx, model.SendTargets))
	require.Equal(t, 0, c.Registry().Len())

	_, status, err := c.Props(ctx)
	require.NoError(t, err)
	require.False(t, status.Enabled.Has(model.SendTargets))
}

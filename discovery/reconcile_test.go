// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpe-storage/iscsid/model"
)

func TestLoginTargetRejectsDisabledMethod(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)

	target := model.StaticTarget{Name: "iqn.2000-01.com.example:disk1", Addr: model.SockAddr{Host: "10.0.0.5", Port: 3260}}
	err := c.LoginTarget(ctx, target, model.Static, model.SockAddr{})
	require.Error(t, err)
	assert.Equal(t, 0, c.Registry().Len())
}

func TestLoginTargetHonorsZeroBoundSessionsPolicy(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)
	require.NoError(t, c.Enable(ctx, model.Static, false))

	target := model.StaticTarget{Name: "iqn.2000-01.com.example:disk1", Addr: model.SockAddr{Host: "10.0.0.5", Port: 3260}}
	require.NoError(t, c.store.PutSessionPolicy(ctx, model.ConfiguredSessionPolicy{TargetName: target.Name, BoundSessions: 0}))

	err := c.LoginTarget(ctx, target, model.Static, model.SockAddr{})
	require.Error(t, err)
	assert.Equal(t, 0, c.Registry().Len())
}

func TestDelMatchesStaticByActiveConnectionAddress(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)
	require.NoError(t, c.Enable(ctx, model.Static, false))

	addr := model.SockAddr{Host: "10.0.0.5", Port: 3260}
	target := model.StaticTarget{Name: "iqn.2000-01.com.example:disk1", Addr: addr}
	require.NoError(t, c.store.PutStaticTarget(ctx, target))
	require.NoError(t, loginTarget(ctx, c, target, model.Static, model.SockAddr{}))
	require.Equal(t, 1, c.Registry().Len())

	require.NoError(t, c.Del(ctx, "", model.Static, addr))
	assert.Equal(t, 0, c.Registry().Len())
}

func TestDelMatchesDiscoveredByServerAddress(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)

	server := model.SockAddr{Host: "10.0.0.1", Port: 3260}
	target := model.StaticTarget{Name: "iqn.2000-01.com.example:disk2", Addr: model.SockAddr{Host: "10.0.0.9", Port: 3260}}
	require.NoError(t, loginTarget(ctx, c, target, model.SendTargets, server))
	require.Equal(t, 1, c.Registry().Len())

	require.NoError(t, c.Del(ctx, "", model.SendTargets, server))
	assert.Equal(t, 0, c.Registry().Len())
}

func TestDelByTargetNameTakesPriorityOverAddress(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)

	server := model.SockAddr{Host: "10.0.0.1", Port: 3260}
	targetA := model.StaticTarget{Name: "iqn.2000-01.com.example:diskA", Addr: model.SockAddr{Host: "10.0.0.9", Port: 3260}}
	targetB := model.StaticTarget{Name: "iqn.2000-01.com.example:diskB", Addr: model.SockAddr{Host: "10.0.0.10", Port: 3260}}
	require.NoError(t, loginTarget(ctx, c, targetA, model.SendTargets, server))
	require.NoError(t, loginTarget(ctx, c, targetB, model.SendTargets, server))
	require.Equal(t, 2, c.Registry().Len())

	require.NoError(t, c.Del(ctx, targetA.Name, model.SendTargets, server))

	sessions := c.Registry().Snapshot()
	require.Len(t, sessions, 1)
	assert.Equal(t, targetB.Name, sessions[0].TargetName)
}

func TestDelWithNoTargetNameOrAddressMatchesEveryMethodSession(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)

	server := model.SockAddr{Host: "10.0.0.1", Port: 3260}
	targetA := model.StaticTarget{Name: "iqn.2000-01.com.example:diskA", Addr: model.SockAddr{Host: "10.0.0.9", Port: 3260}}
	targetB := model.StaticTarget{Name: "iqn.2000-01.com.example:diskB", Addr: model.SockAddr{Host: "10.0.0.10", Port: 3260}}
	require.NoError(t, loginTarget(ctx, c, targetA, model.SendTargets, server))
	require.NoError(t, loginTarget(ctx, c, targetB, model.SendTargets, server))
	require.Equal(t, 2, c.Registry().Len())

	require.NoError(t, c.Del(ctx, "", model.SendTargets, model.SockAddr{}))
	assert.Equal(t, 0, c.Registry().Len())
}

func TestCopyToParamSetRejectsUnsettableAndUnknown(t *testing.T) {
	assert.NoError(t, CopyToParamSet("FirstBurstLength"))
	assert.Error(t, CopyToParamSet("MaxConnections"))
	assert.Error(t, CopyToParamSet("NotARealParam"))
}

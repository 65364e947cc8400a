// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpe-storage/iscsid/model"
)

func TestStaticTargetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	target := model.StaticTarget{
		Name: "iqn.2000-01.com.example:disk1",
		Addr: model.SockAddr{Host: "10.0.0.5", Port: 3260},
		TPGT: -1,
	}
	require.NoError(t, s.PutStaticTarget(ctx, target))

	list, err := s.ListStaticTargets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.StaticTarget{target}, list)

	require.NoError(t, s.DeleteStaticTarget(ctx, target.Name))
	list, err = s.ListStaticTargets(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestParamOverrideUpsert(t *testing.T) {
	ctx := context.Background()
	s := New()
	const target = "iqn.2000-01.com.example:disk1"

	require.NoError(t, s.PutParamOverride(ctx, target, model.ParamOverride{Key: "FirstBurstLength", Value: "8192"}))
	require.NoError(t, s.PutParamOverride(ctx, target, model.ParamOverride{Key: "FirstBurstLength", Value: "16384"}))
	require.NoError(t, s.PutParamOverride(ctx, target, model.ParamOverride{Key: "HeaderDigest", Value: "CRC32C"}))

	overrides, err := s.ListParamOverrides(ctx, target)
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	byKey := map[string]string{}
	for _, o := range overrides {
		byKey[o.Key] = o.Value
	}
	assert.Equal(t, "16384", byKey["FirstBurstLength"])
	assert.Equal(t, "CRC32C", byKey["HeaderDigest"])
}

func TestLockExcludesConcurrentHolders(t *testing.T) {
	ctx := context.Background()
	s := New()

	lock, err := s.Lock(ctx, "iqn.2000-01.com.example:disk1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		l2, err := s.Lock(ctx, "iqn.2000-01.com.example:disk1")
		require.NoError(t, err)
		close(acquired)
		require.NoError(t, l2.Unlock(ctx))
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock should not succeed while the first is held")
	default:
	}

	require.NoError(t, lock.Unlock(ctx))
	<-acquired
}

func TestDiscoveryMethodsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	methods, err := s.GetDiscoveryMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Unknown, methods)

	require.NoError(t, s.PutDiscoveryMethods(ctx, model.Static|model.SendTargets))
	methods, err = s.GetDiscoveryMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Static|model.SendTargets, methods)
}

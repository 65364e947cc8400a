// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpe-storage/iscsid/model"
)

func TestRegistryAddReplacesSameKey(t *testing.T) {
	r := NewRegistry()
	isid := model.ISID{1, 2, 3, 4, 5, 6}

	r.Add(model.Session{TargetName: "t1", ISID: isid, Method: model.Static, TPGT: 1})
	r.Add(model.Session{TargetName: "t1", ISID: isid, Method: model.Static, TPGT: 2})

	require.Equal(t, 1, r.Len())
	found := r.Find("t1", model.Static, isid)
	require.NotNil(t, found)
	assert.EqualValues(t, 2, found.TPGT)
}

func TestRegistryKeysOnMethodToo(t *testing.T) {
	r := NewRegistry()
	isid := model.ISID{1, 2, 3, 4, 5, 6}

	r.Add(model.Session{TargetName: "t1", ISID: isid, Method: model.Static})
	r.Add(model.Session{TargetName: "t1", ISID: isid, Method: model.SendTargets})

	require.Equal(t, 2, r.Len())
	assert.NotNil(t, r.Find("t1", model.Static, isid))
	assert.NotNil(t, r.Find("t1", model.SendTargets, isid))
}

func TestRegistryRemoveMatchingRestartsScan(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		isid := model.ISID{byte(i)}
		r.Add(model.Session{TargetName: "t", ISID: isid, Method: model.Static})
	}

	removed := r.RemoveMatching(func(s model.Session) bool { return true })
	assert.Len(t, removed, 5)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRemoveMatchingIsSelective(t *testing.T) {
	r := NewRegistry()
	r.Add(model.Session{TargetName: "keep", ISID: model.ISID{1}, Method: model.Static})
	r.Add(model.Session{TargetName: "drop", ISID: model.ISID{2}, Method: model.SendTargets})

	removed := r.RemoveMatching(func(s model.Session) bool { return s.Method == model.SendTargets })
	require.Len(t, removed, 1)
	assert.Equal(t, "drop", removed[0].TargetName)
	assert.Equal(t, 1, r.Len())
	assert.NotNil(t, r.Find("keep", model.Static, model.ISID{1}))
}

func TestRegistryHasTarget(t *testing.T) {
	r := NewRegistry()
	r.Add(model.Session{TargetName: "t1", ISID: model.ISID{1}, Method: model.SendTargets})

	assert.True(t, r.HasTarget("t1"))
	assert.False(t, r.HasTarget("t2"))

	r.RemoveMatching(func(s model.Session) bool { return true })
	assert.False(t, r.HasTarget("t1"))
}

func TestRegistrySnapshotOrderIsInsertionOrder(t *testing.T) {
	r := NewRegistry()
	want := []model.Session{
		{TargetName: "a", ISID: model.ISID{1}, Method: model.Static},
		{TargetName: "b", ISID: model.ISID{2}, Method: model.SendTargets},
		{TargetName: "c", ISID: model.ISID{3}, Method: model.ISNS},
	}
	for _, s := range want {
		r.Add(s)
	}

	got := r.Snapshot()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot order mismatch (-want +got):\n%s", diff)
	}
}

// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"container/list"
	"sync"

	"github.com/hpe-storage/iscsid/model"
)

// Registry is the in-memory session/connection table every discovery
// method and the reconciler share. It replaces the original's
// singly-linked hba_sess list with a container/list.List guarded by a
// sync.RWMutex: readers (status queries, discovery passes deciding
// whether a target is already logged in) take the read lock; add/del
// take the write lock.
type Registry struct {
	mu    sync.RWMutex
	order *list.List // element.Value is *model.Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{order: list.New()}
}

// Snapshot returns a copy of every session currently registered. The
// copy is shallow on Connections; callers must not mutate the slice
// in place.
func (r *Registry) Snapshot() []model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Session, 0, r.order.Len())
	for e := r.order.Front(); e != nil; e = e.Next() {
		out = append(out, *e.Value.(*model.Session))
	}
	return out
}

// Find returns the session matching targetName+method+isid, or nil.
// Method is part of the key because deriveISID is a pure function of
// (targetName, index) with no method component: two methods that
// learn the same target name would otherwise collide on the same
// isid slot.
func (r *Registry) Find(targetName string, method model.DiscoveryMethod, isid model.ISID) *model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for e := r.order.Front(); e != nil; e = e.Next() {
		s := e.Value.(*model.Session)
		if s.TargetName == targetName && s.Method == method && s.ISID == isid {
			cp := *s
			return &cp
		}
	}
	return nil
}

// Add inserts sess, replacing any existing entry with the same
// target+method+isid.
func (r *Registry) Add(sess model.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for e := r.order.Front(); e != nil; e = e.Next() {
		s := e.Value.(*model.Session)
		if s.TargetName == sess.TargetName && s.Method == sess.Method && s.ISID == sess.ISID {
			e.Value = &sess
			return
		}
	}
	r.order.PushBack(&sess)
}

// HasTarget reports whether any session, under any discovery method,
// is currently registered for targetName.
func (r *Registry) HasTarget(targetName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for e := r.order.Front(); e != nil; e = e.Next() {
		if e.Value.(*model.Session).TargetName == targetName {
			return true
		}
	}
	return false
}

// RemoveMatching deletes every session for which match returns true,
// restarting the scan from the head after each removal. This mirrors
// iscsid_del's restart-scan-on-destroy pattern, needed there because
// destroying a session could also free adjacent list nodes; here it
// just keeps list mutation and iteration from racing inside one
// traversal.
func (r *Registry) RemoveMatching(match func(model.Session) bool) []model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []model.Session
restart:
	for e := r.order.Front(); e != nil; e = e.Next() {
		s := e.Value.(*model.Session)
		if match(*s) {
			removed = append(removed, *s)
			r.order.Remove(e)
			goto restart
		}
	}
	return removed
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.order.Len()
}

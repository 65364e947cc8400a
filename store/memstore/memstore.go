// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package memstore is an in-memory store.Store used by discovery
// package tests in place of store/etcdstore.
package memstore

import (
	"context"
	"sync"

	"github.com/hpe-storage/iscsid/concurrent"
	"github.com/hpe-storage/iscsid/ierrors"
	"github.com/hpe-storage/iscsid/model"
	"github.com/hpe-storage/iscsid/store"
)

// Store is a sync.Mutex-guarded, process-local store.Store.
type Store struct {
	mu       sync.Mutex
	init     *model.Initiator
	methods  model.DiscoveryMethod
	static   map[string]model.StaticTarget
	discAddr map[string]model.DiscoveryAddress
	params   map[string][]model.ParamOverride
	policy   map[string]model.ConfiguredSessionPolicy

	locks *concurrent.MapMutex
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		static:   make(map[string]model.StaticTarget),
		discAddr: make(map[string]model.DiscoveryAddress),
		params:   make(map[string][]model.ParamOverride),
		policy:   make(map[string]model.ConfiguredSessionPolicy),
		locks:    concurrent.NewMapMutex(),
	}
}

// GetInitiator implements store.Store.
func (s *Store) GetInitiator(_ context.Context) (*model.Initiator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.init == nil {
		return nil, nil
	}
	cp := *s.init
	return &cp, nil
}

// PutInitiator implements store.Store.
func (s *Store) PutInitiator(_ context.Context, init model.Initiator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init = &init
	return nil
}

// GetDiscoveryMethods implements store.Store.
func (s *Store) GetDiscoveryMethods(_ context.Context) (model.DiscoveryMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.methods, nil
}

// PutDiscoveryMethods implements store.Store.
func (s *Store) PutDiscoveryMethods(_ context.Context, methods model.DiscoveryMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = methods
	return nil
}

// ListStaticTargets implements store.Store.
func (s *Store) ListStaticTargets(_ context.Context) ([]model.StaticTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.StaticTarget, 0, len(s.static))
	for _, t := range s.static {
		out = append(out, t)
	}
	return out, nil
}

// PutStaticTarget implements store.Store.
func (s *Store) PutStaticTarget(_ context.Context, t model.StaticTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.static[t.Name] = t
	return nil
}

// DeleteStaticTarget implements store.Store.
func (s *Store) DeleteStaticTarget(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.static, name)
	return nil
}

// ListDiscoveryAddresses implements store.Store.
func (s *Store) ListDiscoveryAddresses(_ context.Context) ([]model.DiscoveryAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.DiscoveryAddress, 0, len(s.discAddr))
	for _, a := range s.discAddr {
		out = append(out, a)
	}
	return out, nil
}

func discAddrKey(addr model.SockAddr, method model.DiscoveryMethod) string {
	return addr.String() + "|" + method.String()
}

// PutDiscoveryAddress implements store.Store.
func (s *Store) PutDiscoveryAddress(_ context.Context, a model.DiscoveryAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discAddr[discAddrKey(a.Addr, a.Method)] = a
	return nil
}

// DeleteDiscoveryAddress implements store.Store.
func (s *Store) DeleteDiscoveryAddress(_ context.Context, addr model.SockAddr, method model.DiscoveryMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.discAddr, discAddrKey(addr, method))
	return nil
}

// ListParamOverrides implements store.Store.
func (s *Store) ListParamOverrides(_ context.Context, targetName string) ([]model.ParamOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ParamOverride(nil), s.params[targetName]...), nil
}

// PutParamOverride implements store.Store.
func (s *Store) PutParamOverride(_ context.Context, targetName string, o model.ParamOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.params[targetName]
	for i, existing := range list {
		if existing.Key == o.Key {
			list[i] = o
			s.params[targetName] = list
			return nil
		}
	}
	s.params[targetName] = append(list, o)
	return nil
}

// DeleteParamOverrides implements store.Store.
func (s *Store) DeleteParamOverrides(_ context.Context, targetName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.params, targetName)
	return nil
}

// RemoveTargetParam implements store.Store.
func (s *Store) RemoveTargetParam(_ context.Context, targetName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.params, targetName)
	delete(s.policy, targetName)
	return nil
}

// GetSessionPolicy implements store.Store.
func (s *Store) GetSessionPolicy(_ context.Context, targetName string) (*model.ConfiguredSessionPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policy[targetName]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// PutSessionPolicy implements store.Store.
func (s *Store) PutSessionPolicy(_ context.Context, p model.ConfiguredSessionPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy[p.TargetName] = p
	return nil
}

// DeleteSessionPolicy implements store.Store.
func (s *Store) DeleteSessionPolicy(_ context.Context, targetName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.policy, targetName)
	return nil
}

// memLock adapts concurrent.MapMutex (which has no owned "ticket" to
// hand back) to the store.Lock interface expected by callers.
type memLock struct {
	locks *concurrent.MapMutex
	key   string
	done  bool
}

func (l *memLock) Unlock(_ context.Context) error {
	if l.done {
		return ierrors.New(ierrors.FailedPrecondition, "lock already released")
	}
	l.done = true
	l.locks.Unlock(l.key)
	return nil
}

// Lock implements store.Store.
func (s *Store) Lock(_ context.Context, key string) (store.Lock, error) {
	s.locks.Lock(key)
	return &memLock{locks: s.locks, key: key}, nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

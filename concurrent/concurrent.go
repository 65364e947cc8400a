/*
(c) Copyright 2018 Hewlett Packard Enterprise Development LP
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package concurrent provides a per-key mutex, used by the discovery
// core to serialize operations against the same target or HBA without
// blocking unrelated keys.
package concurrent

import "sync"

// entry is one named lock plus the count of goroutines currently
// waiting on or holding it, so MapMutex can drop the entry from the
// map once nobody references it any longer.
type entry struct {
	mu       sync.Mutex
	waiters  int
}

// MapMutex hands out an independent, non-reentrant lock per key.
type MapMutex struct {
	guard sync.Mutex
	locks map[string]*entry
}

// NewMapMutex returns a ready-to-use MapMutex.
func NewMapMutex() *MapMutex {
	return &MapMutex{locks: make(map[string]*entry)}
}

// Lock acquires the lock for name, blocking until it is available.
func (m *MapMutex) Lock(name string) {
	m.guard.Lock()
	e, ok := m.locks[name]
	if !ok {
		e = &entry{}
		m.locks[name] = e
	}
	e.waiters++
	m.guard.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for name. Unlock of a name that is not
// currently locked is a programming error, same as sync.Mutex.
func (m *MapMutex) Unlock(name string) {
	m.guard.Lock()
	e, ok := m.locks[name]
	if !ok {
		m.guard.Unlock()
		panic("concurrent: Unlock of unlocked name " + name)
	}
	e.waiters--
	if e.waiters == 0 {
		delete(m.locks, name)
	}
	m.guard.Unlock()

	e.mu.Unlock()
}

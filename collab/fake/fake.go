// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package fake provides in-memory collab.SessionManager,
// collab.SendTargetsClient and collab.IsnsClient implementations for
// tests, driven entirely by data the test installs ahead of time.
package fake

import (
	"context"
	"sync"

	uuid "github.com/satori/go.uuid"

	"github.com/hpe-storage/iscsid/collab"
	"github.com/hpe-storage/iscsid/ierrors"
	"github.com/hpe-storage/iscsid/model"
)

// SessionManager is a fake collab.SessionManager backed by a map.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]model.Session // key: targetName+isid

	// LoginErr, when non-nil, is returned by every Login call instead
	// of succeeding; tests use it to exercise the login-failure paths.
	LoginErr error
}

var _ collab.SessionManager = (*SessionManager)(nil)

// NewSessionManager returns an empty fake session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]model.Session)}
}

func sessionKey(target string, isid model.ISID) string {
	return target + "\x00" + string(isid[:])
}

// Login implements collab.SessionManager.
func (f *SessionManager) Login(_ context.Context, target model.StaticTarget, isid model.ISID, overrides []model.ParamOverride) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.LoginErr != nil {
		return model.Session{}, f.LoginErr
	}

	sess := model.Session{
		OID:        uuid.NewV4().String(),
		TargetName: target.Name,
		ISID:       isid,
		TPGT:       target.TPGT,
		Connections: []model.Connection{{
			CID:       1,
			Addr:      target.Addr,
			IsLeading: true,
		}},
		LoggedIn: true,
	}
	f.sessions[sessionKey(target.Name, isid)] = sess
	return sess, nil
}

// Logout implements collab.SessionManager.
func (f *SessionManager) Logout(_ context.Context, targetName string, isid model.ISID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := sessionKey(targetName, isid)
	if _, ok := f.sessions[key]; !ok {
		return ierrors.New(ierrors.NotFound, "no such session")
	}
	delete(f.sessions, key)
	return nil
}

// ActiveSessions implements collab.SessionManager.
func (f *SessionManager) ActiveSessions(_ context.Context) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

// AddConnection implements collab.SessionManager.
func (f *SessionManager) AddConnection(_ context.Context, targetName string, isid model.ISID, addr model.SockAddr) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := sessionKey(targetName, isid)
	sess, ok := f.sessions[key]
	if !ok {
		return ierrors.New(ierrors.NotFound, "no such session")
	}
	sess.Connections = append(sess.Connections, model.Connection{
		CID:  uint16(len(sess.Connections) + 1),
		Addr: addr,
	})
	f.sessions[key] = sess
	return nil
}

// SendTargetsClient is a fake collab.SendTargetsClient returning a
// fixed, per-address portal list installed by the test.
type SendTargetsClient struct {
	mu      sync.Mutex
	Portals map[model.SockAddr][]model.PortalGroupEntry
	Err     map[model.SockAddr]error
}

var _ collab.SendTargetsClient = (*SendTargetsClient)(nil)

// NewSendTargetsClient returns an empty fake SendTargets client.
func NewSendTargetsClient() *SendTargetsClient {
	return &SendTargetsClient{
		Portals: make(map[model.SockAddr][]model.PortalGroupEntry),
		Err:     make(map[model.SockAddr]error),
	}
}

// SendTargets implements collab.SendTargetsClient.
func (f *SendTargetsClient) SendTargets(_ context.Context, addr model.SockAddr) ([]model.PortalGroupEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.Err[addr]; ok {
		return nil, err
	}
	return append([]model.PortalGroupEntry(nil), f.Portals[addr]...), nil
}

// IsnsClient is a fake collab.IsnsClient tracking subscriptions and
// returning an installed portal list per server.
type IsnsClient struct {
	mu            sync.Mutex
	Portals       map[model.SockAddr][]model.PortalGroupEntry
	Subscriptions map[model.SockAddr]bool
	handler       collab.ScnHandler
}

var _ collab.IsnsClient = (*IsnsClient)(nil)

// NewIsnsClient returns an empty fake iSNS client.
func NewIsnsClient() *IsnsClient {
	return &IsnsClient{
		Portals:       make(map[model.SockAddr][]model.PortalGroupEntry),
		Subscriptions: make(map[model.SockAddr]bool),
	}
}

// Query implements collab.IsnsClient.
func (f *IsnsClient) Query(_ context.Context, server model.SockAddr) ([]model.PortalGroupEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PortalGroupEntry(nil), f.Portals[server]...), nil
}

// Subscribe implements collab.IsnsClient.
func (f *IsnsClient) Subscribe(_ context.Context, server model.SockAddr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Subscriptions[server] = true
	return nil
}

// Unsubscribe implements collab.IsnsClient.
func (f *IsnsClient) Unsubscribe(_ context.Context, server model.SockAddr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Subscriptions, server)
	return nil
}

// IsSubscribed reports whether the test previously subscribed to
// server; used by tests asserting SCN wiring.
func (f *IsnsClient) IsSubscribed(server model.SockAddr) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Subscriptions[server]
}

// Register implements collab.IsnsClient.
func (f *IsnsClient) Register(handler collab.ScnHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

// Deliver simulates server.Source sending ev to the registered
// handler, the way a test drives SCN ingress without a real iSNS
// server.
func (f *IsnsClient) Deliver(ctx context.Context, ev model.ScnEvent) error {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler == nil {
		return ierrors.New(ierrors.FailedPrecondition, "no SCN handler registered")
	}
	return handler(ctx, ev)
}

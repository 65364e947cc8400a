// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package collab declares the interfaces the discovery core consumes
// but does not implement itself: the session manager that actually
// owns iSCSI logins on the host, the SendTargets wire client, and the
// iSNS client. Production wiring in cmd/iscsid supplies real
// implementations that talk to the kernel iSCSI driver and the
// network; collab/fake supplies in-memory stand-ins for tests.
package collab

import (
	"context"

	"github.com/hpe-storage/iscsid/model"
)

// SessionManager owns the actual login/logout of iSCSI sessions on
// the host. The discovery core calls it to reconcile the session
// table against discovered targets; it never manipulates kernel
// sessions directly.
type SessionManager interface {
	// Login establishes a session to target at addr under isid,
	// applying any param overrides already on file for target.
	Login(ctx context.Context, target model.StaticTarget, isid model.ISID, overrides []model.ParamOverride) (model.Session, error)

	// Logout tears down the named session.
	Logout(ctx context.Context, targetName string, isid model.ISID) error

	// ActiveSessions lists every session currently known to the
	// kernel, regardless of how it was discovered.
	ActiveSessions(ctx context.Context) ([]model.Session, error)

	// AddConnection adds a connection to an already logged-in
	// session (multipathing).
	AddConnection(ctx context.Context, targetName string, isid model.ISID, addr model.SockAddr) error
}

// SendTargetsClient issues the iSCSI SendTargets text request against
// a discovery portal and returns the portal groups it advertises.
type SendTargetsClient interface {
	SendTargets(ctx context.Context, addr model.SockAddr) ([]model.PortalGroupEntry, error)
}

// ScnHandler processes one iSNS state change notification delivered
// asynchronously by the client (see Register), independent of any
// discovery pass in progress.
type ScnHandler func(ctx context.Context, ev model.ScnEvent) error

// IsnsClient queries an iSNS server for the portal groups it knows
// about and lets the caller (un)subscribe for state change
// notifications on them.
type IsnsClient interface {
	Query(ctx context.Context, server model.SockAddr) ([]model.PortalGroupEntry, error)
	Subscribe(ctx context.Context, server model.SockAddr) error
	Unsubscribe(ctx context.Context, server model.SockAddr) error

	// Register installs the callback the client invokes whenever an
	// SCN notification arrives for a subscribed server, the Go
	// counterpart of isns_scn_callback being wired into the original
	// daemon's thread table at startup. Register is called once, at
	// Coordinator construction.
	Register(handler ScnHandler)
}

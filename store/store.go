// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package store declares the persistence contract the discovery core
// uses for every piece of administrator-configured state: the local
// initiator identity, the discovery method bitmask, static targets,
// SendTargets/iSNS discovery addresses, per-target parameter
// overrides, and configured-session policy records. It mirrors the
// persistent_* entry points of the original daemon, one method per
// record kind, plus a per-key distributed lock used to serialize
// concurrent add/remove against the same key across daemon instances.
package store

import (
	"context"

	"github.com/hpe-storage/iscsid/model"
)

// Lock is a held distributed lock on a single key. Callers must call
// Unlock exactly once to release it.
type Lock interface {
	Unlock(ctx context.Context) error
}

// Store is the full persistence contract consumed by the discovery
// core. Implementations: store/etcdstore (production) and
// store/memstore (tests).
type Store interface {
	// Initiator identity
	GetInitiator(ctx context.Context) (*model.Initiator, error)
	PutInitiator(ctx context.Context, init model.Initiator) error

	// Discovery method bitmask (which of Static/SendTargets/iSNS/SLP
	// are currently enabled).
	GetDiscoveryMethods(ctx context.Context) (model.DiscoveryMethod, error)
	PutDiscoveryMethods(ctx context.Context, methods model.DiscoveryMethod) error

	// Static targets, keyed by target name.
	ListStaticTargets(ctx context.Context) ([]model.StaticTarget, error)
	PutStaticTarget(ctx context.Context, t model.StaticTarget) error
	DeleteStaticTarget(ctx context.Context, name string) error

	// SendTargets/iSNS discovery server addresses.
	ListDiscoveryAddresses(ctx context.Context) ([]model.DiscoveryAddress, error)
	PutDiscoveryAddress(ctx context.Context, a model.DiscoveryAddress) error
	DeleteDiscoveryAddress(ctx context.Context, addr model.SockAddr, method model.DiscoveryMethod) error

	// Per-target login parameter overrides.
	ListParamOverrides(ctx context.Context, targetName string) ([]model.ParamOverride, error)
	PutParamOverride(ctx context.Context, targetName string, o model.ParamOverride) error
	DeleteParamOverrides(ctx context.Context, targetName string) error

	// RemoveTargetParam purges every per-target record — parameter
	// overrides and session policy alike — left over once a
	// discovered target has no sessions and no static entry naming it
	// remains, mirroring iscsid_remove_target_param.
	RemoveTargetParam(ctx context.Context, targetName string) error

	// Configured-session policy, one record per target.
	GetSessionPolicy(ctx context.Context, targetName string) (*model.ConfiguredSessionPolicy, error)
	PutSessionPolicy(ctx context.Context, p model.ConfiguredSessionPolicy) error
	DeleteSessionPolicy(ctx context.Context, targetName string) error

	// Lock acquires a distributed lock on key, blocking until it is
	// free or ctx is done.
	Lock(ctx context.Context, key string) (Lock, error)

	// Close releases any resources (network connections, leases)
	// held by the store.
	Close() error
}

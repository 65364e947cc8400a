// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"

	"github.com/hpe-storage/iscsid/model"
)

// Method is one of the four discovery methods the coordinator drives:
// Static, SendTargets, iSNS, or SLP. It replaces the original
// function-pointer worker table (iscsid_thr_table) with an ordinary
// interface, so Coordinator can hold a fixed [4]*worker array (one
// worker per Method) instead of walking a sentinel-terminated C array.
type Method interface {
	// Bit identifies this method in a model.DiscoveryMethod bitmask.
	Bit() model.DiscoveryMethod
	// Name is the method's log-friendly name.
	Name() string
	// RunOnce performs a single discovery pass: for SendTargets/iSNS,
	// query every configured server and reconcile the portals found
	// against the session registry; for Static, reconcile the
	// configured target list; SLP is a stub and always returns nil.
	RunOnce(ctx context.Context, c *Coordinator) error
}

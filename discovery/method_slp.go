// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"

	"github.com/hpe-storage/iscsid/model"
)

// slpMethod is the fourth discovery method's placeholder. The
// original daemon carries an SLP thread table entry whose ioctl was
// never wired up on most platforms either; this keeps the same shape
// (a fourth worker slot that always reports complete) rather than
// shrinking the method set to three, since the registry and bitmask
// assume all four bits exist.
type slpMethod struct{}

func (*slpMethod) Bit() model.DiscoveryMethod { return model.SLP }
func (*slpMethod) Name() string               { return "SLP" }

func (*slpMethod) RunOnce(context.Context, *Coordinator) error { return nil }

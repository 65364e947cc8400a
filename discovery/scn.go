// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"

	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
)

// HandleSCN processes one iSNS state change notification, the Go
// counterpart of isns_scn_callback. Unlike the original, which frees
// its notification argument on every exit path (including the
// unrecognized-object-type default), there is nothing to free here:
// ev is an ordinary value, so every switch arm below only needs to
// decide what to do, not whether to clean up afterward.
func HandleSCN(ctx context.Context, c *Coordinator, ev model.ScnEvent) error {
	switch ev.ObjectType {
	case model.ScnObjectISCSI, model.ScnObjectPG:
		// handled below
	default:
		log.Tracef("discovery: SCN for unhandled object type %d ignored", ev.ObjectType)
		return nil
	}

	switch ev.Change {
	case model.ScnAdded, model.ScnUpdated:
		return handleScnAddedOrUpdated(ctx, c, ev)
	case model.ScnRemoved:
		// Match by the target name the SCN names, falling back to the
		// originating server address only if the notification omits
		// one; matching on Source alone would drop every session
		// discovered from that server, not just the one that changed.
		return c.Del(ctx, ev.TargetName, model.ISNS, ev.Source)
	default:
		log.Tracef("discovery: SCN with unrecognized change type %d ignored", ev.Change)
		return nil
	}
}

func handleScnAddedOrUpdated(ctx context.Context, c *Coordinator, ev model.ScnEvent) error {
	enabled, err := c.store.GetDiscoveryMethods(ctx)
	if err != nil {
		return err
	}
	if !enabled.Has(model.ISNS) {
		return nil
	}

	portals, err := c.isnsClient.Query(ctx, ev.Source)
	if err != nil {
		c.sink.DiscoveryFailed(ev.TargetName, err)
		return err
	}

	for _, pg := range portals {
		if ev.TargetName != "" && pg.TargetName != ev.TargetName {
			continue
		}
		target := model.StaticTarget{Name: pg.TargetName, Addr: pg.Addr, TPGT: pg.TPGT}
		if err := loginIfAbsent(ctx, c, target, model.ISNS, ev.Source); err != nil {
			log.Warnf("discovery: SCN-triggered login to %s failed: %s", pg.TargetName, err.Error())
		}
	}
	return nil
}

// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"

	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
)

// sendTargetsMethod queries every configured SendTargets discovery
// address and reconciles the portals it returns against the session
// registry. The original's buffer-overflow-retry dance
// (iscsid_do_sendtgts growing stl_hdr to stl_out_cnt and retrying
// once) doesn't apply here: collab.SendTargetsClient.SendTargets
// returns a Go slice sized to whatever the server sent, so there is no
// fixed-size buffer to outgrow.
type sendTargetsMethod struct{}

func (*sendTargetsMethod) Bit() model.DiscoveryMethod { return model.SendTargets }
func (*sendTargetsMethod) Name() string               { return "SendTargets" }

func (*sendTargetsMethod) RunOnce(ctx context.Context, c *Coordinator) error {
	addrs, err := c.store.ListDiscoveryAddresses(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, a := range addrs {
		if a.Method != model.SendTargets {
			continue
		}
		portals, err := c.querySendTargets(ctx, a.Addr)
		if err != nil {
			log.Warnf("discovery: SendTargets query to %s failed: %s", a.Addr, err.Error())
			c.sink.DiscoveryFailed(a.Addr.String(), err)
			continue
		}
		for _, pg := range portals {
			seen[pg.TargetName] = true
			target := model.StaticTarget{Name: pg.TargetName, Addr: pg.Addr, TPGT: pg.TPGT}
			if err := loginIfAbsent(ctx, c, target, model.SendTargets, a.Addr); err != nil {
				log.Warnf("discovery: SendTargets login to %s failed: %s", pg.TargetName, err.Error())
			}
		}
	}

	// Remove SendTargets sessions whose target no longer appeared in
	// any server's response this pass.
	removed := c.registry.RemoveMatching(func(s model.Session) bool {
		return s.Method == model.SendTargets && !seen[s.TargetName]
	})
	for _, s := range removed {
		c.maybeRemoveTargetParam(ctx, s.TargetName)
	}

	return nil
}

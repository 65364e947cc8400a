// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"

	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
)

// isnsMethod queries every configured iSNS server and subscribes to
// state change notifications on it, so subsequent target churn
// arrives via HandleSCN instead of waiting for the next discovery
// pass. This mirrors iscsid_do_isns_query/isns_scn_callback's split
// between a full query (here) and an async SCN ingress (scn.go).
type isnsMethod struct{}

func (*isnsMethod) Bit() model.DiscoveryMethod { return model.ISNS }
func (*isnsMethod) Name() string               { return "iSNS" }

func (*isnsMethod) RunOnce(ctx context.Context, c *Coordinator) error {
	addrs, err := c.store.ListDiscoveryAddresses(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, a := range addrs {
		if a.Method != model.ISNS {
			continue
		}
		if err := c.isnsClient.Subscribe(ctx, a.Addr); err != nil {
			log.Warnf("discovery: iSNS subscribe to %s failed: %s", a.Addr, err.Error())
		}

		portals, err := c.isnsClient.Query(ctx, a.Addr)
		if err != nil {
			log.Warnf("discovery: iSNS query to %s failed: %s", a.Addr, err.Error())
			c.sink.DiscoveryFailed(a.Addr.String(), err)
			continue
		}
		for _, pg := range portals {
			seen[pg.TargetName] = true
			target := model.StaticTarget{Name: pg.TargetName, Addr: pg.Addr, TPGT: pg.TPGT}
			if err := loginIfAbsent(ctx, c, target, model.ISNS, a.Addr); err != nil {
				log.Warnf("discovery: iSNS login to %s failed: %s", pg.TargetName, err.Error())
			}
		}
	}

	removed := c.registry.RemoveMatching(func(s model.Session) bool {
		return s.Method == model.ISNS && !seen[s.TargetName]
	})
	for _, s := range removed {
		c.maybeRemoveTargetParam(ctx, s.TargetName)
	}

	return nil
}

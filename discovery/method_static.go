// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"

	"github.com/hpe-storage/iscsid/model"
)

// staticMethod reconciles the administrator-configured static target
// list against the session registry. Unlike SendTargets/iSNS it never
// talks to the network; every target it owns is already fully
// specified.
type staticMethod struct{}

func (*staticMethod) Bit() model.DiscoveryMethod { return model.Static }
func (*staticMethod) Name() string               { return "Static" }

func (*staticMethod) RunOnce(ctx context.Context, c *Coordinator) error {
	targets, err := c.store.ListStaticTargets(ctx)
	if err != nil {
		return err
	}

	wanted := make(map[string]model.StaticTarget, len(targets))
	for _, t := range targets {
		wanted[t.Name] = t
		if err := loginIfAbsent(ctx, c, t, model.Static, model.SockAddr{}); err != nil {
			return err
		}
	}

	// Drop sessions that were discovered statically but whose static
	// entry has since been removed, matched by target name alone.
	c.registry.RemoveMatching(func(s model.Session) bool {
		if s.Method != model.Static {
			return false
		}
		if _, ok := wanted[s.TargetName]; ok {
			return false
		}
		return true
	})

	return nil
}

// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"

	"github.com/hpe-storage/iscsid/ierrors"
	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
)

// deriveISID produces a stable per-(target,index) ISID. The original
// daemon probes a small table of ISID slots under the session-add
// write lock looking for the first free one (iscsid_add's two-stage
// get_config_session buffer probe); since this registry is keyed by
// (target, method, isid) a deterministic hash serves the same purpose without
// the probe-and-retry dance, at the cost of never reusing a freed slot
// number — harmless, since ISIDs are only ever compared for equality.
func deriveISID(targetName string, index int) model.ISID {
	sum := md5.Sum([]byte(fmt.Sprintf("%s#%d", targetName, index)))
	var isid model.ISID
	copy(isid[:], sum[:len(isid)])
	return isid
}

// loginIfAbsent logs target in under method if no session already
// exists for it, independent of bound-session count; callers that
// need to honor ConfiguredSessionPolicy.BoundSessions call loginTarget
// instead.
func loginIfAbsent(ctx context.Context, c *Coordinator, target model.StaticTarget, method model.DiscoveryMethod, discoveredAddr model.SockAddr) error {
	for _, s := range c.registry.Snapshot() {
		if s.TargetName == target.Name && s.Method == method {
			return nil
		}
	}
	return loginTarget(ctx, c, target, method, discoveredAddr)
}

// loginTarget logs in as many sessions as ConfiguredSessionPolicy asks
// for (defaulting to one), skipping any isid slot already registered.
func loginTarget(ctx context.Context, c *Coordinator, target model.StaticTarget, method model.DiscoveryMethod, discoveredAddr model.SockAddr) error {
	boundSessions := 1
	if policy, err := c.store.GetSessionPolicy(ctx, target.Name); err == nil && policy != nil && policy.BoundSessions > 0 {
		boundSessions = policy.BoundSessions
	}

	overrides, err := c.store.ListParamOverrides(ctx, target.Name)
	if err != nil {
		return err
	}

	lock, err := c.store.Lock(ctx, target.Name)
	if err != nil {
		return err
	}
	defer lock.Unlock(ctx)

	for i := 0; i < boundSessions; i++ {
		isid := deriveISID(target.Name, i)
		if c.registry.Find(target.Name, method, isid) != nil {
			continue
		}
		sess, err := c.sessMgr.Login(ctx, target, isid, overrides)
		if err != nil {
			c.sink.DiscoveryFailed(target.Name, err)
			return err
		}
		sess.Method = method
		sess.DiscoveredAddr = discoveredAddr
		sess.LoggedIn = true
		sess.CreatedAt = time.Now()
		c.registry.Add(sess)
		c.sink.SessionLoggedIn(sess)
	}
	return nil
}

// delPredicateStatic and delPredicateDiscovered are the match rules
// iscsid_del chooses between depending on discovery method: match by
// target name if one is given, else by address if one is given, else
// match every session of that method (both empty — used by Disable's
// full-method purge). For iSNS and SendTargets sessions the address
// compared is the server address the session was discovered through
// (sess_discovered_addr); for Static sessions there is no
// discovered-address concept, so the fallback match is instead
// against the session's active connection's base address. This
// asymmetry looks like it could be a bug in the original — it means a
// Static session surviving on a failed-over connection won't be
// recognized as belonging to the static entry that created it — but
// the spec calls for preserving the original behavior exactly, so it
// is kept here unchanged.
func delPredicateStatic(targetName string, addr model.SockAddr) func(model.Session) bool {
	return func(s model.Session) bool {
		if s.Method != model.Static {
			return false
		}
		if targetName != "" {
			return s.TargetName == targetName
		}
		if addr != (model.SockAddr{}) {
			return s.ActiveConnection().Addr == addr
		}
		return true
	}
}

func delPredicateDiscovered(targetName string, addr model.SockAddr, method model.DiscoveryMethod) func(model.Session) bool {
	return func(s model.Session) bool {
		if s.Method != method {
			return false
		}
		if targetName != "" {
			return s.TargetName == targetName
		}
		if addr != (model.SockAddr{}) {
			return s.DiscoveredAddr == addr
		}
		return true
	}
}

// Del logs out and removes every session matching targetName/addr/method
// — targetName takes priority over addr when both are given, and both
// empty matches every session of that method — restarting the
// registry scan from the head after each removal (see
// Registry.RemoveMatching). Once a removed session was the last one
// registered for its target under a discovered method, and no static
// entry claims that target either, the leftover per-target parameter
// overrides and session policy are purged too. A session whose logout
// fails is put back in the registry; Del goes on with the remaining
// sessions and returns the first logout error.
func (c *Coordinator) Del(ctx context.Context, targetName string, method model.DiscoveryMethod, addr model.SockAddr) error {
	var match func(model.Session) bool
	if method == model.Static {
		match = delPredicateStatic(targetName, addr)
	} else {
		match = delPredicateDiscovered(targetName, addr, method)
	}

	var firstErr error
	removed := c.registry.RemoveMatching(match)
	for _, s := range removed {
		if err := c.sessMgr.Logout(ctx, s.TargetName, s.ISID); err != nil {
			c.sink.DiscoveryFailed(s.TargetName, err)
			c.registry.Add(s)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.sink.SessionLoggedOut(s)
		if s.Method != model.Static {
			c.maybeRemoveTargetParam(ctx, s.TargetName)
		}
	}
	return firstErr
}

// maybeRemoveTargetParam implements the original's
// iscsid_remove_target_param: once a discovered target has no
// sessions left in the registry and no administrator static entry
// claims the name either, its leftover parameter overrides and
// session policy record would otherwise accumulate forever, since
// nothing else ever revisits them.
func (c *Coordinator) maybeRemoveTargetParam(ctx context.Context, targetName string) {
	if c.registry.HasTarget(targetName) {
		return
	}
	targets, err := c.store.ListStaticTargets(ctx)
	if err != nil {
		log.Warnf("discovery: maybeRemoveTargetParam: %s: %s", targetName, err.Error())
		return
	}
	for _, t := range targets {
		if t.Name == targetName {
			return
		}
	}
	if err := c.store.RemoveTargetParam(ctx, targetName); err != nil {
		log.Warnf("discovery: failed to remove leftover target params for %s: %s", targetName, err.Error())
	}
}

// LoginTarget implements the original's try_online decision table for
// a single target: it refuses when the target's discovery method is
// not currently enabled or when a stored session policy for the target
// has BoundSessions == 0; otherwise it logs in every isid slot up to
// the policy's session count (default one) that has no session
// registered under method yet.
func (c *Coordinator) LoginTarget(ctx context.Context, target model.StaticTarget, method model.DiscoveryMethod, discoveredAddr model.SockAddr) error {
	enabled, err := c.store.GetDiscoveryMethods(ctx)
	if err != nil {
		return err
	}
	if !enabled.Has(method) {
		return ierrors.New(ierrors.FailedPrecondition, "discovery method not enabled: "+method.String())
	}

	policy, err := c.store.GetSessionPolicy(ctx, target.Name)
	if err == nil && policy != nil && policy.BoundSessions == 0 {
		// BoundSessions == 0 with an explicit policy record present
		// means "do not auto-login", mirroring the original's
		// distinction between "no record" (use defaults) and "record
		// present but zero" (administrator disabled the target).
		return ierrors.New(ierrors.FailedPrecondition, "target login disabled by session policy: "+target.Name)
	}

	return loginTarget(ctx, c, target, method, discoveredAddr)
}

// reconcileTarget is ConfigOne/ConfigAll's per-target body: log the
// target in if its static entry still exists and it isn't already
// registered, and remove it if the entry is gone.
func reconcileTarget(ctx context.Context, c *Coordinator, targetName string) error {
	targets, err := c.store.ListStaticTargets(ctx)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if t.Name == targetName {
			return loginIfAbsent(ctx, c, t, model.Static, model.SockAddr{})
		}
	}
	// No longer configured: drop any session we are still holding
	// for it under the Static method.
	c.registry.RemoveMatching(func(s model.Session) bool {
		return s.TargetName == targetName && s.Method == model.Static
	})
	return nil
}

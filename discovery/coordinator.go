// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package discovery is the discovery core: the four concurrent
// discovery workers (Static, SendTargets, iSNS, SLP-stub), the
// session/connection registry, the iSNS SCN ingress, the completion
// barrier, and the add/remove/login reconciliation policy that ties
// them together. It is the Go counterpart of the original daemon's
// iscsid.c, restructured around one owned Coordinator value instead
// of global HBA soft state.
package discovery

import (
	"context"
	"sync"
	"time"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/hpe-storage/iscsid/collab"
	"github.com/hpe-storage/iscsid/concurrent"
	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
	"github.com/hpe-storage/iscsid/store"
)

// configStormDelay is the minimum interval between two ConfigOne or
// ConfigAll passes triggered by rapid session-table churn, the Go analogue of
// hba_config_storm_delay/hba_config_lbolt.
const configStormDelay = 2 * time.Second

// fixedEventOrder is the method order Init uses when a startup
// failure means no worker ever ran: Static, SLP, iSNS, SendTargets.
// This deliberately differs from the workers array's canonical order
// (Static, SendTargets, iSNS, SLP) used everywhere else — it is the
// order the original daemon's error path reports methods in, kept
// here for the same reason the rest of this package preserves
// original quirks rather than tidying them away.
var fixedEventOrder = []model.DiscoveryMethod{model.Static, model.SLP, model.ISNS, model.SendTargets}

// Config bundles everything Init needs to bring a Coordinator up.
type Config struct {
	Store             store.Store
	SessionManager    collab.SessionManager
	SendTargetsClient collab.SendTargetsClient
	IsnsClient        collab.IsnsClient
	EventSink         EventSink
}

// Coordinator owns the discovery core for one host. Unlike the
// original's per-soft-state global table, exactly one Coordinator
// value is created at Init and torn down at Fini; nothing about
// discovery is reachable except through a live Coordinator.
type Coordinator struct {
	store      store.Store
	sessMgr    collab.SessionManager
	stClient   collab.SendTargetsClient
	isnsClient collab.IsnsClient
	sink       EventSink

	registry *Registry

	workers [4]*worker // fixed order: Static, SendTargets, iSNS, SLP

	barrierMu           sync.Mutex
	barrierCond         *sync.Cond
	discoveryInProgress bool
	discoveryDone       model.DiscoveryMethod

	configMu     sync.Mutex
	lastConfigAt time.Time

	// sendTargetsSem serializes concurrent SendTargets ioctl-style
	// queries against the same discovery address; configSem does the
	// same for ConfigOne/ConfigAll reconciliation passes against the
	// same target name. Both are the Go analogue of the original's
	// per-HBA semaphore pair guarding send_targets and config_one.
	sendTargetsSem *concurrent.MapMutex
	configSem      *concurrent.MapMutex
}

// Init constructs a Coordinator, bootstraps its persistent state, and
// starts a worker goroutine for every currently-enabled discovery
// method. restart distinguishes a fresh install from a daemon restart
// reloading existing state, the Go counterpart of iscsid_init's
// restart parameter; Bootstrap only uses it for logging, and reloads
// the initiator alias from the host either way.
//
// If any step fails, Init still emits a synthetic START+END pair for
// every discovery method, in fixedEventOrder, so a caller driven
// entirely off the event stream sees a consistent begin/end pair for
// each method even though nothing ever actually ran.
func Init(cfg Config, restart bool) (*Coordinator, error) {
	c := &Coordinator{
		store:          cfg.Store,
		sessMgr:        cfg.SessionManager,
		stClient:       cfg.SendTargetsClient,
		isnsClient:     cfg.IsnsClient,
		sink:           cfg.EventSink,
		registry:       NewRegistry(),
		sendTargetsSem: concurrent.NewMapMutex(),
		configSem:      concurrent.NewMapMutex(),
	}
	if c.sink == nil {
		c.sink = NopEventSink{}
	}
	c.barrierCond = sync.NewCond(&c.barrierMu)

	c.workers[0] = newWorker(&staticMethod{})
	c.workers[1] = newWorker(&sendTargetsMethod{})
	c.workers[2] = newWorker(&isnsMethod{})
	c.workers[3] = newWorker(&slpMethod{})

	if c.isnsClient != nil {
		c.isnsClient.Register(func(ctx context.Context, ev model.ScnEvent) error {
			return HandleSCN(ctx, c, ev)
		})
	}

	ctx := context.Background()
	if err := Bootstrap(ctx, c, restart); err != nil {
		log.Errorf("discovery: bootstrap failed: %s", err.Error())
		c.emitFailureEvents()
		return nil, err
	}

	enabled, err := c.store.GetDiscoveryMethods(ctx)
	if err != nil {
		log.Errorf("discovery: failed to read enabled methods: %s", err.Error())
		c.emitFailureEvents()
		return nil, err
	}

	for _, w := range c.workers {
		if enabled.Has(w.method.Bit()) {
			w.start(c)
		}
	}

	log.Info("discovery: coordinator initialized")
	return c, nil
}

// emitFailureEvents emits a synthetic START+END pair for every
// discovery method in fixedEventOrder, without ever running a pass.
func (c *Coordinator) emitFailureEvents() {
	for _, bit := range fixedEventOrder {
		name := bit.String()
		c.sink.DiscoveryStart(name)
		c.sink.DiscoveryEnd(name)
	}
}

// Fini stops every running worker goroutine and waits for them to
// exit.
func (c *Coordinator) Fini() {
	for _, w := range c.workers {
		w.stop()
	}
	log.Info("discovery: coordinator stopped")
}

// Registry exposes the session/connection table for status queries.
func (c *Coordinator) Registry() *Registry { return c.registry }

// markMethodDone records that bit's discovery pass has completed and
// wakes anyone blocked in a barrier wait. It is also used to mark a
// disabled or unrequested method as trivially "done" within a Poke,
// mirroring iscsi_discovery_event's begin+end pair for methods that
// are not actually run.
func (c *Coordinator) markMethodDone(bit model.DiscoveryMethod) {
	c.barrierMu.Lock()
	c.discoveryDone |= bit
	c.barrierCond.Broadcast()
	c.barrierMu.Unlock()
}

// Poke wakes the discovery methods selected by method (or every
// method, if method is model.Unknown) and blocks until all of them
// have completed one pass. It replaces iscsid_poke_discovery's
// 1-second delay() polling loop with a condition variable: workers
// broadcast on completion instead of the barrier waking up to re-check
// a flag every second. A method that is not targeted this call, or
// whose worker isn't currently running (disabled), is short-circuited
// with a synthetic START+END pair so the barrier still closes without
// it.
func (c *Coordinator) Poke(ctx context.Context, method model.DiscoveryMethod) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "discovery.Poke")
	defer span.Finish()

	c.barrierMu.Lock()
	c.discoveryInProgress = true
	c.discoveryDone = model.Unknown
	c.barrierMu.Unlock()

	for _, w := range c.workers {
		bit := w.method.Bit()
		targeted := method == model.Unknown || method.Has(bit)
		if targeted && w.isRunning() {
			w.signal()
		} else {
			c.sink.DiscoveryStart(w.method.Name())
			c.sink.DiscoveryEnd(w.method.Name())
			c.markMethodDone(bit)
		}
	}

	c.barrierMu.Lock()
	for c.discoveryDone != model.All {
		c.barrierCond.Wait()
	}
	c.discoveryInProgress = false
	c.barrierMu.Unlock()
	return nil
}

// Enable turns on the given discovery methods, starting a worker
// goroutine for each one not already running, and optionally pokes
// them so newly-enabled methods run at least once immediately.
func (c *Coordinator) Enable(ctx context.Context, methods model.DiscoveryMethod, poke bool) error {
	cur, err := c.store.GetDiscoveryMethods(ctx)
	if err != nil {
		return err
	}
	if err := c.store.PutDiscoveryMethods(ctx, cur|methods); err != nil {
		return err
	}

	for _, w := range c.workers {
		if methods.Has(w.method.Bit()) {
			w.start(c)
		}
	}

	if poke {
		return c.Poke(ctx, methods)
	}
	return nil
}

// Disable turns off the given discovery methods: for each one, it
// emits START, removes every session that method is holding, stops
// its worker goroutine, then emits END. If removing sessions for a
// method fails, END is still emitted for that method but the
// sessions and workers of the remaining requested methods are left
// untouched (their store bits are already cleared) — the caller sees
// the error and can retry.
func (c *Coordinator) Disable(ctx context.Context, methods model.DiscoveryMethod) error {
	cur, err := c.store.GetDiscoveryMethods(ctx)
	if err != nil {
		return err
	}
	if err := c.store.PutDiscoveryMethods(ctx, cur&^methods); err != nil {
		return err
	}

	for _, w := range c.workers {
		bit := w.method.Bit()
		if !methods.Has(bit) {
			continue
		}

		name := w.method.Name()
		c.sink.DiscoveryStart(name)
		delErr := c.Del(ctx, "", bit, model.SockAddr{})
		w.stop()
		c.sink.DiscoveryEnd(name)
		if delErr != nil {
			return delErr
		}
	}
	return nil
}

// Props returns the initiator identity and the coordinator's
// enabled/settable discovery method status, the supplemental
// read-only status surface httpapi exposes.
func (c *Coordinator) Props(ctx context.Context) (model.Initiator, model.DiscoveryStatus, error) {
	init, err := c.store.GetInitiator(ctx)
	if err != nil {
		return model.Initiator{}, model.DiscoveryStatus{}, err
	}
	methods, err := c.store.GetDiscoveryMethods(ctx)
	if err != nil {
		return model.Initiator{}, model.DiscoveryStatus{}, err
	}
	status := model.DiscoveryStatus{Enabled: methods, Settable: model.SettableMethods}
	if init == nil {
		return model.Initiator{}, status, nil
	}
	return *init, status, nil
}

// ConfigOne reconciles a single target against the discovery store
// and session registry, applying storm protection the same way
// iscsid_config_one/iscsid_config_all do: a burst of rapid calls
// collapses into one reconciliation pass every configStormDelay.
func (c *Coordinator) ConfigOne(ctx context.Context, targetName string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "discovery.ConfigOne")
	defer span.Finish()

	if !c.shouldConfig() {
		return nil
	}
	return c.reconcileOne(ctx, targetName)
}

// ConfigAll reconciles every configured target (static and
// previously-discovered) against the session registry.
func (c *Coordinator) ConfigAll(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "discovery.ConfigAll")
	defer span.Finish()

	if !c.shouldConfig() {
		return nil
	}

	targets, err := c.store.ListStaticTargets(ctx)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if err := c.reconcileOne(ctx, t.Name); err != nil {
			log.Warnf("discovery: ConfigAll: %s: %s", t.Name, err.Error())
		}
	}
	return nil
}

// reconcileOne serializes reconciliation passes against the same
// target name through configSem, so a storm of ConfigOne/ConfigAll
// calls racing on one target can't interleave their add/remove
// decisions.
func (c *Coordinator) reconcileOne(ctx context.Context, targetName string) error {
	c.configSem.Lock(targetName)
	defer c.configSem.Unlock(targetName)
	return reconcileTarget(ctx, c, targetName)
}

// querySendTargets issues a SendTargets query through the wire
// client, serialized per discovery address through sendTargetsSem so
// two overlapping discovery passes never race the same ioctl-style
// query against the same portal.
func (c *Coordinator) querySendTargets(ctx context.Context, addr model.SockAddr) ([]model.PortalGroupEntry, error) {
	key := addr.String()
	c.sendTargetsSem.Lock(key)
	defer c.sendTargetsSem.Unlock(key)
	return c.stClient.SendTargets(ctx, addr)
}

// SetParamOverride validates and persists a single login-parameter
// override for target, then triggers a reconciliation pass for it so
// a currently-logged-in session picks the new value up on next login.
func (c *Coordinator) SetParamOverride(ctx context.Context, targetName string, o model.ParamOverride) error {
	if err := CopyToParamSet(o.Key); err != nil {
		return err
	}
	if err := c.store.PutParamOverride(ctx, targetName, o); err != nil {
		return err
	}
	return c.ConfigOne(ctx, targetName)
}

func (c *Coordinator) shouldConfig() bool {
	c.configMu.Lock()
	defer c.configMu.Unlock()

	now := time.Now()
	if !c.lastConfigAt.IsZero() && now.Sub(c.lastConfigAt) < configStormDelay {
		return false
	}
	c.lastConfigAt = now
	return true
}

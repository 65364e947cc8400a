// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
)

// EventSink receives notifications of session lifecycle changes and
// discovery pass boundaries, the Go analogue of iscsi_send_sysevent's
// sysevent-bus postings. Nothing in the discovery core depends on a
// particular sink; cmd/iscsid wires up the real one (today, a
// LogEventSink).
type EventSink interface {
	SessionLoggedIn(sess model.Session)
	SessionLoggedOut(sess model.Session)
	DiscoveryFailed(target string, err error)

	// DiscoveryStart and DiscoveryEnd bracket one discovery pass for
	// method, the Go counterpart of the begin/end sysevent pair
	// iscsi_discovery_event posts around each method's run. A caller
	// that only watches these two never needs to poll a bitmask: for
	// any one method, START is always posted before the matching END,
	// whether or not the pass actually ran anything.
	DiscoveryStart(method string)
	DiscoveryEnd(method string)
}

// NopEventSink discards every event; used when no sink is configured.
type NopEventSink struct{}

func (NopEventSink) SessionLoggedIn(model.Session)  {}
func (NopEventSink) SessionLoggedOut(model.Session) {}
func (NopEventSink) DiscoveryFailed(string, error)  {}
func (NopEventSink) DiscoveryStart(string)          {}
func (NopEventSink) DiscoveryEnd(string)             {}

// LogEventSink logs every event at Info (or Warn for failures)
// through the shared logger, mirroring iscsi_send_sysevent's
// best-effort cmn_err fallback when the sysevent itself can't be
// posted.
type LogEventSink struct{}

func (LogEventSink) SessionLoggedIn(sess model.Session) {
	log.WithSession(sess.TargetName, sess.ISID[:]).Infof("discovery: session logged in: method=%s", sess.Method)
}

func (LogEventSink) SessionLoggedOut(sess model.Session) {
	log.WithSession(sess.TargetName, sess.ISID[:]).Infof("discovery: session logged out: method=%s", sess.Method)
}

func (LogEventSink) DiscoveryFailed(target string, err error) {
	log.Warnf("discovery: discovery failed for %s: %s", target, err.Error())
}

func (LogEventSink) DiscoveryStart(method string) {
	log.WithMethod(method).WithField("phase", "start").Info("event=iscsi.discovery")
}

func (LogEventSink) DiscoveryEnd(method string) {
	log.WithMethod(method).WithField("phase", "end").Info("event=iscsi.discovery")
}

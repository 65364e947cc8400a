// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package hostcollab is the production collab.SessionManager,
// collab.SendTargetsClient and collab.IsnsClient. Talking to the
// host's kernel iSCSI initiator (open-iscsi's sysfs/netlink interface
// on Linux) and to the wire SendTargets/iSNS protocols is explicitly
// out of scope for the discovery core itself, so the session, query
// and subscription methods here return a clear "not implemented"
// error (Login, Logout, AddConnection, SendTargets and Query also log
// the attempt) rather than silently no-op'ing the way the teacher's
// own IscsiPlugin stubs return (nil, nil) for unwired CHAPI
// operations. ActiveSessions reports no sessions and no error, and
// Register only logs a warning. A real deployment
// replaces this package with one that shells out to iscsiadm or talks
// to open-iscsi over netlink.
package hostcollab

import (
	"context"

	"github.com/hpe-storage/iscsid/collab"
	"github.com/hpe-storage/iscsid/ierrors"
	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
)

const notImplemented = "host iSCSI transport is not wired into this build; see collab/hostcollab"

// SessionManager is the production collab.SessionManager.
type SessionManager struct{}

var _ collab.SessionManager = SessionManager{}

func (SessionManager) Login(_ context.Context, target model.StaticTarget, isid model.ISID, _ []model.ParamOverride) (model.Session, error) {
	log.Infof(">>> hostcollab.Login target=%s isid=%x", target.Name, isid)
	defer log.Info("<<< hostcollab.Login")
	return model.Session{}, ierrors.New(ierrors.Unavailable, notImplemented)
}

func (SessionManager) Logout(_ context.Context, targetName string, isid model.ISID) error {
	log.Infof(">>> hostcollab.Logout target=%s isid=%x", targetName, isid)
	defer log.Info("<<< hostcollab.Logout")
	return ierrors.New(ierrors.Unavailable, notImplemented)
}

func (SessionManager) ActiveSessions(context.Context) ([]model.Session, error) {
	return nil, nil
}

func (SessionManager) AddConnection(_ context.Context, targetName string, isid model.ISID, addr model.SockAddr) error {
	log.Infof(">>> hostcollab.AddConnection target=%s isid=%x addr=%s", targetName, isid, addr)
	defer log.Info("<<< hostcollab.AddConnection")
	return ierrors.New(ierrors.Unavailable, notImplemented)
}

// SendTargetsClient is the production collab.SendTargetsClient.
type SendTargetsClient struct{}

var _ collab.SendTargetsClient = SendTargetsClient{}

func (SendTargetsClient) SendTargets(_ context.Context, addr model.SockAddr) ([]model.PortalGroupEntry, error) {
	log.Infof(">>> hostcollab.SendTargets addr=%s", addr)
	defer log.Info("<<< hostcollab.SendTargets")
	return nil, ierrors.New(ierrors.Unavailable, notImplemented)
}

// IsnsClient is the production collab.IsnsClient.
type IsnsClient struct{}

var _ collab.IsnsClient = IsnsClient{}

func (IsnsClient) Query(_ context.Context, server model.SockAddr) ([]model.PortalGroupEntry, error) {
	log.Infof(">>> hostcollab.Query server=%s", server)
	defer log.Info("<<< hostcollab.Query")
	return nil, ierrors.New(ierrors.Unavailable, notImplemented)
}

func (IsnsClient) Subscribe(_ context.Context, server model.SockAddr) error {
	return ierrors.New(ierrors.Unavailable, notImplemented)
}

func (IsnsClient) Unsubscribe(_ context.Context, server model.SockAddr) error {
	return ierrors.New(ierrors.Unavailable, notImplemented)
}

func (IsnsClient) Register(collab.ScnHandler) {
	log.Warnf("hostcollab.Register: %s", notImplemented)
}

// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
	"github.com/hpe-storage/iscsid/util"
)

// hostInitiatorFile is where a Linux host's iSCSI initiator name
// conventionally lives; Bootstrap prefers whatever name is already
// recorded there over synthesizing a new one, the same precedence
// iscsid_init_config gives a pre-existing /etc/iscsi file.
const hostInitiatorFile = "/etc/iscsi/initiatorname.iscsi"

const hostInitiatorPattern = `^InitiatorName=(?P<iscsiinit>.*)$`

// chapSecretBytes is the size of the randomly generated default CHAP
// secret, matching the original's default-credential generator.
const chapSecretBytes = 16

// Bootstrap ensures an initiator identity record exists in the store
// and re-applies whatever parameter overrides are already on file.
// Unlike a one-shot install hook, it runs on every Init — restart or
// not — mirroring iscsid_init_config/
// iscsid_set_default_initiator_node_settings being called
// unconditionally at daemon startup: an existing initiator record is
// never clobbered, but its alias is refreshed from the host and every
// stored override is re-validated and logged as still in effect.
func Bootstrap(ctx context.Context, c *Coordinator, restart bool) error {
	existing, err := c.store.GetInitiator(ctx)
	if err != nil {
		return err
	}

	var rec model.Initiator
	if existing != nil {
		rec = *existing
	}

	// Step 1: adopt or synthesize the initiator name, once.
	if rec.Name == "" {
		if name, err := readHostInitiatorName(); err == nil && name != "" {
			rec.Name = name
			log.Infof("discovery: adopting initiator name from %s: %s", hostInitiatorFile, name)
		} else {
			rec.Name = synthesizeDefaultInitiatorName()
			log.Infof("discovery: synthesized default initiator name: %s", rec.Name)
		}
	}

	// Step 2: (re)load the alias from the host on every call, so a
	// restart picks up a hostname change instead of only ever reading
	// it once at install time.
	if hostname, err := os.Hostname(); err == nil {
		rec.Alias = hostname
	}

	// Step 1 continued: generate default CHAP credentials the first
	// time an initiator record is created; never regenerated once set.
	if rec.ChapUser == "" && rec.ChapSecret == "" {
		secret, err := generateDefaultChapSecret()
		if err != nil {
			return err
		}
		rec.ChapUser = rec.Name
		rec.ChapSecret = secret
		log.Info("discovery: generated default CHAP credentials")
	}

	if err := c.store.PutInitiator(ctx, rec); err != nil {
		return err
	}

	// Step 3: push whatever initiator-default parameter overrides are
	// already on file (targetName "" is the initiator-default key).
	if err := pushParamOverrides(ctx, c, ""); err != nil {
		log.Warnf("discovery: bootstrap: failed to push initiator param overrides: %s", err.Error())
	}

	// Step 4: push per-target overrides for every configured static
	// target, so sessions logged back in after a restart pick them up
	// without waiting for the next SetParamOverride call.
	targets, err := c.store.ListStaticTargets(ctx)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if err := pushParamOverrides(ctx, c, t.Name); err != nil {
			log.Warnf("discovery: bootstrap: failed to push param overrides for %s: %s", t.Name, err.Error())
		}
	}

	if restart {
		log.Info("discovery: bootstrap: restart reload complete")
	}
	return nil
}

// pushParamOverrides re-validates every stored override for
// targetName and logs it as in effect, dropping (with a warning) any
// override that no longer names a settable parameter — the same
// defensive re-check CopyToParamSet applies when an override is first
// set, now also applied on reload.
func pushParamOverrides(ctx context.Context, c *Coordinator, targetName string) error {
	overrides, err := c.store.ListParamOverrides(ctx, targetName)
	if err != nil {
		return err
	}
	for _, o := range overrides {
		if err := CopyToParamSet(o.Key); err != nil {
			log.Warnf("discovery: bootstrap: dropping stale override %s=%s for %q: %s", o.Key, o.Value, targetName, err.Error())
			continue
		}
		log.Tracef("discovery: bootstrap: re-applied override %s=%s for %q", o.Key, o.Value, targetName)
	}
	return nil
}

// generateDefaultChapSecret produces a random hex-encoded CHAP
// secret, the Go counterpart of the original's default-credential
// generator.
func generateDefaultChapSecret() (string, error) {
	buf := make([]byte, chapSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func readHostInitiatorName() (string, error) {
	exists, _, err := util.FileExists(hostInitiatorFile)
	if err != nil || !exists {
		return "", err
	}
	names, err := util.FileGetStringsWithPattern(hostInitiatorFile, hostInitiatorPattern)
	if err != nil || len(names) == 0 {
		return "", err
	}
	return strings.TrimSpace(names[0]), nil
}

// synthesizeDefaultInitiatorName builds an IQN of the form
// iqn.1986-03.com.sun:01:<mac-hex>.<hex-timestamp>, exactly the
// pattern iscsid_set_default_initiator_node_settings uses. When no MAC
// address can be read it falls back to
// iqn.1986-03.com.sun:01:<12 hex digits>, taken from
// GetMD5HashOfTwoStrings over the hostname and the current time in
// nanoseconds, so the fallback name differs from call to call.
func synthesizeDefaultInitiatorName() string {
	hostname, _ := os.Hostname()
	mac, err := util.GetFirstMAC()
	if err != nil || mac == "" {
		suffix := util.GetMD5HashOfTwoStrings(hostname, fmt.Sprintf("%d", time.Now().UnixNano()))
		return fmt.Sprintf("iqn.1986-03.com.sun:01:%s", suffix[:12])
	}
	macHex := strings.ReplaceAll(mac, ":", "")
	return fmt.Sprintf("iqn.1986-03.com.sun:01:%s.%x", macHex, time.Now().Unix())
}

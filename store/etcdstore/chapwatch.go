// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package etcdstore

import (
	"context"
	"encoding/json"
	"os"

	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
	"github.com/hpe-storage/iscsid/util"
)

// WatchChapOverride watches path (a small JSON file containing
// "chap_user"/"chap_secret" fields, the local analogue of the
// original's /etc/iscsi CHAP configuration) and pushes any change
// into the initiator record in the store. It supplements bootstrap's
// default CHAP settings for operators who manage CHAP out of band.
func (s *Store) WatchChapOverride(ctx context.Context, path string) error {
	apply := func() {
		exists, _, err := util.FileExists(path)
		if err != nil || !exists {
			return
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("WatchChapOverride: failed to read %s: %s", path, err.Error())
			return
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Warnf("WatchChapOverride: failed to parse %s: %s", path, err.Error())
			return
		}
		var override struct {
			ChapUser   string `mapstructure:"chap_user"`
			ChapSecret string `mapstructure:"chap_secret"`
		}
		if err := decodeInto(doc, &override); err != nil {
			log.Warnf("WatchChapOverride: failed to decode %s: %s", path, err.Error())
			return
		}

		init, err := s.GetInitiator(ctx)
		if err != nil {
			log.Warnf("WatchChapOverride: failed to load initiator record: %s", err.Error())
			return
		}
		if init == nil {
			init = &model.Initiator{}
		}
		init.ChapUser = override.ChapUser
		init.ChapSecret = override.ChapSecret
		if err := s.PutInitiator(ctx, *init); err != nil {
			log.Warnf("WatchChapOverride: failed to persist initiator record: %s", err.Error())
		}
	}

	apply()
	watch, err := util.InitializeWatcher(apply)
	if err != nil {
		return err
	}
	if err := watch.AddWatchList([]string{path}); err != nil {
		return err
	}
	go watch.StartWatcher()
	return nil
}

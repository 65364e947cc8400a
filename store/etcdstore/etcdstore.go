// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package etcdstore is the production store.Store, backed by an etcd
// cluster. Every record kind lives under its own key prefix; the
// per-key store.Lock is an etcd/concurrency session-scoped mutex, the
// distributed-lock analogue of the original daemon's per-store
// semaphores.
package etcdstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coreos/etcd/clientv3"
	"github.com/coreos/etcd/clientv3/concurrency"
	"github.com/mitchellh/mapstructure"

	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
	"github.com/hpe-storage/iscsid/store"
)

// DefaultDialTimeout bounds how long NewStore waits to reach the
// cluster before giving up.
const DefaultDialTimeout = 5 * time.Second

const (
	prefixInitiator  = "/iscsid/initiator"
	prefixMethods    = "/iscsid/discovery-methods"
	prefixStatic     = "/iscsid/static/"
	prefixDiscAddr   = "/iscsid/discaddr/"
	prefixParams     = "/iscsid/params/"
	prefixPolicy     = "/iscsid/policy/"
	lockPrefix       = "/iscsid/locks/"
)

// Store is a store.Store backed by etcd's clientv3.
type Store struct {
	cli *clientv3.Client
}

var _ store.Store = (*Store)(nil)

// NewStore dials endpoints and returns a ready Store.
func NewStore(endpoints []string) (*Store, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: DefaultDialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &Store{cli: cli}, nil
}

func (s *Store) put(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.cli.Put(ctx, key, string(data))
	return err
}

func (s *Store) get(ctx context.Context, key string, out interface{}) (bool, error) {
	resp, err := s.cli.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if len(resp.Kvs) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(resp.Kvs[0].Value, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) listPrefix(ctx context.Context, prefix string, into func([]byte) error) error {
	resp, err := s.cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return err
	}
	for _, kv := range resp.Kvs {
		if err := into(kv.Value); err != nil {
			log.Warnf("etcdstore: skipping undecodable record at %s: %s", kv.Key, err.Error())
			continue
		}
	}
	return nil
}

// GetInitiator implements store.Store.
func (s *Store) GetInitiator(ctx context.Context) (*model.Initiator, error) {
	var init model.Initiator
	ok, err := s.get(ctx, prefixInitiator, &init)
	if err != nil || !ok {
		return nil, err
	}
	return &init, nil
}

// PutInitiator implements store.Store.
func (s *Store) PutInitiator(ctx context.Context, init model.Initiator) error {
	return s.put(ctx, prefixInitiator, init)
}

// GetDiscoveryMethods implements store.Store.
func (s *Store) GetDiscoveryMethods(ctx context.Context) (model.DiscoveryMethod, error) {
	var raw uint32
	ok, err := s.get(ctx, prefixMethods, &raw)
	if err != nil || !ok {
		return model.Unknown, err
	}
	return model.DiscoveryMethod(raw), nil
}

// PutDiscoveryMethods implements store.Store.
func (s *Store) PutDiscoveryMethods(ctx context.Context, methods model.DiscoveryMethod) error {
	return s.put(ctx, prefixMethods, uint32(methods))
}

// ListStaticTargets implements store.Store.
func (s *Store) ListStaticTargets(ctx context.Context) ([]model.StaticTarget, error) {
	var out []model.StaticTarget
	err := s.listPrefix(ctx, prefixStatic, func(raw []byte) error {
		var t model.StaticTarget
		if err := json.Unmarshal(raw, &t); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// PutStaticTarget implements store.Store.
func (s *Store) PutStaticTarget(ctx context.Context, t model.StaticTarget) error {
	return s.put(ctx, prefixStatic+t.Name, t)
}

// DeleteStaticTarget implements store.Store.
func (s *Store) DeleteStaticTarget(ctx context.Context, name string) error {
	_, err := s.cli.Delete(ctx, prefixStatic+name)
	return err
}

func discAddrKey(addr model.SockAddr, method model.DiscoveryMethod) string {
	return fmt.Sprintf("%s%s|%s", prefixDiscAddr, addr.String(), method.String())
}

// ListDiscoveryAddresses implements store.Store.
func (s *Store) ListDiscoveryAddresses(ctx context.Context) ([]model.DiscoveryAddress, error) {
	var out []model.DiscoveryAddress
	err := s.listPrefix(ctx, prefixDiscAddr, func(raw []byte) error {
		var a model.DiscoveryAddress
		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

// PutDiscoveryAddress implements store.Store.
func (s *Store) PutDiscoveryAddress(ctx context.Context, a model.DiscoveryAddress) error {
	return s.put(ctx, discAddrKey(a.Addr, a.Method), a)
}

// DeleteDiscoveryAddress implements store.Store.
func (s *Store) DeleteDiscoveryAddress(ctx context.Context, addr model.SockAddr, method model.DiscoveryMethod) error {
	_, err := s.cli.Delete(ctx, discAddrKey(addr, method))
	return err
}

// ListParamOverrides implements store.Store.
func (s *Store) ListParamOverrides(ctx context.Context, targetName string) ([]model.ParamOverride, error) {
	var raw []model.ParamOverride
	ok, err := s.get(ctx, prefixParams+targetName, &raw)
	if err != nil || !ok {
		return nil, err
	}
	return raw, nil
}

// PutParamOverride implements store.Store.
func (s *Store) PutParamOverride(ctx context.Context, targetName string, o model.ParamOverride) error {
	existing, err := s.ListParamOverrides(ctx, targetName)
	if err != nil {
		return err
	}
	replaced := false
	for i, e := range existing {
		if e.Key == o.Key {
			existing[i] = o
			replaced = true
			break
		}
	}
	if !replaced {
		existing = append(existing, o)
	}
	return s.put(ctx, prefixParams+targetName, existing)
}

// DeleteParamOverrides implements store.Store.
func (s *Store) DeleteParamOverrides(ctx context.Context, targetName string) error {
	_, err := s.cli.Delete(ctx, prefixParams+targetName)
	return err
}

// RemoveTargetParam implements store.Store.
func (s *Store) RemoveTargetParam(ctx context.Context, targetName string) error {
	if _, err := s.cli.Delete(ctx, prefixParams+targetName); err != nil {
		return err
	}
	_, err := s.cli.Delete(ctx, prefixPolicy+targetName)
	return err
}

// GetSessionPolicy implements store.Store.
func (s *Store) GetSessionPolicy(ctx context.Context, targetName string) (*model.ConfiguredSessionPolicy, error) {
	var p model.ConfiguredSessionPolicy
	ok, err := s.get(ctx, prefixPolicy+targetName, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// PutSessionPolicy implements store.Store.
func (s *Store) PutSessionPolicy(ctx context.Context, p model.ConfiguredSessionPolicy) error {
	return s.put(ctx, prefixPolicy+p.TargetName, p)
}

// DeleteSessionPolicy implements store.Store.
func (s *Store) DeleteSessionPolicy(ctx context.Context, targetName string) error {
	_, err := s.cli.Delete(ctx, prefixPolicy+targetName)
	return err
}

// etcdLock wraps a concurrency.Session-scoped Mutex so callers get a
// plain store.Lock without reaching into clientv3/concurrency
// themselves.
type etcdLock struct {
	session *concurrency.Session
	mutex   *concurrency.Mutex
}

func (l *etcdLock) Unlock(ctx context.Context) error {
	defer l.session.Close()
	return l.mutex.Unlock(ctx)
}

// Lock implements store.Store. Each call opens its own
// concurrency.Session so that a crashed holder's lock is released
// automatically once its lease expires.
func (s *Store) Lock(ctx context.Context, key string) (store.Lock, error) {
	sess, err := concurrency.NewSession(s.cli)
	if err != nil {
		return nil, err
	}
	mu := concurrency.NewMutex(sess, lockPrefix+key)
	if err := mu.Lock(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	return &etcdLock{session: sess, mutex: mu}, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.cli.Close()
}

// decodeInto is used by callers that read back a generic map (e.g.
// from a CHAP override file) and need it folded into a typed record;
// kept here so etcdstore is the single place mapstructure is wired in.
func decodeInto(raw map[string]interface{}, out interface{}) error {
	return mapstructure.Decode(raw, out)
}

package kvstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.etcd.io/etcd/client/v3/namespace"
)

const (
	etcdRequestTimeout = 10 * time.Second
)

type ETCDBackend struct {
	Servers   []string
	Namespace string

	client  *clientv3.Client
	session *concurrency.Session
	locker  *etcdLocker
}

// NewETCDBackend scopes every key, watch and lease of the client to ns.
func NewETCDBackend(servers []string, ns string, dialTimeout time.Duration, lockTTL int) (backend *ETCDBackend, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, "unable to create etcd backend for %v", servers)
		}
	}()

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   servers,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, err
	}
	client.KV = namespace.NewKV(client.KV, ns)
	client.Watcher = namespace.NewWatcher(client.Watcher, ns)
	client.Lease = namespace.NewLease(client.Lease, ns)

	session, err := concurrency.NewSession(client, concurrency.WithTTL(lockTTL))
	if err != nil {
		client.Close()
		return nil, err
	}

	return &ETCDBackend{
		Servers:   servers,
		Namespace: ns,

		client:  client,
		session: session,
		locker:  &etcdLocker{
			local: newSemaphoreLocker(),
			mutex: concurrency.NewMutex(session, LockKey),
		},
	}, nil
}

func (s *ETCDBackend) Put(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()
	_, err := s.client.Put(ctx, key, value)
	return err
}

func (s *ETCDBackend) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()
	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

func (s *ETCDBackend) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()
	_, err := s.client.Delete(ctx, key)
	return err
}

func (s *ETCDBackend) List(prefix string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()
	resp, err := s.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	ret := make(map[string]string, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		ret[string(kv.Key)] = string(kv.Value)
	}
	return ret, nil
}

func (s *ETCDBackend) Watch(ctx context.Context, prefix string, cb func(events []Event)) {
	wch := s.client.Watch(clientv3.WithRequireLeader(ctx), prefix, clientv3.WithPrefix())
	go func() {
		for resp := range wch {
			if err := resp.Err(); err != nil {
				logrus.WithError(err).Warn("etcd watch error")
				continue
			}
			events := make([]Event, 0, len(resp.Events))
			for _, ev := range resp.Events {
				e := Event{Key: string(ev.Kv.Key)}
				switch ev.Type {
				case clientv3.EventTypePut:
					e.Type = EventTypePut
					e.Value = string(ev.Kv.Value)
				case clientv3.EventTypeDelete:
					e.Type = EventTypeDelete
				default:
					continue
				}
				events = append(events, e)
			}
			if len(events) != 0 {
				cb(events)
			}
		}
		logrus.Info("etcd watch stopped")
	}()
}

func (s *ETCDBackend) Locker() Locker {
	return s.locker
}

func (s *ETCDBackend) Close() error {
	if err := s.session.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close etcd session")
	}
	return s.client.Close()
}

// etcdLocker serializes local callers first: a concurrency.Mutex treats every
// caller sharing its session as the holder.
type etcdLocker struct {
	local *semaphoreLocker
	mutex *concurrency.Mutex
}

func (l *etcdLocker) Lock(ctx context.Context) error {
	if err := l.local.Lock(ctx); err != nil {
		return err
	}
	if err := l.mutex.Lock(ctx); err != nil {
		l.local.Unlock(ctx)
		return errors.Wrap(err, "unable to acquire etcd lock")
	}
	return nil
}

func (l *etcdLocker) Unlock(ctx context.Context) error {
	defer l.local.Unlock(ctx)
	return l.mutex.Unlock(ctx)
}

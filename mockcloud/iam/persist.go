package iam

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// KV is the durable layer behind the in-memory store. Implementations
// persist full JSON records per entity; the store replays them on start.
type KV interface {
	Put(bucket, key string, value []byte) error
	Delete(bucket, key string) error
	List(bucket string) (map[string][]byte, error)
}

// Persistence bucket names.
const (
	KVBucketUsers            = "mockcloud-iam-users"
	KVBucketGroups           = "mockcloud-iam-groups"
	KVBucketRoles            = "mockcloud-iam-roles"
	KVBucketPolicies         = "mockcloud-iam-policies"
	KVBucketAccessKeys       = "mockcloud-iam-access-keys"
	KVBucketResourcePolicies = "mockcloud-iam-resource-policies"
)

var persistBuckets = []string{
	KVBucketUsers,
	KVBucketGroups,
	KVBucketRoles,
	KVBucketPolicies,
	KVBucketAccessKeys,
	KVBucketResourcePolicies,
}

// NatsKV persists store records in NATS JetStream KV buckets, one bucket
// per entity class.
type NatsKV struct {
	buckets map[string]nats.KeyValue
}

// NewNatsKV opens (or creates) the JetStream KV buckets the store
// persists into.
func NewNatsKV(natsConn *nats.Conn) (*NatsKV, error) {
	js, err := natsConn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get JetStream context: %w", err)
	}

	buckets := make(map[string]nats.KeyValue, len(persistBuckets))
	for _, name := range persistBuckets {
		kv, err := getOrCreateBucket(js, name, 5)
		if err != nil {
			return nil, fmt.Errorf("init bucket %s: %w", name, err)
		}
		buckets[name] = kv
	}

	slog.Info("IAM persistence initialized", "buckets", len(buckets))
	return &NatsKV{buckets: buckets}, nil
}

func getOrCreateBucket(js nats.JetStreamContext, name string, history uint8) (nats.KeyValue, error) {
	kv, err := js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:  name,
		History: history,
	})
	if err != nil {
		kv, err = js.KeyValue(name)
		if err != nil {
			return nil, err
		}
	}
	return kv, nil
}

func (n *NatsKV) bucket(name string) (nats.KeyValue, error) {
	kv, ok := n.buckets[name]
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", name)
	}
	return kv, nil
}

func (n *NatsKV) Put(bucket, key string, value []byte) error {
	kv, err := n.bucket(bucket)
	if err != nil {
		return err
	}
	if _, err := kv.Put(key, value); err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (n *NatsKV) Delete(bucket, key string) error {
	kv, err := n.bucket(bucket)
	if err != nil {
		return err
	}
	if err := kv.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (n *NatsKV) List(bucket string) (map[string][]byte, error) {
	kv, err := n.bucket(bucket)
	if err != nil {
		return nil, err
	}

	keys, err := kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return map[string][]byte{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		entry, err := kv.Get(key)
		if err != nil {
			if errors.Is(err, nats.ErrKeyNotFound) {
				slog.Debug("List: key disappeared (concurrent delete)", "bucket", bucket, "key", key)
				continue
			}
			return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
		}
		out[key] = entry.Value()
	}
	return out, nil
}

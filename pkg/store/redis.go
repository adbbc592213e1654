package store

import (
	"context"
	"time"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// RedisCommands is the part of *redis.Client (pkg/clients/redis) the
// backend uses.
type RedisCommands interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	MGet(ctx context.Context, keys ...string) ([]interface{}, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	SAdd(ctx context.Context, key string, members ...interface{}) (int64, error)
	SRem(ctx context.Context, key string, members ...interface{}) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	Health(ctx context.Context) error
	Close() error
}

// redisBackend stores a document at {prefix}:doc:{partition}:{id} and
// tracks partition membership in the set {prefix}:idx:{partition}.
// Writes touch the document first, so a crash between the two commands
// leaves at worst an index entry without a document, which list skips.
type redisBackend struct {
	cmds   RedisCommands
	prefix string
}

// NewRedis returns a store over an open client. prefix namespaces every
// key the store writes.
func NewRedis(cmds RedisCommands, prefix string, opts ...Option) Store {
	return newDocumentStore(&redisBackend{cmds: cmds, prefix: prefix}, opts...)
}

func (r *redisBackend) name() string { return string(BackendRedis) }

func (r *redisBackend) docKey(partition, id string) string {
	return r.prefix + ":doc:" + partition + ":" + id
}

func (r *redisBackend) indexKey(partition string) string {
	return r.prefix + ":idx:" + partition
}

func (r *redisBackend) get(ctx context.Context, partition, id string) ([]byte, error) {
	val, err := r.cmds.Get(ctx, r.docKey(partition, id))
	if sserr.IsNotFound(err) {
		return nil, notFound(partition, id)
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

func (r *redisBackend) list(ctx context.Context, partition string) ([][]byte, error) {
	ids, err := r.cmds.SMembers(ctx, r.indexKey(partition))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(partition, id)
	}
	vals, err := r.cmds.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	bodies := make([][]byte, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			bodies = append(bodies, []byte(s))
		}
	}
	return bodies, nil
}

func (r *redisBackend) put(ctx context.Context, partition, id string, body []byte) error {
	if err := r.cmds.Set(ctx, r.docKey(partition, id), string(body), 0); err != nil {
		return err
	}
	_, err := r.cmds.SAdd(ctx, r.indexKey(partition), id)
	return err
}

func (r *redisBackend) del(ctx context.Context, partition, id string) error {
	n, err := r.cmds.Del(ctx, r.docKey(partition, id))
	if err != nil {
		return err
	}
	if _, err := r.cmds.SRem(ctx, r.indexKey(partition), id); err != nil {
		return err
	}
	if n == 0 {
		return notFound(partition, id)
	}
	return nil
}

func (r *redisBackend) health(ctx context.Context) error { return r.cmds.Health(ctx) }

func (r *redisBackend) close() error { return r.cmds.Close() }

// Package cache implements cache-aside reads and write-through/invalidate writes
// over a key/value driver. Every call is best-effort: backend failures are logged
// and returned, and never replace a value the loader produced.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// KV is the key/value driver the layer runs on.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// DocumentKey is the detail entry of one document.
func DocumentKey(id string) string {
	return "doc:" + id
}

// OwnerListKey is one page of an owner's document list.
func OwnerListKey(ownerID string, page, limit int) string {
	return fmt.Sprintf("docsByOwner:%s:%d:%d", ownerID, page, limit)
}

// OwnerListPrefix matches every cached page of an owner's list.
func OwnerListPrefix(ownerID string) string {
	return "docsByOwner:" + ownerID + ":"
}

type Layer struct {
	kv      KV
	ttl     time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

func NewLayer(kv KV, ttl, timeout time.Duration, logger *zap.Logger) *Layer {
	return &Layer{kv: kv, ttl: ttl, timeout: timeout, logger: logger}
}

// ReadThrough fills dest from the cache, or from loader on a miss, storing the
// loaded value with the layer's TTL. It returns true when dest came from the cache.
// Only loader errors are returned.
func ReadThrough[T any](ctx context.Context, l *Layer, key string, loader func(context.Context) (T, error)) (T, bool, error) {
	if l != nil {
		var cached T
		if l.get(ctx, key, &cached) {
			return cached, true, nil
		}
	}

	value, err := loader(ctx)
	if err != nil {
		return value, false, err
	}
	if l != nil {
		_ = l.WriteThrough(ctx, key, value)
	}
	return value, false, nil
}

func (l *Layer) get(ctx context.Context, key string, dest any) bool {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	raw, found, err := l.kv.Get(ctx, key)
	if err != nil {
		l.logger.Warn("cache read failed", zap.String("op", "cache.get"), zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		l.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// WriteThrough stores value under key unconditionally.
func (l *Layer) WriteThrough(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		l.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := l.kv.Set(ctx, key, raw, l.ttl); err != nil {
		l.logger.Warn("cache write failed", zap.String("op", "cache.set"), zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (l *Layer) Invalidate(ctx context.Context, keys ...string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := l.kv.Delete(ctx, keys...); err != nil {
		l.logger.Warn("cache invalidate failed", zap.String("op", "cache.delete"), zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

// InvalidatePrefix drops every key under prefix.
func (l *Layer) InvalidatePrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	n, err := l.kv.DeletePrefix(ctx, prefix)
	if err != nil {
		l.logger.Warn("cache prefix invalidate failed", zap.String("op", "cache.scan"), zap.String("prefix", prefix), zap.Error(err))
		return err
	}
	l.logger.Debug("cache prefix invalidated", zap.String("prefix", prefix), zap.Int("keys", n))
	return nil
}

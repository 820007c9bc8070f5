package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache JSON 值缓存，GetOrLoad 用 singleflight 合并并发回源
type Cache struct {
	client *Client
	group  singleflight.Group
}

// NewCache 创建缓存
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// GetOrLoad 读穿缓存：未命中时调用 loader 回源并写回。
// 同一 key 的并发未命中只触发一次 loader；缓存读失败按未命中处理，
// 只有 loader 自身的错误会返回给调用方。
// 第二个返回值表示结果来自与并发请求共享的一次回源。
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) ([]byte, bool, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, key).Bytes()
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return val, false, nil
	}
	if !IsNil(err) {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, shared := c.group.Do(key, func() (any, error) {
		// 等待期间可能已被并发请求填充
		if val, err := c.client.rdb.Get(ctx, key).Bytes(); err == nil {
			return val, nil
		}
		return c.loadAndStore(ctx, key, ttl, loader)
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, shared, err
	}
	return result.([]byte), shared, nil
}

func (c *Cache) loadAndStore(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) ([]byte, error) {
	value, err := loader()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal loaded value for %s: %w", key, err)
	}

	// 写回失败不阻塞返回，下次请求重新回源
	_ = c.client.rdb.Set(ctx, key, data, ttl).Err()
	return data, nil
}

// Package redisstore keeps page-view counters in Redis. It is the fallback
// view backend when no remote backend is configured but a Redis URL is.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/portfolio/internal/middleware"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/repository"
)

const keyPrefix = "portfolio:views:"

var _ repository.ViewCounter = (*ViewCounter)(nil)

// ViewCounter uses one INCR-able key per page.
type ViewCounter struct {
	client *redis.Client
}

// errorHook counts failed commands. redis.Nil is a miss, not a failure.
type errorHook struct{}

func (errorHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (errorHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (errorHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Dial connects to addr, which is either a redis:// URL or host:port, and
// verifies the connection with PING.
func Dial(ctx context.Context, addr string) (*ViewCounter, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("redisstore: invalid url %q: %w", addr, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(errorHook{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return &ViewCounter{client: client}, nil
}

// New wraps an existing client.
func New(client *redis.Client) *ViewCounter {
	return &ViewCounter{client: client}
}

func (v *ViewCounter) Close() error {
	return v.client.Close()
}

func viewKey(entityType model.EntityType, slug string) string {
	return keyPrefix + string(entityType) + ":" + slug
}

func (v *ViewCounter) Increment(ctx context.Context, entityType model.EntityType, slug string) (int64, error) {
	n, err := v.client.Incr(ctx, viewKey(entityType, slug)).Result()
	if err != nil {
		return 0, fmt.Errorf("redisstore: incrementing views for %s: %w", slug, err)
	}
	return n, nil
}

// Get returns 0 for a page nobody has opened yet.
func (v *ViewCounter) Get(ctx context.Context, entityType model.EntityType, slug string) (int64, error) {
	n, err := v.client.Get(ctx, viewKey(entityType, slug)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redisstore: reading views for %s: %w", slug, err)
	}
	return n, nil
}

// Package cache invalidates cached cluster views when the version manager
// commits a change. The rendering side owns the cached values; this side only
// drops them.
package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis"
)

const clustersTag = "clusters"

func NewInvalidator(logger *slog.Logger, client *redis.Client) *Invalidator {
	return &Invalidator{
		logger: logger,
		client: client,
	}
}

type Invalidator struct {
	logger *slog.Logger
	client *redis.Client
}

// InvalidateCluster drops the cached view of one cluster and the global
// clusters listing tag. Failures are logged, never propagated; a stale cache
// entry must not fail a committed update.
func (i *Invalidator) InvalidateCluster(ctx context.Context, clusterID uint) {
	keys := []string{fmt.Sprintf("cluster:%d", clusterID), clustersTag}
	if err := i.client.Del(keys...).Err(); err != nil {
		i.logger.ErrorContext(ctx, "Failed to invalidate cluster cache", "clusterId", clusterID, "error", err)
	}
}

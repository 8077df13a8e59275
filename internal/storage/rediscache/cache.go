// internal/storage/rediscache/cache.go
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"loan-verification/internal/common/logger"
	"loan-verification/internal/models"
	"loan-verification/internal/verification"

	"github.com/redis/go-redis/v9"
)

// Gateway decorates a PersistenceGateway with a write-through Redis cache of
// step records. Redis is never a source of truth: every cache failure
// degrades to the inner gateway, and saves hit the inner gateway first.
type Gateway struct {
	inner  verification.PersistenceGateway
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewGateway(inner verification.PersistenceGateway, client *redis.Client, ttl time.Duration, log logger.Logger) *Gateway {
	return &Gateway{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "redis-cache"}),
	}
}

func stepKey(applicationID string, ordinal int) string {
	return fmt.Sprintf("verification:%s:step:%d", applicationID, ordinal)
}

// LoadApplication delegates to the inner gateway and warms the cache with the
// hydrated step records.
func (g *Gateway) LoadApplication(ctx context.Context, applicationID string) (*models.LoanApplication, error) {
	app, err := g.inner.LoadApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	for ordinal, record := range app.StepOutputs {
		g.writeCache(ctx, applicationID, ordinal, record)
	}
	return app, nil
}

// SaveStepRecord writes through: the durable store first, the cache after.
func (g *Gateway) SaveStepRecord(ctx context.Context, applicationID string, ordinal int, record *models.StepRecord) error {
	if err := g.inner.SaveStepRecord(ctx, applicationID, ordinal, record); err != nil {
		return err
	}
	g.writeCache(ctx, applicationID, ordinal, record)
	return nil
}

// CompleteVerification delegates the terminal commit and invalidates the
// application's cached step records.
func (g *Gateway) CompleteVerification(ctx context.Context, applicationID string, records map[int]*models.StepRecord) error {
	if err := g.inner.CompleteVerification(ctx, applicationID, records); err != nil {
		return err
	}

	keys := make([]string, 0, len(records))
	for ordinal := range records {
		keys = append(keys, stepKey(applicationID, ordinal))
	}
	if len(keys) > 0 {
		if err := g.client.Del(ctx, keys...).Err(); err != nil {
			g.logger.Warn("cache invalidation failed", map[string]interface{}{
				"applicationId": applicationID,
				"error":         err,
			})
		}
	}
	return nil
}

// StepStatus answers from the cache when a completed record is present,
// otherwise falls through to the store. Only a cached completed record is
// trusted: the cache may simply be cold.
func (g *Gateway) StepStatus(ctx context.Context, applicationID string, ordinal int) (bool, error) {
	raw, err := g.client.Get(ctx, stepKey(applicationID, ordinal)).Bytes()
	if err == nil {
		var record models.StepRecord
		if jsonErr := json.Unmarshal(raw, &record); jsonErr == nil && record.Completed {
			return true, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		g.logger.Warn("cache read failed", map[string]interface{}{
			"applicationId": applicationID,
			"ordinal":       ordinal,
			"error":         err,
		})
	}
	return g.inner.StepStatus(ctx, applicationID, ordinal)
}

func (g *Gateway) writeCache(ctx context.Context, applicationID string, ordinal int, record *models.StepRecord) {
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := g.client.Set(ctx, stepKey(applicationID, ordinal), raw, g.ttl).Err(); err != nil {
		g.logger.Warn("cache write failed", map[string]interface{}{
			"applicationId": applicationID,
			"ordinal":       ordinal,
			"error":         err,
		})
	}
}

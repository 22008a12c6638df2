// Package redis caches competition financial summaries with a short TTL
// so the hot read path does not replay the ledger on every request.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fantapay/fantapay/internal/accounting"
	"github.com/fantapay/fantapay/pkg/logger"
)

// KeyPrefix is the prefix for summary cache keys
const KeyPrefix = "summary:"

// SummaryCache is a Redis-backed accounting.Cache
type SummaryCache struct {
	client *redis.Client
	logger *logger.Logger
}

// NewSummaryCache creates a new summary cache
func NewSummaryCache(client *redis.Client, log *logger.Logger) *SummaryCache {
	return &SummaryCache{
		client: client,
		logger: log.WithField("component", "cache"),
	}
}

// GetSummary retrieves a cached summary. A miss returns (nil, nil).
func (c *SummaryCache) GetSummary(ctx context.Context, competitionID uuid.UUID) (*accounting.Summary, error) {
	key := KeyPrefix + competitionID.String()

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		c.logger.Debug("cache miss", "competition_id", competitionID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached summary: %w", err)
	}

	var summary accounting.Summary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached summary: %w", err)
	}

	c.logger.Debug("cache hit", "competition_id", competitionID)
	return &summary, nil
}

// SetSummary stores a summary with the given TTL.
func (c *SummaryCache) SetSummary(ctx context.Context, summary *accounting.Summary, ttl time.Duration) error {
	key := KeyPrefix + summary.CompetitionID.String()

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached summary: %w", err)
	}
	return nil
}

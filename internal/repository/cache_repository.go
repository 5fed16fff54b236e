package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/obetrack/attainment-api/internal/models"
)

// SummaryCacheRepository is the read-through cache for combined attainment
// summaries, keyed per course.
type SummaryCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCacheRepository constructs the cache repository.
func NewSummaryCacheRepository(client *redis.Client, ttl time.Duration) *SummaryCacheRepository {
	return &SummaryCacheRepository{client: client, ttl: ttl}
}

func summaryKey(courseID string) string {
	return "attainment:summary:" + courseID
}

// GetSummary returns the cached summary for a course, or (nil, nil) on a
// cache miss.
func (r *SummaryCacheRepository) GetSummary(ctx context.Context, courseID string) (*models.AttainmentSummary, error) {
	raw, err := r.client.Get(ctx, summaryKey(courseID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached summary: %w", err)
	}
	var summary models.AttainmentSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decode cached summary: %w", err)
	}
	return &summary, nil
}

// SetSummary stores the summary with the configured TTL.
func (r *SummaryCacheRepository) SetSummary(ctx context.Context, summary *models.AttainmentSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := r.client.Set(ctx, summaryKey(summary.CourseID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache summary: %w", err)
	}
	return nil
}

// InvalidateSummary drops the cached summary for a course. Called after any
// write that changes attainment records.
func (r *SummaryCacheRepository) InvalidateSummary(ctx context.Context, courseID string) error {
	if err := r.client.Del(ctx, summaryKey(courseID)).Err(); err != nil {
		return fmt.Errorf("invalidate summary: %w", err)
	}
	return nil
}

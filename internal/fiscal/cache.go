package fiscal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CachedRepository layers a short-TTL Redis cache over period reads.
// Period data mutates rarely (period administration) so a small validity
// window is acceptable; exception lookups stay uncached because they are
// per-user point reads.
type CachedRepository struct {
	source Repository
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

func NewCachedRepository(source Repository, client *redis.Client, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedRepository{source: source, client: client, ttl: ttl}
}

func periodsKey(fiscalYearID int64) string {
	return fmt.Sprintf("fiscal:periods:%d", fiscalYearID)
}

func (r *CachedRepository) ListPeriods(ctx context.Context, fiscalYearID int64) ([]Period, error) {
	key := periodsKey(fiscalYearID)
	if r.client != nil {
		raw, err := r.client.Get(ctx, key).Bytes()
		if err == nil {
			var periods []Period
			if err := json.Unmarshal(raw, &periods); err == nil {
				return periods, nil
			}
		}
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		periods, err := r.source.ListPeriods(ctx, fiscalYearID)
		if err != nil {
			return nil, err
		}
		if r.client != nil {
			if raw, err := json.Marshal(periods); err == nil {
				_ = r.client.Set(ctx, key, raw, r.ttl).Err()
			}
		}
		return periods, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Period), nil
}

func (r *CachedRepository) GetException(ctx context.Context, periodID, userID int64) (Exception, error) {
	return r.source.GetException(ctx, periodID, userID)
}

// Invalidate drops the cached period list for a fiscal year.
func (r *CachedRepository) Invalidate(ctx context.Context, fiscalYearID int64) error {
	if r.client == nil {
		return nil
	}
	return r.client.Del(ctx, periodsKey(fiscalYearID)).Err()
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
	"guestfeedback/pkg/metrics"
)

const (
	serviceName   = "feedback-service"
	keyPrefix     = "feedback:report"
	generationKey = "feedback:report:gen"
)

// ErrGenerationUnknown - последний сброс не дошёл до Redis, кешу нельзя доверять
var ErrGenerationUnknown = errors.New("report cache generation is unknown")

// RedisReportCache кеширует отчёт под номером поколения.
// Каждая запись отзыва увеличивает поколение, поэтому снимок, снятый до записи,
// лежит под старым ключом и больше не читается.
type RedisReportCache struct {
	client *redis.Client
	ttl    time.Duration
	// dirty выставляется, если INCR не прошёл; до успешного INCR кеш не используется
	dirty atomic.Bool
}

func NewRedisReportCache(addr, password string, db int, ttl time.Duration) (*RedisReportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisReportCacheFromClient(client, ttl), nil
}

func NewRedisReportCacheFromClient(client *redis.Client, ttl time.Duration) *RedisReportCache {
	return &RedisReportCache{client: client, ttl: ttl}
}

func reportKey(generation int64) string {
	return keyPrefix + ":" + strconv.FormatInt(generation, 10)
}

// Generation возвращает текущее поколение. Читать его нужно до запроса в хранилище.
func (r *RedisReportCache) Generation(ctx context.Context) (int64, error) {
	if r.dirty.Load() {
		if err := r.InvalidateReport(ctx); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrGenerationUnknown, err)
		}
	}

	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	generation, err := r.client.Get(ctx, generationKey).Int64()
	timer.ObserveDuration()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
		return 0, fmt.Errorf("failed to get report generation: %w", err)
	}
	return generation, nil
}

// GetReport возвращает nil, nil при промахе
func (r *RedisReportCache) GetReport(ctx context.Context, generation int64) (*entity.ReviewReport, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	data, err := r.client.Get(ctx, reportKey(generation)).Bytes()
	timer.ObserveDuration()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(serviceName, keyPrefix)
			return nil, nil
		}
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get report from cache: %w", err)
	}

	var report entity.ReviewReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	metrics.RecordCacheHit(serviceName, keyPrefix)
	return &report, nil
}

func (r *RedisReportCache) SetReport(ctx context.Context, generation int64, report *entity.ReviewReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	if err := r.client.Set(ctx, reportKey(generation), data, r.ttl).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpSet)
		return fmt.Errorf("failed to set report in cache: %w", err)
	}

	return nil
}

// InvalidateReport переводит кеш на следующее поколение
func (r *RedisReportCache) InvalidateReport(ctx context.Context) error {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpIncr)
	defer timer.ObserveDuration()

	if err := r.client.Incr(ctx, generationKey).Err(); err != nil {
		r.dirty.Store(true)
		metrics.RecordRedisError(serviceName, metrics.RedisOpIncr)
		return fmt.Errorf("failed to bump report generation: %w", err)
	}
	r.dirty.Store(false)
	return nil
}

func (r *RedisReportCache) Close() error {
	return r.client.Close()
}

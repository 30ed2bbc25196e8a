package infrastructure

import (
	"context"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
)

// EventPublisher отправляет доменные события отзывов (Kafka)
type EventPublisher interface {
	PublishEvent(ctx context.Context, event entity.FeedbackEvent) error
	Close() error
}

// ReportCache хранит выборку отчёта под номером поколения.
// InvalidateReport увеличивает поколение; GetReport возвращает nil, nil при промахе.
type ReportCache interface {
	Generation(ctx context.Context) (int64, error)
	GetReport(ctx context.Context, generation int64) (*entity.ReviewReport, error)
	SetReport(ctx context.Context, generation int64, report *entity.ReviewReport) error
	InvalidateReport(ctx context.Context) error
	Close() error
}

// NoopPublisher используется, когда Kafka не настроена
type NoopPublisher struct{}

func (NoopPublisher) PublishEvent(ctx context.Context, event entity.FeedbackEvent) error { return nil }
func (NoopPublisher) Close() error                                                      { return nil }

// NoopReportCache используется, когда Redis не настроен
type NoopReportCache struct{}

func (NoopReportCache) Generation(ctx context.Context) (int64, error) { return 0, nil }
func (NoopReportCache) GetReport(ctx context.Context, generation int64) (*entity.ReviewReport, error) {
	return nil, nil
}
func (NoopReportCache) SetReport(ctx context.Context, generation int64, report *entity.ReviewReport) error {
	return nil
}
func (NoopReportCache) InvalidateReport(ctx context.Context) error { return nil }
func (NoopReportCache) Close() error                               { return nil }

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
)

// MockReviewRepository мок для ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) ListNewestFirst(ctx context.Context) ([]entity.Review, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

// MockStarClickRepository мок для StarClickRepository
type MockStarClickRepository struct {
	mock.Mock
}

func (m *MockStarClickRepository) Create(ctx context.Context, click *entity.StarClick) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

func (m *MockStarClickRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher мок для Kafka EventPublisher
type MockEventPublisher struct {
	mock.Mock
	Events []entity.FeedbackEvent
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, event entity.FeedbackEvent) error {
	m.Events = append(m.Events, event)
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockReportCache мок для кеша отчёта
type MockReportCache struct {
	mock.Mock
}

func (m *MockReportCache) Generation(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReportCache) GetReport(ctx context.Context, generation int64) (*entity.ReviewReport, error) {
	args := m.Called(ctx, generation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ReviewReport), args.Error(1)
}

func (m *MockReportCache) SetReport(ctx context.Context, generation int64, report *entity.ReviewReport) error {
	args := m.Called(ctx, generation, report)
	return args.Error(0)
}

func (m *MockReportCache) InvalidateReport(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockReportCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

package service

import (
	"context"
	"errors"
	"time"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
	"guestfeedback/feedback-service/internal/app/feedback/infrastructure"
	"guestfeedback/feedback-service/internal/app/feedback/repository"
	"guestfeedback/feedback-service/internal/app/feedback/validation"
	"guestfeedback/pkg/apperrors"
	"guestfeedback/pkg/logger"
	"guestfeedback/pkg/metrics"
)

const (
	MessageValidationError = "validation error"
	MessageDuplicate       = "duplicate entry"
	MessageInternal        = "internal server error"

	sideEffectTimeout = 5 * time.Second
)

// FeedbackService принимает оценки гостей.
// Оценка 5 - только отметка в счётчике, 1-4 - полноценный отзыв.
type FeedbackService struct {
	validator  *validation.Validator
	reviewRepo repository.ReviewRepository
	clickRepo  repository.StarClickRepository
	publisher  infrastructure.EventPublisher
	cache      infrastructure.ReportCache
}

// NewFeedbackService создает сервис; nil publisher/cache заменяются заглушками
func NewFeedbackService(
	reviewRepo repository.ReviewRepository,
	clickRepo repository.StarClickRepository,
	publisher infrastructure.EventPublisher,
	cache infrastructure.ReportCache,
) *FeedbackService {
	if publisher == nil {
		publisher = infrastructure.NoopPublisher{}
	}
	if cache == nil {
		cache = infrastructure.NoopReportCache{}
	}
	return &FeedbackService{
		validator:  validation.New(),
		reviewRepo: reviewRepo,
		clickRepo:  clickRepo,
		publisher:  publisher,
		cache:      cache,
	}
}

// Submit проверяет оценку и делает ровно одну запись в хранилище.
// При ошибке проверки хранилище не трогается.
func (s *FeedbackService) Submit(ctx context.Context, req *entity.SubmitFeedbackRequest) entity.SubmissionResult {
	sub, res := s.validator.Validate(req)
	if !res.Valid() {
		return s.reject(apperrors.BadRequest(res.Message, res.Errors))
	}

	metrics.ReviewsRating.Observe(float64(sub.Rating))

	if sub.Rating == validation.FiveStars {
		return s.recordClick(ctx)
	}
	return s.saveReview(ctx, sub)
}

func (s *FeedbackService) recordClick(ctx context.Context) entity.SubmissionResult {
	click := &entity.StarClick{}
	if err := s.clickRepo.Create(ctx, click); err != nil {
		return s.reject(classifyStoreError(err))
	}

	metrics.StarClicks.Inc()
	s.afterWrite(ctx, entity.FeedbackEvent{
		EventType: entity.EventStarClickRecorded,
		ID:        click.ID.Hex(),
		Rating:    validation.FiveStars,
		Timestamp: click.ClickedAt,
	})

	return entity.ClickAccepted{ID: click.ID.Hex()}
}

func (s *FeedbackService) saveReview(ctx context.Context, sub validation.Submission) entity.SubmissionResult {
	review := &entity.Review{
		Name:    sub.Name,
		Email:   sub.Email,
		Rating:  sub.Rating,
		Opinion: sub.Opinion,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return s.reject(classifyStoreError(err))
	}

	metrics.ReviewsCreated.Inc()
	s.afterWrite(ctx, entity.FeedbackEvent{
		EventType: entity.EventReviewCreated,
		ID:        review.ID.Hex(),
		Rating:    review.Rating,
		Timestamp: review.CreatedAt,
	})

	return entity.ReviewAccepted{Review: review}
}

// afterWrite переводит кеш отчёта на новое поколение и публикует событие.
// Запись уже выполнена, поэтому ошибки только логируются; отмена запроса клиентом
// не должна оставить кеш на старом поколении.
func (s *FeedbackService) afterWrite(ctx context.Context, event entity.FeedbackEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := s.cache.InvalidateReport(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to invalidate report cache, cache bypassed until next successful invalidation")
	}

	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event_type", event.EventType).Msg("Failed to publish feedback event")
	}
}

func (s *FeedbackService) reject(err *apperrors.Error) entity.SubmissionResult {
	metrics.SubmissionsRejected.WithLabelValues(string(err.Kind)).Inc()

	switch err.Kind {
	case apperrors.KindInternal, apperrors.KindConflict:
		logger.Error().Err(err).Str("kind", string(err.Kind)).Msg("Feedback submission failed")
	default:
		logger.Debug().Str("kind", string(err.Kind)).Str("reason", err.Message).Msg("Feedback submission rejected")
	}

	return entity.Rejected{Err: err}
}

// classifyStoreError сопоставляет ошибки репозитория классам ответа
func classifyStoreError(err error) *apperrors.Error {
	var schemaErr *repository.SchemaError
	if errors.As(err, &schemaErr) {
		return apperrors.Validation(MessageValidationError, schemaErr.Details, err)
	}
	if errors.Is(err, repository.ErrDuplicateKey) {
		return apperrors.Conflict(MessageDuplicate, err)
	}

	appErr := apperrors.Internal(MessageInternal, err)
	appErr.Details = storeFailureDetails(err)
	return appErr
}

// storeFailureDetails - безопасное описание сбоя без текста драйвера (в нём может быть URI)
func storeFailureDetails(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "storage timeout"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	default:
		return "storage unavailable"
	}
}

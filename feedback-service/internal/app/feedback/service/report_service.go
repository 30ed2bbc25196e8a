package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
	"guestfeedback/feedback-service/internal/app/feedback/infrastructure"
	"guestfeedback/feedback-service/internal/app/feedback/repository"
	"guestfeedback/pkg/apperrors"
	"guestfeedback/pkg/logger"
)

const MessageFetchFailed = "error fetching reviews"

// ReportService отдаёт данные для страницы отчёта и PDF
type ReportService struct {
	reviewRepo repository.ReviewRepository
	clickRepo  repository.StarClickRepository
	cache      infrastructure.ReportCache
}

func NewReportService(
	reviewRepo repository.ReviewRepository,
	clickRepo repository.StarClickRepository,
	cache infrastructure.ReportCache,
) *ReportService {
	if cache == nil {
		cache = infrastructure.NoopReportCache{}
	}
	return &ReportService{
		reviewRepo: reviewRepo,
		clickRepo:  clickRepo,
		cache:      cache,
	}
}

// ListAll возвращает все отзывы (новые первыми) и число оценок 5.
// Обе выборки идут параллельно; при ошибке любой из них частичный результат не отдаётся.
func (s *ReportService) ListAll(ctx context.Context) (*entity.ReviewReport, error) {
	// поколение читается до запроса в хранилище: запись, завершившаяся после этого,
	// сдвинет поколение, и снятый здесь снимок уже никто не прочитает
	generation, err := s.cache.Generation(ctx)
	useCache := err == nil
	if err != nil {
		logger.Warn().Err(err).Msg("Report cache generation unavailable, bypassing cache")
	}

	if useCache {
		cached, err := s.cache.GetReport(ctx, generation)
		if err != nil {
			logger.Warn().Err(err).Msg("Report cache read failed, falling back to MongoDB")
		} else if cached != nil {
			return cached, nil
		}
	}

	var (
		reviews []entity.Review
		clicks  int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reviews, err = s.reviewRepo.ListNewestFirst(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		clicks, err = s.clickRepo.Count(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Failed to fetch reviews")
		appErr := apperrors.Internal(MessageFetchFailed, err)
		appErr.Details = storeFailureDetails(err)
		return nil, appErr
	}

	if reviews == nil {
		reviews = []entity.Review{}
	}
	report := &entity.ReviewReport{Reviews: reviews, FiveStarClicks: clicks}

	if useCache {
		if err := s.cache.SetReport(ctx, generation, report); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache report")
		}
	}

	return report, nil
}

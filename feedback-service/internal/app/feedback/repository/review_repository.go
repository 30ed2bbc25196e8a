package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
	"guestfeedback/pkg/metrics"
)

const serviceName = "feedback-service"

type reviewRepository struct {
	db  DatabaseProvider
	now func() time.Time
}

// NewReviewRepository создает репозиторий отзывов поверх общего подключения
func NewReviewRepository(db DatabaseProvider) ReviewRepository {
	return &reviewRepository{db: db, now: storeNow}
}

// storeNow - время с точностью MongoDB, чтобы ответ совпадал с сохранённым документом
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Create проверяет схему, назначает ID и created_at и сохраняет отзыв
func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	review.CreatedAt = r.now()
	if err := validateReview(review); err != nil {
		return err
	}

	db, err := r.db.Database(ctx)
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	review.ID = primitive.NewObjectID()

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, ReviewsCollection)
	_, err = db.Collection(ReviewsCollection).InsertOne(ctx, review)
	timer.ObserveDuration()
	if err != nil {
		review.ID = primitive.NilObjectID
		metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		return fmt.Errorf("failed to create review: %w", classifyWriteError(err))
	}

	return nil
}

// ListNewestFirst возвращает все отзывы, новые первыми (индекс created_at_desc_idx)
func (r *reviewRepository) ListNewestFirst(ctx context.Context) ([]entity.Review, error) {
	db, err := r.db.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpFind, ReviewsCollection)
	defer timer.ObserveDuration()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := db.Collection(ReviewsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpFind)
		return nil, fmt.Errorf("failed to find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := make([]entity.Review, 0)
	if err := cursor.All(ctx, &reviews); err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpFind)
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}

	return reviews, nil
}

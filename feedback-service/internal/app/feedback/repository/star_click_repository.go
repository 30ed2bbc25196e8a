package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
	"guestfeedback/pkg/metrics"
)

type starClickRepository struct {
	db  DatabaseProvider
	now func() time.Time
}

func NewStarClickRepository(db DatabaseProvider) StarClickRepository {
	return &starClickRepository{db: db, now: storeNow}
}

// Create сохраняет отметку оценки 5; данных гостя в ней нет
func (r *starClickRepository) Create(ctx context.Context, click *entity.StarClick) error {
	db, err := r.db.Database(ctx)
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	click.ID = primitive.NewObjectID()
	click.ClickedAt = r.now()

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, StarClicksCollection)
	_, err = db.Collection(StarClicksCollection).InsertOne(ctx, click)
	timer.ObserveDuration()
	if err != nil {
		click.ID = primitive.NilObjectID
		metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		return fmt.Errorf("failed to record star click: %w", classifyWriteError(err))
	}

	return nil
}

func (r *starClickRepository) Count(ctx context.Context) (int64, error) {
	db, err := r.db.Database(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get database: %w", err)
	}

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpCount, StarClicksCollection)
	defer timer.ObserveDuration()

	count, err := db.Collection(StarClicksCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpCount)
		return 0, fmt.Errorf("failed to count star clicks: %w", err)
	}

	return count, nil
}

package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
)

// DatabaseProvider отдаёт базу поверх общего подключения (database.Manager)
type DatabaseProvider interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

// ReviewRepository определяет методы для работы с отзывами в MongoDB.
// Хранилище само назначает ID и created_at.
type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	ListNewestFirst(ctx context.Context) ([]entity.Review, error)
}

// StarClickRepository - счётчик оценок 5 звёзд
type StarClickRepository interface {
	Create(ctx context.Context, click *entity.StarClick) error
	Count(ctx context.Context) (int64, error)
}

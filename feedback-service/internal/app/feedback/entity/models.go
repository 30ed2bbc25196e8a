package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review - отзыв гостя с оценкой 1-4
type Review struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name" validate:"required"`
	Email     string             `json:"email" bson:"email" validate:"required,loose_email"`
	Rating    int                `json:"rating" bson:"rating" validate:"min=1,max=4"`
	Opinion   string             `json:"opinion" bson:"opinion" validate:"required,min=10"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// StarClick - анонимная отметка об оценке 5 звёзд, данных гостя не содержит
type StarClick struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ClickedAt time.Time          `json:"clickedAt" bson:"clicked_at"`
}

// ReviewReport - выборка для страницы отчёта и PDF
type ReviewReport struct {
	Reviews        []Review `json:"reviews"`
	FiveStarClicks int64    `json:"fiveStarClicks"`
}

const (
	EventReviewCreated     = "REVIEW_CREATED"
	EventStarClickRecorded = "STAR_CLICK_RECORDED"
)

// FeedbackEvent публикуется в Kafka после успешной записи
type FeedbackEvent struct {
	EventType string    `json:"event_type"`
	ID        string    `json:"id"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

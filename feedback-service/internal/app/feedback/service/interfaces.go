package service

import (
	"context"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
)

type FeedbackServiceInterface interface {
	Submit(ctx context.Context, req *entity.SubmitFeedbackRequest) entity.SubmissionResult
}

type ReportServiceInterface interface {
	ListAll(ctx context.Context) (*entity.ReviewReport, error)
}

package handler

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
	"guestfeedback/feedback-service/internal/app/feedback/report"
	"guestfeedback/feedback-service/internal/app/feedback/service"
	"guestfeedback/pkg/apperrors"
	"guestfeedback/pkg/logger"
	"guestfeedback/pkg/metrics"
)

const (
	MessageInvalidBody = "invalid request body"
	triggerHTTP        = "http"
)

type FeedbackHandler struct {
	feedbackService service.FeedbackServiceInterface
	reportService   service.ReportServiceInterface
	renderer        *report.PDFRenderer
	redirectURL     string
	now             func() time.Time
}

// NewFeedbackHandler; redirectURL может быть пустым
func NewFeedbackHandler(
	feedbackService service.FeedbackServiceInterface,
	reportService service.ReportServiceInterface,
	renderer *report.PDFRenderer,
	redirectURL string,
) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: feedbackService,
		reportService:   reportService,
		renderer:        renderer,
		redirectURL:     redirectURL,
		now:             time.Now,
	}
}

// Submit - POST /reviews
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req entity.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: MessageInvalidBody})
		return
	}

	switch result := h.feedbackService.Submit(c.Request.Context(), &req).(type) {
	case entity.ClickAccepted:
		c.JSON(http.StatusCreated, entity.ClickResponse{
			Success:     true,
			Message:     entity.MessageClickRecorded,
			ID:          result.ID,
			RedirectURL: h.redirectURL,
		})
	case entity.ReviewAccepted:
		c.JSON(http.StatusCreated, entity.ReviewResponse{
			Success: true,
			Review:  result.Review,
			Message: entity.MessageReviewSaved,
		})
	case entity.Rejected:
		respondError(c, result.Err)
	default:
		respondError(c, apperrors.Internal(service.MessageInternal, errors.New("unknown submission result")))
	}
}

// List - GET /reviews
func (h *FeedbackHandler) List(c *gin.Context) {
	rpt, err := h.reportService.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, asAppError(err, service.MessageFetchFailed))
		return
	}

	c.JSON(http.StatusOK, entity.ReviewListResponse{
		Success:        true,
		Reviews:        rpt.Reviews,
		FiveStarClicks: rpt.FiveStarClicks,
	})
}

// ExportPDF - GET /reviews/report.pdf
func (h *FeedbackHandler) ExportPDF(c *gin.Context) {
	rpt, err := h.reportService.ListAll(c.Request.Context())
	if err != nil {
		metrics.RecordReportGenerated(triggerHTTP, err)
		respondError(c, asAppError(err, service.MessageFetchFailed))
		return
	}

	// рендерим в буфер, чтобы при ошибке ещё можно было отдать JSON
	var buf bytes.Buffer
	err = h.renderer.Render(&buf, *rpt)
	metrics.RecordReportGenerated(triggerHTTP, err)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to render pdf report")
		respondError(c, apperrors.Internal(service.MessageInternal, err))
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+report.FileName(h.now()))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func asAppError(err error, fallback string) *apperrors.Error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Internal(fallback, err)
}

// respondError пишет ответ по таблице классов; причина наружу не попадает
func respondError(c *gin.Context, err *apperrors.Error) {
	c.JSON(apperrors.Status(err.Kind), entity.ErrorResponse{
		Error:   err.Message,
		Details: err.Details,
	})
}

package processor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"guestfeedback/feedback-service/internal/app/feedback/report"
	"guestfeedback/feedback-service/internal/app/feedback/service"
	"guestfeedback/pkg/logger"
	"guestfeedback/pkg/metrics"
)

const TriggerSchedule = "schedule"

// ReportScheduler по расписанию выгружает PDF отчёт в каталог
type ReportScheduler struct {
	cron      *cron.Cron
	reportSvc service.ReportServiceInterface
	renderer  *report.PDFRenderer
	dir       string
	now       func() time.Time
}

func NewReportScheduler(reportSvc service.ReportServiceInterface, renderer *report.PDFRenderer, dir string) *ReportScheduler {
	c := cron.New(cron.WithLogger(cronLogger{}))

	return &ReportScheduler{
		cron:      c,
		reportSvc: reportSvc,
		renderer:  renderer,
		dir:       dir,
		now:       time.Now,
	}
}

// Start регистрирует задачу и запускает cron. Первая выгрузка - по расписанию, не сразу.
func (s *ReportScheduler) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Str("dir", s.dir).Msg("Starting report scheduler")

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}

	_, err := s.cron.AddFunc(schedule, func() {
		path, err := s.Export(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Scheduled report export failed")
			return
		}
		logger.Info().Str("path", path).Msg("Scheduled report exported")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Msg("Report scheduler started")
	return nil
}

// Export формирует отчёт и атомарно кладёт его в каталог под именем текущего дня.
// Повторная выгрузка в тот же день перезаписывает файл.
func (s *ReportScheduler) Export(ctx context.Context) (path string, err error) {
	defer func() { metrics.RecordReportGenerated(TriggerSchedule, err) }()

	rpt, err := s.reportSvc.ListAll(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, *rpt); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".report-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	path = filepath.Join(s.dir, report.FileName(s.now()))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move report: %w", err)
	}
	return path, nil
}

func (s *ReportScheduler) Stop() {
	logger.Info().Msg("Stopping report scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Report scheduler stopped")
}

func (s *ReportScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}

// cronLogger пишет события cron в общий zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// Package report формирует PDF отчёт по отзывам гостей.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
)

const (
	Title      = "Guest Feedback Report"
	dateLayout = "2006-01-02 15:04 MST"

	lineHeight = 6.0
)

// PDFRenderer рисует отчёт в формате A4
type PDFRenderer struct {
	now func() time.Time
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{now: time.Now}
}

// Render пишет PDF в w: заголовок, время формирования, число оценок 5 и блоки отзывов
// в том порядке, в котором они пришли.
func (r *PDFRenderer) Render(w io.Writer, rpt entity.ReviewReport) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(Title, true)
	pdf.SetCreator("feedback-service", true)
	pdf.AliasNbPages("")
	pdf.SetAutoPageBreak(true, 15)

	// встроенные шрифты работают в cp1252, UTF-8 переводим там, где это возможно
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, Title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(96, 96, 96)
	pdf.CellFormat(0, lineHeight, "Generated: "+r.now().UTC().Format(dateLayout), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Total 5-star clicks: %d", rpt.FiveStarClicks), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Reviews: %d", len(rpt.Reviews)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(rpt.Reviews) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 8, "No reviews yet.", "", 1, "L", false, 0, "")
	}

	left, _, right, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()

	for i, review := range rpt.Reviews {
		pdf.SetDrawColor(200, 200, 200)
		y := pdf.GetY()
		pdf.Line(left, y, pageWidth-right, y)
		pdf.Ln(2)

		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, lineHeight, tr(fmt.Sprintf("%d. %s", i+1, review.Name)), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, lineHeight, tr("Email: "+review.Email), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, lineHeight, "Rating: "+stars(review.Rating), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, lineHeight, "Date: "+review.CreatedAt.UTC().Format(dateLayout), "", 1, "L", false, 0, "")
		pdf.MultiCell(0, lineHeight, tr("Opinion: "+review.Opinion), "", "L", false)
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

// stars - "3/5 ***"
func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	return fmt.Sprintf("%d/5 %s", rating, strings.Repeat("*", rating))
}

// FileName - имя файла для выгрузки за указанный день
func FileName(t time.Time) string {
	return "reviews-report-" + t.UTC().Format("2006-01-02") + ".pdf"
}

// Package rendering renders roadmap months into printable PDF documents.
package rendering

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/skillxpress/skillxpress/internal/types"
)

// MonthError reports a month that could not be turned into a PDF.
type MonthError struct {
	Month int
	Stage string // "layout" or "output"
	Cause error
}

func (e *MonthError) Error() string {
	return fmt.Sprintf("render month %d: %s: %v", e.Month, e.Stage, e.Cause)
}

func (e *MonthError) Unwrap() error { return e.Cause }

// PDFRenderer lays out a roadmap month on A4 pages.
type PDFRenderer struct {
	Title string
}

// NewPDFRenderer creates a renderer with the document title used in headers.
func NewPDFRenderer(title string) *PDFRenderer {
	if title == "" {
		title = "SkillXpress Roadmap"
	}
	return &PDFRenderer{Title: title}
}

// RenderMonth renders one month: a header block followed by the generated
// plan, with headings and bullets preserved.
func (r *PDFRenderer) RenderMonth(month types.RoadmapMonth) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("%s - Month %d", r.Title, month.MonthIndex), true)
	pdf.SetAuthor("SkillXpress", true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Month %d: %s", month.MonthIndex, month.Phase)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Target role: "+month.Role), "", 1, "L", false, 0, "")
	if len(month.Focus) > 0 {
		pdf.MultiCell(0, 6, tr("Focus: "+strings.Join(month.Focus, ", ")), "", "L", false)
	}
	if month.Project != "" {
		pdf.CellFormat(0, 6, tr("Project: "+month.Project), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, line := range strings.Split(month.Content, "\n") {
		kind, text := classifyLine(line)
		switch kind {
		case lineBlank:
			pdf.Ln(2)
		case lineHeading:
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 13)
			pdf.MultiCell(0, 7, tr(text), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		case lineBullet:
			pdf.SetX(pdf.GetX() + 4)
			pdf.MultiCell(0, 6, tr("- "+text), "", "L", false)
		default:
			pdf.MultiCell(0, 6, tr(text), "", "L", false)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, &MonthError{Month: month.MonthIndex, Stage: "layout", Cause: err}
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &MonthError{Month: month.MonthIndex, Stage: "output", Cause: err}
	}
	return buf.Bytes(), nil
}

package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// TimetableDocument describes a weekly grid for PDF rendering. Rows are
// ordered time slots; Cells maps a day name to the text shown for that slot.
type TimetableDocument struct {
	Title    string
	Subtitle string
	Days     []string
	Rows     []TimetableRow
}

// TimetableRow is one half-hour band of the weekly grid.
type TimetableRow struct {
	Time  string
	Cells map[string]string
}

// PDFExporter renders datasets and weekly timetables into PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			value := row[header]
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderTimetable draws the weekly grid in landscape with a time column
// followed by one column per day.
func (e *PDFExporter) RenderTimetable(doc TimetableDocument) ([]byte, error) {
	if len(doc.Days) == 0 {
		return nil, fmt.Errorf("timetable pdf requires at least one day column")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(8, 12, 8)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	const timeColWidth = 24.0
	dayColWidth := (281.0 - timeColWidth) / float64(len(doc.Days))

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(timeColWidth, 7, "Time", "1", 0, "C", true, 0, "")
	for _, day := range doc.Days {
		pdf.CellFormat(dayColWidth, 7, day, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	for _, row := range doc.Rows {
		pdf.CellFormat(timeColWidth, 6, row.Time, "1", 0, "C", false, 0, "")
		for _, day := range doc.Days {
			pdf.CellFormat(dayColWidth, 6, row.Cells[day], "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render timetable pdf: %w", err)
	}
	return buf.Bytes(), nil
}

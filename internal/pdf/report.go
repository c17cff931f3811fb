package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"tomanage/internal/enrichment"
	"tomanage/internal/models"
	"tomanage/internal/recommend"
)

// Generator renders task reports; an interface so services can fake it.
type Generator interface {
	TaskReport(data ReportData) ([]byte, error)
}

type ReportData struct {
	UserID         string
	GeneratedAt    time.Time
	Workload       enrichment.Workload
	Matrix         recommend.Matrix
	Recommendation string
}

// ReportGenerator draws with a UTF-8 TTF when FontPath exists and falls back
// to the core Helvetica font otherwise.
type ReportGenerator struct {
	FontPath string
	fontName string
}

func NewReportGenerator(fontPath string) *ReportGenerator {
	return &ReportGenerator{FontPath: fontPath, fontName: "DejaVu"}
}

func (g *ReportGenerator) TaskReport(data ReportData) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Task report", false)
	doc.SetAuthor("tomanage", false)
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)

	w := g.writer(doc)
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		w.font("", 9)
		doc.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()

	w.font("B", 18)
	doc.CellFormat(0, 10, w.tr("Task report"), "", 1, "C", false, 0, "")
	w.font("", 11)
	doc.CellFormat(0, 7, w.tr(data.GeneratedAt.Format("Monday, 02 Jan 2006 15:04")), "", 1, "C", false, 0, "")
	w.hr()

	w.sectionTitle("Workload")
	wl := data.Workload
	status := "Manageable"
	if wl.IsOverloaded {
		status = "Overloaded"
	}
	w.kvLine("Incomplete tasks", fmt.Sprintf("%d", wl.TotalIncompleteTasks))
	w.kvLine("Estimated hours", fmt.Sprintf("%dh", wl.TotalEstimatedHours))
	w.kvLine("Critical tasks", fmt.Sprintf("%d", wl.CriticalTasks))
	w.kvLine("Status", status)
	w.hr()

	if strings.TrimSpace(data.Recommendation) != "" {
		w.sectionTitle("Recommendation")
		w.font("", 10)
		doc.MultiCell(0, 5, w.tr(strings.ReplaceAll(data.Recommendation, "**", "")), "", "L", false)
		w.hr()
	}

	quadrants := []struct {
		q     recommend.Quadrant
		tasks []models.Task
	}{
		{recommend.QuadrantUrgentImportant, data.Matrix.UrgentImportant},
		{recommend.QuadrantImportantNotUrgent, data.Matrix.ImportantNotUrgent},
		{recommend.QuadrantUrgentNotImportant, data.Matrix.UrgentNotImportant},
		{recommend.QuadrantNeither, data.Matrix.Neither},
	}
	for _, quad := range quadrants {
		w.sectionTitle(fmt.Sprintf("%s (%d)", quad.q, len(quad.tasks)))
		if len(quad.tasks) == 0 {
			w.font("", 10)
			doc.CellFormat(0, 6, w.tr("No tasks"), "", 1, "L", false, 0, "")
		}
		for _, t := range quad.tasks {
			w.taskRow(t)
		}
		doc.Ln(2)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

type writer struct {
	doc    *gofpdf.Fpdf
	family string
	tr     func(string) string
}

func (g *ReportGenerator) writer(doc *gofpdf.Fpdf) *writer {
	if g.FontPath != "" {
		if _, err := os.Stat(g.FontPath); err == nil {
			doc.AddUTF8Font(g.fontName, "", g.FontPath)
			doc.AddUTF8Font(g.fontName, "B", g.FontPath)
			return &writer{doc: doc, family: g.fontName, tr: func(s string) string { return s }}
		}
	}
	return &writer{doc: doc, family: "Helvetica", tr: doc.UnicodeTranslatorFromDescriptor("")}
}

func (w *writer) font(style string, size float64) {
	w.doc.SetFont(w.family, style, size)
}

func (w *writer) sectionTitle(s string) {
	w.font("B", 12)
	w.doc.CellFormat(0, 7, w.tr(s), "", 1, "L", false, 0, "")
	w.font("", 11)
}

func (w *writer) kvLine(key, val string) {
	w.font("B", 11)
	w.doc.CellFormat(45, 6, w.tr(key+":"), "", 0, "L", false, 0, "")
	w.font("", 11)
	w.doc.CellFormat(0, 6, w.tr(val), "", 1, "L", false, 0, "")
}

func (w *writer) taskRow(t models.Task) {
	w.font("", 10)
	due := ""
	if t.DueDate != nil {
		due = ", due " + t.DueDate.Format("02 Jan 15:04")
	}
	meta := fmt.Sprintf("%s priority, %s, %s energy, ~%d min%s", t.Priority, t.Urgency, t.EnergyRequired, t.EstimatedDuration, due)
	w.doc.MultiCell(0, 5, w.tr("- "+t.Title), "", "L", false)
	w.doc.SetTextColor(110, 110, 110)
	w.doc.MultiCell(0, 5, w.tr("   "+meta), "", "L", false)
	w.doc.SetTextColor(0, 0, 0)
}

func (w *writer) hr() {
	y := w.doc.GetY() + 1.5
	w.doc.SetLineWidth(0.2)
	w.doc.Line(20, y, 190, y)
	w.doc.SetY(y + 2)
}

package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/uroflux/intake-api/internal/model"
)

// Renderer produces the patient-facing PDF report from analysis metrics.
type Renderer interface {
	Render(patientName, nationalID string, m model.Metrics) ([]byte, error)
}

type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render draws an A4 report: title, patient identity, then every metric in
// the stable order defined by model.Metrics.Fields.
func (r *PDFRenderer) Render(patientName, nationalID string, m model.Metrics) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "UroFlux - Exam Result")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Patient: %s", patientName))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("National ID: %s", nationalID))
	pdf.Ln(14)

	for _, field := range m.Fields() {
		pdf.Cell(0, 8, fmt.Sprintf("%s: %s", field.Label, field.Value))
		pdf.Ln(8)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

// Package artifact renders the fixed-layout PDF produced when a doctor
// approves a lab result. The document embeds everything needed for an
// independent audit: patient and test identity, the result payload or file
// reference, both signatures and the content digest recorded at submission.
package artifact

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/meditrack/hospital-api/internal/model"
)

type RenderInput struct {
	Patient    *model.Patient
	Test       *model.Test
	Result     *model.TestResult
	Parameters []model.ResultParameter
	DoctorName string
	// Base64-encoded PNG signature images.
	LabTechSignature string
	DoctorSignature  string
	ApprovedAt       time.Time
}

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render writes the approval artifact to path.
func (r *Renderer) Render(path string, in RenderInput) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Test Result - %s", in.Test.Name), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Test Result: %s", in.Test.Name), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	line := func(s string) {
		pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	}

	line(fmt.Sprintf("Patient: %s", in.Patient.FullName()))
	line(fmt.Sprintf("Patient MRN: %s", in.Patient.MRN))
	line(fmt.Sprintf("Test Code: %s", in.Test.Code))
	pdf.Ln(2)

	if in.Result.ResultType == model.ResultTypeManual {
		pdf.SetFont("Helvetica", "B", 11)
		line("Results:")
		pdf.SetFont("Helvetica", "", 11)
		for _, p := range in.Parameters {
			line(fmt.Sprintf("- %s: %s %s (%s)", p.Parameter, p.Value, p.Unit, p.NormalRange))
		}
	} else if in.Result.ResultFilePath != nil {
		line(fmt.Sprintf("Result File: %s", filepath.Base(*in.Result.ResultFilePath)))
	}
	pdf.Ln(2)

	line(fmt.Sprintf("Interpretation: %s", orNone(in.Result.Interpretation)))
	line(fmt.Sprintf("Comments: %s", orNone(in.Result.Comments)))
	line(fmt.Sprintf("Quality Control: %s", orNone(in.Result.QualityControl)))
	pdf.Ln(2)

	line(fmt.Sprintf("Lab Technician: %s", in.Result.LabTechnicianName))
	line(fmt.Sprintf("Submitted: %s", in.Result.SubmittedAt.UTC().Format(time.RFC3339)))
	if in.LabTechSignature != "" {
		line("Lab Technician Signature:")
		r.embedSignature(pdf, "labtech-sig", in.LabTechSignature)
	}
	pdf.Ln(2)

	line(fmt.Sprintf("Doctor: Dr. %s", in.DoctorName))
	line(fmt.Sprintf("Approved: %s", in.ApprovedAt.UTC().Format(time.RFC3339)))
	line("Doctor Signature:")
	r.embedSignature(pdf, "doctor-sig", in.DoctorSignature)
	pdf.Ln(4)

	pdf.SetFont("Courier", "", 9)
	line(fmt.Sprintf("Result Hash: %s", in.Result.ResultHash))

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to render artifact: %w", err)
	}
	return nil
}

// embedSignature draws a base64-encoded PNG. A malformed signature image is
// rendered as a placeholder line rather than failing the approval.
func (r *Renderer) embedSignature(pdf *fpdf.Fpdf, name, b64 string) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		pdf.CellFormat(0, 7, "(signature image unreadable)", "", 1, "L", false, 0, "")
		return
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	if pdf.Err() {
		pdf.ClearError()
		pdf.CellFormat(0, 7, "(signature image unreadable)", "", 1, "L", false, 0, "")
		return
	}
	pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), 40, 0, true, opts, 0, "")
	pdf.Ln(2)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

package artifact

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrack/hospital-api/internal/model"
)

func renderInput() RenderInput {
	filePath := "/tmp/result_abc.pdf"
	return RenderInput{
		Patient: &model.Patient{
			MRN:       "MRN-0001",
			FirstName: "Ada",
			LastName:  "Lovelace",
		},
		Test: &model.Test{
			Name: "Complete Blood Count",
			Code: "CBC",
		},
		Result: &model.TestResult{
			Base:              model.Base{ID: uuid.New()},
			ResultType:        model.ResultTypeManual,
			Interpretation:    "within normal limits",
			QualityControl:    "passed",
			ResultHash:        "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
			LabTechnicianName: "Tech One",
			SubmittedAt:       time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
			ResultFilePath:    &filePath,
		},
		Parameters: []model.ResultParameter{
			{Parameter: "Hemoglobin", Value: "13.5", Unit: "g/dL", NormalRange: "12-16"},
		},
		DoctorName:      "Greg House",
		DoctorSignature: signaturePNG(),
		ApprovedAt:      time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC),
	}
}

// signaturePNG builds a tiny valid PNG and base64-encodes it.
func signaturePNG() string {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		img.Set(x, 0, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.pdf")

	err := NewRenderer().Render(path, renderInput())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "output should be a PDF")
	assert.Greater(t, len(data), 500)
}

func TestRenderFileResult(t *testing.T) {
	in := renderInput()
	in.Result.ResultType = model.ResultTypeFile
	in.Parameters = nil

	path := filepath.Join(t.TempDir(), "artifact.pdf")
	require.NoError(t, NewRenderer().Render(path, in))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderToleratesBadSignature(t *testing.T) {
	in := renderInput()
	in.DoctorSignature = "not-base64!!"
	in.LabTechSignature = base64.StdEncoding.EncodeToString([]byte("not a png"))

	path := filepath.Join(t.TempDir(), "artifact.pdf")
	assert.NoError(t, NewRenderer().Render(path, in))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestRenderFailsOnUnwritablePath(t *testing.T) {
	err := NewRenderer().Render(filepath.Join(t.TempDir(), "missing", "artifact.pdf"), renderInput())
	assert.Error(t, err)
}

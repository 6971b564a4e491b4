package result

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/meditrack/hospital-api/internal/model"
)

// digestPayload fixes the canonical serialization for manual results. Field
// order and the explicit encoding of an absent results array as null are part
// of the contract: the same bytes must be produced at submission, at approval
// and at every patient access, or the digest comparison is meaningless.
type digestPayload struct {
	Results        []model.ResultParameter `json:"results"`
	Interpretation string                  `json:"interpretation"`
	Methodology    string                  `json:"methodology"`
	Comments       string                  `json:"comments"`
	QualityControl string                  `json:"qualityControl"`
}

// ComputeDigest hashes the canonical serialization of a manual result's
// substantive fields.
func ComputeDigest(params []model.ResultParameter, interpretation, methodology, comments, qualityControl string) (string, error) {
	raw, err := json.Marshal(digestPayload{
		Results:        params,
		Interpretation: interpretation,
		Methodology:    methodology,
		Comments:       comments,
		QualityControl: qualityControl,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize result payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// ComputeFileDigest hashes the raw bytes of an uploaded result file.
func ComputeFileDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// digestOf recomputes the digest for a stored result using the same
// canonicalization applied at submission. For file results the caller
// supplies the current file bytes.
func digestOf(res *model.TestResult, fileBytes []byte) (string, error) {
	if res.ResultType == model.ResultTypeFile {
		return ComputeFileDigest(fileBytes), nil
	}
	var params []model.ResultParameter
	if len(res.ResultsJSON) > 0 {
		if err := json.Unmarshal(res.ResultsJSON, &params); err != nil {
			return "", fmt.Errorf("failed to decode stored results: %w", err)
		}
	}
	return ComputeDigest(params, res.Interpretation, res.Methodology, res.Comments, res.QualityControl)
}

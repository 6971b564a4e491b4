package result

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrack/hospital-api/internal/model"
)

func sampleParams() []model.ResultParameter {
	return []model.ResultParameter{
		{Parameter: "Hemoglobin", Value: "13.5", Unit: "g/dL", NormalRange: "12-16"},
		{Parameter: "WBC", Value: "6.2", Unit: "10^9/L", NormalRange: "4-11"},
	}
}

func TestComputeDigestDeterministic(t *testing.T) {
	a, err := ComputeDigest(sampleParams(), "normal", "automated analyzer", "", "passed")
	require.NoError(t, err)
	b, err := ComputeDigest(sampleParams(), "normal", "automated analyzer", "", "passed")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeDigestSensitiveToEveryField(t *testing.T) {
	base, err := ComputeDigest(sampleParams(), "normal", "analyzer", "none", "passed")
	require.NoError(t, err)

	changedParams := sampleParams()
	changedParams[0].Value = "13.6"

	cases := []struct {
		name   string
		digest func() (string, error)
	}{
		{"parameter value", func() (string, error) {
			return ComputeDigest(changedParams, "normal", "analyzer", "none", "passed")
		}},
		{"interpretation", func() (string, error) {
			return ComputeDigest(sampleParams(), "abnormal", "analyzer", "none", "passed")
		}},
		{"methodology", func() (string, error) {
			return ComputeDigest(sampleParams(), "normal", "manual", "none", "passed")
		}},
		{"comments", func() (string, error) {
			return ComputeDigest(sampleParams(), "normal", "analyzer", "retest", "passed")
		}},
		{"quality control", func() (string, error) {
			return ComputeDigest(sampleParams(), "normal", "analyzer", "none", "failed")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.digest()
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestDigestOfMatchesSubmission(t *testing.T) {
	params := sampleParams()
	digest, err := ComputeDigest(params, "normal", "analyzer", "", "")
	require.NoError(t, err)

	raw, err := json.Marshal(params)
	require.NoError(t, err)

	res := &model.TestResult{
		ResultType:     model.ResultTypeManual,
		ResultsJSON:    raw,
		Interpretation: "normal",
		Methodology:    "analyzer",
		ResultHash:     digest,
	}

	recomputed, err := digestOf(res, nil)
	require.NoError(t, err)
	assert.Equal(t, digest, recomputed)
}

func TestDigestOfDetectsStoredMutation(t *testing.T) {
	params := sampleParams()
	digest, err := ComputeDigest(params, "normal", "analyzer", "", "")
	require.NoError(t, err)

	params[1].Value = "99.9"
	raw, err := json.Marshal(params)
	require.NoError(t, err)

	res := &model.TestResult{
		ResultType:     model.ResultTypeManual,
		ResultsJSON:    raw,
		Interpretation: "normal",
		Methodology:    "analyzer",
		ResultHash:     digest,
	}

	recomputed, err := digestOf(res, nil)
	require.NoError(t, err)
	assert.NotEqual(t, digest, recomputed)
}

func TestComputeFileDigest(t *testing.T) {
	data := []byte("%PDF-1.4 fake file contents")
	a := ComputeFileDigest(data)
	b := ComputeFileDigest(data)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, ComputeFileDigest(append(data, ' ')))

	res := &model.TestResult{ResultType: model.ResultTypeFile, ResultHash: a}
	got, err := digestOf(res, data)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestComputeDigestNilAndEmptySliceDiffer(t *testing.T) {
	// nil encodes as null, an empty slice as []. They are different payloads
	// and must not collide.
	nilDigest, err := ComputeDigest(nil, "", "", "", "")
	require.NoError(t, err)
	emptyDigest, err := ComputeDigest([]model.ResultParameter{}, "", "", "", "")
	require.NoError(t, err)
	assert.NotEqual(t, nilDigest, emptyDigest)
}

package model

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx/reflectx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The decoded Results slice exists for API payloads only; the "results"
// column must always scan into ResultsJSON, independent of field order.
func TestResultColumnScansIntoRawJSON(t *testing.T) {
	m := reflectx.NewMapperFunc("db", strings.ToLower)
	tm := m.TypeMap(reflect.TypeOf(TestResult{}))

	fi := tm.GetByPath("results")
	require.NotNil(t, fi)
	assert.Equal(t, "ResultsJSON", fi.Field.Name)
}

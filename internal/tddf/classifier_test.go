package tddf_test

import (
	"testing"

	"github.com/kurochkinivan/tddf_pipeline/internal/tddf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Classify(t *testing.T) {
	t.Parallel()

	classifier := tddf.NewClassifier(tddf.DefaultRegistry())

	tests := []struct {
		name string
		line string
		code string
		kind tddf.Kind
	}{
		{name: "batch header", line: "01696290624670002BH675906759000", code: "BH", kind: tddf.KindProcessable},
		{name: "detail transaction", line: "01696300624670003DT6759", code: "DT", kind: tddf.KindProcessable},
		{name: "extension", line: "01696310624670004P16759", code: "P1", kind: tddf.KindExtension},
		{name: "unregistered", line: "01696320624670005ZZ6759", code: "ZZ", kind: tddf.KindUnrecognized},
		{name: "too short", line: "0169632062467000", code: tddf.Unclassifiable, kind: tddf.KindUnrecognized},
		{name: "exactly one char short", line: "01696320624670005D", code: tddf.Unclassifiable, kind: tddf.KindUnrecognized},
		{name: "blank code", line: "01696320624670005  6759", code: tddf.Unclassifiable, kind: tddf.KindUnrecognized},
		{name: "empty line", line: "", code: tddf.Unclassifiable, kind: tddf.KindUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := classifier.Classify(tt.line)
			assert.Equal(t, tt.code, c.Code)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.kind == tddf.KindProcessable, c.Processable())
		})
	}
}

func TestClassifier_BatchHeaderOverriddenAsExtension(t *testing.T) {
	t.Parallel()

	registry, err := tddf.NewRegistry(
		tddf.Entry{Code: "DT", Name: "detail_transaction", Processable: true},
		tddf.Entry{Code: "BH", Name: "batch_header", Processable: false},
	)
	require.NoError(t, err)

	c := tddf.NewClassifier(registry).Classify("01696290624670002BH675906759000")

	assert.Equal(t, "BH", c.Code)
	assert.Equal(t, tddf.KindExtension, c.Kind)
	assert.False(t, c.Processable())
}

package tddf_test

import (
	"strings"
	"testing"

	"github.com/kurochkinivan/tddf_pipeline/internal/tddf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_Overrides(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"code\tname\tprocessable",
		"# batch headers are consumed elsewhere",
		"BH\tbatch_header\tfalse",
		"P1\tpurchasing_card_1\ttrue",
		"Z9\tcustom\tfalse",
	}, "\n")

	base := tddf.DefaultRegistry()
	registry, err := tddf.LoadRegistry(strings.NewReader(src), base)
	require.NoError(t, err)

	bh, ok := registry.Lookup("BH")
	require.True(t, ok)
	assert.False(t, bh.Processable)

	p1, ok := registry.Lookup("P1")
	require.True(t, ok)
	assert.True(t, p1.Processable)

	_, ok = registry.Lookup("Z9")
	assert.True(t, ok)

	baseBH, _ := base.Lookup("BH")
	assert.True(t, baseBH.Processable, "base registry must not be modified")
}

func TestLoadRegistry_ProcessableWithoutSchema(t *testing.T) {
	t.Parallel()

	src := "code\tname\tprocessable\nE1\temv\ttrue\n"

	_, err := tddf.LoadRegistry(strings.NewReader(src), tddf.DefaultRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema")
}

func TestLoadRegistry_InvalidCode(t *testing.T) {
	t.Parallel()

	src := "code\tname\tprocessable\nDTX\tbad\tfalse\n"

	_, err := tddf.LoadRegistry(strings.NewReader(src), tddf.DefaultRegistry())
	require.Error(t, err)
}

func TestDefaultRegistry_Entries(t *testing.T) {
	t.Parallel()

	var processable []string
	for _, e := range tddf.DefaultRegistry().Entries() {
		if e.Processable {
			processable = append(processable, e.Code)
		}
	}

	assert.Equal(t, []string{"BH", "DT"}, processable)
}

package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecodeArray(t *testing.T) {
	records, err := Decode(strings.NewReader(`  [
		{"identity": "CCO", "cross_references": [{"source": "drugbank", "external_id": "DB00898"}],
		 "gene_actions": [{"gene": "ADH1B", "action": "inhibitor"}, {"gene": "CYP2E1", "action": null}]}
	]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CCO", records[0].Identity)
	assert.Equal(t, "inhibitor", *records[0].GeneActions[0].Action)
	assert.Nil(t, records[0].GeneActions[1].Action)
}

func TestDecodeLines(t *testing.T) {
	records, err := Decode(strings.NewReader(
		`{"identity": "CCO", "gene_actions": [{"gene": "ADH1B", "action": null}]}` + "\n" +
			`{"identity": "", "cross_references": [], "gene_actions": [], "origin": "line-2"}` + "\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "line-2", records[1].Origin)
}

func TestDecodeRejectsShapeDrift(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unknown field", input: `[{"identity": "CCO", "smiles": "CCO"}]`},
		{name: "wrong type", input: `{"identity": 42}`},
		{name: "action not a string", input: `{"identity": "CCO", "gene_actions": [{"gene": "ADH1B", "action": 1}]}`},
		{name: "trailing garbage", input: `[{"identity": "CCO"}] {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestDecodeRejectsNullRecords(t *testing.T) {
	inputs := map[string]string{
		"array element": `[{"identity": "CCO", "gene_actions": [{"gene": "ADH1B"}]}, null]`,
		"json line":     `{"identity": "CCO", "gene_actions": [{"gene": "ADH1B"}]}` + "\nnull\n",
		"only null":     "null",
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			records, err := Decode(strings.NewReader(input))
			assert.ErrorIs(t, err, errNullRecord)
			assert.Nil(t, records)
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	records, err := Decode(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSourceFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"identity": "CCO", "gene_actions": [{"gene": "ADH1B", "action": null}]}]`), 0o600))

	src := NewSource(path, zap.NewNop())
	assert.Equal(t, "file", src.Name())

	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = NewSource(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop()).Fetch(context.Background())
	assert.Error(t, err)
}

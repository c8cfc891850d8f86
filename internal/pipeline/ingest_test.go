package pipeline_test

import (
	"testing"

	"clubcard-pipeline/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExportValid(t *testing.T) {
	export, err := pipeline.ParseExport([]byte(sampleExportJSON))
	require.NoError(t, err)

	assert.Len(t, export.Batches, 2)
	assert.Len(t, export.Batches[0], 1)
	assert.Len(t, export.Batches[1], 1)
	assert.Equal(t, 2, export.TransactionCount())
	assert.Equal(t, "AB12 3CD", export.Postcode)
}

func TestParseExportRejectsInvalidJSON(t *testing.T) {
	_, err := pipeline.ParseExport([]byte(`{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON format")
}

func TestParseExportRejectsMissingPurchase(t *testing.T) {
	_, err := pipeline.ParseExport([]byte(`{"Other": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Purchase data")
}

func TestParseExportRejectsNonArrayPurchase(t *testing.T) {
	_, err := pipeline.ParseExport([]byte(`{"Purchase": {"a": 1}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an array")
}

func TestParseExportRejectsNonArrayBatch(t *testing.T) {
	_, err := pipeline.ParseExport([]byte(`{"Purchase": [[], "oops"]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Purchase[1]")
}

func TestParseExportRejectsNonObjectTransaction(t *testing.T) {
	_, err := pipeline.ParseExport([]byte(`{"Purchase": [[{"ok": true}, 42]]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Purchase[0][1]")
}

func TestParseExportEmptyPurchaseIsValid(t *testing.T) {
	export, err := pipeline.ParseExport([]byte(`{"Purchase": []}`))
	require.NoError(t, err)
	assert.Empty(t, export.Batches)
	assert.Zero(t, export.TransactionCount())
}

func TestParseExportMissingPostcode(t *testing.T) {
	export, err := pipeline.ParseExport([]byte(`{"Purchase": [[]]}`))
	require.NoError(t, err)
	assert.Empty(t, export.Postcode)
}

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixedassets/depflow/internal/common"
)

func TestParseClassification(t *testing.T) {
	resp, err := parseClassification(`CLASS: Computers & Peripherals
CONFIDENCE: 0.92
REASON: Description names a laptop model.`)
	require.NoError(t, err)
	assert.Equal(t, "Computers & Peripherals", resp.ClassName)
	assert.InDelta(t, 0.92, resp.Confidence, 0.001)
	assert.Equal(t, "Description names a laptop model.", resp.Reason)
}

func TestParseClassificationStripsCodeFences(t *testing.T) {
	resp, err := parseClassification("```\nCLASS: Automobiles\nCONFIDENCE: 0.8\nREASON: sedan\n```")
	require.NoError(t, err)
	assert.Equal(t, "Automobiles", resp.ClassName)
}

func TestParseClassificationToleratesExtraLines(t *testing.T) {
	resp, err := parseClassification(`Sure! Here is the classification:

CLASS: Machinery & Equipment
CONFIDENCE: 0.75
REASON: industrial press`)
	require.NoError(t, err)
	assert.Equal(t, "Machinery & Equipment", resp.ClassName)
}

func TestParseClassificationMissingClass(t *testing.T) {
	_, err := parseClassification("CONFIDENCE: 0.9\nREASON: none")
	require.Error(t, err)
	assert.Equal(t, common.CategoryOther, common.CategoryOf(err))
}

func TestParseClassificationUnparseableConfidence(t *testing.T) {
	_, err := parseClassification("CLASS: Automobiles\nCONFIDENCE: high")
	assert.Error(t, err)
}

func TestParseClassificationOutOfRangeConfidenceDefaults(t *testing.T) {
	resp, err := parseClassification("CLASS: Automobiles\nCONFIDENCE: 7.5")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, resp.Confidence, 0.001)

	resp, err = parseClassification("CLASS: Automobiles")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, resp.Confidence, 0.001)
}

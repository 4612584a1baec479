package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wvf-labs/docparse/internal/common"
)

func TestNormalizeDirectParse(t *testing.T) {
	n := New(nil)

	raw := `{
		"document_type": "invoice",
		"key_fields": {"vendor_name": "Acme Corp", "total_amount": 120.50},
		"items": [{"description": "Widget", "quantity": 2, "unit_price": 10.25}],
		"notes": "net 30"
	}`

	rec, err := n.Normalize(raw, HintKey)
	require.NoError(t, err)
	assert.Empty(t, rec.RawOutput)
	assert.False(t, rec.Degraded())
	assert.Equal(t, "invoice", rec.DocumentType)
	assert.Equal(t, "Acme Corp", rec.KeyFields["vendor_name"])
	assert.Equal(t, 120.50, rec.KeyFields["total_amount"])
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "Widget", rec.Items[0]["description"])
	assert.Equal(t, "net 30", rec.Notes)
}

func TestNormalizeTopLevelArrayIsNotAccepted(t *testing.T) {
	n := New(nil)

	rec, err := n.Normalize(`[1, 2, 3]`, HintKey)
	require.NoError(t, err)
	assert.True(t, rec.Degraded())
	assert.Equal(t, `[1, 2, 3]`, rec.RawOutput)
}

func TestNormalizeEmbeddedInProse(t *testing.T) {
	n := New(nil)

	raw := `Sure, here is the data: {"document_type":"invoice","key_fields":{"date":"2025-05-20"}} hope that helps!`
	rec, err := n.Normalize(raw, HintKey)
	require.NoError(t, err)
	assert.Equal(t, "invoice", rec.DocumentType)
	assert.Equal(t, "2025-05-20", rec.KeyFields["date"])
	assert.Empty(t, rec.RawOutput)
}

func TestNormalizeScanPrefersHintKey(t *testing.T) {
	n := New(nil)

	raw := `first: {"confidence": 0.9} second: {"document_type":"receipt"}`
	rec, err := n.Normalize(raw, HintKey)
	require.NoError(t, err)
	assert.Equal(t, "receipt", rec.DocumentType)
}

func TestNormalizeScanRejectsUnhintedCandidates(t *testing.T) {
	n := New(nil)

	// Parsable objects that lack the hint key are not accepted; the ladder
	// falls through to the degraded record instead of guessing, keeping the
	// raw output intact.
	raw := `metadata: {"confidence": 0.9} trailer: {"foo": 1}`
	rec, err := n.Normalize(raw, HintKey)
	require.NoError(t, err)
	assert.True(t, rec.Degraded())
	assert.Equal(t, raw, rec.RawOutput)
}

func TestNormalizeScanWithoutHintAcceptsFirstObject(t *testing.T) {
	n := New(nil)

	raw := `metadata: {"confidence": 0.9} trailer: {"foo": 1}`
	rec, err := n.Normalize(raw, "")
	require.NoError(t, err)
	assert.Equal(t, 0.9, rec.KeyFields["confidence"])
}

func TestNormalizeSyntacticRepair(t *testing.T) {
	n := New(nil)

	raw := `{document_type: 'invoice', vendor_name: 'Acme', total_amount: 100,}`
	rec, err := n.Normalize(raw, HintKey)
	require.NoError(t, err)
	assert.Empty(t, rec.RawOutput)
	assert.Equal(t, "invoice", rec.DocumentType)
	assert.Equal(t, "Acme", rec.KeyFields["vendor_name"])
	assert.Equal(t, 100.0, rec.KeyFields["total_amount"])
}

func TestNormalizeEmptyInput(t *testing.T) {
	n := New(nil)

	for _, raw := range []string{"", "   ", "\n\t"} {
		_, err := n.Normalize(raw, HintKey)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrEmptyResponse))
	}
}

func TestNormalizeDegradedSuccess(t *testing.T) {
	n := New(nil)

	raw := "no data available"
	rec, err := n.Normalize(raw, HintKey)
	require.NoError(t, err)
	assert.True(t, rec.Degraded())
	assert.Equal(t, raw, rec.RawOutput)
	assert.Empty(t, rec.DocumentType)
	assert.Empty(t, rec.KeyFields)
}

func TestNormalizeScalarDegrades(t *testing.T) {
	n := New(nil)

	rec, err := n.Normalize(`"just a string"`, HintKey)
	require.NoError(t, err)
	assert.True(t, rec.Degraded())
}

func TestNormalizeLegacyFlatShape(t *testing.T) {
	n := New(nil)

	// Older responses put document fields at the top level instead of under
	// key_fields; they fold into key_fields.
	raw := `{"document_type":"bill","vendor_name":"Hotel Amer Palace","subtotal":1315.0,"items":[{"description":"BUTTER TANDOOR","amount":45.0}]}`
	rec, err := n.Normalize(raw, HintKey)
	require.NoError(t, err)
	assert.Equal(t, "bill", rec.DocumentType)
	assert.Equal(t, "Hotel Amer Palace", rec.KeyFields["vendor_name"])
	assert.Equal(t, 1315.0, rec.KeyFields["subtotal"])
	require.Len(t, rec.Items, 1)
}

func TestNormalizeTables(t *testing.T) {
	n := New(nil)

	raw := `{
		"document_type": "receipt",
		"tables": [
			{"table_name": "Items", "items": [{"description": "Bread", "line_total": 1.99}]},
			{"table_name": "Charges", "items": [{"description": "Service", "amount": 50.0}]}
		]
	}`
	rec, err := n.Normalize(raw, HintKey)
	require.NoError(t, err)
	require.Len(t, rec.Tables, 2)
	assert.Equal(t, "Items", rec.Tables[0].TableName)
	assert.Equal(t, "Charges", rec.Tables[1].TableName)
	assert.Len(t, rec.LineItems(), 2)
}

func TestNormalizeAdvisorySchemaFlagsOnly(t *testing.T) {
	n := New(nil)

	// Missing document_type violates the advisory schema but must not reject
	// the record.
	rec, err := n.Normalize(`{"key_fields":{"total":1}}`, "")
	require.NoError(t, err)
	assert.True(t, rec.NeedsReview)
	assert.False(t, rec.Degraded())
	assert.Equal(t, 1.0, rec.KeyFields["total"])
}

package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want map[string]any
	}{
		{
			name: "single quotes",
			in:   `{"document_type": 'invoice'}`,
			want: map[string]any{"document_type": "invoice"},
		},
		{
			name: "bare keys",
			in:   `{document_type: "invoice", total: 5}`,
			want: map[string]any{"document_type": "invoice", "total": 5.0},
		},
		{
			name: "trailing comma",
			in:   `{"a": 1,}`,
			want: map[string]any{"a": 1.0},
		},
		{
			name: "all three",
			in:   `{document_type: 'bill', vendor: 'Acme', total: 10,}`,
			want: map[string]any{"document_type": "bill", "vendor": "Acme", "total": 10.0},
		},
		{
			name: "nested bare keys",
			in:   `{key_fields: {date: '2025-01-01'}}`,
			want: map[string]any{"key_fields": map[string]any{"date": "2025-01-01"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repaired := repairText(tc.in)
			var got map[string]any
			require.NoError(t, json.Unmarshal([]byte(repaired), &got), "repaired: %s", repaired)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRepairTextLeavesValidJSONParsable(t *testing.T) {
	in := `{"document_type": "invoice", "total": 5}`
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(repairText(in)), &got))
	assert.Equal(t, "invoice", got["document_type"])
}

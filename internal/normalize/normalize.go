// Package normalize turns free-form model responses into structured page
// records. Hosted-model output is not guaranteed well-formed JSON despite
// instruction, so parsing runs as an ordered fallback ladder that prefers any
// structured result over a hard failure: direct parse, balanced-brace
// extraction, textual repair, and finally a degraded record that preserves
// the raw output.
package normalize

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wvf-labs/docparse/internal/common"
	"github.com/wvf-labs/docparse/internal/document"
)

// HintKey is the top-level key used to prefer candidates during the
// extraction scan.
const HintKey = "document_type"

// Normalizer parses and repairs raw model responses.
type Normalizer struct {
	logger *slog.Logger
	schema *jsonschema.Schema
}

func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := CompilePageRecordSchema()
	if err != nil {
		// The schema is a compile-time constant; failing to build it is a
		// programming error, but the schema is advisory so we degrade to
		// skipping the check rather than refusing to construct.
		logger.Error("normalize.schema_compile_failed", "error", err)
		schema = nil
	}
	return &Normalizer{logger: logger, schema: schema}
}

// Normalize coerces a raw model response into a page record. hintKey, when
// non-empty, restricts the extraction scan to candidate objects containing
// that top-level key. The returned record's page_number is left for the
// caller to fill.
//
// An error is returned only for an empty response; malformed JSON is absorbed
// by the degraded-success path (raw_output set, everything else empty).
func (n *Normalizer) Normalize(raw string, hintKey string) (document.PageRecord, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return document.PageRecord{}, common.NewAppError("NORMALIZE_EMPTY", "raw response is empty", common.ErrEmptyResponse)
	}

	// Stage 1: the whole trimmed response parses as a JSON object.
	if m, ok := parseObject(trimmed); ok {
		return n.build(m, "direct"), nil
	}

	// Stage 2: scan for balanced-brace substrings and accept the first one
	// that parses into an object. When a hint key was requested, only objects
	// carrying it are accepted; anything else falls through the ladder.
	if m, ok := n.scan(raw, hintKey); ok {
		return n.build(m, "scan"), nil
	}

	// Stage 3: textual repair of the whole response, reparsed once.
	if m, ok := parseObject(repairText(trimmed)); ok {
		n.logger.Warn("normalize.repair_applied", "raw_bytes", len(raw))
		return n.build(m, "repair"), nil
	}

	// Stage 4: degraded success. The raw output is preserved so callers can
	// still display and export it.
	n.logger.Warn("normalize.degraded", "raw_bytes", len(raw))
	return document.PageRecord{RawOutput: raw}, nil
}

func (n *Normalizer) scan(raw, hintKey string) (map[string]any, bool) {
	for _, cand := range scanObjects(raw) {
		m, ok := parseObject(cand)
		if !ok {
			continue
		}
		if hintKey == "" {
			return m, true
		}
		if _, present := m[hintKey]; present {
			return m, true
		}
	}
	return nil, false
}

// parseObject parses s as JSON and reports success only when the top-level
// value is an object, not a scalar or array.
func parseObject(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}

// build converts a parsed mapping into a PageRecord and runs the advisory
// schema check. A schema miss never rejects the record; it only flags it.
func (n *Normalizer) build(m map[string]any, stage string) document.PageRecord {
	rec := recordFromMap(m)
	if n.schema != nil {
		if err := n.schema.Validate(m); err != nil {
			rec.NeedsReview = true
			n.logger.Warn("normalize.schema_mismatch", "stage", stage, "error", err)
		}
	}
	n.logger.Debug("normalize.ok",
		"stage", stage,
		"document_type", rec.DocumentType,
		"key_fields", len(rec.KeyFields),
		"tables", len(rec.Tables),
		"items", len(rec.Items),
	)
	return rec
}

// recordFromMap maps known top-level keys onto the record and folds every
// remaining field into key_fields. Legacy flat responses put vendor details
// and amounts at the top level instead of under key_fields; folding keeps
// both shapes usable downstream.
func recordFromMap(m map[string]any) document.PageRecord {
	var rec document.PageRecord

	if s, ok := m["document_type"].(string); ok {
		rec.DocumentType = s
	}
	if kf, ok := m["key_fields"].(map[string]any); ok {
		rec.KeyFields = document.Fields(kf)
	}
	if s, ok := m["notes"].(string); ok {
		rec.Notes = s
	}
	rec.Items = lineItems(m["items"])
	rec.Tables = tables(m["tables"])

	for k, v := range m {
		switch k {
		case "document_type", "key_fields", "notes", "items", "tables", "page_number", "metadata", "raw_output":
			continue
		}
		if rec.KeyFields == nil {
			rec.KeyFields = document.Fields{}
		}
		if _, exists := rec.KeyFields[k]; !exists {
			rec.KeyFields[k] = v
		}
	}
	return rec
}

func lineItems(v any) []document.LineItem {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var items []document.LineItem
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			items = append(items, document.LineItem(m))
		}
	}
	return items
}

func tables(v any) []document.Table {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []document.Table
	for _, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		var t document.Table
		if s, ok := m["table_name"].(string); ok {
			t.TableName = s
		}
		t.Items = lineItems(m["items"])
		out = append(out, t)
	}
	return out
}

package normalize

import "regexp"

var (
	reBareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	reTrailingComma = regexp.MustCompile(`,\s*}`)
)

// repairText applies a fixed sequence of textual repairs for common model
// formatting mistakes: single-quoted strings, unquoted object keys, and
// trailing commas before closing braces. The repairs are applied to the whole
// text and the result is reparsed once by the caller, not iteratively.
func repairText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '"')
			continue
		}
		out = append(out, s[i])
	}

	repaired := reBareKey.ReplaceAllString(string(out), `$1"$2":`)
	repaired = reTrailingComma.ReplaceAllString(repaired, "}")
	return repaired
}

package normalize

// maxNestingDepth bounds the brace scanner. Candidates whose braces nest
// deeper than this are abandoned; the scanner handles one level of nested
// objects reliably and deeper responses may be missed. This is a documented
// limitation of the extraction stage, inherited from the upstream matcher.
const maxNestingDepth = 2

// scanObjects walks the text left-to-right and returns every balanced-brace
// substring within the nesting bound, in order of appearance. String literals
// are honored so braces inside quoted values don't terminate a candidate.
func scanObjects(s string) []string {
	var candidates []string

	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end, ok := matchObject(s, i)
		if !ok {
			continue
		}
		candidates = append(candidates, s[i:end+1])
		i = end
	}
	return candidates
}

// matchObject scans from the opening brace at start and returns the index of
// the matching closing brace. Reports false when the braces never balance,
// when the nesting bound is exceeded, or when a string literal runs off the
// end of the input.
func matchObject(s string, start int) (int, bool) {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++ // skip escaped char
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
			if depth > maxNestingDepth {
				return 0, false
			}
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

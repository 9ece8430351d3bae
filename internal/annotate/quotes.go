package annotate

import "strings"

// span is a half-open byte range [start, end).
type span struct {
	start, end int
}

// quotedSpans locates single- and double-quoted string literals on one line,
// honouring backslash escapes. An unterminated quote produces no span.
// Each quote kind is scanned independently, so a double-quoted literal that
// contains an apostrophe still yields its own span.
func quotedSpans(line string) []span {
	var spans []span
	for _, q := range []byte{'"', '\''} {
		spans = append(spans, spansFor(line, q)...)
	}
	return spans
}

func spansFor(line string, quote byte) []span {
	var spans []span
	for i := 0; i < len(line); i++ {
		if line[i] != quote {
			continue
		}
		j := i + 1
		for j < len(line) && line[j] != quote {
			if line[j] == '\\' {
				j++
			}
			j++
		}
		if j >= len(line) {
			break
		}
		spans = append(spans, span{i, j + 1})
		i = j
	}
	return spans
}

// containsOutsideQuotes reports whether token occurs in line at least once
// without being fully enclosed by a quoted literal. With whole set, an
// occurrence only counts when it is not followed by another word character.
func containsOutsideQuotes(line, token string, whole bool) bool {
	if token == "" || !strings.Contains(line, token) {
		return false
	}
	spans := quotedSpans(line)
	for offset := 0; ; {
		idx := strings.Index(line[offset:], token)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(token)
		if !enclosed(spans, start, end) && (!whole || !isWordByte(line, end)) {
			return true
		}
		offset = start + 1
	}
}

func enclosed(spans []span, start, end int) bool {
	for _, s := range spans {
		if s.start <= start && end <= s.end {
			return true
		}
	}
	return false
}

func isWordByte(line string, i int) bool {
	if i >= len(line) {
		return false
	}
	c := line[i]
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

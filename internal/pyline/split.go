// Package pyline holds line-level lexing helpers for Python source that do
// not need a syntax tree.
package pyline

import "strings"

// Split separates one physical line into its code and trailing comment.
//
// A '#' only starts a comment outside single- and double-quoted literals. A
// quote character toggles its own state only when the other kind is not open.
// A line whose first non-blank character is '#' is comment-only: code is ""
// and comment is the line without its indentation.
func Split(line string) (code, comment string) {
	line = strings.TrimRight(line, "\r\n")
	stripped := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(stripped, "#") {
		return "", stripped
	}

	inSingle, inDouble := false, false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble {
				return strings.TrimRight(line[:i], " \t"), line[i:]
			}
		}
	}
	return strings.TrimRight(line, " \t"), ""
}

// FirstToken returns the first whitespace-delimited token of s, or "".
func FirstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

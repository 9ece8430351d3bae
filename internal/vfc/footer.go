package vfc

import (
	"path/filepath"
	"strings"
)

// footerTemplate is the session block the viewer reads back verbatim. Only
// the document name varies.
var footerTemplate = []string{
	";INSECTA EMBEDDED SESSION INFORMATION",
	"; 255 16777215 65280 16777088 16711680 13158600 16777088 0 255 255 65535 6946660 986895",
	"; %NAME%      #    '",
	"; notepad.exe",
	";INSECTA EMBEDDED ALTSESSION INFORMATION",
	"; 260 260 1130 1751 0 130   137   4294966452    python.key  0",
}

// DefaultDocumentName is used in the footer when the input has no file name.
const DefaultDocumentName = "stdin"

// Footer renders the fixed footer for the document called name. The result
// has no trailing newline.
func Footer(name string) string {
	base := DefaultDocumentName
	if name != "" && name != "-" {
		base = filepath.Base(name)
	}
	return strings.ReplaceAll(strings.Join(footerTemplate, "\n"), "%NAME%", base)
}

package markers

import "strings"

// BlockKind identifies the syntactic block a marker pair delimits.
type BlockKind int

const (
	Function BlockKind = iota
	Method
	Class
	If
	Elif
	For
	While
	With
	Try
)

var kindNames = [...]string{
	Function: "function",
	Method:   "method",
	Class:    "class",
	If:       "if",
	Elif:     "elif",
	For:      "for",
	While:    "while",
	With:     "with",
	Try:      "try",
}

func (k BlockKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// StatementType is the VFC record type a line classifies as.
type StatementType string

const (
	Input  StatementType = "input"
	Branch StatementType = "branch"
	Loop   StatementType = "loop"
	Path   StatementType = "path"
	Event  StatementType = "event"
	End    StatementType = "end"
	Bend   StatementType = "bend"
	Lend   StatementType = "lend"
	Set    StatementType = "set"
)

// CommentPrefix starts every marker written into the annotated document.
const CommentPrefix = "#"

// Pair holds the begin and end marker words for one block kind.
type Pair struct {
	Kind  BlockKind
	Begin string
	End   string
}

// BeginTag returns the begin marker as written into source, e.g. "#beginfunc".
func (p Pair) BeginTag() string { return CommentPrefix + p.Begin }

// EndTag returns the end marker as written into source, e.g. "#endfunc".
func (p Pair) EndTag() string { return CommentPrefix + p.End }

var pairs = [...]Pair{
	Function: {Function, "beginfunc", "endfunc"},
	Method:   {Method, "beginmethod", "endmethod"},
	Class:    {Class, "beginclass", "endclass"},
	If:       {If, "beginif", "endif"},
	Elif:     {Elif, "beginelif", "endlif"},
	For:      {For, "beginfor", "endfor"},
	While:    {While, "beginwhile", "endwhile"},
	With:     {With, "beginwith", "endwith"},
	Try:      {Try, "begintry", "endtry"},
}

// PairFor returns the marker pair for kind.
func PairFor(kind BlockKind) Pair {
	return pairs[kind]
}

// Class bodies are rendered as a branch scaffold, so the emitter needs to
// recognise these two markers specifically.
const (
	ClassBegin = "beginclass"
	ClassEnd   = "endclass"
)

var beginTypes = map[string]StatementType{
	"beginfunc":   Input,
	"beginmethod": Input,
	"beginclass":  Input,
	"beginif":     Branch,
	"beginelif":   Branch,
	"begintry":    Branch,
	"beginwith":   Branch,
	"beginwhile":  Loop,
	"beginfor":    Loop,
}

// endlif is kept distinct in the annotated text but folds into bend.
var endTypes = map[string]StatementType{
	"endfunc":   End,
	"endmethod": End,
	"endclass":  End,
	"endif":     Bend,
	"endlif":    Bend,
	"endwith":   Bend,
	"endtry":    Bend,
	"endfor":    Lend,
	"endwhile":  Lend,
}

// BeginType reports the statement type of a begin marker word.
func BeginType(marker string) (StatementType, bool) {
	t, ok := beginTypes[marker]
	return t, ok
}

// EndType reports the statement type of an end marker word.
func EndType(marker string) (StatementType, bool) {
	t, ok := endTypes[marker]
	return t, ok
}

// TypeOf resolves a marker word of either polarity.
func TypeOf(marker string) (StatementType, bool) {
	if t, ok := beginTypes[marker]; ok {
		return t, true
	}
	return EndType(marker)
}

// IsMarker reports whether word is part of the marker vocabulary.
func IsMarker(word string) bool {
	_, ok := TypeOf(word)
	return ok
}

// MarkerWord extracts the leading marker word from a comment such as
// "#beginif  trailing text". It returns "" when the first token is not a
// known marker.
func MarkerWord(comment string) string {
	c := strings.TrimSpace(comment)
	c = strings.TrimPrefix(c, CommentPrefix)
	fields := strings.Fields(c)
	if len(fields) == 0 || !IsMarker(fields[0]) {
		return ""
	}
	return fields[0]
}

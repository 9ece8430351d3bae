package markers

import "sort"

// Block is one recognised syntactic block. Lines are 0-based.
type Block struct {
	Kind      BlockKind
	StartLine int
	EndLine   int
	// Indent is the leading whitespace of StartLine; end markers are written at it.
	Indent string
	// Parent indexes the nearest enclosing block in Table.Blocks, or -1.
	Parent int
}

// EndMarker is one closing marker recorded at a block's last line.
type EndMarker struct {
	Tag      string
	Indent   string
	OpenLine int
	BeginTag string
}

// Table maps source lines to the markers opening and closing there.
type Table struct {
	beginsAt map[int][]string
	endsAt   map[int][]EndMarker
	blocks   []Block
}

// NewTable creates an empty marker table.
func NewTable() *Table {
	return &Table{
		beginsAt: make(map[int][]string),
		endsAt:   make(map[int][]EndMarker),
	}
}

// Record registers block and returns its index. The begin tag is appended
// at StartLine and the end tag at EndLine, so each begin has exactly one end.
func (t *Table) Record(b Block) int {
	p := PairFor(b.Kind)
	t.beginsAt[b.StartLine] = append(t.beginsAt[b.StartLine], p.BeginTag())
	t.endsAt[b.EndLine] = append(t.endsAt[b.EndLine], EndMarker{
		Tag:      p.EndTag(),
		Indent:   b.Indent,
		OpenLine: b.StartLine,
		BeginTag: p.BeginTag(),
	})
	t.blocks = append(t.blocks, b)
	return len(t.blocks) - 1
}

// BeginsAt returns the begin tags opening at line, in record order.
func (t *Table) BeginsAt(line int) []string {
	return t.beginsAt[line]
}

// EndsAt returns the end markers closing at line, innermost first: sorted by
// OpenLine descending, ties keeping record order.
func (t *Table) EndsAt(line int) []EndMarker {
	ends := t.endsAt[line]
	if len(ends) < 2 {
		return ends
	}
	sorted := make([]EndMarker, len(ends))
	copy(sorted, ends)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenLine > sorted[j].OpenLine
	})
	return sorted
}

// Blocks returns every recorded block in visit order.
func (t *Table) Blocks() []Block {
	return t.blocks
}

// Len returns the number of recorded blocks.
func (t *Table) Len() int {
	return len(t.blocks)
}

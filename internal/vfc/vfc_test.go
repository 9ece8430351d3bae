package vfc

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mvp-joe/flowmark/internal/markers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the classifier and emitter:
// - Quote-aware split keeps '#' inside literals in the code portion
// - Precedence: event > path > marker > keyword heuristics > set
// - elif/else/except lines carrying begin markers classify as path
// - End markers map to end/bend/lend; endlif folds into bend
// - Comment-only lines: structural markers classify by marker, others are set
// - Scenario A transcript is reproduced exactly
// - Every branch record is followed by a path record
// - beginclass is followed by branch/path/path; endclass is preceded by bend
// - Blank lines produce no records
// - Footer is fixed apart from the document name and has no trailing newline

func TestClassify_ScenarioB(t *testing.T) {
	t.Parallel()

	cl := Classify(`x = "value # not a comment"  # real comment`)

	assert.Equal(t, `x = "value # not a comment"`, cl.Code)
	assert.Equal(t, "# real comment", cl.Comment)
	assert.Equal(t, markers.Set, cl.Type)
	assert.Equal(t, "", cl.Marker)
}

func TestClassify_Precedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line   string
		want   markers.StatementType
		marker string
	}{
		{"import os", markers.Event, ""},
		{"from x import y", markers.Event, ""},
		{"    elif b: #beginelif", markers.Path, "beginelif"},
		{"    else:", markers.Path, ""},
		{"    except ValueError as e:", markers.Path, ""},
		{"    finally:", markers.Path, ""},
		{"    except* ValueError:", markers.Path, ""},
		{"    except* (KeyError, OSError) as eg:", markers.Path, ""},
		{"def f(): #beginfunc", markers.Input, "beginfunc"},
		{"    def m(self): #beginmethod", markers.Input, "beginmethod"},
		{"class A: #beginclass", markers.Input, "beginclass"},
		{"if x: #beginif", markers.Branch, "beginif"},
		{"try: #begintry", markers.Branch, "begintry"},
		{"with open(p) as f: #beginwith", markers.Branch, "beginwith"},
		{"for i in x: #beginfor", markers.Loop, "beginfor"},
		{"while x: #beginwhile", markers.Loop, "beginwhile"},
		{"async def f(): #beginfunc", markers.Input, "beginfunc"},
		{"    #endfunc", markers.End, "endfunc"},
		{"    #endmethod", markers.End, "endmethod"},
		{"#endclass", markers.End, "endclass"},
		{"    #endif", markers.Bend, "endif"},
		{"    #endlif", markers.Bend, "endlif"},
		{"    #endwith", markers.Bend, "endwith"},
		{"    #endtry", markers.Bend, "endtry"},
		{"    #endfor", markers.Lend, "endfor"},
		{"    #endwhile", markers.Lend, "endwhile"},
		{"# endfunc", markers.End, "endfunc"},
		// Heuristics without markers.
		{"def f():", markers.Input, ""},
		{"class A:", markers.Input, ""},
		{"if x:", markers.Branch, ""},
		{"try:", markers.Branch, ""},
		{"with lock:", markers.Branch, ""},
		{"for x in y:", markers.Loop, ""},
		{"while True:", markers.Loop, ""},
		{"return 1", markers.Set, ""},
		{"# a plain comment", markers.Set, ""},
		{`s = "#beginif"`, markers.Set, ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cl := Classify(tt.line)
			assert.Equal(t, tt.want, cl.Type)
			assert.Equal(t, tt.marker, cl.Marker)
		})
	}
}

func TestEmit_ScenarioA(t *testing.T) {
	t.Parallel()

	annotated := []string{
		"def f(): #beginfunc",
		"    if x: #beginif",
		"        return 1",
		"    #endif",
		"#endfunc",
	}

	got := Emit(annotated, "f.py").String()

	want := strings.Join([]string{
		"input(def f():);// ",
		"branch(if x:);// ",
		"path();// ",
		"set(return 1);// ",
		"bend();// ",
		"end();// ",
	}, "\n") + "\n" + Footer("f.py")

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestEmit_ClassScaffold(t *testing.T) {
	t.Parallel()

	annotated := []string{
		"class A: #beginclass",
		"    def m(self): #beginmethod",
		"        pass",
		"    #endmethod",
		"#endclass",
	}

	got := Emit(annotated, "a.py").Records

	want := []Record{
		{Type: markers.Input, Code: "class A:"},
		{Type: markers.Branch},
		{Type: markers.Path},
		{Type: markers.Path},
		{Type: markers.Input, Code: "def m(self):"},
		{Type: markers.Set, Code: "pass"},
		{Type: markers.End},
		{Type: markers.Bend},
		{Type: markers.End},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestEmit_BranchAlwaysFollowedByPath(t *testing.T) {
	t.Parallel()

	annotated := []string{
		"try: #begintry",
		"    with lock: #beginwith",
		"        if a: #beginif",
		"            go()",
		"        elif b: #beginelif",
		"            stop()",
		"        #endlif",
		"        #endif",
		"    #endwith",
		"except OSError:",
		"    pass",
		"#endtry",
	}
	records := Emit(annotated, "").Records

	branches := 0
	for i, r := range records {
		if r.Type != markers.Branch {
			continue
		}
		branches++
		require.Less(t, i+1, len(records))
		assert.Equal(t, markers.Path, records[i+1].Type)
		assert.Equal(t, "", records[i+1].Code)
	}
	assert.Equal(t, 3, branches)
}

func TestEmit_CommentHandling(t *testing.T) {
	t.Parallel()

	annotated := []string{
		"",
		"# header note",
		"#",
		"x = 1  #   set x",
		"if y: #beginif check y",
		"    pass",
		"#endif",
		"   ",
	}

	got := Emit(annotated, "").Records

	want := []Record{
		{Type: markers.Set, Comment: " header note"},
		{Type: markers.Set, Code: "#"},
		{Type: markers.Set, Code: "x = 1", Comment: "set x"},
		{Type: markers.Branch, Code: "if y:", Comment: "check y"},
		{Type: markers.Path},
		{Type: markers.Set, Code: "pass"},
		{Type: markers.Bend},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "set();//  header note", got[0].String())
}

func TestFooter(t *testing.T) {
	t.Parallel()

	footer := Footer("/tmp/work/inventory.py")
	lines := strings.Split(footer, "\n")

	require.Len(t, lines, 6)
	assert.Equal(t, ";INSECTA EMBEDDED SESSION INFORMATION", lines[0])
	assert.Equal(t, "; inventory.py      #    '", lines[2])
	assert.Equal(t, "; 260 260 1130 1751 0 130   137   4294966452    python.key  0", lines[5])
	assert.False(t, strings.HasSuffix(footer, "\n"))

	assert.Contains(t, Footer(""), "; stdin      #    '")
	assert.Equal(t, Footer("a/b/x.py"), Footer("x.py"))
}

package vfc

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/flowmark/internal/markers"
)

// Separator divides a record's statement from its comment.
const Separator = ";//"

// Record is one transcript line.
type Record struct {
	Type    markers.StatementType
	Code    string
	Comment string
}

func (r Record) String() string {
	return fmt.Sprintf("%s(%s)%s %s", r.Type, r.Code, Separator, r.Comment)
}

func scaffold(t markers.StatementType) Record {
	return Record{Type: t}
}

// Transcript is the emitted record stream plus its footer.
type Transcript struct {
	Records []Record
	Footer  string
}

// String serializes the transcript: one record per line, then the footer.
func (t *Transcript) String() string {
	var b strings.Builder
	for _, r := range t.Records {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	b.WriteString(t.Footer)
	return b.String()
}

// Emit classifies every annotated line and builds the transcript for the
// document called name.
func Emit(annotated []string, name string) *Transcript {
	classified := make([]ClassifiedLine, 0, len(annotated))
	for _, line := range annotated {
		classified = append(classified, Classify(line))
	}
	return &Transcript{
		Records: Records(classified),
		Footer:  Footer(name),
	}
}

// Records expands classified lines into transcript records, adding the
// scaffold records the renderer expects around branches and class bodies.
func Records(lines []ClassifiedLine) []Record {
	var out []Record
	for _, cl := range lines {
		if cl.Blank() {
			continue
		}

		if cl.Marker == markers.ClassEnd {
			out = append(out, scaffold(markers.Bend))
		}

		primary := primaryRecord(cl)
		out = append(out, primary)

		if primary.Type == markers.Branch {
			out = append(out, scaffold(markers.Path))
		}

		if cl.Marker == markers.ClassBegin {
			out = append(out,
				scaffold(markers.Branch),
				scaffold(markers.Path),
				scaffold(markers.Path),
			)
		}
	}
	return out
}

func primaryRecord(cl ClassifiedLine) Record {
	rec := Record{Type: cl.Type, Code: cl.Code}

	text := strings.TrimLeft(cl.Comment, " \t")
	switch {
	case cl.Marker != "":
		text = strings.TrimLeft(strings.TrimPrefix(text, markers.CommentPrefix), " \t")
		rec.Comment = strings.TrimLeft(strings.TrimPrefix(text, cl.Marker), " \t")
	case cl.CommentOnly():
		// Free comments keep their literal text; a lone '#' is drawn as code.
		body := strings.TrimPrefix(text, markers.CommentPrefix)
		if strings.TrimSpace(body) == "" {
			rec.Code = markers.CommentPrefix
		} else {
			rec.Comment = body
		}
	case strings.HasPrefix(text, markers.CommentPrefix):
		rec.Comment = strings.TrimLeft(text[len(markers.CommentPrefix):], " \t")
	default:
		rec.Comment = strings.TrimSpace(text)
	}
	return rec
}

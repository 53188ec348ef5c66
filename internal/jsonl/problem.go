package jsonl

import (
	"fmt"
	"strings"
)

// Problem is one defect found while validating a file. Validators collect
// every Problem rather than stopping at the first.
type Problem struct {
	Source string `json:"source"`
	Line   int    `json:"line,omitempty"`
	ID     string `json:"id,omitempty"`
	Err    error  `json:"-"`
}

// Message returns the defect description without location.
func (p Problem) Message() string {
	if p.Err == nil {
		return ""
	}
	return p.Err.Error()
}

// Location formats where the problem is: "source:line", with " id=<id>"
// appended when the record id is known.
func (p Problem) Location() string {
	var b strings.Builder
	b.WriteString(p.Source)
	if p.Line > 0 {
		fmt.Fprintf(&b, ":%d", p.Line)
	}
	if p.ID != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("id=" + p.ID)
	}
	return b.String()
}

// String renders the problem as a report line.
func (p Problem) String() string {
	return fmt.Sprintf("ERROR %s: %s", p.Location(), p.Message())
}

// internal/cargo/parser_human.go
package cargo

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/openztcc/openzt-eval/api/schemas"
)

// Regex anchors for cargo's human-readable output.
var (
	// Example: "error[E0425]: cannot find value `x` in this scope"
	headerRegex = regexp.MustCompile(`^(error|warning|note|help)(?:\[([A-Za-z0-9_:]+)\])?: (.+)$`)
	// Example: " --> src/main.rs:10:5"
	locationRegex = regexp.MustCompile(`^\s*--> ([^:]+):(\d+):(\d+)$`)
)

// humanLevel maps a header severity onto the enumeration, coercing anything
// unrecognized to info. This is deliberately more forgiving than the JSON
// parser, which drops such records outright: recovering diagnostics from a
// terminal transcript is best-effort, so a message we cannot classify is
// still worth keeping.
func humanLevel(s string) schemas.MessageLevel {
	if level, ok := schemas.ParseMessageLevel(s); ok {
		return level
	}
	return schemas.LevelInfo
}

// humanParser is the explicit state of the line scanner: idle when current is
// nil, collecting otherwise. State transitions live in feed; termination in
// finish.
type humanParser struct {
	diags   []schemas.Diagnostic
	current *schemas.Diagnostic
	block   []string
}

// feed consumes a single line and advances the state machine.
func (p *humanParser) feed(line string) {
	if m := headerRegex.FindStringSubmatch(line); m != nil {
		// A new header finalizes whatever was being collected.
		p.flush()
		p.current = &schemas.Diagnostic{
			Level:   humanLevel(m[1]),
			Code:    m[2],
			Message: m[3],
		}
		p.block = []string{line}
		return
	}

	if p.current == nil {
		// Idle: non-header lines are ignored.
		return
	}

	// Collecting: the raw line always joins the rendered block.
	p.block = append(p.block, line)

	if m := locationRegex.FindStringSubmatch(line); m != nil {
		lineNum, _ := strconv.Atoi(m[2])
		colNum, _ := strconv.Atoi(m[3])
		// The text format only gives a point location, so start == end.
		p.current.Spans = append(p.current.Spans, schemas.CodeSpan{
			FileName:    m[1],
			LineStart:   lineNum,
			LineEnd:     lineNum,
			ColumnStart: colNum,
			ColumnEnd:   colNum,
		})
	}
}

// flush finalizes the in-progress diagnostic, assigning the accumulated lines
// verbatim as its rendered block.
func (p *humanParser) flush() {
	if p.current == nil {
		return
	}
	p.current.Rendered = strings.Join(p.block, "\n")
	p.diags = append(p.diags, *p.current)
	p.current = nil
	p.block = nil
}

func (p *humanParser) finish() []schemas.Diagnostic {
	p.flush()
	return p.diags
}

// ParseHumanOutput reconstructs diagnostics from cargo's human-readable
// output (normally captured from stderr).
//
// This is a best-effort recovery: headers and location lines are matched by
// pattern, everything between two headers becomes the rendered block of the
// first, and child diagnostics are never reconstructed since the text format
// carries no reliable nesting signal.
func ParseHumanOutput(output string) []schemas.Diagnostic {
	p := &humanParser{}
	for _, line := range strings.Split(output, "\n") {
		p.feed(line)
	}
	return p.finish()
}

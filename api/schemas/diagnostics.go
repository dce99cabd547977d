package schemas

// -- Diagnostic Schemas --

// MessageLevel represents the severity of a single compiler or linter message.
// The values are lowercase to match the strings cargo emits on the wire.
type MessageLevel string

// Constants defining the closed set of recognized message levels.
const (
	LevelError   MessageLevel = "error"   // A hard compilation error.
	LevelWarning MessageLevel = "warning" // A warning (including lint findings).
	LevelNote    MessageLevel = "note"    // A note attached to a parent message.
	LevelHelp    MessageLevel = "help"    // A help suggestion attached to a parent message.
	LevelInfo    MessageLevel = "info"    // An informational message.
)

// ParseMessageLevel maps a raw severity string onto the closed MessageLevel
// enumeration. The second return value reports whether the string was
// recognized; callers decide what to do with unknown levels.
func ParseMessageLevel(s string) (MessageLevel, bool) {
	switch MessageLevel(s) {
	case LevelError, LevelWarning, LevelNote, LevelHelp, LevelInfo:
		return MessageLevel(s), true
	}
	return "", false
}

// CodeSpan is one source-location reference attached to a diagnostic. Line and
// column numbers are 1-based, exactly as reported by the toolchain; the file
// path is kept verbatim and is not resolved against any filesystem.
type CodeSpan struct {
	FileName    string `json:"file_name"`
	LineStart   int    `json:"line_start"`
	LineEnd     int    `json:"line_end"`
	ColumnStart int    `json:"column_start"`
	ColumnEnd   int    `json:"column_end"`

	// Text is the literal source snippet for the span, when the toolchain
	// provided one.
	Text string `json:"text,omitempty"`
}

// Diagnostic is a single message emitted by the compiler or linter. Children
// form a tree of sub-notes (notes/help attached to a parent error or warning);
// they are reachable only by walking, never duplicated at the top level.
type Diagnostic struct {
	Level   MessageLevel `json:"level"`
	Message string       `json:"message"`

	// Code is the machine-readable identifier (e.g. "E0425" or
	// "clippy::needless_return"), empty when the toolchain reported none.
	Code string `json:"code,omitempty"`

	// Spans lists the associated source locations; by convention the primary
	// span comes first.
	Spans []CodeSpan `json:"spans,omitempty"`

	Children []Diagnostic `json:"children,omitempty"`

	// Rendered holds the toolchain's own pretty-printed rendering of the
	// diagnostic, kept verbatim for display.
	Rendered string `json:"rendered,omitempty"`
}

// Walk calls fn for d and then for every descendant in depth-first order.
func (d Diagnostic) Walk(fn func(Diagnostic)) {
	fn(d)
	for _, child := range d.Children {
		child.Walk(fn)
	}
}

// BuildOutcome is the result of one toolchain invocation. Success derives
// strictly from the process exit status, never from diagnostic counts.
type BuildOutcome struct {
	Success     bool         `json:"success"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Stdout      string       `json:"stdout"`
	Stderr      string       `json:"stderr"`
	ExitCode    int          `json:"exit_code"`

	// SkippedRecords counts structured-output lines that failed to decode or
	// carried an unrecognized severity. Surfaced for observability; such lines
	// never abort parsing.
	SkippedRecords int `json:"skipped_records,omitempty"`
}

// CountLevel returns the number of top-level diagnostics with the given level.
// Children are deliberately not counted; callers that want them must Walk.
func (o BuildOutcome) CountLevel(level MessageLevel) int {
	n := 0
	for _, d := range o.Diagnostics {
		if d.Level == level {
			n++
		}
	}
	return n
}

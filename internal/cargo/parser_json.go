// internal/cargo/parser_json.go
package cargo

import (
	"strings"

	json "github.com/json-iterator/go"

	"github.com/openztcc/openzt-eval/api/schemas"
)

// Wire structs for cargo's newline-delimited JSON output
// (`--message-format json`). Only the fields we consume are declared; absent
// or partial span fields decode to zero values rather than failing.

type jsonRecord struct {
	Reason  string       `json:"reason"`
	Message *jsonMessage `json:"message"`
}

type jsonMessage struct {
	Level    string        `json:"level"`
	Message  string        `json:"message"`
	Code     *jsonCode     `json:"code"`
	Spans    []jsonSpan    `json:"spans"`
	Children []jsonMessage `json:"children"`
	Rendered string        `json:"rendered"`
}

type jsonCode struct {
	Code string `json:"code"`
}

type jsonSpan struct {
	FileName    string         `json:"file_name"`
	LineStart   int            `json:"line_start"`
	LineEnd     int            `json:"line_end"`
	ColumnStart int            `json:"column_start"`
	ColumnEnd   int            `json:"column_end"`
	Text        []jsonSpanText `json:"text"`
}

type jsonSpanText struct {
	Text string `json:"text"`
}

// ParseJSONOutput decodes cargo's JSON message stream into diagnostics.
//
// Each line is an independent record. Records whose reason is not
// "compiler-message" (build progress, artifact notifications) are ignored.
// Malformed lines and messages with an unrecognized severity are skipped
// without aborting; the skip count is returned alongside the diagnostics so
// callers can surface it. Output order matches input order.
func ParseJSONOutput(output string) ([]schemas.Diagnostic, int) {
	var diags []schemas.Diagnostic
	skipped := 0

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}

		var rec jsonRecord
		if err := json.UnmarshalFromString(line, &rec); err != nil {
			skipped++
			continue
		}
		if rec.Reason != "compiler-message" {
			continue
		}
		if rec.Message == nil {
			skipped++
			continue
		}

		d, ok := decodeMessage(*rec.Message)
		if !ok {
			// Unrecognized severity drops the record, children included.
			skipped++
			continue
		}
		diags = append(diags, d)
	}

	return diags, skipped
}

// decodeMessage converts one message object, recursing into children to build
// the diagnostic tree. A child with an unrecognized severity is dropped; the
// parent survives.
func decodeMessage(m jsonMessage) (schemas.Diagnostic, bool) {
	level, ok := schemas.ParseMessageLevel(m.Level)
	if !ok {
		return schemas.Diagnostic{}, false
	}

	d := schemas.Diagnostic{
		Level:    level,
		Message:  m.Message,
		Rendered: m.Rendered,
	}
	if m.Code != nil {
		d.Code = m.Code.Code
	}

	for _, s := range m.Spans {
		if s.FileName == "" {
			continue
		}
		span := schemas.CodeSpan{
			FileName:    s.FileName,
			LineStart:   s.LineStart,
			LineEnd:     s.LineEnd,
			ColumnStart: s.ColumnStart,
			ColumnEnd:   s.ColumnEnd,
		}
		if len(s.Text) > 0 {
			span.Text = s.Text[0].Text
		}
		d.Spans = append(d.Spans, span)
	}

	for _, c := range m.Children {
		if child, ok := decodeMessage(c); ok {
			d.Children = append(d.Children, child)
		}
	}

	return d, true
}

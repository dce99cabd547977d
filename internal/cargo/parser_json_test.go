package cargo

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openztcc/openzt-eval/api/schemas"
)

const compilerErrorLine = `{"reason":"compiler-message","message":{"level":"error","message":"cannot find value ` + "`undefined_var`" + ` in this scope","code":{"code":"E0425"},"spans":[{"file_name":"src/main.rs","line_start":3,"line_end":3,"column_start":20,"column_end":33,"text":[{"text":"    let x = undefined_var;"}]}],"children":[{"level":"help","message":"a local variable with a similar name exists","code":null,"spans":[],"children":[]}],"rendered":"error[E0425]: cannot find value"}}`

func TestParseJSONOutput(t *testing.T) {
	t.Run("decodes a compiler message with code, span and child", func(t *testing.T) {
		diags, skipped := ParseJSONOutput(compilerErrorLine)
		require.Len(t, diags, 1)
		assert.Zero(t, skipped)

		expected := schemas.Diagnostic{
			Level:   schemas.LevelError,
			Message: "cannot find value `undefined_var` in this scope",
			Code:    "E0425",
			Spans: []schemas.CodeSpan{{
				FileName:    "src/main.rs",
				LineStart:   3,
				LineEnd:     3,
				ColumnStart: 20,
				ColumnEnd:   33,
				Text:        "    let x = undefined_var;",
			}},
			Children: []schemas.Diagnostic{{
				Level:   schemas.LevelHelp,
				Message: "a local variable with a similar name exists",
			}},
			Rendered: "error[E0425]: cannot find value",
		}
		if diff := cmp.Diff(expected, diags[0]); diff != "" {
			t.Errorf("diagnostic mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ignores non compiler-message records without counting them", func(t *testing.T) {
		output := strings.Join([]string{
			`{"reason":"compiler-artifact","target":{"name":"demo"}}`,
			compilerErrorLine,
			`{"reason":"build-finished","success":false}`,
		}, "\n")

		diags, skipped := ParseJSONOutput(output)
		assert.Len(t, diags, 1)
		assert.Zero(t, skipped)
	})

	t.Run("counts malformed lines as skipped and keeps going", func(t *testing.T) {
		output := strings.Join([]string{
			`this is not json at all`,
			`{"reason":"compiler-message"`,
			compilerErrorLine,
		}, "\n")

		diags, skipped := ParseJSONOutput(output)
		assert.Len(t, diags, 1)
		assert.Equal(t, 2, skipped)
	})

	t.Run("drops records with unrecognized severity, children included", func(t *testing.T) {
		output := `{"reason":"compiler-message","message":{"level":"ice","message":"internal compiler error","children":[{"level":"note","message":"this child is lost too"}]}}`

		diags, skipped := ParseJSONOutput(output)
		assert.Empty(t, diags)
		assert.Equal(t, 1, skipped)
	})

	t.Run("drops only the unrecognized child, parent survives", func(t *testing.T) {
		output := `{"reason":"compiler-message","message":{"level":"warning","message":"unused variable","children":[{"level":"mystery","message":"dropped"},{"level":"help","message":"kept"}]}}`

		diags, skipped := ParseJSONOutput(output)
		require.Len(t, diags, 1)
		assert.Zero(t, skipped)
		require.Len(t, diags[0].Children, 1)
		assert.Equal(t, "kept", diags[0].Children[0].Message)
	})

	t.Run("skips spans with an empty file name", func(t *testing.T) {
		output := `{"reason":"compiler-message","message":{"level":"warning","message":"macro expansion","spans":[{"file_name":"","line_start":1,"line_end":1,"column_start":1,"column_end":2},{"file_name":"src/lib.rs","line_start":7,"line_end":7,"column_start":1,"column_end":4}]}}`

		diags, _ := ParseJSONOutput(output)
		require.Len(t, diags, 1)
		require.Len(t, diags[0].Spans, 1)
		assert.Equal(t, "src/lib.rs", diags[0].Spans[0].FileName)
	})

	t.Run("preserves input order", func(t *testing.T) {
		output := strings.Join([]string{
			`{"reason":"compiler-message","message":{"level":"warning","message":"first"}}`,
			`{"reason":"compiler-message","message":{"level":"error","message":"second"}}`,
			`{"reason":"compiler-message","message":{"level":"warning","message":"third"}}`,
		}, "\n")

		diags, _ := ParseJSONOutput(output)
		require.Len(t, diags, 3)
		assert.Equal(t, "first", diags[0].Message)
		assert.Equal(t, "second", diags[1].Message)
		assert.Equal(t, "third", diags[2].Message)
	})

	t.Run("empty input yields no diagnostics", func(t *testing.T) {
		diags, skipped := ParseJSONOutput("")
		assert.Empty(t, diags)
		assert.Zero(t, skipped)

		diags, skipped = ParseJSONOutput("\n\n\n")
		assert.Empty(t, diags)
		assert.Zero(t, skipped)
	})

	t.Run("parsing the same input twice is structurally identical", func(t *testing.T) {
		first, _ := ParseJSONOutput(compilerErrorLine)
		second, _ := ParseJSONOutput(compilerErrorLine)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("parse is not idempotent (-first +second):\n%s", diff)
		}
	})

	t.Run("record without a message object counts as skipped", func(t *testing.T) {
		diags, skipped := ParseJSONOutput(`{"reason":"compiler-message"}`)
		assert.Empty(t, diags)
		assert.Equal(t, 1, skipped)
	})
}

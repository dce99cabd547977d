package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleResponse struct {
	Verdict string  `json:"verdict"`
	Score   float64 `json:"score"`
}

func TestParseJSONResponse(t *testing.T) {
	t.Run("parses bare json", func(t *testing.T) {
		res, err := ParseJSONResponse[sampleResponse](`{"verdict":"pass","score":0.9}`)
		require.NoError(t, err)
		assert.Equal(t, "pass", res.Verdict)
		assert.Equal(t, 0.9, res.Score)
	})

	t.Run("unwraps a markdown code block", func(t *testing.T) {
		response := "```json\n{\"verdict\":\"fail\",\"score\":0.1}\n```"
		res, err := ParseJSONResponse[sampleResponse](response)
		require.NoError(t, err)
		assert.Equal(t, "fail", res.Verdict)
	})

	t.Run("extracts json from conversational text", func(t *testing.T) {
		response := `Sure! Here is the result you asked for: {"verdict":"pass","score":1.0} Hope that helps.`
		res, err := ParseJSONResponse[sampleResponse](response)
		require.NoError(t, err)
		assert.Equal(t, "pass", res.Verdict)
	})

	t.Run("reports unparseable responses", func(t *testing.T) {
		_, err := ParseJSONResponse[sampleResponse]("I cannot answer that.")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal")
	})
}

func TestCleanCodeOutput(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare code passes through",
			input:    "fn main() {}\n",
			expected: "fn main() {}",
		},
		{
			name:     "rust fence is stripped",
			input:    "```rust\nfn main() {\n    println!(\"hi\");\n}\n```",
			expected: "fn main() {\n    println!(\"hi\");\n}",
		},
		{
			name:     "anonymous fence is stripped",
			input:    "```\nlet x = 1;\n```",
			expected: "let x = 1;",
		},
		{
			name:     "empty input stays empty",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanCodeOutput(tc.input))
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 10))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
	assert.Equal(t, "", truncateString("abc", 0))
}

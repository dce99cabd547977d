package schemas

import "time"

// -- Evaluation Schemas --

// PatchCase describes one evaluation request: where to inject candidate code
// and what text it replaces. The JSON field names match the case files
// consumed by the CLI.
type PatchCase struct {
	// Name is a short human-readable identifier for the case.
	Name string `json:"name"`

	RepoURL     string `json:"repo_url"`
	TagOrBranch string `json:"tag_or_branch"`
	FilePath    string `json:"file_path"`

	// ReplacementTarget is the exact substring that must occur in the file;
	// every occurrence is replaced with the candidate text.
	ReplacementTarget string `json:"replacement_target"`

	Description string `json:"description"`

	// Prompt is the instruction handed to a model when the candidate text is
	// generated rather than supplied directly. Optional.
	Prompt string `json:"prompt,omitempty"`
}

// ScoreResult is the output contract of one evaluation: a score in [0, 1], a
// pass/fail verdict, a human-readable reason, and a metadata map carrying the
// raw counts that produced the score. Constructed once and never mutated.
type ScoreResult struct {
	Score    float64        `json:"score"`
	Passed   bool           `json:"passed"`
	Reason   string         `json:"reason"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CaseResult pairs a patch case with its score and timing for reporting.
type CaseResult struct {
	Case       PatchCase     `json:"case"`
	Result     ScoreResult   `json:"result"`
	Duration   time.Duration `json:"duration"`
	EvaluatedAt time.Time    `json:"evaluated_at"`
}

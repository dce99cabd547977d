// internal/llm/candidate.go
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openztcc/openzt-eval/api/schemas"
	"github.com/openztcc/openzt-eval/internal/llmutil"
)

const candidateSystemPrompt = `You are an expert Rust developer.
You will be given a task description and the exact placeholder text it replaces inside an existing Rust source file.
Respond with ONLY the Rust code that should replace the placeholder. No explanations, no markdown fences.
The code must compile cleanly and follow idiomatic Rust conventions.`

// CandidateGenerator turns patch cases into candidate code via an LLM. It
// satisfies evaluator.CandidateFunc through its Generate method.
type CandidateGenerator struct {
	client      schemas.LLMClient
	temperature float64
	maxTokens   int
}

func NewCandidateGenerator(client schemas.LLMClient, temperature float64, maxTokens int) *CandidateGenerator {
	return &CandidateGenerator{
		client:      client,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Generate asks the model for replacement code for the given case and strips
// any markdown fences the model wrapped it in.
func (g *CandidateGenerator) Generate(ctx context.Context, pc schemas.PatchCase) (string, error) {
	prompt := pc.Prompt
	if prompt == "" {
		prompt = pc.Description
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("case %q has neither prompt nor description", pc.Name)
	}

	req := schemas.GenerationRequest{
		SystemPrompt: candidateSystemPrompt,
		UserPrompt: fmt.Sprintf("Task:\n%s\n\nThe code you produce replaces this placeholder in %s:\n%s\n",
			prompt, pc.FilePath, pc.ReplacementTarget),
		Options: schemas.GenerationOptions{
			Temperature: g.temperature,
			MaxTokens:   g.maxTokens,
		},
	}

	response, err := g.client.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("model generation for case %q failed: %w", pc.Name, err)
	}

	candidate := llmutil.CleanCodeOutput(response)
	if candidate == "" {
		return "", fmt.Errorf("model returned an empty candidate for case %q", pc.Name)
	}
	return candidate, nil
}

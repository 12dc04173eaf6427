package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/w-h-a/sales-insight/generator"
)

const analysisPrompt = `You are a sales analyst. Read the sales call transcript below and extract:
1. "requirements": the client's stated needs and constraints, as a list of short strings
2. "recommendations": products or next steps the sales team should propose, as a list of short strings
3. "summary": a short free-text summary of the call

Respond with a single JSON object containing exactly those three keys and nothing else.

Transcript:
%s`

// ErrEmptyTranscript is returned for empty or whitespace-only input. No model
// call is made in that case.
var ErrEmptyTranscript = errors.New("transcript is empty")

// MalformedOutputError reports that the model responded but the completion
// could not be decoded into an Analysis. Raw holds the completion so callers
// can retry or surface it.
type MalformedOutputError struct {
	Raw string
}

func (e *MalformedOutputError) Error() string {
	return "model output could not be parsed as analysis"
}

// Analysis is the structured result extracted from one transcript.
type Analysis struct {
	Requirements    []string       `json:"requirements"`
	Recommendations []string       `json:"recommendations"`
	Summary         string         `json:"summary"`
	Extra           map[string]any `json:"extra,omitempty"`
}

type Analyzer struct {
	generator generator.Generator
}

// Analyze extracts requirements, recommendations, and a summary from raw
// transcript text with a single generator call.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Analysis, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return Analysis{}, ErrEmptyTranscript
	}

	completion, err := a.generator.Generate(ctx, fmt.Sprintf(analysisPrompt, text))
	if err != nil {
		return Analysis{}, fmt.Errorf("analysis generation: %w", err)
	}

	analysis, err := decodeAnalysis(completion)
	if err != nil {
		return Analysis{}, err
	}

	return analysis, nil
}

func decodeAnalysis(completion string) (Analysis, error) {
	payload := stripFences(completion)

	// Models sometimes wrap the object in prose. Decode from the outermost
	// braces only.
	start := strings.Index(payload, "{")
	end := strings.LastIndex(payload, "}")
	if start == -1 || end <= start {
		return Analysis{}, &MalformedOutputError{Raw: completion}
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(payload[start:end+1]), &analysis); err != nil {
		return Analysis{}, &MalformedOutputError{Raw: completion}
	}

	if analysis.Requirements == nil {
		analysis.Requirements = []string{}
	}
	if analysis.Recommendations == nil {
		analysis.Recommendations = []string{}
	}

	return analysis, nil
}

func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}

func NewAnalyzer(generator generator.Generator) *Analyzer {
	if generator == nil {
		panic("generator is required")
	}

	return &Analyzer{
		generator: generator,
	}
}

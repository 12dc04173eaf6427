package saleshelper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/w-h-a/sales-insight/analyzer"
	"github.com/w-h-a/sales-insight/generator"
	"github.com/w-h-a/sales-insight/vectorstore"
)

const recommendationPrompt = `You are assisting a salesperson. Based on the client needs and the similar past sales calls below, propose concrete product recommendations and next steps, most relevant first.

Client needs:
%s
%s
Respond with a short, actionable recommendation list.`

// Result is the outcome of one sales-helper request. SearchDisabled is set
// when the vector store could not contribute matches and the
// recommendations were generated from the input alone.
type Result struct {
	Requirements    []string                `json:"requirements"`
	Matches         []vectorstore.SearchHit `json:"matches"`
	Recommendations string                  `json:"recommendations"`
	SearchDisabled  bool                    `json:"search_disabled,omitempty"`
}

// Agent turns a salesperson's free-form description of client needs into
// structured requirements, similar past calls, and generated
// recommendations.
type Agent struct {
	options   Options
	analyzer  *analyzer.Analyzer
	store     vectorstore.Capability
	generator generator.Generator
}

func (a *Agent) Process(ctx context.Context, input string) (Result, error) {
	if len(strings.TrimSpace(input)) == 0 {
		return Result{}, errors.New("salesperson input is required")
	}

	result := Result{
		Requirements: []string{},
		Matches:      []vectorstore.SearchHit{},
	}

	// Structured requirements sharpen the search query; a failed extraction
	// just falls back to the raw input.
	query := input
	if analysis, err := a.analyzer.Analyze(ctx, input); err == nil {
		result.Requirements = analysis.Requirements
		if len(analysis.Requirements) > 0 {
			query = strings.Join(analysis.Requirements, "; ")
		}
	} else {
		slog.WarnContext(ctx, "requirement extraction failed, searching with raw input", "error", err)
	}

	relevant := a.search(ctx, query, &result)

	prompt := fmt.Sprintf(recommendationPrompt, input, formatMatches(relevant))

	recommendations, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("recommendation generation: %w", err)
	}

	result.Recommendations = recommendations

	return result, nil
}

// search fills result.Matches and returns only the matches close enough to
// feed into recommendation synthesis.
func (a *Agent) search(ctx context.Context, query string, result *Result) []vectorstore.SearchHit {
	store := a.store.Store()
	if store == nil {
		result.SearchDisabled = true
		return nil
	}

	hits, err := store.Search(ctx, query, a.options.TopK)
	if err != nil {
		slog.WarnContext(ctx, "sales helper search degraded", "error", err)
		result.SearchDisabled = true
		return nil
	}

	result.Matches = hits

	relevant := make([]vectorstore.SearchHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Distance <= a.options.MaxDistance {
			relevant = append(relevant, hit)
		}
	}

	return relevant
}

func formatMatches(hits []vectorstore.SearchHit) string {
	if len(hits) == 0 {
		return "\nNo similar past calls were found; recommend from the client needs alone.\n"
	}

	var sb bytes.Buffer
	sb.WriteString("\nSimilar past sales calls:\n")
	for i, hit := range hits {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, hit.Record.Analysis.Summary))
		if len(hit.Record.Analysis.Recommendations) > 0 {
			sb.WriteString(fmt.Sprintf("   Previously recommended: %s\n", strings.Join(hit.Record.Analysis.Recommendations, "; ")))
		}
	}

	return sb.String()
}

func NewAgent(
	analyzer *analyzer.Analyzer,
	store vectorstore.Capability,
	generator generator.Generator,
	opts ...Option,
) *Agent {
	if analyzer == nil {
		panic("analyzer is required")
	}

	if generator == nil {
		panic("generator is required")
	}

	return &Agent{
		options:   NewOptions(opts...),
		analyzer:  analyzer,
		store:     store,
		generator: generator,
	}
}

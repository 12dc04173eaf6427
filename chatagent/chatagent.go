package chatagent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/w-h-a/sales-insight/generator"
	"github.com/w-h-a/sales-insight/vectorstore"
)

const defaultSystemPrompt = "You are an assistant for a sales team. Answer questions using the stored sales call data provided below. If the stored data does not cover the question, say so instead of guessing."

// Reply is one answered chat turn. UsedContext lists the ids of the stored
// transcripts that grounded the answer.
type Reply struct {
	Answer      string   `json:"answer"`
	UsedContext []string `json:"used_context,omitempty"`
}

// Agent answers questions grounded in stored transcripts while keeping one
// conversation history per session id. Turns within a session are strictly
// serialized; distinct sessions proceed in parallel.
type Agent struct {
	options   Options
	sessions  Sessions
	store     vectorstore.Capability
	generator generator.Generator
	locks     map[string]*sync.Mutex
	mtx       sync.Mutex
}

func (a *Agent) Chat(ctx context.Context, sessionId string, message string) (Reply, error) {
	if len(strings.TrimSpace(sessionId)) == 0 {
		return Reply{}, errors.New("session id is required")
	}

	if len(strings.TrimSpace(message)) == 0 {
		return Reply{}, errors.New("message is required")
	}

	lock := a.sessionLock(sessionId)
	lock.Lock()
	defer lock.Unlock()

	history, err := a.sessions.History(ctx, sessionId)
	if err != nil {
		return Reply{}, fmt.Errorf("load session history: %w", err)
	}

	hits := a.ground(ctx, message)

	prompt := a.buildPrompt(history, hits, message)

	answer, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		// Nothing was committed for this turn.
		return Reply{}, fmt.Errorf("chat generation: %w", err)
	}

	if err := a.sessions.Append(
		ctx,
		sessionId,
		Turn{Role: RoleUser, Content: message},
		Turn{Role: RoleAssistant, Content: answer},
	); err != nil {
		return Reply{}, fmt.Errorf("append session turns: %w", err)
	}

	used := make([]string, 0, len(hits))
	for _, hit := range hits {
		used = append(used, hit.Record.Id)
	}

	return Reply{Answer: answer, UsedContext: used}, nil
}

// History returns the session's stored turns in order. An unknown session
// yields an empty history.
func (a *Agent) History(ctx context.Context, sessionId string) ([]Turn, error) {
	if len(strings.TrimSpace(sessionId)) == 0 {
		return nil, errors.New("session id is required")
	}

	lock := a.sessionLock(sessionId)
	lock.Lock()
	defer lock.Unlock()

	return a.sessions.History(ctx, sessionId)
}

// Clear drops all turns for the session. Clearing an empty or unknown
// session succeeds.
func (a *Agent) Clear(ctx context.Context, sessionId string) error {
	if len(strings.TrimSpace(sessionId)) == 0 {
		return errors.New("session id is required")
	}

	lock := a.sessionLock(sessionId)
	lock.Lock()
	defer lock.Unlock()

	return a.sessions.Clear(ctx, sessionId)
}

func (a *Agent) ground(ctx context.Context, message string) []vectorstore.SearchHit {
	store := a.store.Store()
	if store == nil {
		return nil
	}

	hits, err := store.Search(ctx, message, a.options.TopK)
	if err != nil {
		// Grounding is best-effort; the turn proceeds without it.
		slog.WarnContext(ctx, "chat grounding search failed", "error", err)
		return nil
	}

	return hits
}

func (a *Agent) buildPrompt(history []Turn, hits []vectorstore.SearchHit, message string) string {
	var sb bytes.Buffer
	sb.WriteString(a.options.SystemPrompt)

	if len(hits) > 0 {
		sb.WriteString("\n\nRelevant stored sales calls:\n")
		for i, hit := range hits {
			sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, hit.Record.Id, hit.Record.Analysis.Summary))
			if len(hit.Record.Analysis.Requirements) > 0 {
				sb.WriteString(fmt.Sprintf("   Requirements: %s\n", strings.Join(hit.Record.Analysis.Requirements, "; ")))
			}
		}
	}

	if len(history) > a.options.Window {
		history = history[len(history)-a.options.Window:]
	}

	if len(history) > 0 {
		sb.WriteString("\nConversation History:\n")
		for _, turn := range history {
			sb.WriteString(fmt.Sprintf("[%s]: %s\n", turn.Role, turn.Content))
		}
	}

	sb.WriteString("\nCurrent user message:\n")
	sb.WriteString(strings.TrimSpace(message))
	sb.WriteString("\n\nCompose the best possible assistant reply.\n")

	return sb.String()
}

func (a *Agent) sessionLock(sessionId string) *sync.Mutex {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	lock, ok := a.locks[sessionId]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[sessionId] = lock
	}

	return lock
}

func NewAgent(
	sessions Sessions,
	store vectorstore.Capability,
	generator generator.Generator,
	opts ...Option,
) *Agent {
	if sessions == nil {
		panic("sessions store is required")
	}

	if generator == nil {
		panic("generator is required")
	}

	options := NewOptions(opts...)

	if len(strings.TrimSpace(options.SystemPrompt)) == 0 {
		options.SystemPrompt = defaultSystemPrompt
	}

	return &Agent{
		options:   options,
		sessions:  sessions,
		store:     store,
		generator: generator,
		locks:     map[string]*sync.Mutex{},
	}
}

// Package agent runs the Academate assistant: an LLM reached over an
// OpenAI-compatible API that answers questions by calling the college
// lookup tools.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/academate/internal/session"
	"github.com/kalambet/academate/internal/tools"
)

// Instruction is the assistant persona sent as the system message.
const Instruction = `You are Academate, a plain-spoken college assistant.

Focus on these jobs:
1. Share exam schedules and key dates.
2. Send class timetables when asked.
3. Fetch previous exam papers when possible.
4. Describe faculty, departments, or campus services.
5. List academic calendar events and deadlines.
6. Answer other college questions when you have the data.

Guidelines:
- Keep responses short, clear, and friendly.
- Double-check facts before replying.
- Say if data is missing instead of guessing.
- Ask follow-up questions when the request is unclear.
- Keep student info private.
- When someone greets you, say you are Academate and mention the topics you cover.
- Tools match names case-insensitively, but prefer standard capitalization.`

// EmptyAnswer replaces a blank model reply.
const EmptyAnswer = "I'm sorry, I couldn't generate a response. Please try again."

// Completer is the model side of the conversation.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ToolCaller lists and executes tools.
type ToolCaller interface {
	Tools() []mcp.Tool
	Call(ctx context.Context, name string, args tools.Args) (string, error)
}

// Config tunes a Runner.
type Config struct {
	Model         string
	Temperature   float64
	MaxToolRounds int
	HistoryWindow int
}

// DefaultConfig returns the stock model settings.
func DefaultConfig() Config {
	return Config{
		Model:         DefaultModel,
		Temperature:   DefaultTemperature,
		MaxToolRounds: 5,
		HistoryWindow: 10,
	}
}

// Runner answers questions for a session, recording both sides of the
// exchange in the session store.
type Runner struct {
	llm    Completer
	tools  ToolCaller
	store  session.Store
	cfg    Config
	logger *slog.Logger
}

// NewRunner wires a model, its tools and a transcript store.
func NewRunner(llm Completer, tc ToolCaller, store session.Store, cfg Config) *Runner {
	return &Runner{llm: llm, tools: tc, store: store, cfg: cfg, logger: slog.Default()}
}

// Ask sends question in the context of sessionID and returns the answer.
func (r *Runner) Ask(ctx context.Context, sessionID, question string) (string, error) {
	start := time.Now()

	history, err := r.store.History(ctx, sessionID, r.cfg.HistoryWindow)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: Instruction})
	for _, e := range history {
		msgs = append(msgs, Message{Role: e.Role, Content: e.Content})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: question})

	answer, err := r.converse(ctx, sessionID, msgs)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		answer = EmptyAnswer
	}

	// Question and answer are recorded together after the model answers.
	if err := r.store.Append(ctx, sessionID, session.RoleUser, question); err != nil {
		return "", fmt.Errorf("recording question: %w", err)
	}
	if err := r.store.Append(ctx, sessionID, session.RoleAssistant, answer); err != nil {
		return "", fmt.Errorf("recording answer: %w", err)
	}
	r.logger.Info("question answered", "session", sessionID, "duration_ms", time.Since(start).Milliseconds())
	return answer, nil
}

// converse runs the completion loop, executing tool calls until the model
// produces text. Once MaxToolRounds is spent the tools are withheld so the
// model must answer.
func (r *Runner) converse(ctx context.Context, sessionID string, msgs []Message) (string, error) {
	defs := ToolDefs(r.tools.Tools())

	for round := 0; ; round++ {
		req := ChatRequest{
			Model:       r.cfg.Model,
			Messages:    msgs,
			Temperature: r.cfg.Temperature,
		}
		if round < r.cfg.MaxToolRounds {
			req.Tools = defs
		}

		resp, err := r.llm.Complete(ctx, req)
		if err != nil {
			return "", fmt.Errorf("calling model: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("model returned no choices")
		}

		reply := resp.Choices[0].Message
		if len(reply.ToolCalls) == 0 || req.Tools == nil {
			return reply.Content, nil
		}

		msgs = append(msgs, Message{Role: RoleAssistant, Content: reply.Content, ToolCalls: reply.ToolCalls})
		for _, call := range reply.ToolCalls {
			msgs = append(msgs, Message{
				Role:       RoleTool,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    r.runTool(ctx, sessionID, call),
			})
		}
	}
}

func (r *Runner) runTool(ctx context.Context, sessionID string, call ToolCall) string {
	args := tools.Args{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return "error: arguments are not a JSON object: " + err.Error()
		}
	}

	out, err := r.tools.Call(ctx, call.Function.Name, args)
	if err != nil {
		r.logger.Warn("tool error returned to model", "session", sessionID, "tool", call.Function.Name, "error", err)
		return "error: " + err.Error()
	}
	return out
}

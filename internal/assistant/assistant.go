// Package assistant answers chat messages with a language model that can
// read and change the user's tasks through function calls.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dohr-michael/dayplan/internal/calendar"
	"github.com/dohr-michael/dayplan/internal/events"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

const (
	DefaultHistorySize   = 10
	DefaultMaxToolRounds = 5
)

// Assistant keeps a short per-user conversation and runs the model's
// tool calls against the task store.
type Assistant struct {
	model       Model
	store       tasks.Store
	tools       *Toolset
	bus         *events.Bus
	log         *slog.Logger
	now         func() time.Time
	historySize int
	maxRounds   int

	mu      sync.Mutex
	history map[string][]Message
}

// Option configures an Assistant.
type Option func(*Assistant)

func WithLogger(l *slog.Logger) Option     { return func(a *Assistant) { a.log = l } }
func WithBus(b *events.Bus) Option         { return func(a *Assistant) { a.bus = b } }
func WithClock(now func() time.Time) Option { return func(a *Assistant) { a.now = now } }

// WithHistorySize caps the number of messages kept per user.
func WithHistorySize(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.historySize = n
		}
	}
}

// WithMaxToolRounds bounds the model/tool round trips of one reply.
func WithMaxToolRounds(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// New creates an assistant over store.
func New(model Model, store tasks.Store, opts ...Option) *Assistant {
	a := &Assistant{
		model:       model,
		store:       store,
		log:         slog.Default(),
		now:         time.Now,
		historySize: DefaultHistorySize,
		maxRounds:   DefaultMaxToolRounds,
		history:     make(map[string][]Message),
	}
	for _, o := range opts {
		o(a)
	}
	a.tools = NewToolset(store, a.now)
	return a
}

// Tools exposes the tool set bound to the assistant's store.
func (a *Assistant) Tools() *Toolset { return a.tools }

// Reply answers message for owner. Only the user message and the final
// model text are kept in the history; tool turns are not.
func (a *Assistant) Reply(ctx context.Context, owner, message string) (string, error) {
	start := time.Now()
	list, err := a.store.List(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}

	// Concurrent replies for one owner would interleave history.
	a.mu.Lock()
	defer a.mu.Unlock()

	conv := append(a.conversation(owner), Message{Role: RoleUser, Text: message})
	conv = lastN(conv, a.historySize)
	a.history[owner] = conv

	req := Request{
		System:   SystemPrompt(calendar.Today(a.now()), list),
		Messages: append([]Message(nil), conv...),
		Tools:    a.tools.Specs(),
	}

	var (
		resp  Response
		calls []string
	)
	for round := 0; ; round++ {
		resp, err = a.model.Generate(ctx, req)
		if err != nil {
			a.publish(owner, events.ChatMessagePayload{Role: string(RoleModel), Error: err.Error(), Duration: time.Since(start)})
			return "", fmt.Errorf("generate reply: %w", err)
		}
		if len(resp.Calls) == 0 {
			break
		}
		if round+1 >= a.maxRounds {
			a.log.Warn("assistant tool round limit reached", "owner", owner, "rounds", a.maxRounds)
			break
		}

		results := make([]ToolResult, 0, len(resp.Calls))
		for _, c := range resp.Calls {
			calls = append(calls, c.Name)
			out, err := a.tools.Call(ctx, owner, c.Name, c.Args)
			if err != nil {
				a.log.Error("assistant tool failed", "tool", c.Name, "error", err)
				out = fmt.Sprintf(`{"ok":false,"error":%q}`, err.Error())
			}
			a.log.Debug("assistant tool call", "tool", c.Name, "args", c.Args)
			results = append(results, ToolResult{ID: c.ID, Name: c.Name, Result: out})
		}
		req.Messages = append(req.Messages,
			Message{Role: RoleModel, Text: resp.Text, Calls: resp.Calls},
			Message{Role: RoleUser, Results: results},
		)
	}

	reply := strings.TrimSpace(resp.Text)
	a.history[owner] = lastN(append(a.history[owner], Message{Role: RoleModel, Text: reply}), a.historySize)
	a.publish(owner, events.ChatMessagePayload{Role: string(RoleModel), Content: reply, ToolCalls: calls, Duration: time.Since(start)})
	return reply, nil
}

// History returns a copy of owner's conversation.
func (a *Assistant) History(owner string) []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Message(nil), a.history[owner]...)
}

// Reset forgets owner's conversation.
func (a *Assistant) Reset(owner string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.history, owner)
}

func (a *Assistant) conversation(owner string) []Message {
	return append([]Message(nil), a.history[owner]...)
}

func (a *Assistant) publish(owner string, p events.ChatMessagePayload) {
	if a.bus == nil {
		return
	}
	a.bus.Publish(events.NewOwnedEvent(events.SourceAssistant, p, owner))
}

func lastN(msgs []Message, n int) []Message {
	if len(msgs) <= n {
		return msgs
	}
	return append([]Message(nil), msgs[len(msgs)-n:]...)
}

// SystemPrompt instructs the model and lists the user's tasks.
func SystemPrompt(today calendar.Date, list []tasks.Task) string {
	var sb strings.Builder
	sb.WriteString("You are a personal task assistant. ")
	sb.WriteString("Your job is to help the user add, edit, move, delete and mark tasks done. ")
	sb.WriteString("Be short, friendly and efficient.\n\n")
	fmt.Fprintf(&sb, "Today's date is %s (%s).\n", today, today.Weekday())
	sb.WriteString("The user's current tasks are:\n")
	if len(list) == 0 {
		sb.WriteString("No tasks currently.\n")
	}
	for _, t := range list {
		fmt.Fprintf(&sb, "[%s] %s | %s | %s | %s %s | Priority: %s | Done: %t\n",
			t.ID, t.Title, t.Description, t.Category, t.Date, t.Time, t.Priority, bool(t.Done))
	}
	sb.WriteString("\n### Guidelines:\n")
	sb.WriteString("- Never ask the user for a task id. Identify tasks by title and date, then use the id from the list above.\n")
	sb.WriteString("- When showing tasks, list: `<number>. Title (Date)` with ✅ if done, ⏳ if pending.\n")
	sb.WriteString("- Confirm actions clearly after completing them.\n")
	sb.WriteString("- If a task is unclear (e.g. missing date), politely ask for clarification.\n")
	sb.WriteString("- Keep replies short and conversational.\n")
	return sb.String()
}

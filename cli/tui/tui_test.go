package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/caravel-hq/caravel/config"
	"github.com/caravel-hq/caravel/llm"
)

// scriptedProvider streams a fixed chunk sequence, or fails every call
// with err.
type scriptedProvider struct {
	chunks []string
	err    error
}

func (p *scriptedProvider) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{
		Message: llm.AssistantMessage(strings.Join(p.chunks, "")),
		Usage:   llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (p *scriptedProvider) Stream(_ context.Context, _ llm.Request) (llm.Stream, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &scriptedStream{chunks: p.chunks}, nil
}

type scriptedStream struct {
	chunks []string
	pos    int
	sent   bool
}

func (s *scriptedStream) Recv() (llm.StreamChunk, error) {
	if s.pos < len(s.chunks) {
		chunk := llm.StreamChunk{Delta: s.chunks[s.pos]}
		s.pos++
		return chunk, nil
	}
	if !s.sent {
		s.sent = true
		return llm.StreamChunk{
			Usage: &llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}
	return llm.StreamChunk{}, io.EOF
}

func (s *scriptedStream) Close() error { return nil }

func newTestModel(t *testing.T, provider llm.Provider) *Model {
	t.Helper()
	client := llm.New(config.Default(),
		llm.WithProvider(provider),
		llm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	m := New(client, "default")
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

// runTurn drives one full completion turn through the update loop.
func runTurn(t *testing.T, m *Model, prompt string) {
	t.Helper()
	if cmd := m.startTurn(prompt); cmd == nil {
		t.Fatal("expected a command from startTurn")
	}

	deadline := time.After(5 * time.Second)
	for m.waiting {
		select {
		case <-deadline:
			t.Fatal("turn did not complete in time")
		case msg := <-m.stream:
			m.Update(msg)
		}
	}
}

func TestChatTurn_StreamsResponse(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{"Hello", ", ", "world!"}}
	m := newTestModel(t, provider)

	runTurn(t, m, "greet me")

	if len(m.history) != 2 {
		t.Fatalf("history length: got %d, want 2", len(m.history))
	}
	if m.history[0].Role != llm.RoleUser || m.history[0].Content != "greet me" {
		t.Errorf("user entry: got %+v", m.history[0])
	}
	if m.history[1].Role != llm.RoleAssistant || m.history[1].Content != "Hello, world!" {
		t.Errorf("assistant entry: got %+v", m.history[1])
	}
	if m.lastErr != nil {
		t.Errorf("unexpected error: %v", m.lastErr)
	}
}

func TestChatTurn_TracksCost(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{"hi"}}
	m := newTestModel(t, provider)

	runTurn(t, m, "hello")

	if total := m.client.Ledger().Accumulated(); total <= 0 {
		t.Errorf("expected positive accumulated cost, got %v", total)
	}
}

func TestChatTurn_ErrorKeepsHistory(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("model not found")}
	m := newTestModel(t, provider)

	runTurn(t, m, "hello")

	if m.lastErr == nil {
		t.Fatal("expected an error from the failed turn")
	}
	if len(m.history) != 1 {
		t.Fatalf("history length: got %d, want 1 (user message only)", len(m.history))
	}
	if !strings.Contains(m.View(), "error:") {
		t.Error("expected the error in the rendered view")
	}
}

func TestView_RendersConversation(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{"The answer is 42."}}
	m := newTestModel(t, provider)

	runTurn(t, m, "what is the answer")

	view := m.View()
	if !strings.Contains(view, "what is the answer") {
		t.Error("expected the user prompt in the view")
	}
	if !strings.Contains(view, "The answer is 42.") {
		t.Error("expected the response in the view")
	}
}

func TestHandleKey_EmptySubmitIgnored(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{"x"}}
	m := newTestModel(t, provider)

	m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})

	if m.waiting {
		t.Error("empty submit should not start a turn")
	}
	if len(m.history) != 0 {
		t.Errorf("history should stay empty, got %d entries", len(m.history))
	}
}

func TestHandleKey_QuitKeys(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{"x"}}
	m := newTestModel(t, provider)

	_, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command for ctrl+c")
	}
}

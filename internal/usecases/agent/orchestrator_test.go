package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/usecases/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLLM struct {
	mu       sync.Mutex
	requests []domain.CompletionRequest
	reply    func(n int, req domain.CompletionRequest) (*domain.CompletionResponse, error)
}

func (f *fakeLLM) Complete(_ context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	f.mu.Unlock()
	return f.reply(n, req)
}

func (f *fakeLLM) Provider() string { return "fake" }

func (f *fakeLLM) calls() []domain.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CompletionRequest(nil), f.requests...)
}

func text(s string) *domain.CompletionResponse {
	return &domain.CompletionResponse{Content: s, Model: "fake-1", Usage: domain.Usage{InputTokens: 10, OutputTokens: 5}}
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile
}

func (f *fakeProfiles) GetOrCreate(_ context.Context, userID string) (*domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profiles == nil {
		f.profiles = map[string]*domain.UserProfile{}
	}
	p, ok := f.profiles[userID]
	if !ok {
		p = domain.NewUserProfile(userID, time.Now())
		f.profiles[userID] = p
	}
	return p.Clone(), nil
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return f.GetOrCreate(ctx, userID)
}

type scheduled struct {
	userID string
	window []domain.Message
	delay  time.Duration
}

type fakeMemory struct {
	mu        sync.Mutex
	results   []domain.MemorySearchResult
	searches  int
	scheduled []scheduled
	flushed   int
	summaries int
	summary   []domain.Message
}

func (f *fakeMemory) Store(_ context.Context, userID, content string, t domain.MemoryType, _ domain.Metadata) (*domain.Memory, error) {
	return &domain.Memory{UserID: userID, Content: content, Type: t}, nil
}

func (f *fakeMemory) Search(_ context.Context, _, _ string, _ int) ([]domain.MemorySearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	return append([]domain.MemorySearchResult(nil), f.results...), nil
}

func (f *fakeMemory) ScheduleExtraction(userID, _ string, window []domain.Message, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, scheduled{userID: userID, window: window, delay: delay})
}

func (f *fakeMemory) FlushExtraction(context.Context, string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed++
	return true
}

func (f *fakeMemory) Consolidate(context.Context, string) (int, error) { return 0, nil }

func (f *fakeMemory) Stats(context.Context, string) (*domain.MemoryStats, error) {
	return &domain.MemoryStats{}, nil
}

func (f *fakeMemory) StoreConversationSummary(_ context.Context, _, _ string, messages []domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries++
	f.summary = messages
	return nil
}

type fakeUsage struct {
	mu      sync.Mutex
	limited bool
	records []domain.Usage
}

func (f *fakeUsage) Record(_ context.Context, userID, provider, model string, u domain.Usage) (*domain.UsageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, u)
	return &domain.UsageRecord{UserID: userID, Provider: provider, Model: model}, nil
}

func (f *fakeUsage) CheckLimit(context.Context, string) error {
	if f.limited {
		return domain.ErrDailyLimit
	}
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Send(_ context.Context, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	orch    *Orchestrator
	llm     *fakeLLM
	memory  *fakeMemory
	usage   *fakeUsage
	echoes  *atomic.Int32
	profile *fakeProfiles
}

func newFixture(t *testing.T, cfg *Config, reply func(n int, req domain.CompletionRequest) (*domain.CompletionResponse, error)) *fixture {
	t.Helper()
	log := discardLogger()
	echoes := &atomic.Int32{}
	registry := tools.NewRegistry(time.Second, log)
	require.NoError(t, registry.Register(&tools.Tool{
		Name:        "echo",
		Description: "Echoes its input",
		Action:      "echoing",
		Params:      []tools.Param{{Name: "text", Type: tools.TypeString, Description: "Text", Required: true}},
		Handler: func(_ context.Context, _ *tools.TurnContext, args tools.Args) (string, error) {
			echoes.Add(1)
			return "echo: " + args.String("text"), nil
		},
	}))

	f := &fixture{
		llm:     &fakeLLM{reply: reply},
		memory:  &fakeMemory{},
		usage:   &fakeUsage{},
		echoes:  echoes,
		profile: &fakeProfiles{},
	}
	f.orch = New(f.llm, registry, f.profile, f.memory, f.usage, cfg, log)
	f.orch.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func echoCall(n int) *domain.CompletionResponse {
	return &domain.CompletionResponse{
		Model: "fake-1",
		ToolCalls: []domain.ToolCall{{
			ID:        "call_" + string(rune('0'+n)),
			Name:      "echo",
			Arguments: map[string]any{"text": "hi"},
		}},
		Usage: domain.Usage{InputTokens: 1, OutputTokens: 1},
	}
}

func TestHandleMessage_DirectAnswer(t *testing.T) {
	f := newFixture(t, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return text("The Moon is waxing today."), nil
	})
	sess := NewSession("user_1")
	sink := &recorder{}

	answer, err := f.orch.HandleMessage(context.Background(), sess, "What's the moon doing?", sink)
	require.NoError(t, err)
	assert.Equal(t, "The Moon is waxing today.", answer)

	assert.Equal(t, []domain.EventType{
		domain.EventTyping,
		domain.EventStreamStart,
		domain.EventStreamChunk, domain.EventStreamChunk, domain.EventStreamChunk, domain.EventStreamChunk,
		domain.EventStreamChunk,
		domain.EventStreamEnd,
		domain.EventResponse,
	}, sink.types())

	calls := f.llm.calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Tools, 1)
	assert.Contains(t, calls[0].System, "Archon")

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, 1, sess.Turns())

	require.Len(t, f.memory.scheduled, 1)
	assert.Equal(t, "user_1", f.memory.scheduled[0].userID)
	assert.Len(t, f.memory.scheduled[0].window, 2)
	require.Len(t, f.usage.records, 1)
	assert.Equal(t, domain.Usage{InputTokens: 10, OutputTokens: 5}, f.usage.records[0])
}

func TestHandleMessage_ToolLoopIsBounded(t *testing.T) {
	f := newFixture(t, nil, func(n int, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
		if req.Tools == nil {
			return text("Here is what I found."), nil
		}
		return echoCall(n), nil
	})
	sink := &recorder{}

	answer, err := f.orch.HandleMessage(context.Background(), NewSession("user_1"), "Use tools forever", sink)
	require.NoError(t, err)
	assert.Equal(t, "Here is what I found.", answer)

	calls := f.llm.calls()
	require.Len(t, calls, 4)
	for _, c := range calls[:3] {
		assert.NotEmpty(t, c.Tools)
	}
	assert.Nil(t, calls[3].Tools)
	assert.EqualValues(t, 3, f.echoes.Load())

	last := calls[3].Messages
	require.Len(t, last, 7)
	assert.Equal(t, domain.RoleTool, last[2].Role)
	assert.Equal(t, "call_1", last[2].ToolCallID)
	assert.Equal(t, "echo: hi", last[2].Content)

	var started, completed int
	for _, e := range sink.events {
		if e.Type == domain.EventToolCall {
			assert.Equal(t, "echo", e.Tool)
			switch e.Status {
			case domain.ToolStatusStarted:
				started++
			case domain.ToolStatusCompleted:
				completed++
			}
		}
	}
	assert.Equal(t, 3, started)
	assert.Equal(t, 3, completed)
	assert.Equal(t, domain.Usage{InputTokens: 13, OutputTokens: 8}, f.usage.records[0])
}

func TestHandleMessage_CustomRoundLimit(t *testing.T) {
	f := newFixture(t, &Config{MaxToolRounds: 1}, func(n int, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
		if req.Tools == nil {
			return text("done"), nil
		}
		return echoCall(n), nil
	})

	_, err := f.orch.HandleMessage(context.Background(), NewSession("user_1"), "hi", nil)
	require.NoError(t, err)
	assert.Len(t, f.llm.calls(), 2)
	assert.EqualValues(t, 1, f.echoes.Load())
}

func TestHandleMessage_FallsBackToPartialText(t *testing.T) {
	f := newFixture(t, nil, func(n int, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
		if req.Tools == nil {
			return nil, errors.New("provider unavailable")
		}
		resp := echoCall(n)
		resp.Content = "Let me check your transits."
		return resp, nil
	})

	answer, err := f.orch.HandleMessage(context.Background(), NewSession("user_1"), "transits?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Let me check your transits.", answer)
}

func TestHandleMessage_ApologyWhenNothingUsable(t *testing.T) {
	f := newFixture(t, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return nil, errors.New("provider unavailable")
	})
	sink := &recorder{}

	answer, err := f.orch.HandleMessage(context.Background(), NewSession("user_1"), "hello", sink)
	require.NoError(t, err)
	assert.Equal(t, apology, answer)
	assert.Len(t, f.llm.calls(), 2)
	assert.Empty(t, f.usage.records)
	assert.Equal(t, domain.EventResponse, sink.types()[len(sink.events)-1])
}

func TestHandleMessage_DailyLimit(t *testing.T) {
	f := newFixture(t, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return text("unused"), nil
	})
	f.usage.limited = true
	sess := NewSession("user_1")

	answer, err := f.orch.HandleMessage(context.Background(), sess, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, limitMessage, answer)
	assert.Empty(t, f.llm.calls())
	assert.Empty(t, sess.History())
	assert.Empty(t, f.memory.scheduled)
}

func TestHandleMessage_BlankInputIsIgnored(t *testing.T) {
	f := newFixture(t, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return text("unused"), nil
	})
	answer, err := f.orch.HandleMessage(context.Background(), NewSession("user_1"), "   ", nil)
	require.NoError(t, err)
	assert.Empty(t, answer)
	assert.Empty(t, f.llm.calls())
}

func TestHandleMessage_HistoryIsTrimmed(t *testing.T) {
	f := newFixture(t, &Config{HistoryLimit: 4}, func(n int, _ domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return text("answer"), nil
	})
	sess := NewSession("user_1")
	for _, msg := range []string{"one", "two", "three"} {
		_, err := f.orch.HandleMessage(context.Background(), sess, msg, nil)
		require.NoError(t, err)
	}

	history := sess.History()
	require.Len(t, history, 4)
	assert.Equal(t, "two", history[0].Content)
	assert.Equal(t, "three", history[2].Content)
	assert.Equal(t, 3, sess.Turns())
	assert.Equal(t, 6, sess.MessageCount())

	calls := f.llm.calls()
	assert.Len(t, calls[2].Messages, 5)
}

func TestHandleMessage_ExtractionSeesWholeConversation(t *testing.T) {
	f := newFixture(t, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return text("noted"), nil
	})
	sess := NewSession("user_1")
	inputs := []string{"I work as a nurse in Denver", "m2", "m3", "m4", "m5", "m6", "m7"}
	for _, msg := range inputs {
		_, err := f.orch.HandleMessage(context.Background(), sess, msg, nil)
		require.NoError(t, err)
	}

	require.Len(t, sess.History(), 10)
	require.Len(t, f.memory.scheduled, 7)
	last := f.memory.scheduled[6].window
	require.Len(t, last, 14)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "I work as a nurse in Denver"}, last[0])
	assert.Equal(t, "m7", last[12].Content)

	f.orch.EndSession(context.Background(), sess, true)
	require.Len(t, f.memory.scheduled, 8)
	assert.Len(t, f.memory.scheduled[7].window, 14)
	require.Len(t, f.memory.summary, 14)
	assert.Equal(t, "I work as a nurse in Denver", f.memory.summary[0].Content)

	sess.Clear()
	assert.Empty(t, sess.Transcript())
	assert.Zero(t, sess.MessageCount())
}

func TestHandleMessage_RecallFiltersByRelevance(t *testing.T) {
	f := newFixture(t, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return text("ok"), nil
	})
	f.memory.results = []domain.MemorySearchResult{
		{Memory: domain.Memory{Type: domain.MemorySemantic, Content: "Works as a nurse"}, Relevance: 0.9},
		{Memory: domain.Memory{Type: domain.MemoryEpisodic, Content: "Asked about Mars"}, Relevance: 0.2},
	}
	sess := NewSession("user_1")

	_, err := f.orch.HandleMessage(context.Background(), sess, "hello", nil)
	require.NoError(t, err)
	system := f.llm.calls()[0].System
	assert.Contains(t, system, "Works as a nurse")
	assert.NotContains(t, system, "Asked about Mars")

	_, err = f.orch.HandleMessage(context.Background(), sess, "what's the weather on Mars", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.memory.searches)

	_, err = f.orch.HandleMessage(context.Background(), sess, "remember my career question?", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, f.memory.searches)
}

func TestHandleMessage_SerializesTurnsPerUser(t *testing.T) {
	var inFlight, peak atomic.Int32
	f := newFixture(t, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return text("ok"), nil
	})
	sess := NewSession("user_1")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.HandleMessage(context.Background(), sess, "hello", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, peak.Load())
	assert.Equal(t, 5, sess.Turns())
	assert.Len(t, sess.History(), 10)
	assert.Zero(t, f.orch.locks.size())
}

func TestWelcome(t *testing.T) {
	f := newFixture(t, nil, func(_ int, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return text("Welcome! I'm Archon. What should I call you?"), nil
	})
	sess := NewSession("user_1")
	sink := &recorder{}

	greeting, needsOnboarding, err := f.orch.Welcome(context.Background(), sess, sink)
	require.NoError(t, err)
	assert.True(t, needsOnboarding)
	assert.Equal(t, "Welcome! I'm Archon. What should I call you?", greeting)
	assert.Empty(t, sess.History())

	require.Len(t, sink.events, 1)
	e := sink.events[0]
	assert.Equal(t, domain.EventWelcome, e.Type)
	require.NotNil(t, e.NeedsOnboarding)
	assert.True(t, *e.NeedsOnboarding)
	assert.Contains(t, f.llm.calls()[0].Messages[0].Content, "brand new user")
}

func TestWelcome_FallsBackWhenModelFails(t *testing.T) {
	f := newFixture(t, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return nil, errors.New("provider unavailable")
	})

	greeting, needsOnboarding, err := f.orch.Welcome(context.Background(), NewSession("user_1"), nil)
	require.NoError(t, err)
	assert.True(t, needsOnboarding)
	assert.Equal(t, FallbackWelcome, greeting)
}

func TestEndSession(t *testing.T) {
	f := newFixture(t, nil, func(int, domain.CompletionRequest) (*domain.CompletionResponse, error) {
		return text("ok"), nil
	})
	sess := NewSession("user_1")

	f.orch.EndSession(context.Background(), sess, true)
	assert.Zero(t, f.memory.summaries)

	_, err := f.orch.HandleMessage(context.Background(), sess, "hello", nil)
	require.NoError(t, err)

	f.orch.EndSession(context.Background(), sess, true)
	assert.Equal(t, 1, f.memory.summaries)
	assert.Equal(t, 1, f.memory.flushed)
	require.Len(t, f.memory.scheduled, 2)
	assert.Equal(t, time.Second, f.memory.scheduled[1].delay)

	f.orch.EndSession(context.Background(), sess, false)
	assert.Equal(t, 2, f.memory.summaries)
	assert.Equal(t, 1, f.memory.flushed)
}

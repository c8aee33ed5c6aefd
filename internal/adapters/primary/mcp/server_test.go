package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/usecases/agent"
	"github.com/admin/astro-agent/internal/usecases/tools"
)

type fakeProfiles struct {
	profile *domain.UserProfile
}

func (f *fakeProfiles) GetOrCreate(context.Context, string) (*domain.UserProfile, error) {
	return f.profile.Clone(), nil
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return f.GetOrCreate(ctx, userID)
}

func newBridge(t *testing.T) (*Bridge, *tools.TurnContext) {
	return newLockedBridge(t, nil)
}

func newLockedBridge(t *testing.T, locks UserLocker) (*Bridge, *tools.TurnContext) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	seen := &tools.TurnContext{}
	registry := tools.NewRegistry(time.Second, log)
	require.NoError(t, registry.Register(&tools.Tool{
		Name:        "greet",
		Description: "Greets someone",
		Action:      "greeting",
		Params: []tools.Param{
			{Name: "who", Type: tools.TypeString, Description: "Who to greet", Required: true},
			{Name: "style", Type: tools.TypeString, Description: "Style", Enum: []string{"warm", "formal"}},
			{Name: "times", Type: tools.TypeInteger, Description: "Repeat count"},
			{Name: "loud", Type: tools.TypeBoolean, Description: "Shout"},
		},
		Handler: func(_ context.Context, tc *tools.TurnContext, args tools.Args) (string, error) {
			*seen = *tc
			return "hello " + args.String("who"), nil
		},
	}))
	require.NoError(t, registry.Register(&tools.Tool{
		Name:          "chart_only",
		Description:   "Needs a chart",
		Action:        "reading the chart",
		RequiresChart: true,
		Handler: func(context.Context, *tools.TurnContext, tools.Args) (string, error) {
			return "chart", nil
		},
	}))
	profiles := &fakeProfiles{profile: domain.NewUserProfile("user_1", time.Now())}
	return NewBridge(registry, profiles, locks, "user_1", log), seen
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, r)
	require.NotEmpty(t, r.Content)
	text, ok := r.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestDefinition(t *testing.T) {
	b, _ := newBridge(t)
	tool, ok := b.registry.Get("greet")
	require.True(t, ok)

	def := Definition(tool)
	assert.Equal(t, "greet", def.Name)
	assert.Equal(t, "Greets someone", def.Description)
	assert.Equal(t, []string{"who"}, def.InputSchema.Required)
	for _, name := range []string{"who", "style", "times", "loud"} {
		assert.Contains(t, def.InputSchema.Properties, name)
	}
	assert.Equal(t, "number", def.InputSchema.Properties["times"].(map[string]any)["type"])
	assert.Equal(t, "boolean", def.InputSchema.Properties["loud"].(map[string]any)["type"])
}

func TestHandler_RunsWithTurnContext(t *testing.T) {
	b, seen := newBridge(t)

	result, err := b.Handler("greet")(context.Background(), call(map[string]any{"who": "Sarah"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "hello Sarah", resultText(t, result))
	assert.Equal(t, "user_1", seen.UserID)
	assert.Equal(t, b.conversationID, seen.ConversationID)
	require.NotNil(t, seen.Profile)
}

func TestHandler_ErrorsAreText(t *testing.T) {
	b, _ := newBridge(t)

	result, err := b.Handler("greet")(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "who")

	result, err = b.Handler("chart_only")(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Still needed")
}

func TestHandler_WaitsForDialogTurnOfSameUser(t *testing.T) {
	orch := agent.New(nil, nil, nil, nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	b, _ := newLockedBridge(t, orch)

	// ход диалога того же пользователя держит блокировку
	unlock := orch.LockUser("user_1")

	done := make(chan *mcp.CallToolResult, 1)
	go func() {
		result, _ := b.Handler("greet")(context.Background(), call(map[string]any{"who": "Sarah"}))
		done <- result
	}()

	select {
	case <-done:
		t.Fatal("tool call ran during a dialog turn")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case result := <-done:
		assert.Equal(t, "hello Sarah", resultText(t, result))
	case <-time.After(2 * time.Second):
		t.Fatal("tool call did not run after the turn ended")
	}

	// другой пользователь не блокируется
	release := orch.LockUser("user_2")
	defer release()
	result, err := b.Handler("greet")(context.Background(), call(map[string]any{"who": "Ana"}))
	require.NoError(t, err)
	assert.Equal(t, "hello Ana", resultText(t, result))
}

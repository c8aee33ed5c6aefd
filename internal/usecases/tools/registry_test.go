package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) *Tool {
	return &Tool{
		Name:   name,
		Action: "echoing",
		Params: []Param{{Name: "text", Type: TypeString, Required: true}},
		Handler: func(_ context.Context, _ *TurnContext, args Args) (string, error) {
			return args.String("text"), nil
		},
	}
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry(time.Second, discardLogger())
	require.NoError(t, r.Register(echoTool("echo")))
	assert.Error(t, r.Register(echoTool("echo")))
	assert.Error(t, r.Register(&Tool{Name: "no_handler"}))
	assert.Len(t, r.Tools(), 1)
}

func TestRegistry_DefaultToolset(t *testing.T) {
	f := newFixture()
	defs := f.registry.Definitions()
	require.Len(t, defs, 13)

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
		assert.Equal(t, "object", d.Parameters["type"])
		assert.NotEmpty(t, d.Description)
	}
	assert.Equal(t, []string{
		"get_current_transits",
		"analyze_synastry",
		"search_chart_memory",
		"update_user_profile",
		"store_user_memory",
		"search_user_memories",
		"get_onboarding_status",
		"get_moon_phase",
		"get_retrograde_planets",
		"get_solar_return",
		"get_planetary_dignities",
		"get_aspect_patterns",
		"get_natal_chart_summary",
	}, names)

	update, ok := f.registry.Get("update_user_profile")
	require.True(t, ok)
	assert.Equal(t, []string{"field", "value"}, f.registry.Definitions()[3].Parameters["required"])
	assert.Equal(t, fieldNames(), update.Params[0].Enum)
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry(time.Second, discardLogger())
	require.NoError(t, r.Register(echoTool("echo")))

	out := r.Execute(context.Background(), &TurnContext{UserID: "u1"}, call("nope", nil))
	assert.Contains(t, out, `unknown tool "nope"`)
	assert.Contains(t, out, "echo")
}

func TestRegistry_ArgumentValidation(t *testing.T) {
	r := NewRegistry(time.Second, discardLogger())
	require.NoError(t, r.Register(&Tool{
		Name: "typed",
		Params: []Param{
			{Name: "count", Type: TypeInteger, Required: true},
			{Name: "mode", Type: TypeString, Enum: []string{"fast", "slow"}, Default: "fast"},
		},
		Handler: func(_ context.Context, _ *TurnContext, args Args) (string, error) {
			n, _ := args.Int("count")
			return args.String("mode") + ":" + string(rune('0'+n)), nil
		},
	}))
	tc := &TurnContext{UserID: "u1"}

	out := r.Execute(context.Background(), tc, call("typed", map[string]any{}))
	assert.Equal(t, `Error: invalid arguments for typed: argument "count" is required.`, out)

	out = r.Execute(context.Background(), tc, call("typed", map[string]any{"count": "abc"}))
	assert.Contains(t, out, `argument "count" must be a integer`)

	out = r.Execute(context.Background(), tc, call("typed", map[string]any{"count": 3, "mode": "warp"}))
	assert.Contains(t, out, "must be one of fast, slow")

	out = r.Execute(context.Background(), tc, call("typed", map[string]any{"count": "3"}))
	assert.Equal(t, "fast:3", out)
}

func TestRegistry_HandlerErrorsBecomeText(t *testing.T) {
	r := NewRegistry(50*time.Millisecond, discardLogger())
	require.NoError(t, r.Register(&Tool{
		Name:   "broken",
		Action: "doing the thing",
		Handler: func(context.Context, *TurnContext, Args) (string, error) {
			return "", errors.New("connection refused to 10.0.0.1")
		},
	}))
	require.NoError(t, r.Register(&Tool{
		Name:   "panics",
		Action: "doing the risky thing",
		Handler: func(context.Context, *TurnContext, Args) (string, error) {
			var m map[string]int
			m["x"] = 1
			return "", nil
		},
	}))
	require.NoError(t, r.Register(&Tool{
		Name:   "slow",
		Action: "waiting",
		Handler: func(ctx context.Context, _ *TurnContext, _ Args) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}))
	require.NoError(t, r.Register(&Tool{
		Name:   "bad_input",
		Action: "reading the date",
		Handler: func(context.Context, *TurnContext, Args) (string, error) {
			return "", &domain.ParseError{Field: "date", Value: "soonish"}
		},
	}))
	tc := &TurnContext{UserID: "u1"}

	out := r.Execute(context.Background(), tc, call("broken", nil))
	assert.Equal(t, "I'm sorry, I ran into a problem while doing the thing: a service I depend on is not responding. Please try again or rephrase.", out)
	assert.NotContains(t, out, "10.0.0.1")

	out = r.Execute(context.Background(), tc, call("panics", nil))
	assert.Contains(t, out, "I'm sorry, I ran into a problem while doing the risky thing")

	out = r.Execute(context.Background(), tc, call("slow", nil))
	assert.Contains(t, out, "the calculation took too long")

	out = r.Execute(context.Background(), tc, call("bad_input", nil))
	assert.Contains(t, out, `could not understand date "soonish"`)
}

func TestRegistry_ChartGate(t *testing.T) {
	f := newFixture()
	date := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	tc := &TurnContext{
		UserID:  "u1",
		Profile: &domain.UserProfile{ID: "u1", Name: ptr("Sarah"), BirthData: &domain.BirthData{Date: &date}},
		Now:     time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	gated := []string{
		"get_current_transits",
		"analyze_synastry",
		"search_chart_memory",
		"get_solar_return",
		"get_planetary_dignities",
		"get_aspect_patterns",
		"get_natal_chart_summary",
	}
	for _, name := range gated {
		out := f.registry.Execute(context.Background(), tc, call(name, map[string]any{
			"query":              "Sun",
			"partner_birth_date": "1992-01-02",
		}))
		assert.Equal(t, "Error: the natal chart is not available yet. Still needed: birth location. Ask the user for it, then call update_user_profile.", out, name)
	}
	assert.Empty(t, f.engine.synastryReqs)
	assert.Empty(t, f.engine.transitReqs)

	tc.Profile = &domain.UserProfile{ID: "u1"}
	out := f.registry.Execute(context.Background(), tc, call("get_natal_chart_summary", nil))
	assert.Contains(t, out, "Still needed: birth date and birth location")

	out = f.registry.Execute(context.Background(), tc, call("get_onboarding_status", nil))
	assert.Contains(t, out, "Onboarding 0% complete")
}

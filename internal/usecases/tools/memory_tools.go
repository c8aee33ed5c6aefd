package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/admin/astro-agent/internal/domain"
)

func storeMemoryTool(deps Deps) *Tool {
	return &Tool{
		Name: "store_user_memory",
		Description: "Remember an important fact, preference or event about the user for future conversations " +
			"(career, relationships, goals, how they like readings).",
		Action: "saving that memory",
		Params: []Param{
			{Name: "content", Type: TypeString, Description: "The fact to remember, as a short sentence about the user", Required: true},
			{Name: "memory_type", Type: TypeString, Description: "semantic (facts), episodic (events from conversations) or procedural (preferences)"},
		},
		Handler: func(ctx context.Context, tc *TurnContext, args Args) (string, error) {
			content := args.String("content")
			memoryType, ok := domain.ParseMemoryType(args.String("memory_type"))
			if !ok {
				memoryType = domain.ClassifyMemoryType(content)
			}
			meta := domain.Metadata{"source": "tool"}
			if tc.ConversationID != "" {
				meta["conversation_id"] = tc.ConversationID
			}

			m, err := deps.Memory.Store(ctx, tc.UserID, content, memoryType, meta)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Remembered (%s): %s", m.Type, m.Content), nil
		},
	}
}

func searchMemoriesTool(deps Deps) *Tool {
	return &Tool{
		Name:        "search_user_memories",
		Description: "Search what you remember about the user: facts, past conversations and preferences.",
		Action:      "searching your memories",
		Params: []Param{
			{Name: "query", Type: TypeString, Description: "What to look for, e.g. \"career\" or \"partner\"", Required: true},
			{Name: "limit", Type: TypeInteger, Description: "Maximum number of results (1-20)", Default: float64(5)},
		},
		Handler: func(ctx context.Context, tc *TurnContext, args Args) (string, error) {
			limit, _ := args.Int("limit")
			limit = max(1, min(limit, 20))

			results, err := deps.Memory.Search(ctx, tc.UserID, args.String("query"), limit)
			if err != nil {
				return "", err
			}
			if len(results) == 0 {
				return fmt.Sprintf("No memories found for %q.", args.String("query")), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Found %d memories:\n", len(results))
			for i, r := range results {
				fmt.Fprintf(&b, "%d. [%s] %s (relevance %.2f)\n", i+1, r.Memory.Type, r.Memory.Content, r.Relevance)
			}
			return b.String(), nil
		},
	}
}

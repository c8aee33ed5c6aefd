package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/admin/astro-agent/internal/app"
	"github.com/admin/astro-agent/internal/pkg/logger"
	"github.com/admin/astro-agent/internal/services/auth"
	"github.com/spf13/cobra"
)

const (
	appName   = "astro_agent"
	envPrefix = "ASTRO_AGENT"
)

var (
	userFlag  string
	emailFlag string
)

var rootCmd = &cobra.Command{
	Use:   "astro-agent",
	Short: "Conversational astrology assistant",
	Long: `Astrology assistant with tool calling, onboarding and long-term memory.

Without a subcommand the HTTP/WebSocket server is started.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			return a.Run(ctx)
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	RunE:  rootCmd.RunE,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, err := resolveUser()
		if err != nil {
			return err
		}
		return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
			return a.Chat(ctx, userID, cmd.InOrStdin(), cmd.OutOrStdout())
		})
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the assistant tools over MCP stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if userFlag == "" && emailFlag == "" {
			return fmt.Errorf("--user or --email is required")
		}
		userID, err := resolveUser()
		if err != nil {
			return err
		}
		return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
			return a.MCP(ctx, userID)
		})
	},
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge near-duplicate memories for one user or everyone",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID := ""
		if userFlag != "" || emailFlag != "" {
			var err error
			if userID, err = resolveUser(); err != nil {
				return err
			}
		}
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			removed, err := a.Consolidate(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d duplicate memories\n", removed)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{chatCmd, mcpCmd, consolidateCmd} {
		c.Flags().StringVar(&userFlag, "user", "", "user id")
		c.Flags().StringVar(&emailFlag, "email", "", "derive the user id from an email address")
	}
	rootCmd.AddCommand(serveCmd, chatCmd, mcpCmd, consolidateCmd)
}

// resolveUser явный id, id из email или новый гостевой
func resolveUser() (string, error) {
	if userFlag != "" {
		return userFlag, nil
	}
	if emailFlag != "" {
		return strings.NewReplacer("@", "_at_", ".", "_").Replace(strings.ToLower(emailFlag)), nil
	}
	return auth.NewGuestID()
}

// withApp interactive: stdout занят диалогом или протоколом MCP, логи только в stderr
func withApp(cmd *cobra.Command, interactive bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := app.NewEnvConfig(envPrefix)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if interactive {
		cfg.Log = &logger.Config{Encoding: "console", Level: "warn", Output: "stderr"}
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return fn(ctx, app.New(appName, cfg))
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// Package cli интерактивный чат в терминале
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
	"github.com/admin/astro-agent/internal/ports/usecase"
	"github.com/admin/astro-agent/internal/usecases/agent"
	"github.com/admin/astro-agent/internal/usecases/onboarding"
)

const help = "Commands: status, clear, quit"

type REPL struct {
	agent    usecase.IChatAgent
	profiles service.IProfileService
	memory   service.IMemoryService
	in       io.Reader
	out      io.Writer
	Log      *slog.Logger
}

func New(chatAgent usecase.IChatAgent, profiles service.IProfileService, memory service.IMemoryService, in io.Reader, out io.Writer, log *slog.Logger) *REPL {
	return &REPL{
		agent:    chatAgent,
		profiles: profiles,
		memory:   memory,
		in:       in,
		out:      out,
		Log:      log,
	}
}

// Run ведёт сессию до quit, конца ввода или отмены контекста
func (r *REPL) Run(ctx context.Context, userID string) error {
	sess := agent.NewSession(userID)
	sink := &printer{out: r.out}

	fmt.Fprintf(r.out, "Archon astrology agent (user %s). %s\n\n", userID, help)
	if _, _, err := r.agent.Welcome(ctx, sess, sink); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.out, "\nYou: ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			r.agent.EndSession(context.WithoutCancel(ctx), sess, true)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			r.quit(ctx, sess)
			return nil
		}

		switch text := strings.TrimSpace(line); strings.ToLower(text) {
		case "":
			continue
		case "quit", "exit":
			r.quit(ctx, sess)
			return nil
		case "clear":
			r.agent.EndSession(ctx, sess, false)
			sess.Clear()
			fmt.Fprintln(r.out, "Conversation cleared.")
		case "status":
			r.status(ctx, sess)
		case "help":
			fmt.Fprintln(r.out, help)
		default:
			if _, err := r.agent.HandleMessage(ctx, sess, text, sink); err != nil {
				r.Log.Error("turn failed", "error", err, "user_id", userID)
				fmt.Fprintln(r.out, "\nSomething went wrong, please try again.")
			}
		}
	}
}

// quit отложенное извлечение памяти выполняется сразу, до выхода
func (r *REPL) quit(ctx context.Context, sess *agent.Session) {
	fmt.Fprintln(r.out, "\nSaving what I learned...")
	r.agent.EndSession(ctx, sess, true)
	fmt.Fprintln(r.out, "Goodbye! May the stars guide you.")
}

func (r *REPL) status(ctx context.Context, sess *agent.Session) {
	profile, err := r.profiles.GetOrCreate(ctx, sess.UserID)
	if err != nil {
		fmt.Fprintf(r.out, "Could not load profile: %v\n", err)
		return
	}
	state := onboarding.Evaluate(profile)

	fmt.Fprintf(r.out, "Profile: %s (%d%% complete)\n", profile.DisplayName(), state.CompletionPercentage())
	if missing := state.MissingRequired(); len(missing) > 0 {
		fmt.Fprintf(r.out, "Missing: %s\n", onboarding.FieldNames(missing))
	}
	if profile.HasChart() {
		fmt.Fprintln(r.out, "Natal chart: computed")
	} else {
		fmt.Fprintln(r.out, "Natal chart: not yet")
	}
	if r.memory != nil {
		if stats, err := r.memory.Stats(ctx, sess.UserID); err == nil {
			fmt.Fprintf(r.out, "Memories: %d (pending extractions: %d)\n", stats.Total, stats.PendingExtractions)
		}
	}
	fmt.Fprintf(r.out, "Messages this session: %d\n", sess.MessageCount())
}

// printer печатает ответ по мере стриминга и отмечает вызовы инструментов
type printer struct {
	out io.Writer
}

func (p *printer) Send(_ context.Context, e domain.Event) error {
	var err error
	switch e.Type {
	case domain.EventWelcome:
		_, err = fmt.Fprintf(p.out, "Archon: %s\n", e.Content)
	case domain.EventToolCall:
		if e.Status == domain.ToolStatusStarted {
			_, err = fmt.Fprintf(p.out, "  [%s]\n", e.Tool)
		}
	case domain.EventStreamStart:
		_, err = fmt.Fprint(p.out, "\nArchon: ")
	case domain.EventStreamChunk:
		_, err = fmt.Fprint(p.out, e.Content)
	case domain.EventStreamEnd:
		_, err = fmt.Fprintln(p.out)
	case domain.EventError:
		_, err = fmt.Fprintf(p.out, "Error: %s\n", e.Content)
	}
	return err
}

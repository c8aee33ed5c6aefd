package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/usecases/onboarding"
)

const (
	FallbackWelcome = "Hello! I'm Archon, your astrology guide. What's your name?"
	apology         = "I'm sorry, I couldn't put together an answer just now. Please try asking again."
	limitMessage    = "You've reached today's usage limit for readings. Please come back tomorrow!"
)

var recallTriggers = []string{
	"remember", "last time", "you told me", "we discussed",
	"my situation", "going through", "mentioned before",
	"you said", "earlier", "before", "previously",
	"my life", "my career", "my relationship",
}

// shouldRecall вопрос о прошлом или личной ситуации, для него нужна память
func shouldRecall(message string) bool {
	text := strings.ToLower(message)
	for _, t := range recallTriggers {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// natalSummary короткая строка карты для системного промпта
func natalSummary(c *domain.ChartData) string {
	if c == nil || len(c.Planets) == 0 {
		return ""
	}
	var parts []string
	for _, name := range []string{"Sun", "Moon"} {
		if p, ok := c.Planet(name); ok {
			part := fmt.Sprintf("%s %s", name, p.Sign)
			if p.House > 0 {
				part += fmt.Sprintf(" %dH", p.House)
			}
			parts = append(parts, part)
		}
	}
	if c.Ascendant != nil {
		parts = append(parts, c.Ascendant.Sign+" Rising")
	}
	for _, name := range []string{"Mercury", "Venus", "Mars"} {
		if p, ok := c.Planet(name); ok {
			parts = append(parts, fmt.Sprintf("%s %s", name, p.Sign))
		}
	}
	return strings.Join(parts, ", ")
}

// systemPrompt собирается заново на каждом ходе из текущего профиля
func systemPrompt(p *domain.UserProfile, state domain.OnboardingState, memories []domain.MemorySearchResult, now time.Time) string {
	var b strings.Builder
	name := p.DisplayName()
	fmt.Fprintf(&b, "You are Archon, a personal AI astrologer for %s (pronouns: %s).\n", name, p.Pronoun())
	fmt.Fprintf(&b, "Today is %s.\n", now.UTC().Format("Monday, 2006-01-02"))

	if p.HasChart() {
		b.WriteString("\nIMPORTANT: You have PERMANENT ACCESS to their natal chart - never ask for birth data!\n\n")
		b.WriteString("User's Birth Data (ALWAYS AVAILABLE):\n")
		born := p.BirthDateString()
		if bd := p.BirthData; bd != nil {
			switch {
			case bd.Time != nil:
				born += " at " + bd.Time.String()
			default:
				born += " (birth time unknown, chart cast for noon)"
			}
			if bd.Location != nil {
				born += " in " + bd.Location.City
			}
		}
		fmt.Fprintf(&b, "- Born: %s\n", born)
		fmt.Fprintf(&b, "- Natal Chart: %s\n", natalSummary(p.NatalChart))
		if p.CurrentLocation != nil {
			fmt.Fprintf(&b, "- Current location: %s\n", p.CurrentLocation.City)
		}
	}

	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Be warm, insightful and empowering\n")
	b.WriteString("- Reference their natal chart naturally in responses\n")
	b.WriteString("- Use tools for transits, synastry, moon phases, retrogrades and chart details instead of guessing\n")
	b.WriteString("- When the user shares a fact about their life worth keeping, save it with store_user_memory\n")
	b.WriteString("- Keep responses concise but meaningful (2-4 paragraphs)\n")
	b.WriteString("- Focus on practical guidance and personal growth\n")
	b.WriteString("\nStyle: Conversational, wise, supportive astrologer who knows them well.")

	b.WriteString(onboarding.SystemPromptAddition(state))

	if len(memories) > 0 {
		fmt.Fprintf(&b, "\n\nWhat you remember about %s:\n", name)
		for _, m := range memories {
			fmt.Fprintf(&b, "- [%s] %s\n", m.Memory.Type, m.Memory.Content)
		}
	}
	return b.String()
}

// welcomePrompt синтетическое сообщение, с которого начинается сессия
func welcomePrompt(p *domain.UserProfile, state domain.OnboardingState) string {
	hasName := state.HasName
	switch {
	case state.IsComplete():
		return fmt.Sprintf("Welcome back %s!\nTheir chart: %s\n\n"+
			"Give a warm, personalized greeting acknowledging their Sun/Moon signs.\n"+
			"Mention 1-2 current transits affecting them today.\n"+
			"Keep it to 2-3 sentences - warm and insightful.", p.DisplayName(), natalSummary(p.NatalChart))
	case hasName:
		return fmt.Sprintf("The user %s just connected. Welcome them back warmly.\n"+
			"They still need to complete their profile. Ask: %s\n"+
			"Keep it to 2-3 sentences - be welcoming but concise.", p.DisplayName(), state.NextQuestion().FriendlyPrompt())
	default:
		return "A brand new user just connected to Archon.\n" +
			"Welcome them warmly and introduce yourself briefly as their astrology guide.\n" +
			"Ask for their name in a friendly way.\n" +
			"Keep it to 2-3 sentences - be welcoming but concise."
	}
}

// fallbackWelcome статичное приветствие, когда модель недоступна
func fallbackWelcome(p *domain.UserProfile, state domain.OnboardingState) string {
	if !state.HasName {
		return FallbackWelcome
	}
	name := p.DisplayName()
	if !state.IsComplete() {
		return fmt.Sprintf("Hey %s! Welcome back to Archon. %s", name, state.NextQuestion().FriendlyPrompt())
	}
	if summary := natalSummary(p.NatalChart); summary != "" {
		return fmt.Sprintf("Welcome back, %s!\n\nYour chart: %s\n\nWhat's on your mind today?", name, summary)
	}
	return fmt.Sprintf("Welcome back, %s!\n\nWhat would you like to explore today?", name)
}

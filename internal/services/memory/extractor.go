package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
)

const maxExtracted = 10

// Extractor находит в окне диалога факты, которые стоит запомнить
type Extractor interface {
	Extract(ctx context.Context, messages []domain.Message) ([]domain.ExtractedMemory, error)
}

const extractionPrompt = `Extract noteworthy information about the user from this conversation.

SEMANTIC (facts about the user): career, relationships, life circumstances (moving, health,
finances), personal traits or challenges, goals.
EPISODIC (significant experiences discussed): major life events, emotional states or concerns,
specific situations they asked about, insights that resonated with them.
PROCEDURAL (preferences): brief vs detailed answers, favourite topics, how they like information
presented.

Do NOT extract general astrology questions, birth data (already stored in the profile) or
redundant information.

Respond with a JSON array only, no prose:
[{"content": "User works as a nurse", "type": "semantic", "confidence": 0.9}]
Return [] when there is nothing worth remembering.`

// LLMExtractor извлечение моделью с откатом на ключевые слова
type LLMExtractor struct {
	llm service.ILLMClient
	Log *slog.Logger
}

func NewLLMExtractor(llm service.ILLMClient, log *slog.Logger) *LLMExtractor {
	return &LLMExtractor{llm: llm, Log: log}
}

// Extract никогда не возвращает ошибку модели: при сбое работает KeywordExtract
func (e *LLMExtractor) Extract(ctx context.Context, messages []domain.Message) ([]domain.ExtractedMemory, error) {
	if e.llm == nil {
		return KeywordExtract(messages), nil
	}

	resp, err := e.llm.Complete(ctx, domain.CompletionRequest{
		System:      extractionPrompt,
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: transcript(messages)}},
		Temperature: 0,
		MaxTokens:   800,
	})
	if err != nil {
		e.Log.Warn("memory extraction via llm failed, using keywords", "error", err)
		return KeywordExtract(messages), nil
	}

	found, err := parseExtraction(resp.Content)
	if err != nil {
		e.Log.Warn("failed to parse llm extraction, using keywords", "error", err)
		return KeywordExtract(messages), nil
	}
	if len(found) > maxExtracted {
		found = found[:maxExtracted]
	}
	return found, nil
}

func transcript(messages []domain.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

type rawExtraction struct {
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence"`
}

// parseExtraction читает JSON массив, в том числе завёрнутый в markdown блок
func parseExtraction(text string) ([]domain.ExtractedMemory, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no json array in extraction output")
	}

	var raw []rawExtraction
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extraction: %w", err)
	}

	out := make([]domain.ExtractedMemory, 0, len(raw))
	for _, r := range raw {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}
		t, ok := domain.ParseMemoryType(r.Type)
		if !ok {
			t = domain.ClassifyMemoryType(content)
		}
		confidence := 0.8
		if r.Confidence != nil {
			confidence = *r.Confidence
		}
		out = append(out, domain.ExtractedMemory{Content: content, Type: t, Confidence: confidence})
	}
	return out, nil
}

type trigger struct {
	label    string
	keywords []string
}

var semanticTriggers = []trigger{
	{"career", []string{"work", "job", "career", "profession", "company", "boss", "coworker"}},
	{"relationship", []string{"partner", "spouse", "married", "dating", "relationship", "boyfriend", "girlfriend", "husband", "wife"}},
	{"life_event", []string{"moving", "pregnant", "baby", "divorce", "wedding", "graduated", "retired"}},
	{"health", []string{"health", "doctor", "surgery", "illness", "anxiety", "depression"}},
	{"financial", []string{"money", "salary", "debt", "investment", "bought", "sold"}},
}

var episodicTriggers = []trigger{
	{"concern", []string{"worried", "anxious", "stressed", "afraid", "nervous"}},
	{"excitement", []string{"excited", "looking forward", "can't wait", "thrilled"}},
	{"decision", []string{"thinking about", "considering", "should i", "planning to"}},
}

func (t trigger) matches(text string) bool {
	for _, k := range t.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// KeywordExtract простое извлечение по ключевым словам, смотрит только сообщения пользователя
func KeywordExtract(messages []domain.Message) []domain.ExtractedMemory {
	var out []domain.ExtractedMemory
	for _, m := range messages {
		if m.Role != domain.RoleUser {
			continue
		}
		content := strings.ToLower(m.Content)

		for _, t := range semanticTriggers {
			if !t.matches(content) {
				continue
			}
			for _, sentence := range strings.Split(content, ".") {
				if t.matches(sentence) {
					out = append(out, domain.ExtractedMemory{
						Content:    capitalize(strings.TrimSpace(sentence)),
						Type:       domain.MemorySemantic,
						Confidence: 0.6,
					})
					break
				}
			}
		}

		for _, t := range episodicTriggers {
			if t.matches(content) {
				out = append(out, domain.ExtractedMemory{
					Content:    fmt.Sprintf("User expressed %s: %s", t.label, truncateRunes(content, 100)),
					Type:       domain.MemoryEpisodic,
					Confidence: 0.5,
				})
			}
		}
	}
	if len(out) > maxExtracted {
		out = out[:maxExtracted]
	}
	return out
}

var topicKeywords = []trigger{
	{"transit", []string{"transit", "current", "today", "now"}},
	{"natal_chart", []string{"natal", "birth chart", "my chart", "placement"}},
	{"relationship", []string{"compatible", "synastry", "relationship", "partner"}},
	{"career", []string{"career", "job", "work", "profession"}},
	{"saturn_return", []string{"saturn"}},
	{"mercury_retrograde", []string{"retrograde"}},
	{"moon", []string{"moon", "emotions", "feelings"}},
	{"venus", []string{"venus", "love", "beauty"}},
	{"mars", []string{"mars", "energy", "action", "drive"}},
}

// ExtractTopics астрологические темы разговора в фиксированном порядке
func ExtractTopics(messages []domain.Message) []string {
	var b strings.Builder
	for _, m := range messages {
		if m.Role == domain.RoleUser || m.Role == domain.RoleAssistant {
			b.WriteString(strings.ToLower(m.Content))
			b.WriteString(" ")
		}
	}
	text := b.String()

	var out []string
	for _, t := range topicKeywords {
		if t.matches(text) {
			out = append(out, t.label)
		}
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

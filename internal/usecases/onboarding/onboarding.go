// Package onboarding вычисляет состояние заполнения профиля и подсказки для модели
package onboarding

import (
	"fmt"
	"strings"

	"github.com/admin/astro-agent/internal/domain"
)

// Evaluate строит состояние онбординга из профиля, ничего не сохраняет
func Evaluate(p *domain.UserProfile) domain.OnboardingState {
	if p == nil {
		return domain.OnboardingState{}
	}
	s := domain.OnboardingState{
		HasName:            p.Name != nil && strings.TrimSpace(*p.Name) != "",
		HasGender:          p.Gender != nil,
		HasCurrentLocation: p.CurrentLocation != nil,
	}
	if bd := p.BirthData; bd != nil {
		s.HasBirthDate = bd.Date != nil
		s.HasBirthTime = bd.Time != nil || bd.TimeUnknown
		s.HasBirthLocation = bd.Location != nil
	}
	return s
}

// FieldNames названия полей через запятую
func FieldNames(fields []domain.OnboardingField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// SystemPromptAddition блок системного промпта, пока профиль не заполнен
func SystemPromptAddition(s domain.OnboardingState) string {
	if s.IsComplete() {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nIMPORTANT - ONBOARDING IN PROGRESS:\n")
	fmt.Fprintf(&b, "The user's profile is incomplete. Missing: %s\n\n", FieldNames(s.MissingRequired()))
	fmt.Fprintf(&b, "Your next suggested question: %q\n\n", s.NextQuestion().FriendlyPrompt())
	b.WriteString("As you chat naturally, use the update_user_profile tool to save any personal\n")
	b.WriteString("information they share (name, gender, birth date, birth time, birth location).\n\n")
	b.WriteString("Be conversational - don't interrogate them. If they share multiple pieces of\n")
	b.WriteString("info at once (e.g., \"I'm Sarah, born June 15 1990 in NYC\"), extract and save\n")
	b.WriteString("each piece using the tool.\n\n")
	b.WriteString("Once you have name, gender, birth date, and birth location, you can compute\n")
	b.WriteString("their natal chart and provide personalized readings.\n")
	return b.String()
}

// Status текстовая сводка для инструмента get_onboarding_status
func Status(s domain.OnboardingState) string {
	if s.IsComplete() {
		msg := fmt.Sprintf("Onboarding complete (%d%%).", s.CompletionPercentage())
		if next := s.NextQuestion(); next != "" {
			msg += fmt.Sprintf(" Optional detail still missing: %s. Suggested question: %s", next, next.FriendlyPrompt())
		}
		return msg
	}
	return fmt.Sprintf("Onboarding %d%% complete. Missing required: %s. Next question: %s",
		s.CompletionPercentage(),
		FieldNames(s.MissingRequired()),
		s.NextQuestion().FriendlyPrompt())
}

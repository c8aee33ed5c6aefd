package domain

// OnboardingField поле профиля, которое собирается в диалоге
type OnboardingField string

const (
	FieldName            OnboardingField = "name"
	FieldGender          OnboardingField = "gender"
	FieldBirthDate       OnboardingField = "birth_date"
	FieldBirthLocation   OnboardingField = "birth_location"
	FieldBirthTime       OnboardingField = "birth_time"
	FieldCurrentLocation OnboardingField = "current_location"
)

// OnboardingOrder порядок, в котором задаются вопросы
var OnboardingOrder = []OnboardingField{
	FieldName,
	FieldGender,
	FieldBirthDate,
	FieldBirthLocation,
	FieldBirthTime,
	FieldCurrentLocation,
}

var friendlyPrompts = map[OnboardingField]string{
	FieldName:            "What's your name?",
	FieldGender:          "What pronouns do you prefer? (he/him, she/her, they/them)",
	FieldBirthDate:       "When were you born? (date and time if you know it)",
	FieldBirthLocation:   "Where were you born? (city is fine)",
	FieldBirthTime:       "Do you know what time you were born? This helps with accuracy, but it's okay if you don't know.",
	FieldCurrentLocation: "Where are you located now? This helps with daily transit readings.",
}

// FriendlyPrompt текст вопроса для поля
func (f OnboardingField) FriendlyPrompt() string {
	return friendlyPrompts[f]
}

// IsRequired нужно ли поле для натальной карты
func (f OnboardingField) IsRequired() bool {
	switch f {
	case FieldName, FieldGender, FieldBirthDate, FieldBirthLocation:
		return true
	}
	return false
}

// OnboardingState производное состояние онбординга, нигде не хранится
type OnboardingState struct {
	HasName            bool `json:"has_name"`
	HasGender          bool `json:"has_gender"`
	HasBirthDate       bool `json:"has_birth_date"`
	HasBirthTime       bool `json:"has_birth_time"`
	HasBirthLocation   bool `json:"has_birth_location"`
	HasCurrentLocation bool `json:"has_current_location"`
}

func (s OnboardingState) has(f OnboardingField) bool {
	switch f {
	case FieldName:
		return s.HasName
	case FieldGender:
		return s.HasGender
	case FieldBirthDate:
		return s.HasBirthDate
	case FieldBirthLocation:
		return s.HasBirthLocation
	case FieldBirthTime:
		return s.HasBirthTime
	case FieldCurrentLocation:
		return s.HasCurrentLocation
	}
	return false
}

// IsComplete минимум для расчёта карты
func (s OnboardingState) IsComplete() bool {
	return s.HasName && s.HasGender && s.HasBirthDate && s.HasBirthLocation
}

// IsEnhanced известно ещё и время рождения
func (s OnboardingState) IsEnhanced() bool {
	return s.IsComplete() && s.HasBirthTime
}

// CompletionPercentage 80% веса на обязательных полях, 20% на дополнительных
func (s OnboardingState) CompletionPercentage() int {
	required, optional := 0, 0
	for _, f := range OnboardingOrder {
		if !s.has(f) {
			continue
		}
		if f.IsRequired() {
			required++
		} else {
			optional++
		}
	}
	return int(float64(required)/4*80 + float64(optional)/2*20)
}

// NextQuestion первое незаполненное поле или пустая строка
func (s OnboardingState) NextQuestion() OnboardingField {
	for _, f := range OnboardingOrder {
		if !s.has(f) {
			return f
		}
	}
	return ""
}

// MissingRequired незаполненные обязательные поля в порядке приоритета
func (s OnboardingState) MissingRequired() []OnboardingField {
	var out []OnboardingField
	for _, f := range OnboardingOrder {
		if f.IsRequired() && !s.has(f) {
			out = append(out, f)
		}
	}
	return out
}

// MissingChartFields поля, без которых нельзя посчитать карту
func (s OnboardingState) MissingChartFields() []OnboardingField {
	var out []OnboardingField
	if !s.HasBirthDate {
		out = append(out, FieldBirthDate)
	}
	if !s.HasBirthLocation {
		out = append(out, FieldBirthLocation)
	}
	return out
}

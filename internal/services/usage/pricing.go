package usage

import "strings"

// Price цена за 1M токенов в долларах
type Price struct {
	Input  float64
	Output float64
}

// pricing тарифы по провайдеру и модели
var pricing = map[string]map[string]Price{
	"groq": {
		"llama3-70b-8192":         {Input: 0, Output: 0},
		"llama-3.3-70b-versatile": {Input: 0.59, Output: 0.79},
	},
	"together": {
		"meta-llama/Llama-3-70b-chat-hf": {Input: 0.90, Output: 0.90},
	},
	"openai": {
		"gpt-4o":                 {Input: 2.50, Output: 10.00},
		"gpt-4o-mini":            {Input: 0.15, Output: 0.60},
		"text-embedding-3-small": {Input: 0.02, Output: 0},
	},
	"gemini": {
		"gemini-2.0-flash":     {Input: 0.10, Output: 0.40},
		"gemini-2.5-flash":     {Input: 0.30, Output: 2.50},
		"gemini-embedding-001": {Input: 0.15, Output: 0},
	},
}

// Cost стоимость вызова; неизвестная модель считается бесплатной
func Cost(provider, model string, inputTokens, outputTokens int) (float64, bool) {
	models, ok := pricing[strings.ToLower(provider)]
	if !ok {
		return 0, false
	}
	price, ok := models[model]
	if !ok {
		// провайдеры возвращают версию модели с суффиксом даты, берём самый длинный префикс
		best := ""
		for name, p := range models {
			if strings.HasPrefix(model, name) && len(name) > len(best) {
				best, price, ok = name, p, true
			}
		}
		if !ok {
			return 0, false
		}
	}
	cost := float64(inputTokens)/1_000_000*price.Input + float64(outputTokens)/1_000_000*price.Output
	return roundMicro(cost), true
}

func roundMicro(v float64) float64 {
	return float64(int64(v*1_000_000+0.5)) / 1_000_000
}

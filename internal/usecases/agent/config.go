package agent

import "time"

type Config struct {
	MaxToolRounds    int     `envconfig:"MAX_TOOL_ROUNDS" default:"3"`
	LLMTimeoutSec    int     `envconfig:"LLM_TIMEOUT" default:"60"`
	HistoryLimit     int     `envconfig:"HISTORY_LIMIT" default:"10"`
	RecallLimit      int     `envconfig:"RECALL_LIMIT" default:"3"`
	RAGMinSimilarity float64 `envconfig:"RAG_MIN_SIMILARITY" default:"0.5"`
	// ExtractionDelaySec 0 берёт задержку из конфигурации памяти
	ExtractionDelaySec int `envconfig:"EXTRACTION_DELAY" default:"0"`
	// QuitExtractionDelaySec задержка извлечения при явном завершении сессии
	QuitExtractionDelaySec int `envconfig:"QUIT_EXTRACTION_DELAY" default:"1"`
	// DailyCostLimitUSD 0 отключает лимит
	DailyCostLimitUSD float64 `envconfig:"DAILY_COST_LIMIT_USD" default:"0"`
	ToolTimeoutSec    int     `envconfig:"TOOL_TIMEOUT" default:"30"`
}

// ToolTimeout ограничение на один вызов инструмента
func (c *Config) ToolTimeout() time.Duration {
	if c.ToolTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ToolTimeoutSec) * time.Second
}

func (c *Config) rounds() int {
	if c.MaxToolRounds <= 0 {
		return 3
	}
	return c.MaxToolRounds
}

func (c *Config) llmTimeout() time.Duration {
	if c.LLMTimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

func (c *Config) historyLimit() int {
	if c.HistoryLimit <= 0 {
		return 10
	}
	return c.HistoryLimit
}

func (c *Config) recallLimit() int {
	if c.RecallLimit <= 0 {
		return 3
	}
	return c.RecallLimit
}

package alerter

type Config struct {
	BaseURL         string `envconfig:"BASE_URL" default:"https://api.telegram.org"`
	BotToken        string `envconfig:"BOT_TOKEN"`
	ChatID          int64  `envconfig:"CHAT_ID"`
	MessageThreadID *int64 `envconfig:"MESSAGE_THREAD_ID"`
}

// Enabled алерты отправляются, только если задан токен и чат
func (c *Config) Enabled() bool {
	return c != nil && c.BotToken != "" && c.ChatID != 0
}

// Package profile holds the runtime configuration for the notekeeper bot.
package profile

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the bot process.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the status endpoint; empty disables it
	Addr string
	// BotToken is the messaging platform token (NOTEKEEPER_BOT_TOKEN)
	BotToken string
	// AIAPIKey is the language-model API key (NOTEKEEPER_AI_API_KEY)
	AIAPIKey string
	// AIBaseURL is the language-model endpoint URL (NOTEKEEPER_AI_BASE_URL)
	AIBaseURL string
	// AIModel is the chat model used for note analysis
	AIModel string
	// SweepInterval is the reminder sweep cadence
	SweepInterval time.Duration
	// Version is the current version of the bot
	Version string
}

// IsDev returns true if the process runs in dev mode.
func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true when the analysis endpoint is fully configured.
// Absence degrades only the analysis feature, never the note/reminder core.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != "" && p.AIBaseURL != ""
}

// FromEnv fills unset fields from environment variables.
func (p *Profile) FromEnv() {
	if p.BotToken == "" {
		p.BotToken = os.Getenv("NOTEKEEPER_BOT_TOKEN")
	}
	if p.AIAPIKey == "" {
		p.AIAPIKey = os.Getenv("NOTEKEEPER_AI_API_KEY")
	}
	if p.AIBaseURL == "" {
		p.AIBaseURL = os.Getenv("NOTEKEEPER_AI_BASE_URL")
	}
	if p.AIModel == "" {
		p.AIModel = getEnvOrDefault("NOTEKEEPER_AI_MODEL", "qwen/qwq-32b:free")
	}
}

// Validate normalizes and validates the profile.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.SweepInterval <= 0 {
		p.SweepInterval = 30 * time.Second
	}
	if p.AIModel == "" {
		p.AIModel = "qwen/qwq-32b:free"
	}
	if p.BotToken == "" {
		return errors.New("bot token is required, set NOTEKEEPER_BOT_TOKEN")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

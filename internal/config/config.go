package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string
	APIToken    string

	OpenAIAPIKey string
	OpenAIModel  string

	SlackBotToken string
	SlackChannel  string

	Workers int

	SameItemThreshold     float64
	TerminologyThreshold  float64
	FuzzyMatchThreshold   float64
	ConflictMinConfidence float64
	ConfidenceStep        float64
	MinSupport            int
	SafetyTerms           []string
}

func Load() Config {
	return Config{
		Port:        envInt("REVISOR_PORT", 8760),
		NatsURL:     envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("REVISOR_API_TOKEN", ""),

		OpenAIAPIKey: envStr("OPENAI_API_KEY", ""),
		OpenAIModel:  envStr("REVISOR_MODEL", "gpt-4o"),

		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_CONFLICTS_CHANNEL", ""),

		Workers: envInt("REVISOR_WORKERS", 4),

		SameItemThreshold:     envFloat("REVISOR_SAME_ITEM_THRESHOLD", 0.45),
		TerminologyThreshold:  envFloat("REVISOR_TERMINOLOGY_THRESHOLD", 0.8),
		FuzzyMatchThreshold:   envFloat("REVISOR_FUZZY_MATCH_THRESHOLD", 0.85),
		ConflictMinConfidence: envFloat("REVISOR_CONFLICT_MIN_CONFIDENCE", 0.6),
		ConfidenceStep:        envFloat("REVISOR_CONFIDENCE_STEP", 0.05),
		MinSupport:            envInt("REVISOR_MIN_SUPPORT", 2),
		SafetyTerms:           envList("REVISOR_SAFETY_TERMS"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envList splits a comma-separated env var; blank entries are dropped.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

package llm

import (
	"fmt"
	"strings"

	"plangrade/internal/model"
)

// NewOracle creates an oracle based on configuration
func NewOracle(config Config) (Oracle, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIOracle(config)

	case "ollama":
		// Ollama speaks the OpenAI chat API; no key required
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434/v1"
		}
		if config.APIKey == "" {
			config.APIKey = "ollama"
		}
		return NewOpenAIOracle(config)

	default:
		return nil, fmt.Errorf("unknown oracle provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config, filling unset
// fields from DefaultConfig
func ConfigFromModel(mc model.LLMConfig) Config {
	c := DefaultConfig()
	if mc.Provider != "" {
		c.Provider = mc.Provider
	}
	if mc.Model != "" {
		c.Model = mc.Model
	}
	if mc.APIKey != "" {
		c.APIKey = mc.APIKey
	}
	if mc.BaseURL != "" {
		c.BaseURL = mc.BaseURL
	}
	if mc.Timeout > 0 {
		c.Timeout = mc.Timeout
	}
	if mc.MaxRetries > 0 {
		c.MaxRetries = mc.MaxRetries
	}
	return c
}

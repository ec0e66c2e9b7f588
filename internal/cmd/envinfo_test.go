package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bffagent/bffagent/internal/config"
)

func sectionValue(sections []envSection, title, label string) (string, bool) {
	for _, s := range sections {
		if s.title != title {
			continue
		}
		for _, row := range s.rows {
			if row[0] == label {
				return row[1], true
			}
		}
	}
	return "", false
}

func TestConfigSectionsHideSecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Provider.APIKey = "sk-live-123"
	cfg.Provider.Model = "gpt-4"
	cfg.RateLimit = config.RateLimitConfig{Window: time.Minute, MaxRequests: 30, Backend: config.BackendMemory}
	cfg.Client.BaseURL = "http://localhost:8080"

	sections := configSections(cfg)

	key, ok := sectionValue(sections, "Proxy", "API key")
	assert.True(t, ok)
	assert.Equal(t, "(set)", key)

	access, _ := sectionValue(sections, "Client", "Access key")
	assert.Equal(t, "(not set)", access)

	limit, _ := sectionValue(sections, "Proxy", "Rate limit")
	assert.Equal(t, "30 per 1m0s (memory)", limit)

	metrics, _ := sectionValue(sections, "Configuration", "Metrics")
	assert.Equal(t, "disabled", metrics)

	for _, s := range sections {
		for _, row := range s.rows {
			assert.NotContains(t, row[1], "sk-live")
		}
	}
}

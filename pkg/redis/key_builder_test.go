package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyBuilder_Environment_Prefixes(t *testing.T) {
	tests := []struct {
		name           string
		environment    string
		expectedPrefix string
	}{
		{name: "production uses prod prefix", environment: "production", expectedPrefix: "orgie:prod"},
		{name: "development uses staging prefix", environment: "development", expectedPrefix: "orgie:staging"},
		{name: "staging uses staging prefix", environment: "staging", expectedPrefix: "orgie:staging"},
		{name: "test uses test prefix", environment: "test", expectedPrefix: "orgie:test"},
		{name: "unknown defaults to prod prefix", environment: "unknown", expectedPrefix: "orgie:prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			assert.Equal(t, tt.expectedPrefix, kb.GetPrefix())
		})
	}
}

func TestKeyBuilder_KeyGeneration(t *testing.T) {
	kb := NewKeyBuilder("production")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "event stats", got: kb.KeyEventStats("ev-1", "0.0"), expected: "orgie:prod:stats:event:ev-1:0.0"},
		{name: "event stats version", got: kb.KeyEventStatsVersion("ev-1"), expected: "orgie:prod:stats:version:ev-1"},
		{name: "stats generation", got: kb.KeyStatsGeneration(), expected: "orgie:prod:stats:generation"},
		{name: "event stats pattern", got: kb.KeyEventStatsAll(), expected: "orgie:prod:stats:event:*"},
		{name: "term generation lock", got: kb.KeyTermGeneration("ev-1"), expected: "orgie:prod:terms:generate:ev-1"},
		{name: "auth rate limit", got: kb.KeyAuthRateLimit("abc"), expected: "orgie:prod:ratelimit:auth:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

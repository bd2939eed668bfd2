package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	switch environment {
	case "development", "staging":
		prefix = "staging"
	case "test":
		prefix = "test"
	}

	return &KeyBuilder{prefix: "orgie:" + prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyEventStats addresses the aggregate of eventID computed at version
func (kb *KeyBuilder) KeyEventStats(eventID, version string) string {
	return kb.BuildKey(fmt.Sprintf(KeyEventStats, eventID, version))
}

func (kb *KeyBuilder) KeyEventStatsVersion(eventID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyEventStatsVersion, eventID))
}

func (kb *KeyBuilder) KeyStatsGeneration() string {
	return kb.BuildKey(KeyStatsGeneration)
}

// KeyEventStatsAll is a SCAN pattern matching every cached stats aggregate
func (kb *KeyBuilder) KeyEventStatsAll() string {
	return kb.BuildKey(KeyEventStatsAll)
}

func (kb *KeyBuilder) KeyTermGeneration(eventID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyTermGeneration, eventID))
}

func (kb *KeyBuilder) KeyAuthRateLimit(ipHash string) string {
	return kb.BuildKey(fmt.Sprintf(KeyAuthRateLimit, ipHash))
}

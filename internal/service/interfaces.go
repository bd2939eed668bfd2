package service

import (
	"context"

	"orgie/internal/domain"
)

// StatsCache stores computed statistics per event
type StatsCache interface {
	// GetStats returns the cached summary for eventID or computes and stores it
	GetStats(ctx context.Context, eventID string, compute func(ctx context.Context) (*domain.StatsSummary, error)) (*domain.StatsSummary, error)

	// InvalidateEvent drops the cached summary of one event
	InvalidateEvent(ctx context.Context, eventID string)

	// InvalidateAll drops every cached summary and reports how many were removed
	InvalidateAll(ctx context.Context) (int, error)
}

// TokenValidator turns an access token into the authenticated principal
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*domain.Principal, error)
}

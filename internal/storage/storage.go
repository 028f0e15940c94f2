// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/launchforge/launchpad-engine/internal/storage/models"
)

// Storage persists the engine's trade and graduation history.
type Storage interface {
	SaveTrade(ctx context.Context, trade *models.Trade) error
	ListTrades(ctx context.Context, curveID string, limit, offset int) ([]*models.Trade, error)

	UpsertGraduation(ctx context.Context, g *models.Graduation) error
	GetGraduation(ctx context.Context, curveID string) (*models.Graduation, error)

	RunMigrations() error
}

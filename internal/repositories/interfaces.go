package repositories

import (
	"context"

	"github.com/openmat/gymlink/pkg/models"
)

// SourceGymRepo defines the interface for source gym repository operations
type SourceGymRepo interface {
	Upsert(ctx context.Context, gym *models.SourceGym) (*models.SourceGym, error)
	Get(ctx context.Context, org models.Org, externalID string) (*models.SourceGym, error)
	ListByOrg(ctx context.Context, org models.Org) ([]models.SourceGym, error)
	ListLinked(ctx context.Context, masterGymID string) ([]models.SourceGym, error)
	ListAllLinked(ctx context.Context) ([]models.SourceGym, error)
	SetMasterGymID(ctx context.Context, org models.Org, externalID string, masterGymID string) error
	ClearMasterGymID(ctx context.Context, org models.Org, externalID string) error
}

// MasterGymRepo defines the interface for master gym repository operations
type MasterGymRepo interface {
	Create(ctx context.Context, master *models.MasterGym) (*models.MasterGym, error)
	Get(ctx context.Context, id string) (*models.MasterGym, error)
	List(ctx context.Context, limit int, offset int) ([]models.MasterGym, error)
	SearchByPrefix(ctx context.Context, prefix string, limit int) ([]models.MasterGym, error)
	Rename(ctx context.Context, id string, canonicalName string) (*models.MasterGym, error)
}

// PendingMatchRepo defines the interface for pending match repository operations
type PendingMatchRepo interface {
	Create(ctx context.Context, match *models.PendingMatch) (*models.PendingMatch, error)
	GetByID(ctx context.Context, id string) (*models.PendingMatch, error)
	ListPending(ctx context.Context, limit int) ([]models.PendingMatch, error)
	Resolve(ctx context.Context, id string, status string, resolvedBy string) (*models.PendingMatch, error)
}

// VenueCacheRepo defines the interface for venue cache repository operations
type VenueCacheRepo interface {
	Get(ctx context.Context, venueKey string) (*models.VenueCacheEntry, error)
	Upsert(ctx context.Context, entry *models.VenueCacheEntry) (*models.VenueCacheEntry, error)
	SetManualOverride(ctx context.Context, venueKey string, lat, lng float64) (*models.VenueCacheEntry, error)
}

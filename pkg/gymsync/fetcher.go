// Package gymsync pulls gym rosters from the federations and resolves
// each record against the master gym registry.
package gymsync

import (
	"context"

	"github.com/openmat/gymlink/pkg/models"
)

// Fetcher pulls the current gym roster from one federation. External
// IDs are trusted to be stable and unique within the fetcher's org.
type Fetcher interface {
	Org() models.Org
	FetchGyms(ctx context.Context) ([]models.SourceGym, error)
}

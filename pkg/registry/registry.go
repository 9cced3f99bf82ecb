// Package registry maintains the master gym records and their links to
// federation source gyms.
package registry

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/openmat/gymlink/internal/repositories"
	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

// EventEmitter is the event surface the registry publishes through.
type EventEmitter interface {
	EmitMasterCreated(ctx context.Context, master *models.MasterGym)
	EmitGymLinked(ctx context.Context, gym *models.SourceGym, masterGymID string, score float64)
	EmitGymUnlinked(ctx context.Context, gym *models.SourceGym, masterGymID string)
}

// GraphProjector mirrors registry state into the graph database.
type GraphProjector interface {
	UpsertMasterGym(ctx context.Context, master *models.MasterGym) error
	UpsertLink(ctx context.Context, gym *models.SourceGym, masterGymID string, score float64) error
	RemoveLink(ctx context.Context, gym *models.SourceGym, masterGymID string) error
}

// Service is the master gym registry. Postgres is the source of truth;
// events and the graph projection are best-effort side effects and
// never fail a registry operation.
type Service struct {
	masters repositories.MasterGymRepo
	sources repositories.SourceGymRepo
	emitter EventEmitter
	graph   GraphProjector
	logger  ectologger.Logger
}

// NewService creates a registry service. emitter and graph may be nil.
func NewService(masters repositories.MasterGymRepo, sources repositories.SourceGymRepo, emitter EventEmitter, graph GraphProjector, logger ectologger.Logger) *Service {
	return &Service{
		masters: masters,
		sources: sources,
		emitter: emitter,
		graph:   graph,
		logger:  logger,
	}
}

// CreateMaster creates a master gym from the request.
func (s *Service) CreateMaster(ctx context.Context, req *models.CreateMasterGymRequest) (*models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Service.CreateMaster")
	defer span.End()

	master := &models.MasterGym{
		CanonicalName: req.CanonicalName,
		City:          req.City,
		Country:       req.Country,
		Address:       req.Address,
		Website:       req.Website,
	}

	created, err := s.masters.Create(ctx, master)
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"master_gym_id":  created.ID,
		"canonical_name": created.CanonicalName,
	}).Info("Created master gym")

	if s.emitter != nil {
		s.emitter.EmitMasterCreated(ctx, created)
	}
	s.projectMaster(ctx, created)

	return created, nil
}

// CreateMasterFromSource creates a master gym seeded with a source
// gym's own details and links the source to it.
func (s *Service) CreateMasterFromSource(ctx context.Context, gym *models.SourceGym) (*models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Service.CreateMasterFromSource")
	defer span.End()

	master, err := s.CreateMaster(ctx, &models.CreateMasterGymRequest{
		CanonicalName: gym.Name,
		City:          gym.City,
		Country:       gym.Country,
		Address:       gym.Address,
		Website:       gym.Website,
	})
	if err != nil {
		return nil, err
	}

	if err := s.LinkGym(ctx, gym.Org, gym.ExternalID, master.ID, 100); err != nil {
		return nil, err
	}

	return master, nil
}

// GetMaster retrieves a master gym by ID
func (s *Service) GetMaster(ctx context.Context, id string) (*models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Service.GetMaster")
	defer span.End()

	return s.masters.Get(ctx, id)
}

// ListMasters retrieves master gyms ordered by canonical name
func (s *Service) ListMasters(ctx context.Context, limit, offset int) ([]models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Service.ListMasters")
	defer span.End()

	return s.masters.List(ctx, limit, offset)
}

// SearchMasters finds master gyms by canonical name prefix.
func (s *Service) SearchMasters(ctx context.Context, prefix string, limit int) ([]models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Service.SearchMasters")
	defer span.End()

	return s.masters.SearchByPrefix(ctx, prefix, limit)
}

// RenameMaster updates a master gym's canonical name. The search key
// follows the name atomically in the repository.
func (s *Service) RenameMaster(ctx context.Context, id string, req *models.RenameMasterGymRequest) (*models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Service.RenameMaster")
	defer span.End()

	renamed, err := s.masters.Rename(ctx, id, req.CanonicalName)
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"master_gym_id":  renamed.ID,
		"canonical_name": renamed.CanonicalName,
	}).Info("Renamed master gym")

	s.projectMaster(ctx, renamed)

	return renamed, nil
}

// LinkGym links a source gym to a master gym. Linking an already-linked
// gym to a different master is a conflict; re-linking to the same
// master is a no-op.
func (s *Service) LinkGym(ctx context.Context, org models.Org, externalID string, masterGymID string, score float64) error {
	ctx, span := tracing.StartSpan(ctx, "registry.Service.LinkGym")
	defer span.End()

	gym, err := s.sources.Get(ctx, org, externalID)
	if err != nil {
		return err
	}

	if gym.IsLinked() {
		if *gym.MasterGymID == masterGymID {
			return nil
		}
		return httperror.NewHTTPError(http.StatusConflict, "source gym is already linked to a different master gym")
	}

	if _, err := s.masters.Get(ctx, masterGymID); err != nil {
		return err
	}

	if err := s.sources.SetMasterGymID(ctx, org, externalID, masterGymID); err != nil {
		return err
	}
	gym.MasterGymID = &masterGymID

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"org":           org,
		"external_id":   externalID,
		"master_gym_id": masterGymID,
		"score":         score,
	}).Info("Linked source gym to master gym")

	if s.emitter != nil {
		s.emitter.EmitGymLinked(ctx, gym, masterGymID, score)
	}
	if s.graph != nil {
		if err := s.graph.UpsertLink(ctx, gym, masterGymID, score); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Graph link projection failed")
		}
	}

	return nil
}

// UnlinkGym removes a source gym's master gym link.
func (s *Service) UnlinkGym(ctx context.Context, org models.Org, externalID string) error {
	ctx, span := tracing.StartSpan(ctx, "registry.Service.UnlinkGym")
	defer span.End()

	gym, err := s.sources.Get(ctx, org, externalID)
	if err != nil {
		return err
	}

	if !gym.IsLinked() {
		return httperror.NewHTTPError(http.StatusConflict, "source gym is not linked to a master gym")
	}
	masterGymID := *gym.MasterGymID

	if err := s.sources.ClearMasterGymID(ctx, org, externalID); err != nil {
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"org":           org,
		"external_id":   externalID,
		"master_gym_id": masterGymID,
	}).Info("Unlinked source gym from master gym")

	if s.emitter != nil {
		s.emitter.EmitGymUnlinked(ctx, gym, masterGymID)
	}
	if s.graph != nil {
		if err := s.graph.RemoveLink(ctx, gym, masterGymID); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Graph unlink projection failed")
		}
	}

	return nil
}

// ListLinkedSources retrieves the source gyms linked to a master gym.
// The master must exist even when it has no links yet.
func (s *Service) ListLinkedSources(ctx context.Context, masterGymID string) ([]models.SourceGym, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Service.ListLinkedSources")
	defer span.End()

	if _, err := s.masters.Get(ctx, masterGymID); err != nil {
		return nil, err
	}

	return s.sources.ListLinked(ctx, masterGymID)
}

func (s *Service) projectMaster(ctx context.Context, master *models.MasterGym) {
	if s.graph == nil {
		return
	}
	if err := s.graph.UpsertMasterGym(ctx, master); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Graph master projection failed")
	}
}

package gymsync

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/openmat/gymlink/internal/repositories"
	"github.com/openmat/gymlink/pkg/matching"
	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

// Registry is the registry surface the orchestrator drives.
type Registry interface {
	LinkGym(ctx context.Context, org models.Org, externalID string, masterGymID string, score float64) error
	CreateMasterFromSource(ctx context.Context, gym *models.SourceGym) (*models.MasterGym, error)
}

// MatchEmitter publishes pending match notifications.
type MatchEmitter interface {
	EmitMatchPending(ctx context.Context, match *models.PendingMatch)
}

// Orchestrator runs the sync pipeline: fetch each federation's roster,
// upsert the records, and route every unlinked gym through the match
// decision policy.
type Orchestrator struct {
	fetchers []Fetcher
	sources  repositories.SourceGymRepo
	pending  repositories.PendingMatchRepo
	registry Registry
	matcher  *matching.Service
	emitter  MatchEmitter
	logger   ectologger.Logger
}

// NewOrchestrator creates a sync orchestrator. emitter may be nil.
func NewOrchestrator(
	fetchers []Fetcher,
	sources repositories.SourceGymRepo,
	pending repositories.PendingMatchRepo,
	registry Registry,
	matcher *matching.Service,
	emitter MatchEmitter,
	logger ectologger.Logger,
) *Orchestrator {
	return &Orchestrator{
		fetchers: fetchers,
		sources:  sources,
		pending:  pending,
		registry: registry,
		matcher:  matcher,
		emitter:  emitter,
		logger:   logger,
	}
}

// SyncAll syncs every federation concurrently and aggregates the
// per-source reports. A source that fails is reported and isolated; it
// never aborts the others.
func (o *Orchestrator) SyncAll(ctx context.Context) *models.SyncReport {
	ctx, span := tracing.StartSpan(ctx, "gymsync.Orchestrator.SyncAll")
	defer span.End()

	report := &models.SyncReport{
		StartedAt: time.Now().UTC(),
		Sources:   make([]models.SourceReport, len(o.fetchers)),
	}

	var wg sync.WaitGroup
	for i, fetcher := range o.fetchers {
		wg.Add(1)
		go func(i int, fetcher Fetcher) {
			defer wg.Done()
			report.Sources[i] = o.SyncSource(ctx, fetcher)
		}(i, fetcher)
	}
	wg.Wait()

	report.FinishedAt = time.Now().UTC()

	o.logger.WithContext(ctx).WithFields(map[string]any{
		"sources":  len(report.Sources),
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
		"errors":   report.HasErrors(),
	}).Info("Sync run finished")

	return report
}

// SyncSource syncs a single federation's roster.
func (o *Orchestrator) SyncSource(ctx context.Context, fetcher Fetcher) models.SourceReport {
	ctx, span := tracing.StartSpan(ctx, "gymsync.Orchestrator.SyncSource")
	defer span.End()

	start := time.Now()
	report := models.SourceReport{Org: fetcher.Org()}
	log := o.logger.WithContext(ctx).WithFields(map[string]any{"org": fetcher.Org()})

	gyms, err := fetcher.FetchGyms(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to fetch gym roster")
		report.Error = err.Error()
		report.Duration = time.Since(start)
		return report
	}
	report.Fetched = len(gyms)

	pool, err := o.sources.ListAllLinked(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load match candidate pool")
		report.Error = err.Error()
		report.Duration = time.Since(start)
		return report
	}

	for i := range gyms {
		gym := gyms[i]
		gym.Org = fetcher.Org()

		if err := o.processGym(ctx, &gym, &pool, &report); err != nil {
			log.WithError(err).WithFields(map[string]any{
				"external_id": gym.ExternalID,
			}).Error("Failed to process gym")
			report.Error = err.Error()
			break
		}
	}

	report.Duration = time.Since(start)
	log.WithFields(map[string]any{
		"fetched":     report.Fetched,
		"saved":       report.Saved,
		"skipped":     report.Skipped,
		"auto_linked": report.AutoLinked,
		"pending":     report.Pending,
		"created":     report.Created,
		"duration":    report.Duration.String(),
	}).Info("Synced source")

	return report
}

// processGym routes one fetched gym through the decision policy. An
// already-linked gym is refreshed and skipped. Otherwise the best match
// against the linked pool decides: auto-link, queue for review, or
// mint a new master gym. Gyms linked during this run join the pool so
// later records can match them.
func (o *Orchestrator) processGym(ctx context.Context, gym *models.SourceGym, pool *[]models.SourceGym, report *models.SourceReport) error {
	saved, err := o.sources.Upsert(ctx, gym)
	if err != nil {
		return err
	}
	report.Saved++

	if saved.IsLinked() {
		report.Skipped++
		return nil
	}

	matches := o.matcher.FindMatches(*saved, *pool)
	if len(matches) == 0 {
		return o.createMaster(ctx, saved, pool, report)
	}

	best := matches[0]
	switch o.matcher.Classify(best.Score) {
	case matching.OutcomeAutoLink:
		if err := o.registry.LinkGym(ctx, saved.Org, saved.ExternalID, *best.Gym.MasterGymID, best.Score); err != nil {
			return err
		}
		saved.MasterGymID = best.Gym.MasterGymID
		*pool = append(*pool, *saved)
		report.AutoLinked++
		return nil

	case matching.OutcomePending:
		match := &models.PendingMatch{
			Org:                  saved.Org,
			SourceExternalID:     saved.ExternalID,
			SourceName:           saved.Name,
			CandidateMasterGymID: best.Gym.MasterGymID,
			Score:                best.Score,
		}
		created, err := o.pending.Create(ctx, match)
		if err != nil {
			return err
		}
		if o.emitter != nil {
			o.emitter.EmitMatchPending(ctx, created)
		}
		report.Pending++
		return nil

	default:
		return o.createMaster(ctx, saved, pool, report)
	}
}

func (o *Orchestrator) createMaster(ctx context.Context, gym *models.SourceGym, pool *[]models.SourceGym, report *models.SourceReport) error {
	master, err := o.registry.CreateMasterFromSource(ctx, gym)
	if err != nil {
		return err
	}
	gym.MasterGymID = &master.ID
	*pool = append(*pool, *gym)
	report.Created++
	return nil
}

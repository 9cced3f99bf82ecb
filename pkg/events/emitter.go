// Package events handles event emission for gym identity lifecycle
// changes.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

const (
	EventMasterCreated = "master.created"
	EventGymLinked     = "gym.linked"
	EventGymUnlinked   = "gym.unlinked"
	EventMatchPending  = "match.pending"
	EventMatchApproved = "match.approved"
	EventMatchRejected = "match.rejected"
)

// MasterGymEvent describes a change to a master gym record.
type MasterGymEvent struct {
	EventType     string    `json:"event_type"`
	MasterGymID   string    `json:"master_gym_id"`
	CanonicalName string    `json:"canonical_name"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
}

// LinkEvent describes a source gym being linked to or unlinked from a
// master gym.
type LinkEvent struct {
	EventType        string     `json:"event_type"`
	Org              models.Org `json:"org"`
	SourceExternalID string     `json:"source_external_id"`
	MasterGymID      string     `json:"master_gym_id"`
	Score            float64    `json:"score,omitempty"`
	SchemaVersion    string     `json:"schema_version"`
	Timestamp        time.Time  `json:"timestamp"`
}

// MatchEvent describes a pending match lifecycle change.
type MatchEvent struct {
	EventType        string     `json:"event_type"`
	PendingMatchID   string     `json:"pending_match_id"`
	Org              models.Org `json:"org"`
	SourceExternalID string     `json:"source_external_id"`
	MasterGymID      string     `json:"master_gym_id,omitempty"`
	Score            float64    `json:"score"`
	ReviewedBy       string     `json:"reviewed_by,omitempty"`
	SchemaVersion    string     `json:"schema_version"`
	Timestamp        time.Time  `json:"timestamp"`
}

// Publisher is the producer surface the emitter needs.
type Publisher interface {
	Publish(ctx context.Context, key string, eventType string, payload []byte) error
}

// Emitter publishes gym identity events. Emission failures are logged
// but never fail the operation that triggered them.
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitMasterCreated emits a master.created event
func (e *Emitter) EmitMasterCreated(ctx context.Context, master *models.MasterGym) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMasterCreated")
	defer span.End()

	event := &MasterGymEvent{
		EventType:     EventMasterCreated,
		MasterGymID:   master.ID,
		CanonicalName: master.CanonicalName,
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC(),
	}

	e.publish(ctx, master.ID, event.EventType, event)
}

// EmitGymLinked emits a gym.linked event
func (e *Emitter) EmitGymLinked(ctx context.Context, gym *models.SourceGym, masterGymID string, score float64) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitGymLinked")
	defer span.End()

	event := &LinkEvent{
		EventType:        EventGymLinked,
		Org:              gym.Org,
		SourceExternalID: gym.ExternalID,
		MasterGymID:      masterGymID,
		Score:            score,
		SchemaVersion:    SchemaVersion,
		Timestamp:        time.Now().UTC(),
	}

	e.publish(ctx, masterGymID, event.EventType, event)
}

// EmitGymUnlinked emits a gym.unlinked event
func (e *Emitter) EmitGymUnlinked(ctx context.Context, gym *models.SourceGym, masterGymID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitGymUnlinked")
	defer span.End()

	event := &LinkEvent{
		EventType:        EventGymUnlinked,
		Org:              gym.Org,
		SourceExternalID: gym.ExternalID,
		MasterGymID:      masterGymID,
		SchemaVersion:    SchemaVersion,
		Timestamp:        time.Now().UTC(),
	}

	e.publish(ctx, masterGymID, event.EventType, event)
}

// EmitMatchPending emits a match.pending event
func (e *Emitter) EmitMatchPending(ctx context.Context, match *models.PendingMatch) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchPending")
	defer span.End()

	event := &MatchEvent{
		EventType:        EventMatchPending,
		PendingMatchID:   match.ID,
		Org:              match.Org,
		SourceExternalID: match.SourceExternalID,
		Score:            match.Score,
		SchemaVersion:    SchemaVersion,
		Timestamp:        time.Now().UTC(),
	}
	if match.CandidateMasterGymID != nil {
		event.MasterGymID = *match.CandidateMasterGymID
	}

	e.publish(ctx, match.ID, event.EventType, event)
}

// EmitMatchResolved emits a match.approved or match.rejected event
// depending on the resolved status.
func (e *Emitter) EmitMatchResolved(ctx context.Context, match *models.PendingMatch, reviewedBy string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchResolved")
	defer span.End()

	eventType := EventMatchRejected
	if match.Status == models.PendingMatchStatusApproved {
		eventType = EventMatchApproved
	}

	event := &MatchEvent{
		EventType:        eventType,
		PendingMatchID:   match.ID,
		Org:              match.Org,
		SourceExternalID: match.SourceExternalID,
		Score:            match.Score,
		ReviewedBy:       reviewedBy,
		SchemaVersion:    SchemaVersion,
		Timestamp:        time.Now().UTC(),
	}
	if match.CandidateMasterGymID != nil {
		event.MasterGymID = *match.CandidateMasterGymID
	}

	e.publish(ctx, match.ID, eventType, event)
}

func (e *Emitter) publish(ctx context.Context, key string, eventType string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to marshal %s event", eventType)
		return
	}

	if err := e.producer.Publish(ctx, key, eventType, payload); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
	}
}

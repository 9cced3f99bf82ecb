package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openmat/gymlink/pkg/models"
)

func testLogger() ectologger.Logger {
	return zapadapter.NewZapEctoLogger(zap.NewNop(), nil)
}

type publishedMessage struct {
	key       string
	eventType string
	payload   []byte
}

type recordingPublisher struct {
	messages []publishedMessage
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, key, eventType string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMessage{key: key, eventType: eventType, payload: payload})
	return nil
}

func TestEmitMasterCreated(t *testing.T) {
	publisher := &recordingPublisher{}
	emitter := NewEmitter(publisher, testLogger())

	emitter.EmitMasterCreated(context.Background(), &models.MasterGym{
		ID:            "master-1",
		CanonicalName: "Gracie Barra",
	})

	require.Len(t, publisher.messages, 1)
	msg := publisher.messages[0]
	assert.Equal(t, "master-1", msg.key)
	assert.Equal(t, EventMasterCreated, msg.eventType)

	var event MasterGymEvent
	require.NoError(t, json.Unmarshal(msg.payload, &event))
	assert.Equal(t, EventMasterCreated, event.EventType)
	assert.Equal(t, "master-1", event.MasterGymID)
	assert.Equal(t, "Gracie Barra", event.CanonicalName)
	assert.Equal(t, SchemaVersion, event.SchemaVersion)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEmitGymLinked(t *testing.T) {
	publisher := &recordingPublisher{}
	emitter := NewEmitter(publisher, testLogger())

	emitter.EmitGymLinked(context.Background(), &models.SourceGym{
		Org:        models.OrgIBJJF,
		ExternalID: "gb-1",
	}, "master-1", 92.5)

	require.Len(t, publisher.messages, 1)
	msg := publisher.messages[0]
	assert.Equal(t, "master-1", msg.key)
	assert.Equal(t, EventGymLinked, msg.eventType)

	var event LinkEvent
	require.NoError(t, json.Unmarshal(msg.payload, &event))
	assert.Equal(t, models.OrgIBJJF, event.Org)
	assert.Equal(t, "gb-1", event.SourceExternalID)
	assert.Equal(t, "master-1", event.MasterGymID)
	assert.Equal(t, 92.5, event.Score)
}

func TestEmitMatchResolved(t *testing.T) {
	candidate := "master-1"

	t.Run("should emit match.approved for an approved match", func(t *testing.T) {
		publisher := &recordingPublisher{}
		emitter := NewEmitter(publisher, testLogger())

		emitter.EmitMatchResolved(context.Background(), &models.PendingMatch{
			ID:                   "match-1",
			Org:                  models.OrgJJWL,
			SourceExternalID:     "al-1",
			CandidateMasterGymID: &candidate,
			Score:                78,
			Status:               models.PendingMatchStatusApproved,
		}, "reviewer-9")

		require.Len(t, publisher.messages, 1)
		assert.Equal(t, EventMatchApproved, publisher.messages[0].eventType)

		var event MatchEvent
		require.NoError(t, json.Unmarshal(publisher.messages[0].payload, &event))
		assert.Equal(t, "master-1", event.MasterGymID)
		assert.Equal(t, "reviewer-9", event.ReviewedBy)
	})

	t.Run("should emit match.rejected for a rejected match", func(t *testing.T) {
		publisher := &recordingPublisher{}
		emitter := NewEmitter(publisher, testLogger())

		emitter.EmitMatchResolved(context.Background(), &models.PendingMatch{
			ID:               "match-1",
			Org:              models.OrgJJWL,
			SourceExternalID: "al-1",
			Score:            78,
			Status:           models.PendingMatchStatusRejected,
		}, "reviewer-9")

		require.Len(t, publisher.messages, 1)
		assert.Equal(t, EventMatchRejected, publisher.messages[0].eventType)
	})
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	emitter := NewEmitter(publisher, testLogger())

	// Must not panic or surface the error to the caller.
	emitter.EmitMasterCreated(context.Background(), &models.MasterGym{ID: "master-1"})
	emitter.EmitGymUnlinked(context.Background(), &models.SourceGym{Org: models.OrgIBJJF, ExternalID: "gb-1"}, "master-1")
}

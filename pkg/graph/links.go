package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

// LinkProjection mirrors master gym / source gym link state into the
// graph. Nodes are keyed by master id and (org, external_id); links are
// LINKED_TO edges from source to master.
type LinkProjection struct {
	client *Client
	logger ectologger.Logger
}

// NewLinkProjection creates a new link projection
func NewLinkProjection(client *Client, logger ectologger.Logger) *LinkProjection {
	return &LinkProjection{
		client: client,
		logger: logger,
	}
}

// UpsertMasterGym creates or updates a master gym node
func (p *LinkProjection) UpsertMasterGym(ctx context.Context, master *models.MasterGym) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkProjection.UpsertMasterGym")
	defer span.End()

	cypher := `
		MERGE (m:MasterGym {id: $id})
		SET m.canonical_name = $canonical_name,
		    m.search_key = $search_key
		RETURN m
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":             master.ID,
			"canonical_name": master.CanonicalName,
			"search_key":     master.SearchKey,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"master_gym_id": master.ID,
		}).Error("Failed to upsert master gym node")
		return fmt.Errorf("failed to upsert master gym node: %w", err)
	}

	return nil
}

// UpsertLink creates the source gym node if needed and merges its
// LINKED_TO edge to the master gym node.
func (p *LinkProjection) UpsertLink(ctx context.Context, gym *models.SourceGym, masterGymID string, score float64) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkProjection.UpsertLink")
	defer span.End()

	cypher := `
		MERGE (s:SourceGym {org: $org, external_id: $external_id})
		SET s.name = $name,
		    s.city = $city
		WITH s
		MATCH (m:MasterGym {id: $master_gym_id})
		MERGE (s)-[r:LINKED_TO]->(m)
		SET r.score = $score
		RETURN r
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"org":           string(gym.Org),
			"external_id":   gym.ExternalID,
			"name":          gym.Name,
			"city":          gym.CityOrEmpty(),
			"master_gym_id": masterGymID,
			"score":         score,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"org":           gym.Org,
			"external_id":   gym.ExternalID,
			"master_gym_id": masterGymID,
		}).Error("Failed to upsert gym link edge")
		return fmt.Errorf("failed to upsert gym link edge: %w", err)
	}

	return nil
}

// RemoveLink deletes the LINKED_TO edge between a source gym and a
// master gym. The nodes stay behind.
func (p *LinkProjection) RemoveLink(ctx context.Context, gym *models.SourceGym, masterGymID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkProjection.RemoveLink")
	defer span.End()

	cypher := `
		MATCH (s:SourceGym {org: $org, external_id: $external_id})-[r:LINKED_TO]->(m:MasterGym {id: $master_gym_id})
		DELETE r
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"org":           string(gym.Org),
			"external_id":   gym.ExternalID,
			"master_gym_id": masterGymID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"org":           gym.Org,
			"external_id":   gym.ExternalID,
			"master_gym_id": masterGymID,
		}).Error("Failed to remove gym link edge")
		return fmt.Errorf("failed to remove gym link edge: %w", err)
	}

	return nil
}

// LinkedSources returns the org/external_id pairs linked to a master
// gym in the projection.
func (p *LinkProjection) LinkedSources(ctx context.Context, masterGymID string) ([]models.SourceRef, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkProjection.LinkedSources")
	defer span.End()

	cypher := `
		MATCH (s:SourceGym)-[:LINKED_TO]->(m:MasterGym {id: $master_gym_id})
		RETURN s.org AS org, s.external_id AS external_id
		ORDER BY org, external_id
	`

	result, err := p.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"master_gym_id": masterGymID,
		})
		if err != nil {
			return nil, err
		}

		var refs []models.SourceRef
		for res.Next(ctx) {
			record := res.Record()
			org, _ := record.Get("org")
			externalID, _ := record.Get("external_id")
			refs = append(refs, models.SourceRef{
				Org:        models.Org(fmt.Sprint(org)),
				ExternalID: fmt.Sprint(externalID),
			})
		}
		return refs, res.Err()
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"master_gym_id": masterGymID,
		}).Error("Failed to read linked sources")
		return nil, fmt.Errorf("failed to read linked sources: %w", err)
	}

	refs, _ := result.([]models.SourceRef)
	return refs, nil
}

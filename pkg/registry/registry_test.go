package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
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

type fakeMasterRepo struct {
	masters map[string]*models.MasterGym
	nextID  int
}

func newFakeMasterRepo() *fakeMasterRepo {
	return &fakeMasterRepo{masters: map[string]*models.MasterGym{}}
}

func (r *fakeMasterRepo) Create(ctx context.Context, master *models.MasterGym) (*models.MasterGym, error) {
	r.nextID++
	created := *master
	created.ID = fmt.Sprintf("master-%d", r.nextID)
	r.masters[created.ID] = &created
	return &created, nil
}

func (r *fakeMasterRepo) Get(ctx context.Context, id string) (*models.MasterGym, error) {
	master, ok := r.masters[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "master gym not found")
	}
	return master, nil
}

func (r *fakeMasterRepo) List(ctx context.Context, limit, offset int) ([]models.MasterGym, error) {
	out := make([]models.MasterGym, 0, len(r.masters))
	for _, m := range r.masters {
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeMasterRepo) SearchByPrefix(ctx context.Context, prefix string, limit int) ([]models.MasterGym, error) {
	return nil, nil
}

func (r *fakeMasterRepo) Rename(ctx context.Context, id, canonicalName string) (*models.MasterGym, error) {
	master, ok := r.masters[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "master gym not found")
	}
	master.CanonicalName = canonicalName
	return master, nil
}

type fakeSourceRepo struct {
	gyms map[string]*models.SourceGym
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{gyms: map[string]*models.SourceGym{}}
}

func sourceKey(org models.Org, externalID string) string {
	return string(org) + "/" + externalID
}

func (r *fakeSourceRepo) add(gym models.SourceGym) {
	r.gyms[sourceKey(gym.Org, gym.ExternalID)] = &gym
}

func (r *fakeSourceRepo) Upsert(ctx context.Context, gym *models.SourceGym) (*models.SourceGym, error) {
	r.add(*gym)
	return r.gyms[sourceKey(gym.Org, gym.ExternalID)], nil
}

func (r *fakeSourceRepo) Get(ctx context.Context, org models.Org, externalID string) (*models.SourceGym, error) {
	gym, ok := r.gyms[sourceKey(org, externalID)]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "source gym not found")
	}
	copied := *gym
	return &copied, nil
}

func (r *fakeSourceRepo) ListByOrg(ctx context.Context, org models.Org) ([]models.SourceGym, error) {
	return nil, nil
}

func (r *fakeSourceRepo) ListLinked(ctx context.Context, masterGymID string) ([]models.SourceGym, error) {
	out := []models.SourceGym{}
	for _, gym := range r.gyms {
		if gym.MasterGymID != nil && *gym.MasterGymID == masterGymID {
			out = append(out, *gym)
		}
	}
	return out, nil
}

func (r *fakeSourceRepo) ListAllLinked(ctx context.Context) ([]models.SourceGym, error) {
	out := []models.SourceGym{}
	for _, gym := range r.gyms {
		if gym.IsLinked() {
			out = append(out, *gym)
		}
	}
	return out, nil
}

func (r *fakeSourceRepo) SetMasterGymID(ctx context.Context, org models.Org, externalID, masterGymID string) error {
	gym, ok := r.gyms[sourceKey(org, externalID)]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "source gym not found")
	}
	gym.MasterGymID = &masterGymID
	return nil
}

func (r *fakeSourceRepo) ClearMasterGymID(ctx context.Context, org models.Org, externalID string) error {
	gym, ok := r.gyms[sourceKey(org, externalID)]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "source gym not found")
	}
	gym.MasterGymID = nil
	return nil
}

type recordedEvent struct {
	eventType   string
	masterGymID string
	score       float64
}

type recordingEmitter struct {
	events []recordedEvent
}

func (e *recordingEmitter) EmitMasterCreated(ctx context.Context, master *models.MasterGym) {
	e.events = append(e.events, recordedEvent{eventType: "master.created", masterGymID: master.ID})
}

func (e *recordingEmitter) EmitGymLinked(ctx context.Context, gym *models.SourceGym, masterGymID string, score float64) {
	e.events = append(e.events, recordedEvent{eventType: "gym.linked", masterGymID: masterGymID, score: score})
}

func (e *recordingEmitter) EmitGymUnlinked(ctx context.Context, gym *models.SourceGym, masterGymID string) {
	e.events = append(e.events, recordedEvent{eventType: "gym.unlinked", masterGymID: masterGymID})
}

type failingProjector struct {
	calls int
}

func (p *failingProjector) UpsertMasterGym(ctx context.Context, master *models.MasterGym) error {
	p.calls++
	return errors.New("graph down")
}

func (p *failingProjector) UpsertLink(ctx context.Context, gym *models.SourceGym, masterGymID string, score float64) error {
	p.calls++
	return errors.New("graph down")
}

func (p *failingProjector) RemoveLink(ctx context.Context, gym *models.SourceGym, masterGymID string) error {
	p.calls++
	return errors.New("graph down")
}

func TestCreateMaster(t *testing.T) {
	masters := newFakeMasterRepo()
	sources := newFakeSourceRepo()
	emitter := &recordingEmitter{}
	svc := NewService(masters, sources, emitter, nil, testLogger())

	created, err := svc.CreateMaster(context.Background(), &models.CreateMasterGymRequest{
		CanonicalName: "Gracie Barra",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Gracie Barra", created.CanonicalName)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, "master.created", emitter.events[0].eventType)
	assert.Equal(t, created.ID, emitter.events[0].masterGymID)
}

func TestCreateMasterFromSource(t *testing.T) {
	masters := newFakeMasterRepo()
	sources := newFakeSourceRepo()
	emitter := &recordingEmitter{}
	svc := NewService(masters, sources, emitter, nil, testLogger())

	city := "Miami"
	sources.add(models.SourceGym{Org: models.OrgIBJJF, ExternalID: "gb-1", Name: "Gracie Barra Miami", City: &city})

	master, err := svc.CreateMasterFromSource(context.Background(), &models.SourceGym{
		Org: models.OrgIBJJF, ExternalID: "gb-1", Name: "Gracie Barra Miami", City: &city,
	})

	require.NoError(t, err)
	assert.Equal(t, "Gracie Barra Miami", master.CanonicalName)

	gym, err := sources.Get(context.Background(), models.OrgIBJJF, "gb-1")
	require.NoError(t, err)
	require.True(t, gym.IsLinked())
	assert.Equal(t, master.ID, *gym.MasterGymID)

	require.Len(t, emitter.events, 2)
	assert.Equal(t, "master.created", emitter.events[0].eventType)
	assert.Equal(t, "gym.linked", emitter.events[1].eventType)
	assert.Equal(t, 100.0, emitter.events[1].score)
}

func TestLinkGym(t *testing.T) {
	ctx := context.Background()

	setup := func() (*Service, *fakeMasterRepo, *fakeSourceRepo, *recordingEmitter) {
		masters := newFakeMasterRepo()
		sources := newFakeSourceRepo()
		emitter := &recordingEmitter{}
		svc := NewService(masters, sources, emitter, nil, testLogger())
		return svc, masters, sources, emitter
	}

	t.Run("should link an unlinked gym", func(t *testing.T) {
		svc, masters, sources, emitter := setup()
		master, _ := masters.Create(ctx, &models.MasterGym{CanonicalName: "Alliance"})
		sources.add(models.SourceGym{Org: models.OrgJJWL, ExternalID: "al-1", Name: "Alliance"})

		err := svc.LinkGym(ctx, models.OrgJJWL, "al-1", master.ID, 92.5)
		require.NoError(t, err)

		gym, err := sources.Get(ctx, models.OrgJJWL, "al-1")
		require.NoError(t, err)
		require.True(t, gym.IsLinked())
		assert.Equal(t, master.ID, *gym.MasterGymID)

		require.Len(t, emitter.events, 1)
		assert.Equal(t, "gym.linked", emitter.events[0].eventType)
		assert.Equal(t, 92.5, emitter.events[0].score)
	})

	t.Run("should be a no-op when already linked to the same master", func(t *testing.T) {
		svc, masters, sources, emitter := setup()
		master, _ := masters.Create(ctx, &models.MasterGym{CanonicalName: "Alliance"})
		sources.add(models.SourceGym{Org: models.OrgJJWL, ExternalID: "al-1", Name: "Alliance", MasterGymID: &master.ID})

		err := svc.LinkGym(ctx, models.OrgJJWL, "al-1", master.ID, 92.5)
		require.NoError(t, err)
		assert.Empty(t, emitter.events)
	})

	t.Run("should conflict when already linked to a different master", func(t *testing.T) {
		svc, masters, sources, _ := setup()
		first, _ := masters.Create(ctx, &models.MasterGym{CanonicalName: "Alliance"})
		second, _ := masters.Create(ctx, &models.MasterGym{CanonicalName: "Alliance SP"})
		sources.add(models.SourceGym{Org: models.OrgJJWL, ExternalID: "al-1", Name: "Alliance", MasterGymID: &first.ID})

		err := svc.LinkGym(ctx, models.OrgJJWL, "al-1", second.ID, 92.5)
		require.Error(t, err)
		assert.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})

	t.Run("should fail when the master gym does not exist", func(t *testing.T) {
		svc, _, sources, _ := setup()
		sources.add(models.SourceGym{Org: models.OrgJJWL, ExternalID: "al-1", Name: "Alliance"})

		err := svc.LinkGym(ctx, models.OrgJJWL, "al-1", "missing", 92.5)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))

		gym, err := sources.Get(ctx, models.OrgJJWL, "al-1")
		require.NoError(t, err)
		assert.False(t, gym.IsLinked())
	})

	t.Run("should fail when the source gym does not exist", func(t *testing.T) {
		svc, masters, _, _ := setup()
		master, _ := masters.Create(ctx, &models.MasterGym{CanonicalName: "Alliance"})

		err := svc.LinkGym(ctx, models.OrgJJWL, "missing", master.ID, 92.5)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("should succeed even when the graph projection fails", func(t *testing.T) {
		masters := newFakeMasterRepo()
		sources := newFakeSourceRepo()
		projector := &failingProjector{}
		svc := NewService(masters, sources, nil, projector, testLogger())

		master, _ := masters.Create(ctx, &models.MasterGym{CanonicalName: "Alliance"})
		sources.add(models.SourceGym{Org: models.OrgJJWL, ExternalID: "al-1", Name: "Alliance"})

		err := svc.LinkGym(ctx, models.OrgJJWL, "al-1", master.ID, 92.5)
		require.NoError(t, err)
		assert.Equal(t, 1, projector.calls)
	})
}

func TestUnlinkGym(t *testing.T) {
	ctx := context.Background()

	t.Run("should unlink a linked gym", func(t *testing.T) {
		masters := newFakeMasterRepo()
		sources := newFakeSourceRepo()
		emitter := &recordingEmitter{}
		svc := NewService(masters, sources, emitter, nil, testLogger())

		master, _ := masters.Create(ctx, &models.MasterGym{CanonicalName: "Alliance"})
		sources.add(models.SourceGym{Org: models.OrgJJWL, ExternalID: "al-1", Name: "Alliance", MasterGymID: &master.ID})

		err := svc.UnlinkGym(ctx, models.OrgJJWL, "al-1")
		require.NoError(t, err)

		gym, err := sources.Get(ctx, models.OrgJJWL, "al-1")
		require.NoError(t, err)
		assert.False(t, gym.IsLinked())

		require.Len(t, emitter.events, 1)
		assert.Equal(t, "gym.unlinked", emitter.events[0].eventType)
		assert.Equal(t, master.ID, emitter.events[0].masterGymID)
	})

	t.Run("should conflict when the gym is not linked", func(t *testing.T) {
		masters := newFakeMasterRepo()
		sources := newFakeSourceRepo()
		svc := NewService(masters, sources, nil, nil, testLogger())

		sources.add(models.SourceGym{Org: models.OrgJJWL, ExternalID: "al-1", Name: "Alliance"})

		err := svc.UnlinkGym(ctx, models.OrgJJWL, "al-1")
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})
}

func TestListLinkedSources(t *testing.T) {
	ctx := context.Background()
	masters := newFakeMasterRepo()
	sources := newFakeSourceRepo()
	svc := NewService(masters, sources, nil, nil, testLogger())

	master, _ := masters.Create(ctx, &models.MasterGym{CanonicalName: "Alliance"})
	sources.add(models.SourceGym{Org: models.OrgJJWL, ExternalID: "al-1", Name: "Alliance", MasterGymID: &master.ID})
	sources.add(models.SourceGym{Org: models.OrgIBJJF, ExternalID: "al-2", Name: "Alliance HQ", MasterGymID: &master.ID})
	sources.add(models.SourceGym{Org: models.OrgIBJJF, ExternalID: "zr-1", Name: "ZR Team"})

	linked, err := svc.ListLinkedSources(ctx, master.ID)
	require.NoError(t, err)
	assert.Len(t, linked, 2)

	t.Run("should fail for an unknown master", func(t *testing.T) {
		_, err := svc.ListLinkedSources(ctx, "missing")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

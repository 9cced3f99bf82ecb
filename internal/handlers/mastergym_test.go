package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/registry"
)

type fakeGraphSources struct {
	refs map[string][]models.SourceRef
}

func (g *fakeGraphSources) LinkedSources(ctx context.Context, masterGymID string) ([]models.SourceRef, error) {
	return g.refs[masterGymID], nil
}

func getSourcesGraph(t *testing.T, h *MasterGymHandler, masterID string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(masterID)

	return rec, h.ListSourcesGraph(c)
}

func TestListSourcesGraph(t *testing.T) {
	masters := newFakeMasterRepo()
	reg := registry.NewService(masters, newFakeSourceRepo(), nil, nil, testLogger())
	master, err := masters.Create(context.Background(), &models.MasterGym{CanonicalName: "Gracie Barra"})
	require.NoError(t, err)

	graph := &fakeGraphSources{refs: map[string][]models.SourceRef{
		master.ID: {
			{Org: models.OrgIBJJF, ExternalID: "gb-1"},
			{Org: models.OrgJJWL, ExternalID: "gb-77"},
		},
	}}

	t.Run("should return the projection's linked sources", func(t *testing.T) {
		h := NewMasterGymHandler(reg, graph)
		rec, err := getSourcesGraph(t, h, master.ID)
		require.NoError(t, err)

		var refs []models.SourceRef
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refs))
		assert.Equal(t, graph.refs[master.ID], refs)
	})

	t.Run("should 404 on an unknown master", func(t *testing.T) {
		h := NewMasterGymHandler(reg, graph)
		_, err := getSourcesGraph(t, h, "master-404")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("should 503 when the projection is disabled", func(t *testing.T) {
		h := NewMasterGymHandler(reg, nil)
		_, err := getSourcesGraph(t, h, master.ID)
		require.Error(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, httperror.GetStatusCode(err))
	})
}

package matching

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmat/gymlink/pkg/models"
)

func testGym(org models.Org, externalID, name, city string) models.SourceGym {
	g := models.SourceGym{
		Org:        org,
		ExternalID: externalID,
		Name:       name,
	}
	if city != "" {
		g.City = &city
	}
	return g
}

func TestServiceScore(t *testing.T) {
	svc := NewService(DefaultConfig())

	t.Run("should score identical names as 100", func(t *testing.T) {
		assert.Equal(t, 100.0, svc.Score("Gracie Barra", "Gracie Barra", "", ""))
	})

	t.Run("should score equivalent names as 100 after normalization", func(t *testing.T) {
		assert.Equal(t, 100.0, svc.Score("Gracie Barra BJJ", "Gracie-Barra Jiu-Jitsu", "", ""))
	})

	t.Run("should be symmetric", func(t *testing.T) {
		a := svc.Score("Gracie Barra Miami", "Gracie Barra", "Miami", "Miami")
		b := svc.Score("Gracie Barra", "Gracie Barra Miami", "Miami", "Miami")
		assert.Equal(t, a, b)
	})

	t.Run("should add the city boost when a name embeds the other gym's city", func(t *testing.T) {
		plain := svc.Score("Alliance Austin", "Zenith", "", "")
		boosted := svc.Score("Alliance Austin", "Zenith", "Austin", "Austin")
		require.Less(t, plain, 85.0)
		assert.Equal(t, plain+15, boosted)
	})

	t.Run("should match the city case-insensitively", func(t *testing.T) {
		plain := svc.Score("ALLIANCE AUSTIN", "Zenith", "", "")
		boosted := svc.Score("ALLIANCE AUSTIN", "Zenith", "austin", "Austin")
		require.Less(t, plain, 85.0)
		assert.Equal(t, plain+15, boosted)
	})

	t.Run("should clamp a boosted score at 100", func(t *testing.T) {
		plain := svc.Score("Gracie Barra Miami", "Gracie Barra", "", "")
		require.Greater(t, plain, 85.0)
		boosted := svc.Score("Gracie Barra Miami", "Gracie Barra", "Miami", "Miami")
		assert.Equal(t, 100.0, boosted)
	})

	t.Run("should not boost when either city is unknown", func(t *testing.T) {
		plain := svc.Score("Gracie Barra Miami", "Gracie Barra", "", "")
		assert.Equal(t, plain, svc.Score("Gracie Barra Miami", "Gracie Barra", "", "Miami"))
		assert.Equal(t, plain, svc.Score("Gracie Barra Miami", "Gracie Barra", "Miami", ""))
	})

	t.Run("should clamp the score at 100", func(t *testing.T) {
		score := svc.Score("Gracie Barra Miami", "Gracie Barra Miami", "Miami", "Miami")
		assert.Equal(t, 100.0, score)
	})

	t.Run("should not match unrelated names built from suffix vocabulary", func(t *testing.T) {
		score := svc.Score("Brazilian Jiu Jitsu Academy", "MMA Team HQ", "", "")
		assert.Equal(t, OutcomeNoMatch, svc.Classify(score))
	})

	t.Run("should still match identical suffix-vocabulary names", func(t *testing.T) {
		assert.Equal(t, 100.0, svc.Score("MMA Team HQ", "MMA Team HQ", "", ""))
	})

	t.Run("should score punctuation-only names as no match", func(t *testing.T) {
		assert.Equal(t, 0.0, svc.Score("???", "!!!", "", ""))
	})
}

func TestServiceClassify(t *testing.T) {
	svc := NewService(DefaultConfig())

	tests := []struct {
		score    float64
		expected Outcome
	}{
		{100, OutcomeAutoLink},
		{90, OutcomeAutoLink},
		{89.99, OutcomePending},
		{70, OutcomePending},
		{69.99, OutcomeNoMatch},
		{0, OutcomeNoMatch},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %v", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.expected, svc.Classify(tt.score))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "auto_link", OutcomeAutoLink.String())
	assert.Equal(t, "pending", OutcomePending.String())
	assert.Equal(t, "no_match", OutcomeNoMatch.String())
}

func TestServiceFindMatches(t *testing.T) {
	svc := NewService(DefaultConfig())

	t.Run("should exclude the candidate itself from the pool", func(t *testing.T) {
		candidate := testGym(models.OrgIBJJF, "gb-1", "Gracie Barra", "")
		pool := []models.SourceGym{candidate}

		assert.Empty(t, svc.FindMatches(candidate, pool))
	})

	t.Run("should drop matches below the pending threshold", func(t *testing.T) {
		candidate := testGym(models.OrgIBJJF, "gb-1", "Gracie Barra", "")
		pool := []models.SourceGym{
			testGym(models.OrgJJWL, "zr-9", "Zenith Rio", ""),
		}

		assert.Empty(t, svc.FindMatches(candidate, pool))
	})

	t.Run("should match the same gym across federations", func(t *testing.T) {
		candidate := testGym(models.OrgIBJJF, "gb-1", "Gracie Barra BJJ", "")
		pool := []models.SourceGym{
			testGym(models.OrgJJWL, "gb-7", "Gracie Barra Jiu-Jitsu", ""),
		}

		matches := svc.FindMatches(candidate, pool)
		require.Len(t, matches, 1)
		assert.Equal(t, "gb-7", matches[0].Gym.ExternalID)
		assert.Equal(t, 100.0, matches[0].Score)
	})

	t.Run("should rank by score descending", func(t *testing.T) {
		candidate := testGym(models.OrgIBJJF, "gb-1", "Gracie Barra Miami", "Miami")
		pool := []models.SourceGym{
			testGym(models.OrgJJWL, "gb-rio", "Gracie Barra Rio", "Rio de Janeiro"),
			testGym(models.OrgJJWL, "gb-mia", "Gracie Barra Miami", "Miami"),
		}

		matches := svc.FindMatches(candidate, pool)
		require.Len(t, matches, 2)
		assert.Equal(t, "gb-mia", matches[0].Gym.ExternalID)
		for i := 1; i < len(matches); i++ {
			assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
		}
	})

	t.Run("should break score ties by exact city match then external id", func(t *testing.T) {
		candidate := testGym(models.OrgIBJJF, "al-1", "Alliance", "Austin")
		pool := []models.SourceGym{
			testGym(models.OrgJJWL, "b", "Alliance", "Dallas"),
			testGym(models.OrgJJWL, "c", "Alliance", "Austin"),
			testGym(models.OrgJJWL, "a", "Alliance", "Dallas"),
		}

		matches := svc.FindMatches(candidate, pool)
		require.Len(t, matches, 3)
		assert.Equal(t, "c", matches[0].Gym.ExternalID)
		assert.Equal(t, "a", matches[1].Gym.ExternalID)
		assert.Equal(t, "b", matches[2].Gym.ExternalID)
	})

	t.Run("should cap results at MaxCandidates", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxCandidates = 2
		capped := NewService(cfg)

		candidate := testGym(models.OrgIBJJF, "al-1", "Alliance", "")
		pool := []models.SourceGym{
			testGym(models.OrgJJWL, "a", "Alliance", ""),
			testGym(models.OrgJJWL, "b", "Alliance", ""),
			testGym(models.OrgJJWL, "c", "Alliance", ""),
		}

		matches := capped.FindMatches(candidate, pool)
		assert.Len(t, matches, 2)
	})
}

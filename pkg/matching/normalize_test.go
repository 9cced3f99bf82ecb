package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("should lowercase and trim", func(t *testing.T) {
		assert.Equal(t, "gracie barra", n.Normalize("  Gracie Barra  "))
	})

	t.Run("should strip punctuation as token boundaries", func(t *testing.T) {
		assert.Equal(t, "gracie barra", n.Normalize("Gracie-Barra"))
		assert.Equal(t, "alliance sp", n.Normalize("Alliance (SP)"))
	})

	t.Run("should strip suffix vocabulary as whole words", func(t *testing.T) {
		assert.Equal(t, "gracie barra", n.Normalize("Gracie Barra BJJ"))
		assert.Equal(t, "gracie barra", n.Normalize("Gracie Barra Jiu-Jitsu"))
		assert.Equal(t, "checkmat", n.Normalize("CheckMat Brazilian Jiu Jitsu Academy"))
		assert.Equal(t, "atos", n.Normalize("Atos HQ"))
	})

	t.Run("should not strip suffix tokens inside words", func(t *testing.T) {
		// "team" is in the vocabulary, "steamroller" must survive.
		assert.Equal(t, "steamroller", n.Normalize("Steamroller"))
	})

	t.Run("should keep digits", func(t *testing.T) {
		assert.Equal(t, "1", n.Normalize("Team #1 BJJ"))
	})

	t.Run("should collapse repeated whitespace", func(t *testing.T) {
		assert.Equal(t, "gracie barra miami", n.Normalize("Gracie   Barra \t Miami"))
	})

	t.Run("should return empty string when only suffix tokens remain", func(t *testing.T) {
		assert.Equal(t, "", n.Normalize("Brazilian Jiu Jitsu Academy"))
	})

	t.Run("should be idempotent", func(t *testing.T) {
		names := []string{
			"Gracie Barra Jiu-Jitsu",
			"Team #1 BJJ",
			"CheckMat Brazilian Jiu Jitsu Academy",
			"ZR Team Headquarters",
		}
		for _, name := range names {
			once := n.Normalize(name)
			assert.Equal(t, once, n.Normalize(once), "normalizing %q twice changed the result", name)
		}
	})
}

func TestNormalizeCustomTokens(t *testing.T) {
	n := NewNormalizer([]string{"dojo"})

	assert.Equal(t, "cobra kai", n.Normalize("Cobra Kai Dojo"))
	// Custom vocabulary replaces the default, it does not extend it.
	assert.Equal(t, "gracie barra bjj", n.Normalize("Gracie Barra BJJ"))
}

func TestNormalizeGymName(t *testing.T) {
	assert.Equal(t, "gracie barra", NormalizeGymName("Gracie Barra Academy"))
}

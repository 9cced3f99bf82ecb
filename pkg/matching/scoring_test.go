package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaro(t *testing.T) {
	s := NewScorer()

	t.Run("should return 1 for identical strings", func(t *testing.T) {
		assert.Equal(t, 1.0, s.Jaro("gracie barra", "gracie barra"))
	})

	t.Run("should return 0 when either string is empty", func(t *testing.T) {
		assert.Equal(t, 0.0, s.Jaro("", "gracie barra"))
		assert.Equal(t, 0.0, s.Jaro("gracie barra", ""))
	})

	t.Run("should return 0 for strings with no matching characters", func(t *testing.T) {
		assert.Equal(t, 0.0, s.Jaro("abc", "xyz"))
	})

	t.Run("should score known pairs", func(t *testing.T) {
		// Classic reference values for the Jaro metric.
		assert.InDelta(t, 0.9444, s.Jaro("martha", "marhta"), 0.0001)
		assert.InDelta(t, 0.7667, s.Jaro("dixon", "dicksonx"), 0.0001)
	})

	t.Run("should be symmetric", func(t *testing.T) {
		pairs := [][2]string{
			{"gracie barra", "gracie barra miami"},
			{"alliance", "checkmat"},
			{"atos", "zr"},
		}
		for _, p := range pairs {
			assert.Equal(t, s.Jaro(p[0], p[1]), s.Jaro(p[1], p[0]))
		}
	})
}

func TestJaroWinkler(t *testing.T) {
	s := NewScorer()

	t.Run("should return 1 for identical strings", func(t *testing.T) {
		assert.Equal(t, 1.0, s.JaroWinkler("alliance", "alliance"))
	})

	t.Run("should score known pairs", func(t *testing.T) {
		assert.InDelta(t, 0.9611, s.JaroWinkler("martha", "marhta"), 0.0001)
		assert.InDelta(t, 0.8133, s.JaroWinkler("dixon", "dicksonx"), 0.0001)
	})

	t.Run("should boost shared prefixes over plain jaro", func(t *testing.T) {
		jaro := s.Jaro("gracie barra miami", "gracie barra rio")
		jw := s.JaroWinkler("gracie barra miami", "gracie barra rio")
		assert.Greater(t, jw, jaro)
	})

	t.Run("should stay within 0 and 1", func(t *testing.T) {
		pairs := [][2]string{
			{"a", "b"},
			{"gracie barra", "gb"},
			{"alliance sao paulo", "alliance"},
			{"", ""},
		}
		for _, p := range pairs {
			score := s.JaroWinkler(p[0], p[1])
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	})
}

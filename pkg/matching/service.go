package matching

import (
	"sort"
	"strings"

	"github.com/openmat/gymlink/pkg/models"
)

// Config contains the tunable surface of the matching engine. All
// precision/recall knobs live here so operators can adjust them
// without code changes and tests can override them per case.
type Config struct {
	AutoLinkThreshold float64  // Score at or above which to link without review (default: 90)
	PendingThreshold  float64  // Score at or above which to queue for review (default: 70)
	CityBoost         float64  // Added when a gym name embeds the other gym's city (default: 15)
	MaxCandidates     int      // Maximum ranked matches returned per gym (default: 25)
	SuffixTokens      []string // Suffix vocabulary for name normalization (default: DefaultSuffixTokens)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AutoLinkThreshold: 90,
		PendingThreshold:  70,
		CityBoost:         15,
		MaxCandidates:     25,
	}
}

// Outcome classifies a match score. Ordering matters: classification
// is a non-decreasing step function of score.
type Outcome int

const (
	OutcomeNoMatch Outcome = iota
	OutcomePending
	OutcomeAutoLink
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAutoLink:
		return "auto_link"
	case OutcomePending:
		return "pending"
	default:
		return "no_match"
	}
}

// RankedMatch pairs a pool gym with its score against the candidate.
type RankedMatch struct {
	Gym   models.SourceGym `json:"gym"`
	Score float64          `json:"score"`
}

// Service scores gym pairs and ranks match candidates. It is pure
// computation: no I/O, no mutation of any store.
type Service struct {
	scorer     *Scorer
	normalizer *Normalizer
	cfg        Config
}

// NewService creates a matching service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{
		scorer:     NewScorer(),
		normalizer: NewNormalizer(cfg.SuffixTokens),
		cfg:        cfg,
	}
}

// Normalize exposes the service's configured name normalizer.
func (s *Service) Normalize(name string) string {
	return s.normalizer.Normalize(name)
}

// Score computes a 0-100 match confidence between two gym records.
// The base is the Jaro-Winkler similarity of the normalized names
// scaled by 100. When both cities are known and either raw name
// contains the other record's city as a case-insensitive substring
// ("Gracie Barra Miami" vs a gym in Miami), the city boost is added.
// The result is clamped to 100. Symmetric in its arguments.
func (s *Service) Score(nameA, nameB, cityA, cityB string) float64 {
	normA := s.normalizer.Normalize(nameA)
	normB := s.normalizer.Normalize(nameB)

	// A name built entirely from suffix vocabulary ("MMA Team HQ")
	// normalizes to nothing, and two empty strings would read as a
	// perfect match. Fall back to the cleaned names so such gyms only
	// match when the full names agree.
	if normA == "" || normB == "" {
		normA = s.normalizer.Clean(nameA)
		normB = s.normalizer.Clean(nameB)
		if normA == "" && normB == "" {
			return 0
		}
	}

	score := s.scorer.JaroWinkler(normA, normB) * 100

	if cityA != "" && cityB != "" {
		if containsFold(nameA, cityB) || containsFold(nameB, cityA) {
			score += s.cfg.CityBoost
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// Classify maps a score to a match outcome. Boundaries are inclusive:
// a score of exactly PendingThreshold is pending, exactly
// AutoLinkThreshold is auto-link.
func (s *Service) Classify(score float64) Outcome {
	switch {
	case score >= s.cfg.AutoLinkThreshold:
		return OutcomeAutoLink
	case score >= s.cfg.PendingThreshold:
		return OutcomePending
	default:
		return OutcomeNoMatch
	}
}

// FindMatches scores the candidate against every gym in the pool,
// drops results below the pending threshold, and returns them ranked.
// Ties are broken by exact city match first, then by lexicographically
// smaller external id so results are deterministic. This is a linear
// scan per candidate, O(n^2) over a full sync; acceptable at the
// single-digit-thousands corpus size of the federations.
func (s *Service) FindMatches(candidate models.SourceGym, pool []models.SourceGym) []RankedMatch {
	matches := make([]RankedMatch, 0)

	for _, gym := range pool {
		if gym.Org == candidate.Org && gym.ExternalID == candidate.ExternalID {
			continue
		}

		score := s.Score(candidate.Name, gym.Name, candidate.CityOrEmpty(), gym.CityOrEmpty())
		if score < s.cfg.PendingThreshold {
			continue
		}

		matches = append(matches, RankedMatch{Gym: gym, Score: score})
	}

	candidateCity := candidate.CityOrEmpty()
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		iCity := candidateCity != "" && strings.EqualFold(matches[i].Gym.CityOrEmpty(), candidateCity)
		jCity := candidateCity != "" && strings.EqualFold(matches[j].Gym.CityOrEmpty(), candidateCity)
		if iCity != jCity {
			return iCity
		}
		return matches[i].Gym.ExternalID < matches[j].Gym.ExternalID
	})

	if s.cfg.MaxCandidates > 0 && len(matches) > s.cfg.MaxCandidates {
		matches = matches[:s.cfg.MaxCandidates]
	}

	return matches
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Package roster holds the fixed list of teams and maps free-text input onto it.
package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// DefaultThreshold is the minimum similarity a candidate needs to be offered at all.
const DefaultThreshold = 0.6

// partialWeight scales word-window scores so a full-name match outranks a partial one.
const partialWeight = 0.9

// Kind classifies a Resolution.
type Kind int

const (
	KindNoMatch Kind = iota
	KindExact
	KindSuggestion
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindSuggestion:
		return "suggestion"
	case KindNoMatch:
		return "no_match"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Resolution is the outcome of resolving user input against the roster.
type Resolution struct {
	Kind  Kind
	Team  string
	Score float64
}

// Resolver matches input against an immutable roster.
type Resolver struct {
	teams      []string
	normalized []string
	index      map[string]string
	threshold  float64
	metric     *metrics.Levenshtein
}

// New builds a resolver. Duplicate names (case-insensitive) keep their first spelling.
func New(teams []string, threshold float64) (*Resolver, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be in (0, 1], got %v", threshold)
	}

	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false

	r := &Resolver{
		index:     make(map[string]string, len(teams)),
		threshold: threshold,
		metric:    metric,
	}
	for _, team := range teams {
		team = strings.TrimSpace(team)
		key := normalize(team)
		if key == "" {
			continue
		}
		if _, dup := r.index[key]; dup {
			continue
		}
		r.index[key] = team
		r.teams = append(r.teams, team)
		r.normalized = append(r.normalized, key)
	}
	if len(r.teams) == 0 {
		return nil, errors.New("roster must contain at least one team")
	}
	return r, nil
}

// Teams returns a copy of the roster in load order.
func (r *Resolver) Teams() []string {
	return append([]string(nil), r.teams...)
}

// Lookup returns the canonical spelling of an exact (case-insensitive) roster entry.
func (r *Resolver) Lookup(name string) (string, bool) {
	team, ok := r.index[normalize(name)]
	return team, ok
}

// Resolve returns the best roster candidate for input. Only an exact
// case-insensitive match is auto-accepted; a close miss comes back as a
// suggestion the caller must confirm by resubmitting the exact name.
func (r *Resolver) Resolve(input string) Resolution {
	query := normalize(input)
	if query == "" {
		return Resolution{Kind: KindNoMatch}
	}
	if team, ok := r.index[query]; ok {
		return Resolution{Kind: KindExact, Team: team, Score: 1}
	}

	bestIdx, bestScore := -1, 0.0
	for i, candidate := range r.normalized {
		score := r.score(query, candidate)
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 || bestScore < r.threshold {
		return Resolution{Kind: KindNoMatch, Score: bestScore}
	}
	return Resolution{Kind: KindSuggestion, Team: r.teams[bestIdx], Score: bestScore}
}

func (r *Resolver) score(query, candidate string) float64 {
	best := strutil.Similarity(query, candidate, r.metric)

	// Compare the query against runs of consecutive candidate words of the same
	// length, so "alpha" still finds "Team Alpha".
	queryWords := strings.Fields(query)
	candidateWords := strings.Fields(candidate)
	if len(queryWords) >= len(candidateWords) {
		return best
	}
	for start := 0; start+len(queryWords) <= len(candidateWords); start++ {
		window := strings.Join(candidateWords[start:start+len(queryWords)], " ")
		if partial := partialWeight * strutil.Similarity(query, window, r.metric); partial > best {
			best = partial
		}
	}
	return best
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

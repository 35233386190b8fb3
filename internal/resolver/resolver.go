// Package resolver implements the fuzzy place-name resolver (C10): it
// merges the gazetteer's raw candidates, deduplicates, scores confidence,
// and ranks the result. Grounded on the teacher's validation + scoring
// style in internal/validation/validation.go, generalised from string-bounds
// checking to the numeric confidence formula this resolver needs.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kjstillabower/weathertools/internal/gazetteer"
	"github.com/kjstillabower/weathertools/internal/models"
)

// DefaultLimit and MaxLimit bound the result set.
const (
	DefaultLimit = 5
	MaxLimit     = 20
	MinLimit     = 1
)

// commonCountrySuffixes are trailing tokens stripped during query
// normalisation ("Bergen, Norway" -> "bergen").
var commonCountrySuffixes = []string{", norway", " norway", ", norge", " norge"}

// Filter narrows and re-orders candidates without ever dropping a match the
// gazetteer otherwise found, other than a non-matching place-class filter
// applied only when at least one candidate satisfies it.
type Filter struct {
	PreferredPlaceClasses   []models.PlaceClass
	PreferredMunicipalityCode string
}

// store is the subset of *gazetteer.Store the resolver depends on,
// narrowed to an interface so tests can supply an in-memory fake instead of
// a real SQLite file, matching the teacher's WeatherClient interface seam
// (internal/client/client.go).
type store interface {
	FindExactPrimary(name string) ([]gazetteer.Candidate, error)
	FindExactAlt(name string) ([]gazetteer.Candidate, error)
	FindFullText(query string, n int) ([]gazetteer.Candidate, error)
}

// Resolver resolves free-text place names against a gazetteer store.
type Resolver struct {
	store store
}

// New creates a Resolver backed by s, typically a *gazetteer.Store.
func New(s store) *Resolver {
	return &Resolver{store: s}
}

// ClampLimit normalises a raw limit to [MinLimit, MaxLimit], defaulting to
// DefaultLimit when n is zero.
func ClampLimit(n int) int {
	if n == 0 {
		return DefaultLimit
	}
	if n < MinLimit {
		return MinLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Result is the outcome of one Resolve call. No results is not an error.
type Result struct {
	Matches []models.PlaceMatch `json:"matches"`
	Summary string               `json:"summary"`
}

// normalizeQuery trims, collapses internal whitespace, lowercases, and
// strips a common trailing country-name suffix.
func normalizeQuery(raw string) string {
	q := strings.ToLower(strings.TrimSpace(raw))
	q = strings.Join(strings.Fields(q), " ")
	for _, suf := range commonCountrySuffixes {
		if strings.HasSuffix(q, suf) {
			q = strings.TrimSuffix(q, suf)
			break
		}
	}
	return strings.TrimSpace(q)
}

// Resolve normalises query, merges exact-primary, exact-alt, and full-text
// candidates (in that order, deduplicated by stable id keeping the first
// occurrence's match type), scores and ranks them, and returns up to limit
// matches.
func (r *Resolver) Resolve(ctx context.Context, rawQuery string, limit int, filter Filter) (Result, error) {
	query := normalizeQuery(rawQuery)
	if query == "" {
		return Result{}, fmt.Errorf("resolver: empty query")
	}
	limit = ClampLimit(limit)

	type ordered struct {
		cand gazetteer.Candidate
		rank int // first-seen insertion index, for the -0.01*index penalty
	}
	byID := make(map[string]ordered)
	var order []string

	add := func(cands []gazetteer.Candidate) {
		for _, c := range cands {
			if _, ok := byID[c.ID]; ok {
				continue
			}
			byID[c.ID] = ordered{cand: c, rank: len(order)}
			order = append(order, c.ID)
		}
	}

	exactPrimary, err := r.store.FindExactPrimary(query)
	if err != nil {
		return Result{}, fmt.Errorf("resolver: exact primary: %w", err)
	}
	add(exactPrimary)

	exactAlt, err := r.store.FindExactAlt(query)
	if err != nil {
		return Result{}, fmt.Errorf("resolver: exact alt: %w", err)
	}
	add(exactAlt)

	fts, err := r.store.FindFullText(query, limit*4)
	if err != nil {
		return Result{}, fmt.Errorf("resolver: full text: %w", err)
	}
	add(fts)

	matches := make([]models.PlaceMatch, 0, len(order))
	for _, id := range order {
		o := byID[id]
		matches = append(matches, models.PlaceMatch{
			PlaceRecord: o.cand.PlaceRecord,
			Confidence:  score(o.cand, o.rank),
			MatchType:   o.cand.MatchType,
		})
	}

	matches = applyPlaceClassFilter(matches, filter.PreferredPlaceClasses)
	sortByConfidenceThenInsertion(matches)
	if filter.PreferredMunicipalityCode != "" {
		stableSortMunicipalityFirst(matches, filter.PreferredMunicipalityCode)
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}

	return Result{Matches: matches, Summary: summarize(matches)}, nil
}

// applyPlaceClassFilter restricts to preferred classes only when at least
// one candidate matches; otherwise every candidate is kept unfiltered.
func applyPlaceClassFilter(matches []models.PlaceMatch, preferred []models.PlaceClass) []models.PlaceMatch {
	if len(preferred) == 0 {
		return matches
	}
	want := make(map[models.PlaceClass]bool, len(preferred))
	for _, c := range preferred {
		want[c] = true
	}
	var anyMatch bool
	for _, m := range matches {
		if want[m.Class] {
			anyMatch = true
			break
		}
	}
	if !anyMatch {
		return matches
	}
	out := matches[:0:0]
	for _, m := range matches {
		if want[m.Class] {
			out = append(out, m)
		}
	}
	return out
}

func sortByConfidenceThenInsertion(matches []models.PlaceMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
}

// stableSortMunicipalityFirst puts matching-municipality candidates first
// without dropping non-matchers or disturbing relative order within each
// group (§4.11 step 3).
func stableSortMunicipalityFirst(matches []models.PlaceMatch, code string) {
	sort.SliceStable(matches, func(i, j int) bool {
		iMatch := matches[i].MunicipalityCode == code
		jMatch := matches[j].MunicipalityCode == code
		return iMatch && !jMatch
	})
}

// score computes a confidence in [0,1] per §4.11's formula: base by match
// type, seat boosts, an importance boost, and a tiny rank-preservation
// penalty, clamped to [0,1].
func score(c gazetteer.Candidate, insertionIndex int) float64 {
	var base float64
	switch c.MatchType {
	case models.MatchExactPrimary:
		base = 1.00
	case models.MatchExactAlt:
		base = 0.85
	case models.MatchPrefix:
		base = 0.70
	default: // fuzzy, via full-text
		base = 0.40 + minF(0.30, c.FTSRank/100)
	}

	seatBoost := 0.0
	if c.IsCountySeat {
		seatBoost += 0.05
	}
	if c.IsMunicipalitySeat {
		seatBoost += 0.03
	}
	importanceBoost := minF(0.05, c.Importance/10)
	rankPenalty := 0.01 * float64(insertionIndex)

	return clamp01(base + seatBoost + importanceBoost - rankPenalty)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// summarize produces the textual content-block summary per §4.11: a single
// high-confidence match is reported directly, otherwise a short
// disambiguation list of up to 3 is offered.
func summarize(matches []models.PlaceMatch) string {
	if len(matches) == 0 {
		return "No matching places were found."
	}
	if matches[0].Confidence >= 0.8 {
		m := matches[0]
		if m.MunicipalityName != "" {
			return fmt.Sprintf("%s, %s (confidence %.2f)", m.PrimaryName, m.MunicipalityName, m.Confidence)
		}
		return fmt.Sprintf("%s (confidence %.2f)", m.PrimaryName, m.Confidence)
	}
	n := len(matches)
	if n > 3 {
		n = 3
	}
	names := make([]string, 0, n)
	for _, m := range matches[:n] {
		if m.MunicipalityName != "" {
			names = append(names, fmt.Sprintf("%s (%s)", m.PrimaryName, m.MunicipalityName))
		} else {
			names = append(names, m.PrimaryName)
		}
	}
	return fmt.Sprintf("Multiple possible matches: %s. Please clarify which one you mean.", strings.Join(names, "; "))
}

// Package gazetteer implements the read-only place-name store (C9): exact
// primary-name lookup, alternative-name lookup, and a SQLite FTS5 full-text
// index for fuzzy queries. Grounded on the pack's SQLite-backed stores
// (mattn/go-sqlite3, as used for local relational state in
// costinm-mk8s/kine and the other_examples manifests) — the gazetteer
// binary produced by the out-of-scope ETL (§1) is simply such a SQLite
// file, opened read-only for the life of the process.
package gazetteer

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kjstillabower/weathertools/internal/models"
)

// Store is a read-only, concurrency-safe handle on the gazetteer database.
// Shared by the process for its entire lifetime (§3 Ownership).
type Store struct {
	db *sql.DB
}

// Open opens the gazetteer SQLite file read-only. Returns an error if the
// file is absent or not a valid gazetteer — the transport layer is
// responsible for continuing without the resolver tool in that case (§4.11).
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1&_query_only=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("gazetteer: ping %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Candidate is one raw lookup hit before resolver scoring.
type Candidate struct {
	models.PlaceRecord
	MatchType models.MatchType
	FTSRank   float64 // lower is better (BM25-style); 0 for non-FTS matches
}

// FindExactPrimary returns records whose normalised primary name equals name.
func (s *Store) FindExactPrimary(name string) ([]Candidate, error) {
	rows, err := s.db.Query(`
		SELECT id, primary_name, alt_names, lat, lon, class, municipality_code,
		       municipality_name, county_name, importance, is_county_seat, is_municipality_seat
		FROM places WHERE lower(primary_name) = lower(?)`, name)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: exact-primary query: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows, models.MatchExactPrimary)
}

// FindExactAlt returns records whose alt-names set (case-insensitive)
// contains name.
func (s *Store) FindExactAlt(name string) ([]Candidate, error) {
	rows, err := s.db.Query(`
		SELECT id, primary_name, alt_names, lat, lon, class, municipality_code,
		       municipality_name, county_name, importance, is_county_seat, is_municipality_seat
		FROM places
		WHERE EXISTS (
			SELECT 1 FROM json_each('["' || replace(lower(alt_names), ',', '","') || '"]')
			WHERE value = lower(?)
		)`, name)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: exact-alt query: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows, models.MatchExactAlt)
}

// FindFullText runs the FTS5 index query (which preserves the target
// locale's non-ASCII letters via an `unicode61` tokenizer with diacritics
// disabled) and returns up to n ranked candidates.
func (s *Store) FindFullText(query string, n int) ([]Candidate, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.primary_name, p.alt_names, p.lat, p.lon, p.class,
		       p.municipality_code, p.municipality_name, p.county_name,
		       p.importance, p.is_county_seat, p.is_municipality_seat, fts.rank
		FROM places_fts fts
		JOIN places p ON p.rowid = fts.rowid
		WHERE places_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?`, ftsQuery(query), n)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: fts query: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		var alt string
		var rank float64
		if err := rows.Scan(&c.ID, &c.PrimaryName, &alt, &c.Lat, &c.Lon, &c.Class,
			&c.MunicipalityCode, &c.MunicipalityName, &c.CountyName,
			&c.Importance, &c.IsCountySeat, &c.IsMunicipalitySeat, &rank); err != nil {
			return nil, fmt.Errorf("gazetteer: scan fts row: %w", err)
		}
		c.AltNames = splitAltNames(alt)
		c.MatchType = models.MatchFuzzy
		c.FTSRank = rank
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stat returns the record count used by the gazetteer-info resource (§6).
func (s *Store) Stat() (count int, err error) {
	err = s.db.QueryRow(`SELECT count(*) FROM places`).Scan(&count)
	return count, err
}

func scanCandidates(rows *sql.Rows, mt models.MatchType) ([]Candidate, error) {
	var out []Candidate
	for rows.Next() {
		var c Candidate
		var alt string
		if err := rows.Scan(&c.ID, &c.PrimaryName, &alt, &c.Lat, &c.Lon, &c.Class,
			&c.MunicipalityCode, &c.MunicipalityName, &c.CountyName,
			&c.Importance, &c.IsCountySeat, &c.IsMunicipalitySeat); err != nil {
			return nil, fmt.Errorf("gazetteer: scan row: %w", err)
		}
		c.AltNames = splitAltNames(alt)
		c.MatchType = mt
		out = append(out, c)
	}
	return out, rows.Err()
}

func splitAltNames(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ftsQuery escapes a raw query string for use as an FTS5 MATCH expression,
// treating the whole phrase as a prefix query.
func ftsQuery(q string) string {
	q = strings.TrimSpace(q)
	q = strings.ReplaceAll(q, `"`, `""`)
	return `"` + q + `"*`
}

// Package gazetteer maps attraction names to geographic coordinates using
// the authoritative Sri Lanka locations database. Lookup is exact-first with
// a fuzzy partial-ratio fallback; entries are read-only after Load so the
// gazetteer is safe for concurrent use.
package gazetteer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/geo"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/logger"
)

// ErrNotFound is returned when neither an exact nor a fuzzy match exists.
var ErrNotFound = errors.New("attraction not found in gazetteer")

// Coordinate sources reported in Resolution.Source.
const (
	SourceExact    = "exact"
	SourceFuzzy    = "fuzzy"
	SourceFallback = "fallback"
)

// Fallback centroid for unknown locations (geographic center of Sri Lanka).
const (
	FallbackLat = 7.8731
	FallbackLng = 80.7718
)

// DefaultFuzzyThreshold is the minimum partial-ratio score (0-100) for a
// fuzzy match to be accepted.
const DefaultFuzzyThreshold = 80

// Entry is one canonical gazetteer record.
type Entry struct {
	Name                 string  `json:"name"`
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
	Category             string  `json:"category"`
	Region               string  `json:"region"`
	Description          string  `json:"description"`
	VisitDurationMinutes int     `json:"visit_duration_minutes"`
}

// Resolution is the result of a coordinate lookup.
type Resolution struct {
	Latitude  float64
	Longitude float64
	Source    string // "exact", "fuzzy" or "fallback"
	Entry     *Entry // nil for fallback resolutions
}

// NearbyEntry pairs an entry with its distance from a query point.
type NearbyEntry struct {
	Entry      Entry
	DistanceKm float64
}

// Stats summarizes the loaded record set.
type Stats struct {
	TotalLocations int
	Categories     map[string]int
}

type locationsFile struct {
	Locations []Entry `json:"sri_lanka_travel_locations"`
}

// Gazetteer is the in-memory name-to-coordinates index.
type Gazetteer struct {
	entries    []Entry           // load order, used for fuzzy scan and tie-breaking
	byName     map[string]int    // lowercased canonical name -> index into entries
	byCategory map[string][]int  // lowercased category -> indexes
	threshold  int
	log        *slog.Logger
}

// Load reads the locations file and builds the lookup indexes. A missing or
// malformed file is an error; the caller is expected to treat it as fatal.
func Load(path string, fuzzyThreshold int) (*Gazetteer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locations file %s: %w", path, err)
	}

	var file locationsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("invalid JSON in locations file %s: %w", path, err)
	}

	if fuzzyThreshold <= 0 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}

	g := &Gazetteer{
		byName:     make(map[string]int),
		byCategory: make(map[string][]int),
		threshold:  fuzzyThreshold,
		log:        logger.Get(),
	}

	for _, loc := range file.Locations {
		name := strings.TrimSpace(loc.Name)
		if name == "" {
			continue
		}
		loc.Name = name
		if loc.VisitDurationMinutes <= 0 {
			loc.VisitDurationMinutes = 120
		}
		key := strings.ToLower(name)
		if _, dup := g.byName[key]; dup {
			continue
		}
		idx := len(g.entries)
		g.entries = append(g.entries, loc)
		g.byName[key] = idx
		catKey := strings.ToLower(loc.Category)
		g.byCategory[catKey] = append(g.byCategory[catKey], idx)
	}

	if len(g.entries) == 0 {
		return nil, fmt.Errorf("locations file %s contains no usable entries", path)
	}

	g.log.Info("gazetteer loaded", "path", path, "locations", len(g.entries))
	return g, nil
}

// Resolve returns coordinates for an attraction name. Exact (case-insensitive)
// matches win; otherwise the best fuzzy match with partial-ratio score at or
// above the threshold is used. Ties go to the first-loaded entry.
func (g *Gazetteer) Resolve(name string) (Resolution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Resolution{}, ErrNotFound
	}

	if idx, ok := g.byName[strings.ToLower(name)]; ok {
		e := &g.entries[idx]
		return Resolution{Latitude: e.Latitude, Longitude: e.Longitude, Source: SourceExact, Entry: e}, nil
	}

	bestScore := 0
	bestIdx := -1
	for i := range g.entries {
		score := PartialRatio(name, g.entries[i].Name)
		if score > bestScore && score >= g.threshold {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx >= 0 {
		e := &g.entries[bestIdx]
		g.log.Debug("fuzzy gazetteer match", "query", name, "match", e.Name, "score", bestScore)
		return Resolution{Latitude: e.Latitude, Longitude: e.Longitude, Source: SourceFuzzy, Entry: e}, nil
	}

	return Resolution{}, ErrNotFound
}

// ResolveWithFallback resolves a name, substituting the island centroid when
// no match exists. The planner never uses the fallback; it exists for
// display-only callers that must always show something on the map.
func (g *Gazetteer) ResolveWithFallback(name string) Resolution {
	res, err := g.Resolve(name)
	if err == nil {
		return res
	}
	g.log.Warn("no coordinates found for attraction, using fallback centroid", "name", name)
	return Resolution{Latitude: FallbackLat, Longitude: FallbackLng, Source: SourceFallback}
}

// Lookup returns the full gazetteer record for a name (exact or fuzzy).
func (g *Gazetteer) Lookup(name string) (Entry, error) {
	res, err := g.Resolve(name)
	if err != nil {
		return Entry{}, err
	}
	return *res.Entry, nil
}

// ByCategory returns all entries in a category (case-insensitive).
func (g *Gazetteer) ByCategory(category string) []Entry {
	idxs := g.byCategory[strings.ToLower(category)]
	out := make([]Entry, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, g.entries[i])
	}
	return out
}

// Nearby returns entries within maxDistanceKm of a point, closest first.
func (g *Gazetteer) Nearby(lat, lng, maxDistanceKm float64) []NearbyEntry {
	var out []NearbyEntry
	for i := range g.entries {
		e := g.entries[i]
		dist := geo.Haversine(lat, lng, e.Latitude, e.Longitude)
		if dist <= maxDistanceKm {
			out = append(out, NearbyEntry{Entry: e, DistanceKm: dist})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// Stats returns counts about the loaded record set.
func (g *Gazetteer) Stats() Stats {
	s := Stats{TotalLocations: len(g.entries), Categories: make(map[string]int)}
	for i := range g.entries {
		s.Categories[g.entries[i].Category]++
	}
	return s
}

// Len returns the number of loaded entries.
func (g *Gazetteer) Len() int { return len(g.entries) }

// PartialRatio computes a fuzzywuzzy-style partial substring similarity in
// [0,100]. The shorter string is slid over every equal-length window of the
// longer one; the best Levenshtein-normalized window similarity wins.
// Comparison is case-insensitive and whitespace-collapsed.
func PartialRatio(a, b string) int {
	a = normalize(a)
	b = normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	best := 0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		window := string(longer[start : start+len(shorter)])
		dist := fuzzy.LevenshteinDistance(string(shorter), window)
		score := int(100 * (1 - float64(dist)/float64(len(shorter))))
		if score > best {
			best = score
		}
		if best == 100 {
			break
		}
	}
	return best
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

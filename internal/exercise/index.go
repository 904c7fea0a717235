// Package exercise builds the climbing-relevant exercise index and answers
// keyword searches over it.
package exercise

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/moorebrett0/climbcoach/internal/dataset"
)

// BodyParts are the catalog body parts that matter for climbing. A gym row is
// indexed when its body part contains any of them.
var BodyParts = []string{
	"forearms", "shoulders", "back", "core", "abs", "lats", "biceps", "chest", "triceps",
}

// Exercise is one searchable record. Sheet rows keep columns that do not map
// onto a named field in Extra.
type Exercise struct {
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	BodyPart    string            `json:"bodypart,omitempty"`
	Equipment   string            `json:"equipment,omitempty"`
	Level       string            `json:"level,omitempty"`
	Type        string            `json:"type,omitempty"`
	Rating      string            `json:"rating,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

type entry struct {
	ex   Exercise
	blob string
}

// Index is read-only after Build and safe for concurrent use.
type Index struct {
	entries []entry
	cache   *ristretto.Cache[string, []Exercise]
}

// Build creates the index from the loaded store. cacheBytes bounds the search
// result cache; 0 disables it.
func Build(store *dataset.Store, cacheBytes int64) (*Index, error) {
	idx := &Index{}

	for _, g := range store.Gym {
		if !climbingBodyPart(g.BodyPart) {
			continue
		}
		idx.add(Exercise{
			Name:        g.Title,
			Description: g.Desc,
			BodyPart:    g.BodyPart,
			Equipment:   g.Equipment,
			Level:       g.Level,
			Type:        g.Type,
			Rating:      g.Rating,
		})
	}

	if store.Sheet != nil {
		for i := range store.Sheet.Rows {
			rec := store.Sheet.Record(i)
			if len(rec) == 0 {
				continue
			}
			idx.add(fromRecord(rec))
		}
	}

	if cacheBytes > 0 {
		c, err := ristretto.NewCache(&ristretto.Config[string, []Exercise]{
			NumCounters: max(cacheBytes/100*10, 1),
			MaxCost:     cacheBytes,
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
		idx.cache = c
	}

	slog.Info("exercise: index built", "exercises", len(idx.entries))
	return idx, nil
}

func (idx *Index) add(ex Exercise) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Keep &, < and > searchable.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ex); err != nil {
		// Only strings and a string map; cannot fail.
		return
	}
	blob := strings.TrimSuffix(buf.String(), "\n")
	idx.entries = append(idx.entries, entry{ex: ex, blob: strings.ToLower(blob)})
}

// Len returns the number of indexed exercises.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Search returns up to limit exercises ranked by how many query words appear
// in the record. Records matching no word are excluded; ties keep index order.
func (idx *Index) Search(query string, limit int) []Exercise {
	if limit <= 0 {
		return []Exercise{}
	}
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return []Exercise{}
	}

	key := strconv.Itoa(limit) + "|" + strings.Join(words, " ")
	if idx.cache != nil {
		if hit, ok := idx.cache.Get(key); ok {
			return slices.Clone(hit)
		}
	}

	type scored struct {
		ex    Exercise
		score int
	}
	var matches []scored
	for _, e := range idx.entries {
		score := 0
		for _, w := range words {
			if strings.Contains(e.blob, w) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{ex: e.ex, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Exercise, len(matches))
	cost := int64(1)
	for i, m := range matches {
		out[i] = m.ex
		cost += int64(len(m.ex.Name) + len(m.ex.Description))
	}

	if idx.cache != nil {
		idx.cache.Set(key, slices.Clone(out), cost)
	}
	return out
}

// Close releases the result cache.
func (idx *Index) Close() {
	if idx.cache != nil {
		idx.cache.Close()
	}
}

func climbingBodyPart(bodyPart string) bool {
	bp := strings.ToLower(bodyPart)
	for _, want := range BodyParts {
		if strings.Contains(bp, want) {
			return true
		}
	}
	return false
}

// fromRecord maps a loosely-typed sheet row onto an Exercise by header name.
func fromRecord(rec map[string]string) Exercise {
	var ex Exercise
	for col, v := range rec {
		switch normalize(col) {
		case "name", "title", "exercise", "exercisename":
			ex.Name = v
		case "description", "desc":
			ex.Description = v
		case "bodypart":
			ex.BodyPart = v
		case "equipment":
			ex.Equipment = v
		case "level", "difficulty":
			ex.Level = v
		case "type":
			ex.Type = v
		case "rating":
			ex.Rating = v
		default:
			if ex.Extra == nil {
				ex.Extra = make(map[string]string)
			}
			ex.Extra[col] = v
		}
	}
	return ex
}

func normalize(col string) string {
	col = strings.ToLower(col)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(col)
}

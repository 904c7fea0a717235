// Package dataset loads the coach's tabular sources (gym exercise catalog,
// ascent logs, a spreadsheet export) into read-only in-memory tables.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
)

// Sources names where each table comes from. Empty fields are skipped.
type Sources struct {
	GymPath     string
	AscentsPath string
	SheetsURL   string // local file or http(s) URL (Google Sheets edit links are converted)
}

// GymExercise is one row of the gym exercise catalog.
type GymExercise struct {
	Title     string
	Desc      string
	BodyPart  string
	Equipment string
	Level     string
	Type      string
	Rating    string
}

// Ascent is one logged climb. Only the grade is interpreted; every other
// column is kept as-is.
type Ascent struct {
	Grade  string
	Fields map[string]string
}

// Table is a loosely-typed spreadsheet: a header plus rows aligned to it.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Store holds every table that loaded successfully. A nil/empty field means the
// source was absent or failed to parse. Store is never mutated after Load.
type Store struct {
	Gym     []GymExercise
	Ascents []Ascent
	Sheet   *Table
}

// Stats summarises row counts per source.
type Stats struct {
	GymRows    int `json:"gym_rows"`
	AscentRows int `json:"ascent_rows"`
	SheetRows  int `json:"sheet_rows"`
}

// GradeShare is one entry of the ascent grade distribution.
type GradeShare struct {
	Grade   string  `json:"grade"`
	Count   int     `json:"count"`
	Percent float64 `json:"percentage"`
}

// Load reads every configured source. Failures are logged and the source is
// treated as absent; Load itself never fails.
func Load(ctx context.Context, src Sources, client *http.Client) *Store {
	if client == nil {
		client = http.DefaultClient
	}
	s := &Store{}

	if src.GymPath != "" {
		t, err := readFile(src.GymPath)
		if err != nil {
			slog.Warn("dataset: gym data not loaded", "path", src.GymPath, "err", err)
		} else {
			s.Gym = gymFromTable(t)
			slog.Info("dataset: loaded gym data", "rows", len(s.Gym), "columns", len(t.Columns))
		}
	}

	if src.AscentsPath != "" {
		t, err := readFile(src.AscentsPath)
		if err != nil {
			slog.Warn("dataset: ascent data not loaded", "path", src.AscentsPath, "err", err)
		} else {
			s.Ascents = ascentsFromTable(t)
			slog.Info("dataset: loaded ascent data", "rows", len(s.Ascents), "columns", len(t.Columns))
		}
	}

	if src.SheetsURL != "" {
		t, err := readSheet(ctx, client, src.SheetsURL)
		if err != nil {
			slog.Warn("dataset: sheet data not loaded", "source", src.SheetsURL, "err", err)
		} else {
			s.Sheet = t
			slog.Info("dataset: loaded sheet data", "rows", len(t.Rows), "columns", t.Columns)
		}
	}

	return s
}

// Stats returns row counts for each source.
func (s *Store) Stats() Stats {
	st := Stats{GymRows: len(s.Gym), AscentRows: len(s.Ascents)}
	if s.Sheet != nil {
		st.SheetRows = len(s.Sheet.Rows)
	}
	return st
}

// GradeDistribution returns the most common ascent grades, most frequent first.
// Ties keep the order in which grades first appear.
func (s *Store) GradeDistribution(limit int) []GradeShare {
	if limit <= 0 || len(s.Ascents) == 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, a := range s.Ascents {
		if a.Grade == "" {
			continue
		}
		if _, seen := counts[a.Grade]; !seen {
			order = append(order, a.Grade)
		}
		counts[a.Grade]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	out := make([]GradeShare, 0, len(order))
	total := float64(len(s.Ascents))
	for _, g := range order {
		out = append(out, GradeShare{
			Grade:   g,
			Count:   counts[g],
			Percent: float64(counts[g]) / total * 100,
		})
	}
	return out
}

// Column returns the index of the first column whose lower-cased header
// contains any of the given substrings, or -1.
func (t *Table) Column(substrs ...string) int {
	for i, c := range t.Columns {
		lower := strings.ToLower(c)
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return i
			}
		}
	}
	return -1
}

// Value returns the trimmed cell at (row, col), or "" when out of range.
func (t *Table) Value(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Record returns the non-empty cells of a row keyed by column header, in a
// map. Columns with empty values are omitted.
func (t *Table) Record(row int) map[string]string {
	rec := make(map[string]string)
	for i, c := range t.Columns {
		if v := t.Value(row, i); v != "" {
			rec[c] = v
		}
	}
	return rec
}

func readFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(f)
}

func readSheet(ctx context.Context, client *http.Client, source string) (*Table, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return readFile(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, SheetsCSVURL(source), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet: unexpected status %d", resp.StatusCode)
	}
	return parseCSV(resp.Body)
}

// SheetsCSVURL converts a Google Sheets edit link into its CSV export link.
// Other URLs are returned unchanged.
func SheetsCSVURL(u string) string {
	if !strings.Contains(u, "/edit") {
		return u
	}
	u = strings.Replace(u, "/edit#gid=", "/export?format=csv&gid=", 1)
	u = strings.Replace(u, "/edit?gid=", "/export?format=csv&gid=", 1)
	return u
}

func parseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		if blankRow(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func blankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// gymFromTable maps the Kaggle gym catalog columns (Title, Desc, BodyPart,
// Equipment, Level, Type, Rating) onto GymExercise.
func gymFromTable(t *Table) []GymExercise {
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[strings.ToLower(c)] = i
	}
	get := func(row int, name string) string {
		i, ok := idx[name]
		if !ok {
			return ""
		}
		return t.Value(row, i)
	}

	out := make([]GymExercise, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, GymExercise{
			Title:     get(i, "title"),
			Desc:      get(i, "desc"),
			BodyPart:  get(i, "bodypart"),
			Equipment: get(i, "equipment"),
			Level:     get(i, "level"),
			Type:      get(i, "type"),
			Rating:    get(i, "rating"),
		})
	}
	return out
}

func ascentsFromTable(t *Table) []Ascent {
	gradeCol := -1
	for i, c := range t.Columns {
		if strings.EqualFold(c, "grade") {
			gradeCol = i
			break
		}
	}

	out := make([]Ascent, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, Ascent{
			Grade:  t.Value(i, gradeCol),
			Fields: t.Record(i),
		})
	}
	return out
}

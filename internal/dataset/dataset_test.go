package dataset

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_AllSources(t *testing.T) {
	gym := writeCSV(t, "gym.csv", "\ufeffTitle,Desc,BodyPart,Equipment,Level,Type,Rating\n"+
		"Dead Hang,Hang from a bar,Forearms,Bar,Beginner,Strength,8.1\n"+
		",,,,,,\n"+
		"Squat,Barbell squat,Quadriceps,Barbell,Intermediate,Strength,9.0\n")
	ascents := writeCSV(t, "climbs.csv", "user_id,grade,date\n1,6a,2020-01-01\n2,6b,2020-01-02\n3,6a,2020-01-03\n")
	sheet := writeCSV(t, "sheet.csv", "Name, Height (in) ,Grade\nAlex,70,V5\n")

	s := Load(context.Background(), Sources{GymPath: gym, AscentsPath: ascents, SheetsURL: sheet}, nil)

	if len(s.Gym) != 2 {
		t.Fatalf("expected 2 gym rows (blank skipped), got %d", len(s.Gym))
	}
	if s.Gym[0].Title != "Dead Hang" || s.Gym[0].BodyPart != "Forearms" {
		t.Errorf("unexpected first gym row: %+v", s.Gym[0])
	}
	if len(s.Ascents) != 3 || s.Ascents[1].Grade != "6b" {
		t.Errorf("unexpected ascents: %+v", s.Ascents)
	}
	if s.Ascents[0].Fields["date"] != "2020-01-01" {
		t.Errorf("expected extra fields to be kept, got %v", s.Ascents[0].Fields)
	}
	if s.Sheet == nil || s.Sheet.Columns[1] != "Height (in)" {
		t.Fatalf("expected trimmed sheet header, got %+v", s.Sheet)
	}

	st := s.Stats()
	if st.GymRows != 2 || st.AscentRows != 3 || st.SheetRows != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestLoad_MissingSourcesAreAbsent(t *testing.T) {
	dir := t.TempDir()
	s := Load(context.Background(), Sources{
		GymPath:     filepath.Join(dir, "nope.csv"),
		AscentsPath: filepath.Join(dir, "also-nope.csv"),
		SheetsURL:   filepath.Join(dir, "sheet.csv"),
	}, nil)

	if s.Gym != nil || s.Ascents != nil || s.Sheet != nil {
		t.Errorf("expected empty store, got %+v", s)
	}
	if st := s.Stats(); st != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", st)
	}
}

func TestLoad_EmptyFileIsAbsent(t *testing.T) {
	gym := writeCSV(t, "gym.csv", "")
	s := Load(context.Background(), Sources{GymPath: gym}, nil)
	if s.Gym != nil {
		t.Errorf("expected no gym rows, got %+v", s.Gym)
	}
}

func TestLoad_SheetOverHTTP(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte("Height,Weight,Grade\n70,150,V4\n"))
	}))
	defer srv.Close()

	s := Load(context.Background(), Sources{SheetsURL: srv.URL + "/spreadsheets/d/abc/edit#gid=0"}, srv.Client())

	if gotPath != "/spreadsheets/d/abc/export" || gotQuery != "format=csv&gid=0" {
		t.Errorf("expected export url, got path=%q query=%q", gotPath, gotQuery)
	}
	if s.Sheet == nil || len(s.Sheet.Rows) != 1 {
		t.Fatalf("expected one sheet row, got %+v", s.Sheet)
	}
	if got := s.Sheet.Value(0, s.Sheet.Column("grade")); got != "V4" {
		t.Errorf("expected V4, got %q", got)
	}
}

func TestLoad_SheetHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	s := Load(context.Background(), Sources{SheetsURL: srv.URL + "/sheet.csv"}, srv.Client())
	if s.Sheet != nil {
		t.Errorf("expected sheet to be absent on 403, got %+v", s.Sheet)
	}
}

func TestSheetsCSVURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{
			"https://docs.google.com/spreadsheets/d/X/edit#gid=12",
			"https://docs.google.com/spreadsheets/d/X/export?format=csv&gid=12",
		},
		{
			"https://docs.google.com/spreadsheets/d/X/edit?gid=3",
			"https://docs.google.com/spreadsheets/d/X/export?format=csv&gid=3",
		},
		{
			"https://example.com/data.csv",
			"https://example.com/data.csv",
		},
	}
	for _, tc := range tests {
		if got := SheetsCSVURL(tc.in); got != tc.want {
			t.Errorf("SheetsCSVURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGradeDistribution(t *testing.T) {
	s := &Store{Ascents: []Ascent{
		{Grade: "6a"}, {Grade: "6b"}, {Grade: "6b"}, {Grade: "7a"}, {Grade: "6a"}, {Grade: ""},
	}}

	got := s.GradeDistribution(2)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	// 6a and 6b tie at 2; 6a appears first.
	if got[0].Grade != "6a" || got[1].Grade != "6b" {
		t.Errorf("unexpected order: %+v", got)
	}
	if got[0].Count != 2 {
		t.Errorf("expected count 2, got %d", got[0].Count)
	}
	want := 2.0 / 6.0 * 100
	if math.Abs(got[0].Percent-want) > 1e-9 {
		t.Errorf("expected %.4f%%, got %.4f%%", want, got[0].Percent)
	}

	if s.GradeDistribution(0) != nil {
		t.Error("expected nil for limit 0")
	}
}

func TestTableHelpers(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Name", "Height_cm", "Max Grade"},
		Rows:    [][]string{{"Sam", " 180 ", ""}, {"Jo"}},
	}

	if i := tbl.Column("height"); i != 1 {
		t.Errorf("Column(height) = %d", i)
	}
	if i := tbl.Column("grade", "level"); i != 2 {
		t.Errorf("Column(grade, level) = %d", i)
	}
	if i := tbl.Column("weight"); i != -1 {
		t.Errorf("Column(weight) = %d, want -1", i)
	}
	if v := tbl.Value(0, 1); v != "180" {
		t.Errorf("expected trimmed value, got %q", v)
	}
	if v := tbl.Value(1, 2); v != "" {
		t.Errorf("expected empty for short row, got %q", v)
	}

	rec := tbl.Record(0)
	if len(rec) != 2 || rec["Name"] != "Sam" {
		t.Errorf("unexpected record: %v", rec)
	}
}

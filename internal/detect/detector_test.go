package detect

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photocore/internal/formats"
	"photocore/pkg/domain"
)

func writeDoc(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func testStore(t *testing.T) *formats.Store {
	t.Helper()
	dir := t.TempDir()
	writeDoc(t, dir, "square.json", `{
		"format_id": "icao-square",
		"dimensions": {"width": 600, "height": 600, "tolerance": 0.02},
		"background": {"color": "white"},
		"detection_criteria": {"min_resolution": 300, "target_aspect_ratio": 1.0, "tolerance": 0.05}
	}`)
	writeDoc(t, dir, "visa.json", `{
		"format_id": "us-visa",
		"country": "US",
		"dimensions": {"width": 413, "height": 531, "tolerance": 0.02},
		"background": {"color": "white"},
		"detection_criteria": {"min_resolution": 300, "target_aspect_ratio": 0.7778, "tolerance": 0.05}
	}`)
	store := formats.NewStore([]string{dir})
	if _, err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store
}

func TestDetectRanksMatchingGeometryFirst(t *testing.T) {
	d := New(testStore(t))
	meta := domain.ImageMetadata{WidthPx: 600, HeightPx: 600, Filename: "photo.jpg"}

	matches := d.Detect(meta, 0.1)
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if matches[0].FormatID != "icao-square" {
		t.Fatalf("best match = %s, want icao-square", matches[0].FormatID)
	}
	if !matches[0].AspectRatioMatch || !matches[0].DimensionMatch {
		t.Fatalf("best match flags = %+v", matches[0])
	}
	if matches[0].Confidence <= 0.8 {
		t.Fatalf("exact geometry should score high, got %v", matches[0].Confidence)
	}
	if len(matches[0].MatchReasons) == 0 {
		t.Fatal("expected populated match reasons")
	}
}

func TestDetectThresholdFiltersWeakCandidates(t *testing.T) {
	d := New(testStore(t))
	meta := domain.ImageMetadata{WidthPx: 600, HeightPx: 600}

	all := d.Detect(meta, 0)
	strong := d.Detect(meta, 0.8)
	if len(strong) >= len(all) {
		t.Fatalf("threshold should filter: %d vs %d", len(strong), len(all))
	}
	for _, m := range strong {
		if m.Confidence < 0.8 {
			t.Fatalf("match below threshold leaked: %+v", m)
		}
	}
}

func TestDetectTieBreakIsLexicographic(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "b.json", `{"format_id": "beta-square", "dimensions": {"width": 500, "height": 500}, "detection_criteria": {"target_aspect_ratio": 1.0, "tolerance": 0.05}}`)
	writeDoc(t, dir, "a.json", `{"format_id": "alpha-square", "dimensions": {"width": 500, "height": 500}, "detection_criteria": {"target_aspect_ratio": 1.0, "tolerance": 0.05}}`)
	store := formats.NewStore([]string{dir})
	if _, err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	d := New(store)

	matches := d.Detect(domain.ImageMetadata{WidthPx: 500, HeightPx: 500}, 0)
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].Confidence != matches[1].Confidence {
		t.Fatalf("expected identical confidence, got %v and %v",
			matches[0].Confidence, matches[1].Confidence)
	}
	if matches[0].FormatID != "alpha-square" {
		t.Fatalf("tie should order by format id, got %s first", matches[0].FormatID)
	}
}

func TestDetectFilenameHintBoostsConfidence(t *testing.T) {
	d := New(testStore(t))
	plain := domain.ImageMetadata{WidthPx: 413, HeightPx: 531, Filename: "img0001.jpg"}
	hinted := domain.ImageMetadata{WidthPx: 413, HeightPx: 531, Filename: "john_us_visa.jpg"}

	base, ok := d.BestMatch(plain, 0.1)
	if !ok || base.FormatID != "us-visa" {
		t.Fatalf("best match = %+v, %v", base, ok)
	}
	boosted, ok := d.BestMatch(hinted, 0.1)
	if !ok {
		t.Fatal("expected a match")
	}
	if boosted.Confidence <= base.Confidence {
		t.Fatalf("filename hint should raise confidence: %v vs %v",
			boosted.Confidence, base.Confidence)
	}
}

func TestDetectFileSizePlausibilityAffectsConfidence(t *testing.T) {
	d := New(testStore(t))
	plausible := domain.ImageMetadata{WidthPx: 600, HeightPx: 600, FileSize: 2 << 20}
	tiny := domain.ImageMetadata{WidthPx: 600, HeightPx: 600, FileSize: 100_000}
	unknown := domain.ImageMetadata{WidthPx: 600, HeightPx: 600}

	best := func(meta domain.ImageMetadata) float64 {
		m, ok := d.BestMatch(meta, 0.1)
		if !ok || m.FormatID != "icao-square" {
			t.Fatalf("best match = %+v, %v", m, ok)
		}
		return m.Confidence
	}
	if p, u := best(plausible), best(unknown); p <= u {
		t.Fatalf("plausible size should outrank unknown size: %v vs %v", p, u)
	}
	if u, tn := best(unknown), best(tiny); tn >= u {
		t.Fatalf("implausibly small file should score below unknown: %v vs %v", tn, u)
	}
	m, _ := d.BestMatch(plausible, 0.1)
	if _, ok := m.QualityIndicators["file_size"]; !ok {
		t.Fatalf("expected a file_size indicator, got %+v", m.QualityIndicators)
	}
}

func TestDetectCountryKeywordAndEXIFHints(t *testing.T) {
	d := New(testStore(t))
	plain := domain.ImageMetadata{WidthPx: 413, HeightPx: 531, Filename: "img0001.jpg"}
	country := domain.ImageMetadata{WidthPx: 413, HeightPx: 531, Filename: "american_photo.jpg"}
	exif := domain.ImageMetadata{
		WidthPx: 413, HeightPx: 531, Filename: "img0001.jpg",
		EXIF: map[string]string{"Software": "USA Passport Booth 3.1"},
	}

	base, ok := d.BestMatch(plain, 0.1)
	if !ok || base.FormatID != "us-visa" {
		t.Fatalf("best match = %+v, %v", base, ok)
	}
	fromName, _ := d.BestMatch(country, 0.1)
	if fromName.Confidence <= base.Confidence {
		t.Fatalf("country keyword in filename should raise confidence: %v vs %v",
			fromName.Confidence, base.Confidence)
	}
	fromEXIF, _ := d.BestMatch(exif, 0.1)
	if fromEXIF.Confidence <= base.Confidence {
		t.Fatalf("country keyword in EXIF should raise confidence: %v vs %v",
			fromEXIF.Confidence, base.Confidence)
	}
	found := false
	for _, reason := range fromEXIF.MatchReasons {
		if strings.Contains(reason, "country US") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a country hint reason, got %v", fromEXIF.MatchReasons)
	}
}

type countingObserver struct {
	calls   int
	matches int
}

func (o *countingObserver) DetectionFinished(matches int) {
	o.calls++
	o.matches = matches
}

func TestDetectNotifiesObserver(t *testing.T) {
	obs := &countingObserver{}
	d := New(testStore(t), WithObserver(obs))

	got := d.Detect(domain.ImageMetadata{WidthPx: 600, HeightPx: 600}, 0.1)
	if obs.calls != 1 {
		t.Fatalf("observer calls = %d, want 1", obs.calls)
	}
	if obs.matches != len(got) {
		t.Fatalf("observer matches = %d, want %d", obs.matches, len(got))
	}
}

func TestBestMatchNoCandidates(t *testing.T) {
	d := New(testStore(t))
	if _, ok := d.BestMatch(domain.ImageMetadata{WidthPx: 10, HeightPx: 1000}, 0.9); ok {
		t.Fatal("degenerate geometry should not clear a 0.9 threshold")
	}
}

func TestCompatibilityMatrix(t *testing.T) {
	d := New(testStore(t))
	matrix := d.CompatibilityMatrix()

	if len(matrix) != 2 {
		t.Fatalf("matrix rows = %d, want 2", len(matrix))
	}
	if matrix["icao-square"]["icao-square"] != 1 {
		t.Fatal("diagonal must be 1")
	}
	// The larger square carries enough pixels for the visa crop; the visa
	// photo cannot be upscaled into the square format.
	if matrix["icao-square"]["us-visa"] <= matrix["us-visa"]["icao-square"] {
		t.Fatalf("compatibility should be asymmetric: %v vs %v",
			matrix["icao-square"]["us-visa"], matrix["us-visa"]["icao-square"])
	}
}

func TestImprovementSuggestions(t *testing.T) {
	d := New(testStore(t))
	meta := domain.ImageMetadata{WidthPx: 200, HeightPx: 200, FileSize: 50_000}

	suggestions, err := d.ImprovementSuggestions("icao-square", meta)
	if err != nil {
		t.Fatalf("suggestions: %v", err)
	}
	if len(suggestions) == 0 {
		t.Fatal("undersized image should yield suggestions")
	}
	foundResolution := false
	for _, s := range suggestions {
		if s.Priority == PriorityHigh && s.Category == domain.CategoryDimensions {
			foundResolution = true
		}
	}
	if !foundResolution {
		t.Fatalf("expected a high-priority dimension suggestion, got %+v", suggestions)
	}

	if _, err := d.ImprovementSuggestions("mars-visa", meta); err == nil {
		t.Fatal("unknown format must error")
	}
	var unknown *domain.UnknownFormatError
	_, err = d.ImprovementSuggestions("mars-visa", meta)
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want UnknownFormatError", err)
	}
}

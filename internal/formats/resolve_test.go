package formats

import (
	"errors"
	"math"
	"strings"
	"testing"

	"photocore/pkg/domain"
)

func TestResolveFlattensChain(t *testing.T) {
	docs := map[string]Document{
		"icao-standard": {
			FormatID: "icao-standard",
			Dimensions: &DimensionsDoc{
				Width: intp(600), Height: intp(600), Tolerance: flp(0.03),
			},
			Background: &BackgroundDoc{Color: strp("white"), Tolerance: flp(20)},
		},
		"us-visa": {
			FormatID:     "us-visa",
			InheritsFrom: "icao-standard",
			Dimensions:   &DimensionsDoc{Width: intp(413), Height: intp(531)},
		},
		"us-visa-strict": {
			FormatID:             "us-visa-strict",
			InheritsFrom:         "us-visa",
			ValidationStrictness: strp("strict"),
		},
	}

	rules, err := Resolve(docs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("resolved %d formats, want 3", len(rules))
	}

	leaf := rules["us-visa-strict"]
	if leaf.Dimensions.Width != 413 || leaf.Dimensions.Height != 531 {
		t.Fatalf("leaf dimensions = %dx%d, want 413x531", leaf.Dimensions.Width, leaf.Dimensions.Height)
	}
	if leaf.Dimensions.Tolerance != 0.03 {
		t.Fatalf("leaf tolerance = %v, want inherited 0.03", leaf.Dimensions.Tolerance)
	}
	if leaf.Background.Color != "white" {
		t.Fatalf("leaf background = %q, want inherited white", leaf.Background.Color)
	}
	if leaf.ValidationStrictness != domain.StrictnessStrict {
		t.Fatalf("leaf strictness = %q, want strict", leaf.ValidationStrictness)
	}
	wantRatio := 413.0 / 531.0
	if math.Abs(leaf.Dimensions.AspectRatio-wantRatio) > 1e-9 {
		t.Fatalf("leaf aspect ratio = %v, want %v", leaf.Dimensions.AspectRatio, wantRatio)
	}
}

func TestResolveCycleLeavesOthersIntact(t *testing.T) {
	docs := map[string]Document{
		"a": {FormatID: "a", InheritsFrom: "b"},
		"b": {FormatID: "b", InheritsFrom: "a"},
		"standalone": {
			FormatID:   "standalone",
			Dimensions: &DimensionsDoc{Width: intp(300), Height: intp(300)},
		},
	}

	rules, err := Resolve(docs)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	var cycle *domain.CircularInheritanceError
	if !errors.As(err, &cycle) {
		t.Fatalf("error %v is not a CircularInheritanceError", err)
	}
	if !strings.Contains(cycle.Error(), "->") {
		t.Fatalf("cycle error %q should spell out the path", cycle.Error())
	}
	if _, ok := rules["a"]; ok {
		t.Fatal("cycle member a should not resolve")
	}
	if _, ok := rules["b"]; ok {
		t.Fatal("cycle member b should not resolve")
	}
	if _, ok := rules["standalone"]; !ok {
		t.Fatal("standalone format should resolve despite unrelated cycle")
	}
}

func TestResolveMissingParent(t *testing.T) {
	docs := map[string]Document{
		"orphan": {FormatID: "orphan", InheritsFrom: "ghost"},
		"ok":     {FormatID: "ok"},
	}

	rules, err := Resolve(docs)
	var missing *domain.MissingParentError
	if !errors.As(err, &missing) {
		t.Fatalf("error %v is not a MissingParentError", err)
	}
	if missing.FormatID != "orphan" || missing.Parent != "ghost" {
		t.Fatalf("missing parent error = %+v", missing)
	}
	if _, ok := rules["orphan"]; ok {
		t.Fatal("orphan should not resolve")
	}
	if _, ok := rules["ok"]; !ok {
		t.Fatal("independent format should still resolve")
	}
}

func TestResolveGrandchildOfBrokenChainExcluded(t *testing.T) {
	docs := map[string]Document{
		"child":  {FormatID: "child", InheritsFrom: "broken"},
		"broken": {FormatID: "broken", InheritsFrom: "ghost"},
	}

	rules, err := Resolve(docs)
	if err == nil {
		t.Fatal("expected missing-parent error")
	}
	if len(rules) != 0 {
		t.Fatalf("resolved %d formats, want none", len(rules))
	}
}

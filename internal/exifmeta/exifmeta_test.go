package exifmeta

import (
	"testing"
)

func sourceOf(files ...map[string]any) *Source {
	return &Source{files: files}
}

func TestSidecarOverridesPrimary(t *testing.T) {
	src := sourceOf(
		map[string]any{
			"EXIF:DateTimeOriginal": "2020:01:01 10:00:00",
			"EXIF:Make":             "Canon",
		},
		map[string]any{
			"EXIF:DateTimeOriginal": "2021:06:15 08:30:00",
		},
	)

	got, ok := src.GetString("EXIF:DateTimeOriginal")
	if !ok || got != "2021:06:15 08:30:00" {
		t.Errorf("sidecar value should win, got %q (ok=%v)", got, ok)
	}
	make, ok := src.GetString("EXIF:Make")
	if !ok || make != "Canon" {
		t.Errorf("primary-only tag should survive, got %q (ok=%v)", make, ok)
	}
}

func TestGetFloatRejectsNonNumeric(t *testing.T) {
	src := sourceOf(map[string]any{
		"Composite:GPSLatitude":  50.0766,
		"Composite:GPSLongitude": "14.4368",
		"EXIF:FNumber":           "f/2.8",
	})

	if v, ok := src.GetFloat("Composite:GPSLatitude"); !ok || v != 50.0766 {
		t.Errorf("GPSLatitude = %v (ok=%v), want 50.0766", v, ok)
	}
	if v, ok := src.GetFloat("Composite:GPSLongitude"); !ok || v != 14.4368 {
		t.Errorf("numeric string should parse, got %v (ok=%v)", v, ok)
	}
	if _, ok := src.GetFloat("EXIF:FNumber"); ok {
		t.Error("non-numeric value must be treated as absent")
	}
	if _, ok := src.GetFloat("EXIF:Missing"); ok {
		t.Error("missing tag must be absent")
	}
}

func TestTagsFetchesRequestedSubset(t *testing.T) {
	src := sourceOf(map[string]any{
		"EXIF:DateTimeOriginal": "2020:01:01 10:00:00",
		"EXIF:Model":            "X100",
		"EXIF:Orientation":      int64(6),
	})

	got, err := src.Tags([]string{"EXIF:DateTimeOriginal", "EXIF:Orientation", "EXIF:Nope"})
	if err != nil {
		t.Fatalf("Tags() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Tags() = %v, want 2 entries", got)
	}
	if got["EXIF:Orientation"] != "6" {
		t.Errorf("orientation = %q, want numeric string", got["EXIF:Orientation"])
	}
}

func TestGetRegionInfo(t *testing.T) {
	src := sourceOf(map[string]any{
		TagRegionInfo: map[string]any{
			"AppliedToDimensions": map[string]any{
				"W": 4000.0, "H": 3000.0, "Unit": "pixel",
			},
			"RegionList": []any{
				map[string]any{
					"Name": "Alice",
					"Type": "Face",
					"Area": map[string]any{
						"X": 0.5, "Y": 0.25, "W": 0.1, "H": 0.2, "Unit": "normalized",
					},
				},
				map[string]any{
					"Type": "Pet",
					"Area": map[string]any{"X": 0.1, "Y": 0.1, "W": 0.1, "H": 0.1, "Unit": "normalized"},
				},
			},
		},
	})

	info, ok := src.GetRegionInfo()
	if !ok {
		t.Fatal("expected region info")
	}
	if info.AppliedToWidth != 4000 || info.AppliedToHeight != 3000 {
		t.Errorf("applied dimensions = %vx%v", info.AppliedToWidth, info.AppliedToHeight)
	}
	if len(info.Regions) != 2 {
		t.Fatalf("regions = %d, want 2", len(info.Regions))
	}
	r := info.Regions[0]
	if r.Name != "Alice" || r.Type != "Face" || r.Area.X != 0.5 || r.Area.Unit != "normalized" {
		t.Errorf("region = %+v", r)
	}
}

func TestGetRegionInfoSingleRegion(t *testing.T) {
	src := sourceOf(map[string]any{
		TagRegionInfo: map[string]any{
			"RegionList": map[string]any{
				"Name": "Bob",
				"Type": "Face",
				"Area": map[string]any{"X": 0.5, "Y": 0.5, "W": 0.2, "H": 0.2, "Unit": "normalized"},
			},
		},
	})

	info, ok := src.GetRegionInfo()
	if !ok || len(info.Regions) != 1 || info.Regions[0].Name != "Bob" {
		t.Fatalf("single-region block should parse, got %+v (ok=%v)", info, ok)
	}
}

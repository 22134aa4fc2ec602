package geocode

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

const nominatimFixture = `{
	"display_name": "Karlova 1, Old Town, Prague, Czechia",
	"lat": "50.0865",
	"lon": "14.4114",
	"address": {
		"road": "Karlova",
		"suburb": "Old Town",
		"city": "Prague",
		"country": "Czechia",
		"postcode": "110 00"
	}
}`

const mapboxFixture = `{
	"features": [{
		"text": "Karlova",
		"place_name": "Karlova, Prague, Czechia",
		"center": [14.4114, 50.0865],
		"context": [
			{"id": "postcode.123", "text": "110 00"},
			{"id": "place.456", "text": "Prague"},
			{"id": "country.789", "text": "Czechia"}
		]
	}]
}`

const photonFixture = `{
	"features": [{
		"geometry": {"coordinates": [14.4114, 50.0865]},
		"properties": {
			"street": "Karlova",
			"city": "Prague",
			"state": "Prague",
			"country": "Czechia"
		}
	}]
}`

const tomtomFixture = `{
	"addresses": [{
		"position": "50.0865,14.4114",
		"address": {
			"street": "Karlova",
			"municipality": "Prague",
			"countrySubdivision": "PR",
			"country": "Czechia",
			"freeformAddress": "Karlova, Prague, Czechia"
		}
	}]
}`

const opencageFixture = `{
	"results": [{
		"formatted": "Karlova, Prague, Czechia",
		"geometry": {"lat": 50.0865, "lng": 14.4114},
		"components": {
			"_type": "building",
			"building": "Clementinum",
			"road": "Karlova",
			"city": "Prague",
			"country": "Czechia"
		}
	}]
}`

func TestParsersAdministrativeOrder(t *testing.T) {
	tests := []struct {
		name       string
		parse      func([]byte) (Result, error)
		body       string
		wantPlaces []string
	}{
		{"nominatim", parseNominatim, nominatimFixture, []string{"Karlova", "Old Town", "Prague", "Czechia"}},
		{"mapbox postcode skipped", parseMapbox, mapboxFixture, []string{"Karlova", "Prague", "Czechia"}},
		{"photon", parsePhoton, photonFixture, []string{"Karlova", "Prague", "Prague", "Czechia"}},
		{"tomtom short names dropped", parseTomTom, tomtomFixture, []string{"Karlova", "Prague", "Czechia"}},
		{"opencage typed component first", parseOpenCage, opencageFixture, []string{"Clementinum", "Karlova", "Prague", "Czechia"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse([]byte(tt.body))
			if err != nil {
				t.Fatalf("parse error = %v", err)
			}
			if !reflect.DeepEqual(got.Places, tt.wantPlaces) {
				t.Errorf("places = %v, want %v", got.Places, tt.wantPlaces)
			}
			if len(got.Features) != len(got.Places) {
				t.Errorf("features = %d entries, want %d", len(got.Features), len(got.Places))
			}
			for i, f := range got.Features {
				if f.Text != got.Places[i] {
					t.Errorf("feature %d text = %q, want %q", i, f.Text, got.Places[i])
				}
			}
			if got.Address == "" {
				t.Error("address should be set")
			}
		})
	}
}

func TestReverseStampsVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nominatimFixture))
	}))
	defer srv.Close()

	c := New("nominatim", "", slog.Default())
	c.endpointOverride = srv.URL

	got := c.Reverse(context.Background(), 50.0865, 14.4114)
	if got.Empty() {
		t.Fatal("expected a populated result")
	}
	if got.Version != Version {
		t.Errorf("version = %d, want %d", got.Version, Version)
	}
	if got.Stale() {
		t.Error("fresh result must not be stale")
	}
}

func TestReverseMissingKeyReturnsEmpty(t *testing.T) {
	c := New("mapbox", "", slog.Default())
	got := c.Reverse(context.Background(), 1, 2)
	if !got.Empty() {
		t.Errorf("missing api key must yield empty result, got %+v", got)
	}
}

func TestReverseProviderErrorReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("nominatim", "", slog.Default())
	c.endpointOverride = srv.URL

	if got := c.Reverse(context.Background(), 1, 2); !got.Empty() {
		t.Errorf("provider failure must yield empty result, got %+v", got)
	}
}

func TestStaleCachedResult(t *testing.T) {
	old := &Result{Version: Version - 1, Places: []string{"Prague"}}
	if !old.Stale() {
		t.Error("older schema version must be stale")
	}
	var missing *Result
	if !missing.Stale() || !missing.Empty() {
		t.Error("nil result is stale and empty")
	}
}

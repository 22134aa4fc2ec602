package geocode

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Each parser maps one provider's native response into the uniform schema,
// keeping administrative order from most to least specific.

func parseMapbox(body []byte) (Result, error) {
	var raw struct {
		Features []struct {
			Text      string    `json:"text"`
			PlaceName string    `json:"place_name"`
			Center    []float64 `json:"center"`
			Context   []struct {
				ID   string `json:"id"`
				Text string `json:"text"`
			} `json:"context"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{}, fmt.Errorf("mapbox response: %w", err)
	}
	if len(raw.Features) == 0 {
		return Result{}, fmt.Errorf("mapbox response: no features")
	}

	f := raw.Features[0]
	places := []string{f.Text}
	for _, c := range f.Context {
		// Postcodes carry no album-worthy place name.
		if strings.HasPrefix(c.ID, "post") {
			continue
		}
		places = append(places, c.Text)
	}
	return Result{
		Address:  f.PlaceName,
		Center:   f.Center,
		Places:   places,
		Features: textFeatures(places, nil),
	}, nil
}

func parsePhoton(body []byte) (Result, error) {
	var raw struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{}, fmt.Errorf("photon response: %w", err)
	}
	if len(raw.Features) == 0 {
		return Result{}, fmt.Errorf("photon response: no features")
	}

	f := raw.Features[0]
	places := pickStrings(f.Properties, []string{
		"street", "locality", "district", "city", "state", "country",
	})
	return Result{
		Address:  strings.Join(places, ", "),
		Center:   f.Geometry.Coordinates,
		Places:   places,
		Features: textFeatures(places, f.Geometry.Coordinates),
	}, nil
}

func parseNominatim(body []byte) (Result, error) {
	var raw struct {
		DisplayName string         `json:"display_name"`
		Lat         string         `json:"lat"`
		Lon         string         `json:"lon"`
		Address     map[string]any `json:"address"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{}, fmt.Errorf("nominatim response: %w", err)
	}

	places := pickStrings(raw.Address, []string{
		"road", "town", "neighbourhood", "suburb", "hamlet", "borough",
		"city", "county", "state", "country",
	})
	lat, errLat := strconv.ParseFloat(raw.Lat, 64)
	lon, errLon := strconv.ParseFloat(raw.Lon, 64)
	var center []float64
	if errLat == nil && errLon == nil {
		center = []float64{lon, lat}
	}
	return Result{
		Address:  raw.DisplayName,
		Center:   center,
		Places:   places,
		Features: textFeatures(places, nil),
	}, nil
}

func parseTomTom(body []byte) (Result, error) {
	var raw struct {
		Addresses []struct {
			Address  map[string]any `json:"address"`
			Position string         `json:"position"`
		} `json:"addresses"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{}, fmt.Errorf("tomtom response: %w", err)
	}
	if len(raw.Addresses) == 0 {
		return Result{}, fmt.Errorf("tomtom response: no addresses")
	}

	a := raw.Addresses[0]
	picked := pickStrings(a.Address, []string{
		"street", "streetName", "municipalitySubdivision", "countrySubdivision",
		"countrySecondarySubdivision", "municipality", "country",
	})
	var places []string
	seen := make(map[string]struct{})
	for _, p := range picked {
		// Abbreviations like "NY" pollute album titles.
		if len(p) <= 2 {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		places = append(places, p)
	}

	var center []float64
	if parts := strings.Split(a.Position, ","); len(parts) == 2 {
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errLat == nil && errLon == nil {
			center = []float64{lon, lat}
		}
	}

	address, _ := a.Address["freeformAddress"].(string)
	return Result{
		Address:  address,
		Center:   center,
		Places:   places,
		Features: textFeatures(places, center),
	}, nil
}

func parseOpenCage(body []byte) (Result, error) {
	var raw struct {
		Results []struct {
			Components map[string]any `json:"components"`
			Formatted  string         `json:"formatted"`
			Geometry   struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{}, fmt.Errorf("opencage response: %w", err)
	}
	if len(raw.Results) == 0 {
		return Result{}, fmt.Errorf("opencage response: no results")
	}

	r := raw.Results[0]
	props := []string{"road", "suburb", "municipality", "hamlet", "town",
		"city", "borough", "state", "county", "country"}
	// The component named by _type (building, attraction, ...) leads.
	if typeName, ok := r.Components["_type"].(string); ok {
		props = append([]string{typeName}, props...)
	}
	places := pickStrings(r.Components, props)
	return Result{
		Address:  r.Formatted,
		Center:   []float64{r.Geometry.Lng, r.Geometry.Lat},
		Places:   places,
		Features: textFeatures(places, nil),
	}, nil
}

func pickStrings(m map[string]any, keys []string) []string {
	var out []string
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}

func textFeatures(places []string, center []float64) []Feature {
	features := make([]Feature, 0, len(places))
	for _, p := range places {
		features = append(features, Feature{Text: p, Center: center})
	}
	return features
}

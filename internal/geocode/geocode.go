// Package geocode turns GPS coordinates into a uniform place description.
// Every provider response is normalised into the same schema so photos can
// cache the result and album generation never needs provider knowledge.
package geocode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Version is stamped into every result. Cached results with an older
// version are re-geocoded on the next enrichment pass.
const Version = 3

// Feature is one administrative area, ordered street first, country last.
type Feature struct {
	Text   string    `json:"text"`
	Center []float64 `json:"center,omitempty"`
}

// Result is the uniform reverse-geocoding schema. Center is [lon, lat].
type Result struct {
	Version  int       `json:"_v,omitempty"`
	Address  string    `json:"address,omitempty"`
	Center   []float64 `json:"center,omitempty"`
	Places   []string  `json:"places,omitempty"`
	Features []Feature `json:"features,omitempty"`
}

// Empty reports whether the result carries no place information.
func (r *Result) Empty() bool {
	return r == nil || len(r.Places) == 0
}

// Stale reports whether a cached result predates the current schema.
func (r *Result) Stale() bool {
	return r == nil || r.Version != Version
}

type provider struct {
	needsKey bool
	endpoint func(apiKey string, lat, lon float64) string
	parse    func(body []byte) (Result, error)
}

var providers = map[string]provider{
	"mapbox": {
		needsKey: true,
		endpoint: func(key string, lat, lon float64) string {
			return fmt.Sprintf("https://api.mapbox.com/geocoding/v5/mapbox.places/%f,%f.json?access_token=%s", lon, lat, url.QueryEscape(key))
		},
		parse: parseMapbox,
	},
	"maptiler": {
		needsKey: true,
		endpoint: func(key string, lat, lon float64) string {
			return fmt.Sprintf("https://api.maptiler.com/geocoding/%f,%f.json?key=%s", lon, lat, url.QueryEscape(key))
		},
		parse: parseMapbox, // maptiler speaks the mapbox response dialect
	},
	"tomtom": {
		needsKey: true,
		endpoint: func(key string, lat, lon float64) string {
			return fmt.Sprintf("https://api.tomtom.com/search/2/reverseGeocode/%f,%f.json?key=%s", lat, lon, url.QueryEscape(key))
		},
		parse: parseTomTom,
	},
	"photon": {
		endpoint: func(_ string, lat, lon float64) string {
			return fmt.Sprintf("https://photon.komoot.io/reverse?lat=%f&lon=%f", lat, lon)
		},
		parse: parsePhoton,
	},
	"nominatim": {
		endpoint: func(_ string, lat, lon float64) string {
			return fmt.Sprintf("https://nominatim.openstreetmap.org/reverse?format=jsonv2&lat=%f&lon=%f", lat, lon)
		},
		parse: parseNominatim,
	},
	"opencage": {
		needsKey: true,
		endpoint: func(key string, lat, lon float64) string {
			return fmt.Sprintf("https://api.opencagedata.com/geocode/v1/json?q=%f+%f&key=%s", lat, lon, url.QueryEscape(key))
		},
		parse: parseOpenCage,
	},
}

// Client reverse-geocodes through one configured provider.
type Client struct {
	provider string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger

	// endpointOverride replaces the provider URL in tests.
	endpointOverride string
}

// New creates a client for the named provider. Unknown providers still
// produce a client; every lookup just returns an empty result.
func New(providerName, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		provider: providerName,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// Reverse maps coordinates to a place description. Failures of any kind
// degrade to an empty result with a warning; enrichment must not stall on
// a flaky geocoder.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) Result {
	p, ok := providers[c.provider]
	if !ok {
		c.logger.Warn("unknown geocode provider", "provider", c.provider)
		return Result{}
	}
	if p.needsKey && c.apiKey == "" {
		c.logger.Warn("geocode provider requires an api key", "provider", c.provider)
		return Result{}
	}

	endpoint := c.endpointOverride
	if endpoint == "" {
		endpoint = p.endpoint(c.apiKey, lat, lon)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Warn("geocode request build failed", "provider", c.provider, "error", err)
		return Result{}
	}
	req.Header.Set("User-Agent", "photo-library")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("geocode request failed", "provider", c.provider, "error", err)
		return Result{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("geocode provider returned error", "provider", c.provider, "status", resp.StatusCode)
		return Result{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.logger.Warn("geocode response read failed", "provider", c.provider, "error", err)
		return Result{}
	}

	result, err := p.parse(body)
	if err != nil {
		c.logger.Warn("geocode response parse failed", "provider", c.provider, "error", err)
		return Result{}
	}
	result.Version = Version
	return result
}

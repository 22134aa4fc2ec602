package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-library/internal/timestamp"
)

//go:embed datetime_rules.yaml
var datetimeRulesYAML []byte

type Config struct {
	Database   DatabaseConfig
	Data       DataConfig
	Inference  InferenceConfig
	Geocode    GeocodeConfig
	Caption    CaptionConfig
	Similarity SimilarityConfig
	Faces      FacesConfig
	Web        WebConfig

	// DatetimeRules is the library-wide rule ladder applied to users who
	// have not configured their own.
	DatetimeRules []timestamp.Rule
}

type DatabaseConfig struct {
	URL string // PostgreSQL connection URL
}

// DataConfig holds the on-disk layout for generated artifacts. Thumbnails,
// face crops and zip exports all live under Root.
type DataConfig struct {
	Root string // defaults to ./data
}

func (c DataConfig) FacesDir() string {
	return c.Root + "/faces"
}

func (c DataConfig) ZipDir() string {
	return c.Root + "/zip"
}

// InferenceConfig points at the local model services. Empty URLs fall back
// to the conventional ports inside internal/inference.
type InferenceConfig struct {
	CaptionURL     string
	EmbeddingURL   string
	EmbeddingModel string
	TagsURL        string
	FaceURL        string
	LLMURL         string
	LLMModel       string
}

type GeocodeConfig struct {
	Provider string // mapbox, maptiler, tomtom, photon, nominatim, opencage
	APIKey   string
}

// CaptionConfig selects the optional caption refinement provider.
type CaptionConfig struct {
	Provider     string // "", "local", "openai" or "gemini"
	OpenAIToken  string
	GeminiAPIKey string
}

type SimilarityConfig struct {
	BuildCap int // max visible photos per index build (default 2500)
}

type FacesConfig struct {
	ClusterEpsilon float64 // DBSCAN neighbourhood radius; <= 0 uses the built-in default
}

type WebConfig struct {
	ListenAddr string // defaults to :8080
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() (*Config, error) {
	rules, err := loadDatetimeRules()
	if err != nil {
		return nil, err
	}

	return &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Data: DataConfig{
			Root: envStr("DATA_ROOT", "./data"),
		},
		Inference: InferenceConfig{
			CaptionURL:     os.Getenv("CAPTION_URL"),
			EmbeddingURL:   os.Getenv("CLIP_URL"),
			EmbeddingModel: envStr("CLIP_MODEL", "clip-embeddings"),
			TagsURL:        os.Getenv("TAGS_URL"),
			FaceURL:        os.Getenv("FACE_URL"),
			LLMURL:         os.Getenv("LLM_URL"),
			LLMModel:       os.Getenv("LLM_MODEL"),
		},
		Geocode: GeocodeConfig{
			Provider: os.Getenv("GEOCODE_PROVIDER"),
			APIKey:   os.Getenv("GEOCODE_API_KEY"),
		},
		Caption: CaptionConfig{
			Provider:     os.Getenv("CAPTION_PROVIDER"),
			OpenAIToken:  os.Getenv("OPENAI_TOKEN"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Similarity: SimilarityConfig{
			BuildCap: envInt("SIMILARITY_BUILD_CAP", 2500),
		},
		Faces: FacesConfig{
			ClusterEpsilon: envFloat("FACE_CLUSTER_EPSILON", 0),
		},
		Web: WebConfig{
			ListenAddr: envStr("LISTEN_ADDR", ":8080"),
		},
		DatetimeRules: rules,
	}, nil
}

// loadDatetimeRules reads DATETIME_RULES_PATH when set, otherwise the
// embedded default rule set.
func loadDatetimeRules() ([]timestamp.Rule, error) {
	data := datetimeRulesYAML
	if path := os.Getenv("DATETIME_RULES_PATH"); path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read datetime rules %s: %w", path, err)
		}
	}

	var doc struct {
		Rules []timestamp.Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse datetime rules: %w", err)
	}
	if len(doc.Rules) == 0 {
		return timestamp.DefaultRules(), nil
	}
	return doc.Rules, nil
}

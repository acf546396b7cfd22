// Package config loads docsearch configuration from defaults, YAML files and
// the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docsearch/internal/embed"
	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// CurrentVersion is the config schema version written by `config init`.
const CurrentVersion = 1

// ProjectConfigFile is the per-directory config file name.
const ProjectConfigFile = ".docsearch.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCSEARCH_"

// Config is the complete docsearch configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Ranking    RankingConfig    `yaml:"ranking" json:"ranking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// SearchConfig configures candidate retrieval.
type SearchConfig struct {
	// DefaultLimit is the result count when a search does not set one.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// PartialResults lets a search succeed when some retrieval methods fail.
	PartialResults bool `yaml:"partial_results" json:"partial_results"`

	// SimilarityThreshold is the trigram similarity a title must exceed to
	// be a fuzzy candidate.
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`

	// VectorBackend is "flat" (exact) or "hnsw" (approximate).
	VectorBackend string `yaml:"vector_backend" json:"vector_backend"`
}

// RankingConfig configures fusion weights and boosting.
type RankingConfig struct {
	TitleWeight    float64     `yaml:"title_weight" json:"title_weight"`
	BodyWeight     float64     `yaml:"body_weight" json:"body_weight"`
	FuzzyWeight    float64     `yaml:"fuzzy_weight" json:"fuzzy_weight"`
	SemanticWeight float64     `yaml:"semantic_weight" json:"semantic_weight"`
	RRFConstant    int         `yaml:"rrf_constant" json:"rrf_constant"`
	Boost          BoostConfig `yaml:"boost" json:"boost"`
}

// BoostConfig configures post-fusion score multipliers.
type BoostConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RecencyFactor     float64 `yaml:"recency_factor" json:"recency_factor"`
	RecencyWindowDays float64 `yaml:"recency_window_days" json:"recency_window_days"`
	UserAffinity      float64 `yaml:"user_affinity" json:"user_affinity"`
	PopularityMax     float64 `yaml:"popularity_max" json:"popularity_max"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "static" (built in) or "openai" (any compatible endpoint).
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
	// MaxRetries retries transient remote failures. Zero disables.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// WarmUp builds the model at startup instead of on first use.
	WarmUp bool `yaml:"warm_up" json:"warm_up"`
}

// IndexConfig configures storage and maintenance.
type IndexConfig struct {
	// DataDir holds the databases and the maintenance lock.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// Workers is the maintenance reindex pool size.
	Workers int `yaml:"workers" json:"workers"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      bool   `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	ranker := search.DefaultRankerConfig()
	return &Config{
		Version: CurrentVersion,
		Search: SearchConfig{
			DefaultLimit:        search.DefaultLimit,
			PartialResults:      false,
			SimilarityThreshold: store.DefaultSimilarityThreshold,
			VectorBackend:       string(store.VectorBackendFlat),
		},
		Ranking: RankingConfig{
			TitleWeight:    ranker.Weights.Title,
			BodyWeight:     ranker.Weights.Body,
			FuzzyWeight:    ranker.Weights.Fuzzy,
			SemanticWeight: ranker.Weights.Semantic,
			RRFConstant:    ranker.K,
			Boost: BoostConfig{
				Enabled:           ranker.Boost.Enabled,
				RecencyFactor:     ranker.Boost.RecencyFactor,
				RecencyWindowDays: ranker.Boost.RecencyWindowDays,
				UserAffinity:      ranker.Boost.UserAffinity,
				PopularityMax:     ranker.Boost.PopularityMax,
			},
		},
		Embeddings: EmbeddingsConfig{
			Provider:   string(embed.ProviderStatic),
			Dimensions: embed.DefaultDimensions,
			CacheSize:  embed.DefaultCacheSize,
			WarmUp:     true,
		},
		Index: IndexConfig{
			DataDir: DefaultDataDir(),
			Workers: max(1, runtime.NumCPU()/2),
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      true,
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultDataDir returns ~/.docsearch, or a temp-dir fallback.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docsearch")
	}
	return filepath.Join(home, ".docsearch")
}

// GetUserConfigPath returns the user configuration file path:
// $XDG_CONFIG_HOME/docsearch/config.yaml or ~/.config/docsearch/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "docsearch", "config.yaml")
}

// Load builds the configuration in order of increasing precedence:
//  1. Defaults
//  2. User config (GetUserConfigPath)
//  3. Project config (dir/.docsearch.yaml)
//  4. DOCSEARCH_* environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadYAML(GetUserConfigPath()); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := cfg.loadYAML(filepath.Join(dir, ProjectConfigFile)); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path over the current values. Keys absent from the file
// keep their current value. A missing file is not an error.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return docerrors.New(docerrors.ErrCodeConfigNotFound, "failed to read config file", err).
			WithDetail("path", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return docerrors.ConfigError("failed to parse config file", err).
			WithDetail("path", path).
			WithSuggestion("Check the YAML syntax and key names")
	}
	return nil
}

// envOverride binds one environment variable to a setter.
type envOverride struct {
	key string
	set func(c *Config, v string) error
}

var envOverrides = []envOverride{
	{"SEARCH_LIMIT", func(c *Config, v string) error { return setInt(&c.Search.DefaultLimit, v) }},
	{"PARTIAL_RESULTS", func(c *Config, v string) error { return setBool(&c.Search.PartialResults, v) }},
	{"SIMILARITY_THRESHOLD", func(c *Config, v string) error { return setFloat(&c.Search.SimilarityThreshold, v) }},
	{"VECTOR_BACKEND", func(c *Config, v string) error { c.Search.VectorBackend = v; return nil }},
	{"TITLE_WEIGHT", func(c *Config, v string) error { return setFloat(&c.Ranking.TitleWeight, v) }},
	{"BODY_WEIGHT", func(c *Config, v string) error { return setFloat(&c.Ranking.BodyWeight, v) }},
	{"FUZZY_WEIGHT", func(c *Config, v string) error { return setFloat(&c.Ranking.FuzzyWeight, v) }},
	{"SEMANTIC_WEIGHT", func(c *Config, v string) error { return setFloat(&c.Ranking.SemanticWeight, v) }},
	{"RRF_CONSTANT", func(c *Config, v string) error { return setInt(&c.Ranking.RRFConstant, v) }},
	{"BOOST_ENABLED", func(c *Config, v string) error { return setBool(&c.Ranking.Boost.Enabled, v) }},
	{"EMBEDDINGS_PROVIDER", func(c *Config, v string) error { c.Embeddings.Provider = v; return nil }},
	{"EMBEDDINGS_MODEL", func(c *Config, v string) error { c.Embeddings.Model = v; return nil }},
	{"EMBEDDINGS_BASE_URL", func(c *Config, v string) error { c.Embeddings.BaseURL = v; return nil }},
	{"EMBEDDINGS_DIMENSIONS", func(c *Config, v string) error { return setInt(&c.Embeddings.Dimensions, v) }},
	{"DATA_DIR", func(c *Config, v string) error { c.Index.DataDir = v; return nil }},
	{"WORKERS", func(c *Config, v string) error { return setInt(&c.Index.Workers, v) }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
}

// applyEnvOverrides applies DOCSEARCH_* variables. Unparseable values are
// configuration errors rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(EnvPrefix + o.key)
		if !ok || v == "" {
			continue
		}
		if err := o.set(c, strings.TrimSpace(v)); err != nil {
			return docerrors.ConfigError("invalid environment override", err).
				WithDetail("variable", EnvPrefix+o.key)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit < 1 {
		return configInvalid("search.default_limit must be at least 1, got %d", c.Search.DefaultLimit)
	}
	if c.Search.SimilarityThreshold <= 0 || c.Search.SimilarityThreshold >= 1 {
		return configInvalid("search.similarity_threshold must be in (0, 1), got %g", c.Search.SimilarityThreshold)
	}
	switch store.VectorBackend(strings.ToLower(c.Search.VectorBackend)) {
	case store.VectorBackendFlat, store.VectorBackendHNSW:
	default:
		return configInvalid("search.vector_backend must be 'flat' or 'hnsw', got %q", c.Search.VectorBackend)
	}

	if err := c.RankerConfig().Validate(); err != nil {
		return docerrors.ConfigError("invalid ranking configuration", err)
	}

	switch embed.ProviderType(strings.ToLower(c.Embeddings.Provider)) {
	case embed.ProviderStatic:
	case embed.ProviderOpenAI:
		if c.Embeddings.Model == "" {
			return configInvalid("embeddings.model is required for the openai provider")
		}
	default:
		return configInvalid("embeddings.provider must be 'static' or 'openai', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 1 {
		return configInvalid("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.CacheSize < 0 || c.Embeddings.MaxRetries < 0 {
		return configInvalid("embeddings.cache_size and embeddings.max_retries must be non-negative")
	}

	if c.Index.DataDir == "" {
		return configInvalid("index.data_dir must not be empty")
	}
	if c.Index.Workers < 1 {
		return configInvalid("index.workers must be at least 1, got %d", c.Index.Workers)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return configInvalid("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func configInvalid(format string, args ...any) error {
	return docerrors.ConfigError(fmt.Sprintf(format, args...), nil)
}

// RankerConfig maps the ranking section onto the engine's ranking struct.
func (c *Config) RankerConfig() search.RankerConfig {
	return search.RankerConfig{
		Weights: search.Weights{
			Title:    c.Ranking.TitleWeight,
			Body:     c.Ranking.BodyWeight,
			Fuzzy:    c.Ranking.FuzzyWeight,
			Semantic: c.Ranking.SemanticWeight,
		},
		K: c.Ranking.RRFConstant,
		Boost: search.BoostConfig{
			Enabled:           c.Ranking.Boost.Enabled,
			RecencyFactor:     c.Ranking.Boost.RecencyFactor,
			RecencyWindowDays: c.Ranking.Boost.RecencyWindowDays,
			UserAffinity:      c.Ranking.Boost.UserAffinity,
			PopularityMax:     c.Ranking.Boost.PopularityMax,
		},
	}
}

// EmbedSettings maps the embeddings section onto provider settings.
func (c *Config) EmbedSettings() embed.Settings {
	return embed.Settings{
		Provider:     embed.ProviderType(strings.ToLower(c.Embeddings.Provider)),
		Model:        c.Embeddings.Model,
		BaseURL:      c.Embeddings.BaseURL,
		Dimensions:   c.Embeddings.Dimensions,
		CacheSize:    c.Embeddings.CacheSize,
		DisableCache: c.Embeddings.CacheSize == 0,
		MaxRetries:   c.Embeddings.MaxRetries,
	}
}

// IndexStoreConfig maps the search section onto index store settings.
func (c *Config) IndexStoreConfig() store.IndexStoreConfig {
	return store.IndexStoreConfig{
		Dimensions:          c.Embeddings.Dimensions,
		VectorBackend:       store.VectorBackend(strings.ToLower(c.Search.VectorBackend)),
		SimilarityThreshold: c.Search.SimilarityThreshold,
	}
}

// IndexPath is the index database path.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Index.DataDir, "index.db")
}

// DocumentsPath is the document database path.
func (c *Config) DocumentsPath() string {
	return filepath.Join(c.Index.DataDir, "documents.db")
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Package config holds the single immutable configuration struct for the
// discovery pipeline. It is built once at startup (defaults -> optional
// YAML file -> environment -> flags) and passed explicitly into every
// component that needs it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dancherbu/physical-visual-tester/internal/embedding"
)

// Config is the full pipeline configuration.
type Config struct {
	// Service endpoints
	OllamaURL string `yaml:"ollama_url"`
	QdrantURL string `yaml:"qdrant_url"`

	// Models
	VisionModel string `yaml:"vision_model"`
	// PurposeModel overrides VisionModel for purpose-only calls when a
	// smaller model is good enough. Empty means use VisionModel.
	PurposeModel     string `yaml:"purpose_model"`
	TextPurposeModel string `yaml:"text_purpose_model"`

	// Embedding backend
	Embedding embedding.Config `yaml:"embedding"`

	// Memory store
	Collection string `yaml:"collection"`

	// Admission-control thresholds
	MinQuestions    int     `yaml:"min_questions"`
	MemoryThreshold float64 `yaml:"memory_threshold"`
	VisionThreshold float64 `yaml:"vision_threshold"`
	MaxElements     int     `yaml:"max_elements"`

	// Token generation budgets
	NumPredict        int `yaml:"num_predict"`
	PurposeNumPredict int `yaml:"purpose_num_predict"`

	// OCR tiling
	TileGrid    int     `yaml:"tile_grid"`
	TileOverlap float64 `yaml:"tile_overlap"`
	TileScale   int     `yaml:"tile_scale"`
	OCRLanguage string  `yaml:"ocr_language"`
	OCRWorkers  int     `yaml:"ocr_workers"`

	// Timeouts for external calls
	GenerateTimeout Duration `yaml:"generate_timeout"`
	OCRTimeout      Duration `yaml:"ocr_timeout"`
	StoreTimeout    Duration `yaml:"store_timeout"`
}

// Duration wraps time.Duration so YAML values can use the usual
// "30s"/"2m" syntax.
type Duration time.Duration

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration matching a stock local deployment:
// Ollama and Qdrant on localhost, moondream for vision, nomic-embed-text
// for embeddings.
func Default() Config {
	return Config{
		OllamaURL:         "http://localhost:11434",
		QdrantURL:         "http://localhost:6333",
		VisionModel:       "moondream",
		TextPurposeModel:  "llama3.2:3b",
		Embedding:         embedding.DefaultConfig(),
		Collection:        "pvt_memory",
		MinQuestions:      20,
		MemoryThreshold:   0.88,
		VisionThreshold:   0.72,
		MaxElements:       40,
		NumPredict:        192,
		PurposeNumPredict: 128,
		TileGrid:          3,
		TileOverlap:       0.3,
		TileScale:         3,
		OCRLanguage:       "eng",
		OCRWorkers:        4,
		GenerateTimeout:   Duration(10 * time.Minute),
		OCRTimeout:        Duration(30 * time.Second),
		StoreTimeout:      Duration(60 * time.Second),
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// FromEnv overlays endpoint and model settings from the environment,
// allowing a .env file or the shell to point at non-local services.
func (c Config) FromEnv() Config {
	if v := os.Getenv("PVT_OLLAMA_URL"); v != "" {
		c.OllamaURL = v
	}
	if v := os.Getenv("PVT_QDRANT_URL"); v != "" {
		c.QdrantURL = v
	}
	if v := os.Getenv("PVT_VISION_MODEL"); v != "" {
		c.VisionModel = v
	}
	if v := os.Getenv("PVT_EMBED_MODEL"); v != "" {
		c.Embedding.OllamaModel = v
	}
	if v := os.Getenv("PVT_COLLECTION"); v != "" {
		c.Collection = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
	}
	return c
}

// PurposeModelOrDefault returns the purpose model, falling back to the
// vision model.
func (c Config) PurposeModelOrDefault() string {
	if c.PurposeModel != "" {
		return c.PurposeModel
	}
	return c.VisionModel
}

// Validate rejects configurations that cannot work.
func (c Config) Validate() error {
	if c.VisionModel == "" {
		return fmt.Errorf("vision model must be set")
	}
	if c.MemoryThreshold < 0 || c.MemoryThreshold > 1 {
		return fmt.Errorf("memory_threshold must be in [0,1], got %g", c.MemoryThreshold)
	}
	if c.VisionThreshold < 0 || c.VisionThreshold > 1 {
		return fmt.Errorf("vision_threshold must be in [0,1], got %g", c.VisionThreshold)
	}
	if c.TileGrid < 1 {
		return fmt.Errorf("tile_grid must be >= 1, got %d", c.TileGrid)
	}
	if c.TileOverlap < 0 || c.TileOverlap >= 1 {
		return fmt.Errorf("tile_overlap must be in [0,1), got %g", c.TileOverlap)
	}
	if c.MaxElements < 1 {
		return fmt.Errorf("max_elements must be >= 1, got %d", c.MaxElements)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "moondream", cfg.VisionModel)
	assert.Equal(t, "pvt_memory", cfg.Collection)
	assert.Equal(t, 0.88, cfg.MemoryThreshold)
	assert.Equal(t, 0.72, cfg.VisionThreshold)
	assert.Equal(t, 20, cfg.MinQuestions)
	assert.Equal(t, 40, cfg.MaxElements)
	assert.Equal(t, 192, cfg.NumPredict)
	assert.Equal(t, 128, cfg.PurposeNumPredict)
	assert.Equal(t, 3, cfg.TileGrid)
	assert.Equal(t, 0.3, cfg.TileOverlap)
	assert.Equal(t, 3, cfg.TileScale)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pvt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"vision_model: llava\nmemory_threshold: 0.9\ngenerate_timeout: 2m\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "llava", cfg.VisionModel)
	assert.Equal(t, 0.9, cfg.MemoryThreshold)
	assert.Equal(t, 2*time.Minute, cfg.GenerateTimeout.Std())
	// Untouched keys keep their defaults.
	assert.Equal(t, "pvt_memory", cfg.Collection)
	assert.Equal(t, 0.72, cfg.VisionThreshold)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/pvt.yaml")
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PVT_OLLAMA_URL", "http://ollama:11434")
	t.Setenv("PVT_QDRANT_URL", "http://qdrant:6333")
	t.Setenv("PVT_VISION_MODEL", "llava")
	t.Setenv("PVT_EMBED_MODEL", "mxbai-embed-large")
	t.Setenv("PVT_COLLECTION", "alt_memory")

	cfg := Default().FromEnv()
	assert.Equal(t, "http://ollama:11434", cfg.OllamaURL)
	assert.Equal(t, "http://qdrant:6333", cfg.QdrantURL)
	assert.Equal(t, "llava", cfg.VisionModel)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedding.OllamaModel)
	assert.Equal(t, "alt_memory", cfg.Collection)
}

func TestPurposeModelOrDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "moondream", cfg.PurposeModelOrDefault())
	cfg.PurposeModel = "llava"
	assert.Equal(t, "llava", cfg.PurposeModelOrDefault())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"no vision model", func(c *Config) { c.VisionModel = "" }, false},
		{"threshold above one", func(c *Config) { c.MemoryThreshold = 1.5 }, false},
		{"negative threshold", func(c *Config) { c.VisionThreshold = -0.1 }, false},
		{"zero grid", func(c *Config) { c.TileGrid = 0 }, false},
		{"full overlap", func(c *Config) { c.TileOverlap = 1.0 }, false},
		{"zero max elements", func(c *Config) { c.MaxElements = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

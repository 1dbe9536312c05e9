package main

import (
	"fmt"
	"os"

	"github.com/lpernett/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dancherbu/physical-visual-tester/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	ollamaURL  string
	qdrantURL  string
	collection string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pvt",
	Short: "pvt - visual UI element discovery and learning",
	Long: `pvt watches UI screenshots, extracts interactive elements with a local
vision model, and learns their purposes into a vector memory.

Known elements are recognized and skipped; confidently understood new
elements are stored as actionable records; ambiguous ones surface as
questions for a human to answer.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env next to the binary may point at remote services.
		_ = godotenv.Load()

		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig resolves the effective configuration: file (if given) over
// defaults, then environment, then explicit global flags.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return cfg, err
		}
	}
	cfg = cfg.FromEnv()
	if ollamaURL != "" {
		cfg.OllamaURL = ollamaURL
		cfg.Embedding.OllamaEndpoint = ollamaURL
	}
	if qdrantURL != "" {
		cfg.QdrantURL = qdrantURL
	}
	if collection != "" {
		cfg.Collection = collection
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&ollamaURL, "ollama-url", "", "Ollama endpoint (default http://localhost:11434)")
	rootCmd.PersistentFlags().StringVar(&qdrantURL, "qdrant-url", "", "Qdrant endpoint (default http://localhost:6333)")
	rootCmd.PersistentFlags().StringVar(&collection, "collection", "", "Memory collection name (default pvt_memory)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dancherbu/physical-visual-tester/internal/config"
	"github.com/dancherbu/physical-visual-tester/internal/embedding"
	"github.com/dancherbu/physical-visual-tester/internal/memory"
	"github.com/dancherbu/physical-visual-tester/internal/ollama"
	"github.com/dancherbu/physical-visual-tester/internal/seed"
)

var (
	seedMockDir    string
	seedNumPredict int
)

// seedCmd loads knowledge into the memory collection
var seedCmd = &cobra.Command{
	Use:   "seed [knowledge-file]",
	Short: "Seed the memory collection from a knowledge file",
	Long: `Loads a JSON knowledge file (a list of screen scenarios with their
actions) and writes one memory record per action.

Example:
  pvt seed knowledge/common_ui.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

// pretrainCmd learns from mock screenshots offline
var pretrainCmd = &cobra.Command{
	Use:   "pretrain",
	Short: "Pretrain memory from a directory of mock screenshots",
	Long: `Analyzes every PNG in the mock directory with the first installed
vision model and stores the inferred actions as memory records.

Example:
  pvt pretrain --mock-dir mock_data`,
	RunE: runPretrain,
}

func init() {
	pretrainCmd.Flags().StringVar(&seedMockDir, "mock-dir", "mock_data", "Directory of mock screenshots")
	pretrainCmd.Flags().IntVar(&seedNumPredict, "num-predict", 512, "Token budget per analysis call")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(pretrainCmd)
}

func newSeeder(cfg config.Config) (*seed.Seeder, error) {
	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding engine: %w", err)
	}
	store := memory.NewStore(cfg.QdrantURL, cfg.Collection, cfg.StoreTimeout.Std(), logger)
	return seed.New(engine, store, logger), nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	seeder, err := newSeeder(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GenerateTimeout.Std())
	defer cancel()

	written, err := seeder.SeedFile(ctx, args[0])
	if err != nil {
		return err
	}
	logger.Info("Seeding complete", zap.String("file", args[0]), zap.Int("records", written))
	fmt.Printf("Seeded %d records into '%s'\n", written, cfg.Collection)
	return nil
}

func runPretrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	seeder, err := newSeeder(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GenerateTimeout.Std())
	defer cancel()

	client := ollama.NewClient(cfg.OllamaURL, cfg.GenerateTimeout.Std())
	written, err := seeder.Pretrain(ctx, client, seedMockDir, seedNumPredict)
	if err != nil {
		return err
	}
	fmt.Printf("Pretrained %d records into '%s'\n", written, cfg.Collection)
	return nil
}

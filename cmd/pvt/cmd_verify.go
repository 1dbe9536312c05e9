package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dancherbu/physical-visual-tester/internal/embedding"
	"github.com/dancherbu/physical-visual-tester/internal/memory"
)

var (
	verifySample int
	verifyQuery  string
)

// verifyCmd inspects the memory collection
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the memory collection and sample its contents",
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().IntVar(&verifySample, "sample", 10, "Number of records to print")
	verifyCmd.Flags().StringVar(&verifyQuery, "query", "", "Run a test similarity search with this text")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store := memory.NewStore(cfg.QdrantURL, cfg.Collection, cfg.StoreTimeout.Std(), logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.StoreTimeout.Std())
	defer cancel()

	info, err := store.Info(ctx)
	if err != nil {
		return fmt.Errorf("collection '%s' is not reachable: %w", cfg.Collection, err)
	}
	fmt.Printf("Collection: %s\n", cfg.Collection)
	fmt.Printf("Status:     %s\n", info.Status)
	fmt.Printf("Points:     %d (indexed vectors: %d)\n", info.PointsCount, info.IndexedVectorsCount)

	if verifySample <= 0 {
		return nil
	}
	hits, err := store.Scroll(ctx, verifySample)
	if err != nil {
		return fmt.Errorf("failed to sample collection: %w", err)
	}
	if len(hits) == 0 {
		fmt.Println("\nCollection is empty.")
		return nil
	}

	fmt.Printf("\nSample (%d records):\n", len(hits))
	for i, hit := range hits {
		goal, _ := hit.Payload["goal"].(string)
		source, _ := hit.Payload["source"].(string)
		fmt.Printf("  %d. %s  (source: %s)\n", i+1, goal, source)
	}

	if verifyQuery == "" {
		return nil
	}
	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedding engine: %w", err)
	}
	vector, err := engine.Embed(ctx, verifyQuery)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}
	matches, err := store.Search(ctx, vector, 3)
	if err != nil {
		return fmt.Errorf("test search failed: %w", err)
	}
	fmt.Printf("\nTop matches for %q:\n", verifyQuery)
	if len(matches) == 0 {
		fmt.Println("  (none)")
	}
	for _, hit := range matches {
		goal, _ := hit.Payload["goal"].(string)
		fmt.Printf("  %.3f  %s\n", hit.Score, goal)
	}
	return nil
}

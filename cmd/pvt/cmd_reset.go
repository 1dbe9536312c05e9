package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dancherbu/physical-visual-tester/internal/embedding"
	"github.com/dancherbu/physical-visual-tester/internal/memory"
)

var resetYes bool

// resetCmd recreates the memory collection
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete and recreate the memory collection",
	Long: `Deletes the memory collection and recreates it empty with the
embedding engine's dimensionality. All learned knowledge is lost.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !resetYes {
		fmt.Printf("This deletes ALL records in '%s'. Continue? [y/N] ", cfg.Collection)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedding engine: %w", err)
	}
	store := memory.NewStore(cfg.QdrantURL, cfg.Collection, cfg.StoreTimeout.Std(), logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.StoreTimeout.Std())
	defer cancel()

	if err := store.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if err := store.Create(ctx, engine.Dimensions()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	logger.Info("Collection reset",
		zap.String("collection", cfg.Collection),
		zap.Int("dimensions", engine.Dimensions()))
	fmt.Printf("Collection '%s' recreated empty (%d dimensions)\n", cfg.Collection, engine.Dimensions())
	return nil
}

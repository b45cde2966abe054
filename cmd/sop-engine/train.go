// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fine-tune the model on highly rated documents",
	Long: `Train runs a fine-tuning job in a container over the curated training
corpus. The job refuses to start until the corpus holds enough examples at
or above the score threshold. With --rebuild the corpus is first rebuilt
from the document store, which recovers from a partial feedback write.`,
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, args []string) error {
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	rebuild, _ := cmd.Flags().GetBool("rebuild")

	// The flag wins over config. Both resolve to a concrete value, so an
	// explicit --min-score 0 trains on every fed-back example.
	cfg := pipelineConfig()
	if !cmd.Flags().Changed("min-score") {
		minScore = cfg.Training.MinScore
	}

	p, err := buildPipeline(cfg, true, os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if rebuild {
		n, err := p.RebuildCorpus(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("corpus rebuilt with %d examples\n", n)
	}

	if err := p.TriggerTraining(ctx, &minScore); err != nil {
		return err
	}
	fmt.Println("fine-tuning complete")
	return nil
}

func init() {
	trainCmd.Flags().Float64("min-score", 3.5, "minimum feedback score for training examples")
	trainCmd.Flags().Bool("rebuild", false, "rebuild the training corpus from the document store first")

	rootCmd.AddCommand(trainCmd)
}

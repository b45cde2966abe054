// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <record-key>",
	Short: "Attach a quality score to a generated document",
	Long: `Feedback records a score from 0 to 5 (and optional free text) against a
previously generated document. Records scoring at or above the training
threshold become fine-tuning examples.`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedback,
}

func runFeedback(cmd *cobra.Command, args []string) error {
	score, _ := cmd.Flags().GetFloat64("score")
	text, _ := cmd.Flags().GetString("text")

	p, err := buildPipeline(pipelineConfig(), false, os.Stderr)
	if err != nil {
		return err
	}

	if err := p.SubmitFeedback(context.Background(), args[0], score, text); err != nil {
		return err
	}
	fmt.Printf("feedback recorded for %s (score %.1f)\n", args[0], score)
	return nil
}

func init() {
	feedbackCmd.Flags().Float64("score", 0, "quality score, 0 to 5")
	feedbackCmd.Flags().String("text", "", "optional feedback text")
	feedbackCmd.MarkFlagRequired("score")

	rootCmd.AddCommand(feedbackCmd)
}

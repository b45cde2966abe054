// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document store statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	p, err := buildPipeline(pipelineConfig(), false, os.Stderr)
	if err != nil {
		return err
	}

	snap, err := p.Statistics(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("total documents:    %d\n", snap.TotalDocuments)
	fmt.Printf("with feedback:      %d\n", snap.DocumentsWithFeedback)
	fmt.Printf("average score:      %.2f\n", snap.AverageFeedbackScore)
	fmt.Printf("sops:               %d (%d with feedback)\n", snap.SOPs.Total, snap.SOPs.WithFeedback)
	fmt.Printf("batch records:      %d (%d with feedback)\n", snap.BatchRecords.Total, snap.BatchRecords.WithFeedback)
	return nil
}

func init() {
	statsCmd.Flags().Bool("json", false, "output statistics as JSON")

	rootCmd.AddCommand(statsCmd)
}

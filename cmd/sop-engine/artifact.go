// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact <filename>",
	Short: "Retrieve a rendered Word artifact",
	Long: `Artifact reads a previously rendered .docx file from the output
directory and writes it to --out, or to stdout when --out is not given.
The filename must be a bare name; paths are rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runArtifact,
}

func runArtifact(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("out")

	p, err := buildPipeline(pipelineConfig(), false, os.Stderr)
	if err != nil {
		return err
	}

	data, mime, err := p.Artifact(args[0])
	if err != nil {
		return err
	}

	if outPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes, %s)\n", outPath, len(data), mime)
	return nil
}

func init() {
	artifactCmd.Flags().String("out", "", "destination path (default stdout)")

	rootCmd.AddCommand(artifactCmd)
}

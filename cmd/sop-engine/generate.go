// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sop-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a procedural document from steps, roles, and notes",
	Long: `Generate produces an SOP or batch record from the given input fields.
Requests matching a known template are served from canned content without a
model call; everything else is generated by the model. A styled Word
artifact is rendered when --artifact is set, when a template matched, or
when the input mentions an output-format keyword.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	docType, _ := cmd.Flags().GetString("type")
	steps, _ := cmd.Flags().GetString("steps")
	roles, _ := cmd.Flags().GetString("roles")
	notes, _ := cmd.Flags().GetString("notes")
	artifact, _ := cmd.Flags().GetBool("artifact")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	req := types.GenerationRequest{
		Type:          types.DocumentType(docType),
		Steps:         steps,
		Roles:         roles,
		Notes:         notes,
		WantsArtifact: artifact,
	}

	p, err := buildPipeline(pipelineConfig(), false, os.Stderr)
	if err != nil {
		return err
	}

	result, err := p.Generate(context.Background(), req)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Println(result.Content)
	fmt.Fprintf(os.Stderr, "\nrecord: %s\n", result.RecordKey)
	if result.TemplateType != "" {
		fmt.Fprintf(os.Stderr, "template: %s\n", result.TemplateType)
	}
	if result.ArtifactFile != "" {
		fmt.Fprintf(os.Stderr, "artifact: %s\n", result.ArtifactFile)
	}
	return nil
}

func init() {
	generateCmd.Flags().String("type", "sop", "document type: sop or batch_record")
	generateCmd.Flags().String("steps", "", "procedure steps (free text)")
	generateCmd.Flags().String("roles", "", "roles involved (free text)")
	generateCmd.Flags().String("notes", "", "additional notes (free text)")
	generateCmd.Flags().Bool("artifact", false, "render a Word artifact")
	generateCmd.Flags().Bool("json", false, "output the full result as JSON")

	rootCmd.AddCommand(generateCmd)
}

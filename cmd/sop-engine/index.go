// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sop-engine/internal/index"
	"github.com/pdiddy/sop-engine/internal/store"
	"github.com/pdiddy/sop-engine/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Search index over generated documents",
	Long: `Index maintains a SQLite full-text index over the document store.
"index store" ingests new and changed records, "index search" queries the
index, and "index export" writes matching records as YAML or JSON.`,
}

var indexStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest document records into the search index",
	RunE:  runIndexStore,
}

var indexSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndexSearch,
}

var indexExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export matching documents as YAML or JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndexExport,
}

func openIndex(cfg types.PipelineConfig) (*index.Index, error) {
	if cfg.Index.DataDir == "" {
		cfg.Index.DataDir = cfg.Store.DataDir
	}
	return index.Open(cfg.Index)
}

func runIndexStore(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	x, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer x.Close()

	ctx := context.Background()
	records, err := st.ScanAll(ctx)
	if err != nil {
		return err
	}

	summary, err := x.Ingest(ctx, records, os.Stderr)
	if err != nil {
		return err
	}
	fmt.Printf("processed %d records (%d new, %d updated, %d unchanged, %d failed)\n",
		summary.Total(), summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	return nil
}

func queryOptions(cmd *cobra.Command, args []string) index.QueryOptions {
	opts := index.QueryOptions{}
	if len(args) > 0 {
		opts.Query = args[0]
	}
	if t, _ := cmd.Flags().GetString("type"); t != "" {
		opts.Type = types.DocumentType(t)
	}
	opts.WithFeedback, _ = cmd.Flags().GetBool("with-feedback")
	if cmd.Flags().Changed("min-score") {
		s, _ := cmd.Flags().GetFloat64("min-score")
		opts.MinScore = &s
	}
	opts.MaxResults, _ = cmd.Flags().GetInt("max-results")
	return opts
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	opts := queryOptions(cmd, args)
	jsonOutput, _ := cmd.Flags().GetBool("json")

	x, err := openIndex(pipelineConfig())
	if err != nil {
		return err
	}
	defer x.Close()

	results, err := x.Search(context.Background(), opts)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		summary := r.Content
		if i := strings.IndexByte(summary, '\n'); i >= 0 {
			summary = summary[:i]
		}
		if len(summary) > 100 {
			summary = summary[:100] + "..."
		}
		score := "-"
		if r.FeedbackScore != nil {
			score = fmt.Sprintf("%.1f", *r.FeedbackScore)
		}
		fmt.Printf("%s  %-12s  score=%s  %s\n", r.Key, r.Type, score, summary)
	}
	fmt.Fprintf(os.Stderr, "%d results\n", len(results))
	return nil
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	opts := queryOptions(cmd, args)
	format, _ := cmd.Flags().GetString("format")

	x, err := openIndex(pipelineConfig())
	if err != nil {
		return err
	}
	defer x.Close()

	ctx := context.Background()
	switch format {
	case "yaml":
		return x.ExportYAML(ctx, opts, os.Stdout)
	case "json":
		return x.ExportJSON(ctx, opts, os.Stdout)
	default:
		return fmt.Errorf("%w: unknown export format %q", types.ErrValidation, format)
	}
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "filter by document type: sop or batch_record")
	cmd.Flags().Bool("with-feedback", false, "only records with feedback")
	cmd.Flags().Float64("min-score", 0, "minimum feedback score")
	cmd.Flags().Int("max-results", 0, "maximum number of results")
}

func init() {
	addQueryFlags(indexSearchCmd)
	indexSearchCmd.Flags().Bool("json", false, "output results as JSON")

	addQueryFlags(indexExportCmd)
	indexExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	indexCmd.AddCommand(indexStoreCmd)
	indexCmd.AddCommand(indexSearchCmd)
	indexCmd.AddCommand(indexExportCmd)
	rootCmd.AddCommand(indexCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sop-engine/pkg/types"
)

// QueryOptions holds parameters for record index queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over document content.
	Query string

	// Type filters by document type.
	Type types.DocumentType

	// WithFeedback restricts results to fed-back records.
	WithFeedback bool

	// MinScore filters by feedback score when set.
	MinScore *float64

	// MaxResults limits result count. Zero uses the index default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Type == "" && !q.WithFeedback && q.MinScore == nil
}

// SearchResult is one indexed record summary.
type SearchResult struct {
	Key           string             `json:"key" yaml:"key"`
	Type          types.DocumentType `json:"type" yaml:"type"`
	Content       string             `json:"content" yaml:"content"`
	TemplateType  string             `json:"template_type,omitempty" yaml:"template_type,omitempty"`
	FeedbackScore *float64           `json:"feedback_score,omitempty" yaml:"feedback_score,omitempty"`
	Created       string             `json:"created" yaml:"created"`
}

// Search queries the index with optional full-text search and structured
// filters. Full-text queries are ranked by relevance; structured-only
// queries are sorted by creation time, newest first.
func (x *Index) Search(ctx context.Context, opts QueryOptions) ([]SearchResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = x.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT r.key, r.type, r.content, r.template_type, r.feedback_score, r.created
			FROM records_fts
			JOIN records r ON r.rowid = records_fts.rowid
			WHERE records_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT r.key, r.type, r.content, r.template_type, r.feedback_score, r.created
			FROM records r
			WHERE 1=1`)
	}

	if opts.Type != "" {
		qb.WriteString(` AND r.type = ?`)
		args = append(args, string(opts.Type))
	}
	if opts.WithFeedback {
		qb.WriteString(` AND r.feedback_score IS NOT NULL`)
	}
	if opts.MinScore != nil {
		qb.WriteString(` AND r.feedback_score >= ?`)
		args = append(args, *opts.MinScore)
	}

	if useFTS {
		qb.WriteString(` ORDER BY records_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY r.created DESC`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := x.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying record index: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			sr      SearchResult
			docType string
			tmpl    sql.NullString
			score   sql.NullFloat64
			created sql.NullString
		)
		if err := rows.Scan(&sr.Key, &docType, &sr.Content, &tmpl, &score, &created); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		sr.Type = types.DocumentType(docType)
		if tmpl.Valid {
			sr.TemplateType = tmpl.String
		}
		if score.Valid {
			s := score.Float64
			sr.FeedbackScore = &s
		}
		if created.Valid {
			sr.Created = created.String
		}
		results = append(results, sr)
	}

	return results, rows.Err()
}

// ExportYAML writes the query results to w as YAML.
func (x *Index) ExportYAML(ctx context.Context, opts QueryOptions, w io.Writer) error {
	results, err := x.Search(ctx, opts)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(results)
}

// ExportJSON writes the query results to w as indented JSON.
func (x *Index) ExportJSON(ctx context.Context, opts QueryOptions, w io.Writer) error {
	results, err := x.Search(ctx, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

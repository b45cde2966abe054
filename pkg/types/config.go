// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "sop-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// StoreConfig holds settings for the document store.
type StoreConfig struct {
	// DataDir is the base directory for collected documents (contains
	// sops/ and batch_records/).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// GenerationConfig holds settings for the generative adapter.
type GenerationConfig struct {
	AIConfig `yaml:",inline"`

	// SaveDir is the checkpoint root. The training corpus lives at
	// SaveDir/training_data.yaml and fine-tuned checkpoints under SaveDir/latest.
	SaveDir string `json:"save_dir" yaml:"save_dir"`

	// MaxTokens caps the generated output length (default 2000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the sampling temperature (default 0.7).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// TopP is the nucleus-sampling threshold (default 0.9).
	TopP float64 `json:"top_p" yaml:"top_p"`

	// RepetitionWindow is the repetition-avoidance window in tokens (default 64).
	RepetitionWindow int `json:"repetition_window" yaml:"repetition_window"`

	// Greedy disables sampling and decodes greedily.
	Greedy bool `json:"greedy" yaml:"greedy"`
}

// TrainingConfig holds settings for fine-tuning runs.
type TrainingConfig struct {
	// MinScore is the minimum feedback score for corpus inclusion (default 3.5).
	MinScore float64 `json:"min_score" yaml:"min_score"`

	// Image is the container image that runs the fine-tuning job.
	Image string `json:"image" yaml:"image"`
}

// RenderConfig holds settings for the structured document renderer.
type RenderConfig struct {
	// OutputDir is the directory for rendered artifacts (default "generated_docs").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Organization is the name placed in the artifact page header.
	Organization string `json:"organization" yaml:"organization"`
}

// IndexConfig holds settings for the record index.
type IndexConfig struct {
	// DataDir is the base directory for the index (contains index/records.db).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// AuditConfig holds settings for the audit log.
type AuditConfig struct {
	// Path is the append-only audit log file (default "audit.log").
	Path string `json:"path" yaml:"path"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	HTTP       HTTPConfig       `json:"http" yaml:"http"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Training   TrainingConfig   `json:"training" yaml:"training"`
	Render     RenderConfig     `json:"render" yaml:"render"`
	Index      IndexConfig      `json:"index" yaml:"index"`
	Audit      AuditConfig      `json:"audit" yaml:"audit"`
}

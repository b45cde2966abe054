// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate wraps the opaque text-generation capability with
// request-specific decoding parameters and manages the fine-tuning corpus.
package generate

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/pdiddy/sop-engine/pkg/types"
)

const (
	corpusFile    = "training_data.yaml"
	checkpointDir = "latest"

	// defaultMinExamples is the corpus size floor for fine-tuning.
	defaultMinExamples = 10
)

// DecodingParams are the sampling settings passed to the generation backend
// for one call.
type DecodingParams struct {
	// MaxTokens caps the generated output length.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// TopP is the nucleus-sampling threshold.
	TopP float64

	// RepetitionWindow is the repetition-avoidance window in tokens.
	RepetitionWindow int

	// Greedy decodes a single sequence greedily instead of sampling.
	Greedy bool
}

// defaultParams mirrors the decoding settings the model was tuned with.
func defaultParams() DecodingParams {
	return DecodingParams{
		MaxTokens:        2000,
		Temperature:      0.7,
		TopP:             0.9,
		RepetitionWindow: 64,
	}
}

// paramsFromConfig builds DecodingParams from config, falling back to the
// defaults for unset fields.
func paramsFromConfig(cfg types.GenerationConfig) DecodingParams {
	p := defaultParams()
	if cfg.MaxTokens > 0 {
		p.MaxTokens = cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		p.Temperature = cfg.Temperature
	}
	if cfg.TopP > 0 {
		p.TopP = cfg.TopP
	}
	if cfg.RepetitionWindow > 0 {
		p.RepetitionWindow = cfg.RepetitionWindow
	}
	p.Greedy = cfg.Greedy
	return p
}

// Backend abstracts the text-generation capability so tests can supply a
// mock. Implementations receive a fully rendered prompt and the decoding
// parameters for the call.
type Backend interface {
	Generate(ctx context.Context, prompt string, params DecodingParams) (string, error)
}

// Trainer abstracts the fine-tuning capability. Implementations read the
// corpus file and write an updated checkpoint into checkpointDir.
type Trainer interface {
	Train(ctx context.Context, corpusPath, checkpointDir string) error
}

// promptTmpl is the deterministic prompt template embedding the request
// fields, matching the format the model was trained on.
var promptTmpl = template.Must(template.New("generation").Parse(`Type: {{.Type}}
Steps: {{.Steps}}
Roles: {{.Roles}}
Notes: {{.Notes}}
Generate a detailed document following the standard format. Number top-level sections "1. Title" and subsections "1.1 Title".`))

// Generator is the generative adapter: one instance constructed at process
// start, holding the backend, trainer, and persisted training corpus.
type Generator struct {
	cfg     types.GenerationConfig
	params  DecodingParams
	backend Backend
	trainer Trainer
	corpus  *Corpus
}

// New creates the checkpoint root, loads any persisted training corpus from
// it, and returns a Generator. A missing corpus file yields an empty corpus.
func New(cfg types.GenerationConfig, backend Backend, trainer Trainer) (*Generator, error) {
	if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint root %s: %w", cfg.SaveDir, err)
	}

	corpus, err := LoadCorpus(filepath.Join(cfg.SaveDir, corpusFile))
	if err != nil {
		return nil, err
	}

	return &Generator{
		cfg:     cfg,
		params:  paramsFromConfig(cfg),
		backend: backend,
		trainer: trainer,
		corpus:  corpus,
	}, nil
}

// ModelVersion identifies the model for record metadata.
func (g *Generator) ModelVersion() string {
	if g.cfg.Model != "" {
		return g.cfg.Model
	}
	return "v1"
}

// Generate renders the prompt for the request and calls the backend with
// retries. Failures are wrapped in ErrGeneration.
func (g *Generator) Generate(ctx context.Context, req types.GenerationRequest) (string, error) {
	prompt, err := renderPrompt(req)
	if err != nil {
		return "", fmt.Errorf("%w: rendering prompt: %v", types.ErrGeneration, err)
	}

	maxRetries := g.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	text, err := callWithRetry(ctx, g.backend, prompt, g.params, maxRetries)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrGeneration, err)
	}
	return text, nil
}

// AddTrainingExample appends a fed-back example to the persisted corpus,
// with sensitive identifiers redacted. Idempotent per record key:
// re-adding overwrites, so feedback retries are safe.
func (g *Generator) AddTrainingExample(ex types.TrainingExample) error {
	return g.corpus.Add(ex)
}

// Examples returns the corpus examples, optionally filtered by
// score >= *minScore.
func (g *Generator) Examples(minScore *float64) []types.TrainingExample {
	return g.corpus.Examples(minScore)
}

// ReplaceCorpus swaps the persisted corpus wholesale. Used to rebuild the
// corpus from the document store view.
func (g *Generator) ReplaceCorpus(examples []types.TrainingExample) error {
	return g.corpus.Replace(examples)
}

// FineTune submits the given corpus to the trainer. It refuses corpora
// below the example floor with ErrInsufficientData and, on success, leaves
// the updated checkpoint under <save-root>/latest.
func (g *Generator) FineTune(ctx context.Context, examples []types.TrainingExample) error {
	if len(examples) < defaultMinExamples {
		return fmt.Errorf("%w: have %d examples, need at least %d",
			types.ErrInsufficientData, len(examples), defaultMinExamples)
	}
	if g.trainer == nil {
		return fmt.Errorf("%w: no trainer configured", types.ErrGeneration)
	}

	ckpt := filepath.Join(g.cfg.SaveDir, checkpointDir)
	if err := os.MkdirAll(ckpt, 0o755); err != nil {
		return fmt.Errorf("%w: creating checkpoint directory %s: %v", types.ErrGeneration, ckpt, err)
	}

	// The trainer consumes the corpus as persisted on disk, so the run is
	// reproducible from the same file.
	staging, err := g.corpus.Snapshot(examples)
	if err != nil {
		return err
	}
	defer os.Remove(staging)

	if err := g.trainer.Train(ctx, staging, ckpt); err != nil {
		return fmt.Errorf("%w: fine-tuning: %v", types.ErrGeneration, err)
	}
	return nil
}

// renderPrompt executes the generation prompt template for the request.
func renderPrompt(req types.GenerationRequest) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the backend with exponential backoff.
func callWithRetry(ctx context.Context, backend Backend, prompt string, params DecodingParams, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := backend.Generate(ctx, prompt, params)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates the document generation and feedback flow:
// routing, generation, rendering, persistence, and training-set curation.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/sop-engine/internal/audit"
	"github.com/pdiddy/sop-engine/internal/generate"
	"github.com/pdiddy/sop-engine/internal/render"
	"github.com/pdiddy/sop-engine/internal/router"
	"github.com/pdiddy/sop-engine/internal/store"
	"github.com/pdiddy/sop-engine/pkg/types"
)

const (
	// trainingMinScore is the default corpus quality floor for fine-tuning,
	// on the 0-5 feedback scale.
	trainingMinScore = 3.5

	// auditUser labels audit entries until callers carry identity.
	auditUser = "local"
)

// Pipeline wires the store, router, generative adapter, renderer, and audit
// log into the operations the outer surface exposes. One instance is
// constructed at process start and passed to handlers; there are no ambient
// singletons.
type Pipeline struct {
	store     *store.Store
	generator *generate.Generator
	renderer  *render.Renderer
	auditLog  *audit.Log
	validate  *validator.Validate

	// Log receives non-fatal warnings (e.g. artifact render failures).
	Log io.Writer
}

// New assembles a Pipeline from its collaborators.
func New(st *store.Store, gen *generate.Generator, rend *render.Renderer, log *audit.Log) *Pipeline {
	return &Pipeline{
		store:     st,
		generator: gen,
		renderer:  rend,
		auditLog:  log,
		validate:  validator.New(),
		Log:       os.Stderr,
	}
}

// GenerateResult is the outcome of one document generation call.
type GenerateResult struct {
	// RecordKey identifies the persisted DocumentRecord.
	RecordKey string `json:"record_key"`

	// Content is the generated or templated document text.
	Content string `json:"content"`

	// TemplateType is set when the canned template path was taken.
	TemplateType string `json:"template_type,omitempty"`

	// ArtifactFile is the rendered artifact filename, empty when rendering
	// was skipped or failed.
	ArtifactFile string `json:"artifact_file,omitempty"`
}

// Generate routes the request, produces content via the canned template or
// the generative adapter, optionally renders an artifact, and persists the
// record. Generation failure creates no record; artifact render failure is
// logged and non-fatal.
func (p *Pipeline) Generate(ctx context.Context, req types.GenerationRequest) (*GenerateResult, error) {
	if err := p.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrValidation, err)
	}

	decision := router.Route(req)

	var content string
	if decision.UseTemplate {
		content = router.TemplateContent(decision.TemplateType)
	} else {
		var err error
		content, err = p.generator.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	result := &GenerateResult{
		Content:      content,
		TemplateType: string(decision.TemplateType),
	}

	metadata := map[string]string{
		types.MetaModelVersion: p.generator.ModelVersion(),
	}
	if decision.UseTemplate {
		metadata[types.MetaTemplateType] = string(decision.TemplateType)
	}

	if decision.RenderArtifact {
		file, err := p.renderer.Render(content, req.Type, string(decision.TemplateType), "")
		if err != nil {
			fmt.Fprintf(p.Log, "warning: artifact render failed: %v\n", err)
		} else {
			result.ArtifactFile = file
			metadata[types.MetaArtifact] = file
		}
	}

	key, err := p.store.Save(ctx, req, content, metadata)
	if err != nil {
		return nil, err
	}
	result.RecordKey = key

	p.audit("generate", fmt.Sprintf("document %s", key))
	return result, nil
}

// SubmitFeedback validates and attaches a user rating to a stored record,
// then re-submits the record's content to the adapter's training corpus.
// The two writes are not transactional: a failure after the store update
// leaves the corpus stale, and the call can be retried safely because
// corpus writes are idempotent per record key.
func (p *Pipeline) SubmitFeedback(ctx context.Context, key string, score float64, text string) error {
	if key == "" {
		return fmt.Errorf("%w: record key is required", types.ErrValidation)
	}
	if score < 0 || score > 5 {
		return fmt.Errorf("%w: score %.2f outside the 0-5 range", types.ErrValidation, score)
	}

	if err := p.store.AttachFeedback(ctx, key, score, text); err != nil {
		return err
	}

	rec, err := p.store.Load(ctx, key)
	if err != nil {
		return err
	}

	err = p.generator.AddTrainingExample(types.TrainingExample{
		RecordKey:     rec.Key,
		Input:         rec.Input,
		Output:        rec.GeneratedContent,
		FeedbackScore: score,
		FeedbackText:  text,
		Type:          rec.Input.Type,
	})
	if err != nil {
		return err
	}

	p.audit("feedback", fmt.Sprintf("document %s (score %.1f)", key, score))
	return nil
}

// RebuildCorpus recomputes the adapter's training corpus from the document
// store view, the recovery path when a feedback submission updated the
// store but not the corpus. Returns the rebuilt corpus size.
func (p *Pipeline) RebuildCorpus(ctx context.Context) (int, error) {
	examples, err := p.store.ListTrainingExamples(ctx, nil)
	if err != nil {
		return 0, err
	}
	if err := p.generator.ReplaceCorpus(examples); err != nil {
		return 0, err
	}
	return len(examples), nil
}

// TriggerTraining fine-tunes the model on the corpus examples meeting the
// quality floor. A nil minScore applies the default floor of 3.5; an
// explicit zero trains on every fed-back example.
func (p *Pipeline) TriggerTraining(ctx context.Context, minScore *float64) error {
	floor := trainingMinScore
	if minScore != nil {
		floor = *minScore
	}

	examples := p.generator.Examples(&floor)
	if err := p.generator.FineTune(ctx, examples); err != nil {
		return err
	}

	p.audit("train", fmt.Sprintf("fine-tune on %d examples", len(examples)))
	return nil
}

// Statistics reports aggregate counts over the document store.
func (p *Pipeline) Statistics(ctx context.Context) (types.StatisticsSnapshot, error) {
	return p.store.Statistics(ctx)
}

// Artifact returns the bytes and media type of a rendered artifact by
// filename. Names containing path-traversal sequences are rejected before
// any filesystem access.
func (p *Pipeline) Artifact(name string) ([]byte, string, error) {
	if err := validateArtifactName(name); err != nil {
		return nil, "", err
	}

	path := filepath.Join(p.renderer.OutputDir(), name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: artifact %s", types.ErrNotFound, name)
		}
		return nil, "", fmt.Errorf("%w: reading artifact %s: %v", types.ErrStorage, name, err)
	}
	return data, render.DocxMIME, nil
}

// validateArtifactName rejects empty names, path-traversal sequences, and
// absolute paths.
func validateArtifactName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: artifact name is required", types.ErrValidation)
	}
	if strings.Contains(name, "..") ||
		strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") ||
		strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: artifact name %q contains path separators", types.ErrValidation, name)
	}
	return nil
}

// audit records an entry, reporting failures as warnings so audit problems
// never fail the user-facing operation.
func (p *Pipeline) audit(action, description string) {
	if p.auditLog == nil {
		return
	}
	if err := p.auditLog.Record(action, auditUser, description); err != nil {
		fmt.Fprintf(p.Log, "warning: %v\n", err)
	}
}

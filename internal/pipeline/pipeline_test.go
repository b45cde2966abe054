// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/sop-engine/internal/audit"
	"github.com/pdiddy/sop-engine/internal/generate"
	"github.com/pdiddy/sop-engine/internal/render"
	"github.com/pdiddy/sop-engine/internal/store"
	"github.com/pdiddy/sop-engine/pkg/types"
)

// mockBackend returns a fixed response, or an error when err is set.
type mockBackend struct {
	response string
	err      error
	calls    int
}

func (m *mockBackend) Generate(ctx context.Context, prompt string, params generate.DecodingParams) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func testPipeline(t *testing.T, backend generate.Backend) (*Pipeline, string) {
	t.Helper()
	tmpDir := t.TempDir()

	st, err := store.New(types.StoreConfig{DataDir: filepath.Join(tmpDir, "collected_data")})
	if err != nil {
		t.Fatal(err)
	}
	gen, err := generate.New(types.GenerationConfig{
		SaveDir:  filepath.Join(tmpDir, "model_checkpoints"),
		AIConfig: types.AIConfig{MaxRetries: 1},
	}, backend, nil)
	if err != nil {
		t.Fatal(err)
	}
	rend, err := render.New(types.RenderConfig{OutputDir: filepath.Join(tmpDir, "generated_docs")})
	if err != nil {
		t.Fatal(err)
	}
	log := audit.New(types.AuditConfig{Path: filepath.Join(tmpDir, "audit.log")})

	p := New(st, gen, rend, log)
	p.Log = &bytes.Buffer{}
	return p, tmpDir
}

func TestGenerateModelPath(t *testing.T) {
	backend := &mockBackend{response: "1. Purpose\nCalibrate the centrifuge.\n2. Scope\nAll staff."}
	p, tmpDir := testPipeline(t, backend)

	result, err := p.Generate(context.Background(), types.GenerationRequest{
		Type:  types.TypeSOP,
		Steps: "Calibrate the centrifuge monthly",
		Roles: "Lab technician",
	})
	if err != nil {
		t.Fatal(err)
	}

	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
	if result.TemplateType != "" {
		t.Errorf("template type = %q, want none", result.TemplateType)
	}
	if result.ArtifactFile != "" {
		t.Errorf("artifact = %q, want none for plain request", result.ArtifactFile)
	}
	if result.RecordKey == "" {
		t.Fatal("record key missing")
	}

	// The record is persisted and loadable.
	rec, err := p.store.Load(context.Background(), result.RecordKey)
	if err != nil {
		t.Fatal(err)
	}
	if rec.GeneratedContent != backend.response {
		t.Errorf("persisted content = %q", rec.GeneratedContent)
	}

	// The audit trail records the generation.
	auditData, err := os.ReadFile(filepath.Join(tmpDir, "audit.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(auditData), "performed generate on document "+result.RecordKey) {
		t.Errorf("audit log = %q", auditData)
	}
}

func TestGenerateTemplatePath(t *testing.T) {
	backend := &mockBackend{response: "should not be used"}
	p, _ := testPipeline(t, backend)

	result, err := p.Generate(context.Background(), types.GenerationRequest{
		Type:  types.TypeSOP,
		Steps: "Thaw NK cells in a 37C water bath",
		Roles: "Lab technician",
	})
	if err != nil {
		t.Fatal(err)
	}

	if backend.calls != 0 {
		t.Errorf("template path must not call the model, got %d calls", backend.calls)
	}
	if result.TemplateType != "NK_cell_thawing" {
		t.Errorf("template type = %q", result.TemplateType)
	}
	if !strings.Contains(result.Content, "NK Cell Thawing Procedure") {
		t.Errorf("content = %q", result.Content)
	}
	// Template match always renders an artifact.
	if result.ArtifactFile == "" {
		t.Fatal("template path should render an artifact")
	}

	// The artifact is retrievable through the pipeline.
	data, mime, err := p.Artifact(result.ArtifactFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("artifact is empty")
	}
	if mime != render.DocxMIME {
		t.Errorf("mime = %q", mime)
	}

	// Template metadata is persisted.
	rec, err := p.store.Load(context.Background(), result.RecordKey)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Metadata[types.MetaTemplateType] != "NK_cell_thawing" {
		t.Errorf("metadata = %v", rec.Metadata)
	}
	if rec.Metadata[types.MetaArtifact] != result.ArtifactFile {
		t.Errorf("artifact metadata = %v", rec.Metadata)
	}
}

func TestGenerateExplicitArtifact(t *testing.T) {
	backend := &mockBackend{response: "1. Purpose\nMix reagents."}
	p, _ := testPipeline(t, backend)

	result, err := p.Generate(context.Background(), types.GenerationRequest{
		Type:          types.TypeSOP,
		Steps:         "Mix reagents carefully",
		Roles:         "Technician",
		WantsArtifact: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.ArtifactFile == "" {
		t.Error("explicit artifact request should render")
	}
}

func TestGenerateValidation(t *testing.T) {
	p, _ := testPipeline(t, &mockBackend{response: "x"})

	tests := []struct {
		name string
		req  types.GenerationRequest
	}{
		{name: "missing type", req: types.GenerationRequest{Steps: "s", Roles: "r"}},
		{name: "invalid type", req: types.GenerationRequest{Type: "memo", Steps: "s", Roles: "r"}},
		{name: "missing steps", req: types.GenerationRequest{Type: types.TypeSOP, Roles: "r"}},
		{name: "missing roles", req: types.GenerationRequest{Type: types.TypeSOP, Steps: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Generate(context.Background(), tt.req)
			if !errors.Is(err, types.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestGenerateBackendFailureCreatesNoRecord(t *testing.T) {
	backend := &mockBackend{err: errors.New("model down")}
	p, _ := testPipeline(t, backend)

	_, err := p.Generate(context.Background(), types.GenerationRequest{
		Type:  types.TypeSOP,
		Steps: "Mix reagents",
		Roles: "Technician",
	})
	if !errors.Is(err, types.ErrGeneration) {
		t.Fatalf("got %v, want ErrGeneration", err)
	}

	snap, err := p.Statistics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.TotalDocuments != 0 {
		t.Errorf("failed generation should persist nothing, got %d records", snap.TotalDocuments)
	}
}

func TestSubmitFeedback(t *testing.T) {
	p, _ := testPipeline(t, &mockBackend{response: "1. Purpose\nGood doc."})
	ctx := context.Background()

	result, err := p.Generate(ctx, types.GenerationRequest{
		Type:  types.TypeSOP,
		Steps: "Prepare buffer",
		Roles: "Technician",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.SubmitFeedback(ctx, result.RecordKey, 4.5, "clear"); err != nil {
		t.Fatal(err)
	}

	// Feedback lands in the store.
	rec, err := p.store.Load(ctx, result.RecordKey)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Feedback == nil || rec.Feedback.Score != 4.5 {
		t.Errorf("feedback = %+v", rec.Feedback)
	}

	// And in the training corpus.
	examples := p.generator.Examples(nil)
	if len(examples) != 1 {
		t.Fatalf("corpus has %d examples, want 1", len(examples))
	}
	if examples[0].RecordKey != result.RecordKey {
		t.Errorf("corpus key = %q", examples[0].RecordKey)
	}

	// Retrying the same feedback does not duplicate the example.
	if err := p.SubmitFeedback(ctx, result.RecordKey, 4.5, "clear"); err != nil {
		t.Fatal(err)
	}
	if got := len(p.generator.Examples(nil)); got != 1 {
		t.Errorf("corpus has %d examples after retry, want 1", got)
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	p, _ := testPipeline(t, &mockBackend{response: "x"})
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		score   float64
		wantErr error
	}{
		{name: "empty key", key: "", score: 4, wantErr: types.ErrValidation},
		{name: "traversal key", key: "../../outside/victim", score: 4, wantErr: types.ErrValidation},
		{name: "score below range", key: "k", score: -0.1, wantErr: types.ErrValidation},
		{name: "score above range", key: "k", score: 5.1, wantErr: types.ErrValidation},
		{name: "unknown key", key: "20260101_000000_sop_deadbeef", score: 4, wantErr: types.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.SubmitFeedback(ctx, tt.key, tt.score, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRebuildCorpus(t *testing.T) {
	p, _ := testPipeline(t, &mockBackend{response: "1. Purpose\nDoc."})
	ctx := context.Background()

	var keys []string
	for i := 0; i < 3; i++ {
		result, err := p.Generate(ctx, types.GenerationRequest{
			Type:  types.TypeSOP,
			Steps: fmt.Sprintf("Procedure %d", i),
			Roles: "Technician",
		})
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, result.RecordKey)
	}
	for _, key := range keys[:2] {
		if err := p.SubmitFeedback(ctx, key, 4.0, ""); err != nil {
			t.Fatal(err)
		}
	}

	// Wipe the corpus, then rebuild it from the store view.
	if err := p.generator.ReplaceCorpus(nil); err != nil {
		t.Fatal(err)
	}
	n, err := p.RebuildCorpus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("rebuilt %d examples, want 2", n)
	}
	if got := len(p.generator.Examples(nil)); got != 2 {
		t.Errorf("corpus has %d examples, want 2", got)
	}
}

func TestTriggerTrainingInsufficientData(t *testing.T) {
	p, _ := testPipeline(t, &mockBackend{response: "1. Purpose\nDoc."})
	ctx := context.Background()

	result, err := p.Generate(ctx, types.GenerationRequest{
		Type:  types.TypeSOP,
		Steps: "Prepare buffer",
		Roles: "Technician",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SubmitFeedback(ctx, result.RecordKey, 5.0, ""); err != nil {
		t.Fatal(err)
	}

	err = p.TriggerTraining(ctx, nil)
	if !errors.Is(err, types.ErrInsufficientData) {
		t.Errorf("got %v, want ErrInsufficientData", err)
	}
}

func TestTriggerTrainingZeroFloor(t *testing.T) {
	p, _ := testPipeline(t, &mockBackend{response: "1. Purpose\nDoc."})
	ctx := context.Background()

	// Enough examples to train, but all rated below the default floor.
	for i := 0; i < 10; i++ {
		result, err := p.Generate(ctx, types.GenerationRequest{
			Type:  types.TypeSOP,
			Steps: fmt.Sprintf("Procedure %d", i),
			Roles: "Technician",
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := p.SubmitFeedback(ctx, result.RecordKey, 1.0, ""); err != nil {
			t.Fatal(err)
		}
	}

	// The default floor filters everything out.
	err := p.TriggerTraining(ctx, nil)
	if !errors.Is(err, types.ErrInsufficientData) {
		t.Fatalf("default floor: got %v, want ErrInsufficientData", err)
	}

	// An explicit zero floor admits all ten examples; without a trainer the
	// run fails later, past the corpus-size check.
	zero := 0.0
	err = p.TriggerTraining(ctx, &zero)
	if errors.Is(err, types.ErrInsufficientData) {
		t.Fatalf("zero floor should admit all examples, got %v", err)
	}
	if !errors.Is(err, types.ErrGeneration) {
		t.Errorf("got %v, want ErrGeneration from the missing trainer", err)
	}
}

func TestArtifactPathTraversal(t *testing.T) {
	p, _ := testPipeline(t, &mockBackend{response: "x"})

	tests := []string{
		"",
		"../../etc/passwd",
		"..",
		"/etc/passwd",
		"\\windows\\system32",
		"nested/path.docx",
	}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := p.Artifact(name)
			if !errors.Is(err, types.ErrValidation) {
				t.Errorf("Artifact(%q) = %v, want ErrValidation", name, err)
			}
		})
	}
}

func TestArtifactNotFound(t *testing.T) {
	p, _ := testPipeline(t, &mockBackend{response: "x"})

	_, _, err := p.Artifact("missing.docx")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestStatistics(t *testing.T) {
	p, _ := testPipeline(t, &mockBackend{response: "1. Purpose\nDoc."})
	ctx := context.Background()

	result, err := p.Generate(ctx, types.GenerationRequest{
		Type:  types.TypeBatchRecord,
		Steps: "Record lot numbers",
		Roles: "QA",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SubmitFeedback(ctx, result.RecordKey, 3.0, ""); err != nil {
		t.Fatal(err)
	}

	snap, err := p.Statistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.TotalDocuments != 1 || snap.BatchRecords.Total != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.DocumentsWithFeedback != 1 || snap.AverageFeedbackScore != 3.0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

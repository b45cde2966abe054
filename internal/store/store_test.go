// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/sop-engine/pkg/types"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()
	s, err := New(types.StoreConfig{DataDir: tmpDir})
	if err != nil {
		t.Fatal(err)
	}
	return s, tmpDir
}

func saveDoc(t *testing.T, s *Store, docType types.DocumentType, content string) string {
	t.Helper()
	key, err := s.Save(context.Background(), types.GenerationRequest{
		Type:  docType,
		Steps: "Thaw the vial in a 37C water bath.",
		Roles: "Lab technician",
	}, content, nil)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestNewCreatesPartitions(t *testing.T) {
	_, tmpDir := testStore(t)

	for _, dir := range []string{"sops", "batch_records"} {
		info, err := os.Stat(filepath.Join(tmpDir, dir))
		if err != nil {
			t.Fatalf("partition %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("partition %s is not a directory", dir)
		}
	}
}

func TestNewKey(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	key := NewKey(types.TypeSOP)
	if !strings.HasPrefix(key, "20260314_092653_sop_") {
		t.Errorf("key %q should start with timestamp and type", key)
	}
	if len(key) != len("20260314_092653_sop_")+8 {
		t.Errorf("key %q should end with an 8-character suffix", key)
	}

	// Same instant, distinct keys.
	if other := NewKey(types.TypeSOP); other == key {
		t.Errorf("two keys from the same instant collided: %q", key)
	}
}

func TestSaveAndLoad(t *testing.T) {
	s, tmpDir := testStore(t)

	key, err := s.Save(context.Background(), types.GenerationRequest{
		Type:  types.TypeBatchRecord,
		Steps: "Record lot numbers.",
		Roles: "QA",
		Notes: "batch 42",
	}, "1. Purpose\nRecord production details.", map[string]string{
		types.MetaModelVersion: "base",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Record lands in the batch_records partition.
	if _, err := os.Stat(filepath.Join(tmpDir, "batch_records", key+".json")); err != nil {
		t.Fatalf("record file: %v", err)
	}

	rec, err := s.Load(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Key != key {
		t.Errorf("got key %q, want %q", rec.Key, key)
	}
	if rec.Input.Steps != "Record lot numbers." {
		t.Errorf("input steps not preserved: %q", rec.Input.Steps)
	}
	if rec.GeneratedContent != "1. Purpose\nRecord production details." {
		t.Errorf("content not preserved: %q", rec.GeneratedContent)
	}
	if rec.Metadata[types.MetaModelVersion] != "base" {
		t.Errorf("metadata not preserved: %v", rec.Metadata)
	}
	if rec.Feedback != nil {
		t.Error("new record should have no feedback")
	}
}

func TestLoadNotFound(t *testing.T) {
	s, _ := testStore(t)

	_, err := s.Load(context.Background(), "20260101_000000_sop_deadbeef")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestTraversalKeysRejected(t *testing.T) {
	s, tmpDir := testStore(t)
	ctx := context.Background()

	// A JSON file outside the data dir that a traversal key would reach.
	outside := filepath.Join(filepath.Dir(tmpDir), "outside")
	if err := os.MkdirAll(outside, 0o755); err != nil {
		t.Fatal(err)
	}
	err := os.WriteFile(filepath.Join(outside, "victim.json"),
		[]byte(`{"key":"victim","generated_content":"external data"}`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	keys := []string{
		"../../outside/victim",
		"../outside/victim",
		"..",
		"/etc/passwd",
		"sops/victim",
		"..\\outside\\victim",
	}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			if _, err := s.Load(ctx, key); !errors.Is(err, types.ErrValidation) {
				t.Errorf("Load(%q) = %v, want ErrValidation", key, err)
			}
			if err := s.AttachFeedback(ctx, key, 4.0, ""); !errors.Is(err, types.ErrValidation) {
				t.Errorf("AttachFeedback(%q) = %v, want ErrValidation", key, err)
			}
		})
	}

	// Nothing was materialized inside the partitions.
	for _, dir := range []string{"sops", "batch_records"} {
		entries, err := os.ReadDir(filepath.Join(tmpDir, dir))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("partition %s has %d entries, want none", dir, len(entries))
		}
	}
}

func TestAttachFeedback(t *testing.T) {
	s, _ := testStore(t)
	key := saveDoc(t, s, types.TypeSOP, "1. Purpose\nThaw NK cells.")

	if err := s.AttachFeedback(context.Background(), key, 4.5, "clear and complete"); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Load(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Feedback == nil {
		t.Fatal("feedback not persisted")
	}
	if rec.Feedback.Score != 4.5 {
		t.Errorf("got score %v, want 4.5", rec.Feedback.Score)
	}
	if rec.Feedback.Text != "clear and complete" {
		t.Errorf("got text %q", rec.Feedback.Text)
	}
	if rec.Feedback.Timestamp == "" {
		t.Error("feedback timestamp missing")
	}

	// A second submission overwrites the first.
	if err := s.AttachFeedback(context.Background(), key, 2.0, "revised opinion"); err != nil {
		t.Fatal(err)
	}
	rec, err = s.Load(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Feedback.Score != 2.0 {
		t.Errorf("second feedback should overwrite, got score %v", rec.Feedback.Score)
	}
}

func TestAttachFeedbackUnknownKey(t *testing.T) {
	s, _ := testStore(t)

	err := s.AttachFeedback(context.Background(), "no_such_key", 4.0, "")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestListTrainingExamples(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	keyHigh := saveDoc(t, s, types.TypeSOP, "high scoring doc")
	keyLow := saveDoc(t, s, types.TypeBatchRecord, "low scoring doc")
	saveDoc(t, s, types.TypeSOP, "no feedback doc")

	if err := s.AttachFeedback(ctx, keyHigh, 4.8, "excellent"); err != nil {
		t.Fatal(err)
	}
	if err := s.AttachFeedback(ctx, keyLow, 1.5, "poor"); err != nil {
		t.Fatal(err)
	}

	// No filter: both fed-back records.
	all, err := s.ListTrainingExamples(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d examples, want 2", len(all))
	}

	// Threshold excludes the low-scoring record.
	minScore := 3.5
	filtered, err := s.ListTrainingExamples(ctx, &minScore)
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 {
		t.Fatalf("got %d examples, want 1", len(filtered))
	}
	ex := filtered[0]
	if ex.RecordKey != keyHigh {
		t.Errorf("got key %q, want %q", ex.RecordKey, keyHigh)
	}
	if ex.Output != "high scoring doc" {
		t.Errorf("got output %q", ex.Output)
	}
	if ex.FeedbackScore != 4.8 {
		t.Errorf("got score %v", ex.FeedbackScore)
	}
	if ex.Type != types.TypeSOP {
		t.Errorf("got type %q", ex.Type)
	}
}

func TestStatistics(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	empty, err := s.Statistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if empty.TotalDocuments != 0 || empty.AverageFeedbackScore != 0 {
		t.Errorf("empty store statistics = %+v", empty)
	}

	k1 := saveDoc(t, s, types.TypeSOP, "doc one")
	k2 := saveDoc(t, s, types.TypeSOP, "doc two")
	k3 := saveDoc(t, s, types.TypeBatchRecord, "doc three")
	_ = k2

	if err := s.AttachFeedback(ctx, k1, 4.0, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.AttachFeedback(ctx, k3, 2.0, ""); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Statistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.TotalDocuments != 3 {
		t.Errorf("total = %d, want 3", snap.TotalDocuments)
	}
	if snap.DocumentsWithFeedback != 2 {
		t.Errorf("with feedback = %d, want 2", snap.DocumentsWithFeedback)
	}
	if snap.AverageFeedbackScore != 3.0 {
		t.Errorf("average = %v, want 3.0", snap.AverageFeedbackScore)
	}
	if snap.SOPs.Total != 2 || snap.SOPs.WithFeedback != 1 {
		t.Errorf("sops = %+v", snap.SOPs)
	}
	if snap.BatchRecords.Total != 1 || snap.BatchRecords.WithFeedback != 1 {
		t.Errorf("batch records = %+v", snap.BatchRecords)
	}
}

func TestScanAll(t *testing.T) {
	s, _ := testStore(t)

	saveDoc(t, s, types.TypeSOP, "a")
	saveDoc(t, s, types.TypeBatchRecord, "b")

	scanned, err := s.ScanAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(scanned) != 2 {
		t.Fatalf("got %d records, want 2", len(scanned))
	}
	for _, sr := range scanned {
		if sr.Record == nil {
			t.Fatal("nil record in scan")
		}
		if sr.ModTime.IsZero() {
			t.Errorf("record %s has zero mod time", sr.Record.Key)
		}
	}
}

func TestScanSkipsTempFiles(t *testing.T) {
	s, tmpDir := testStore(t)
	saveDoc(t, s, types.TypeSOP, "real")

	// A leftover temp file from an interrupted write must not break scans.
	tmpFile := filepath.Join(tmpDir, "sops", ".record-123.tmp")
	if err := os.WriteFile(tmpFile, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	scanned, err := s.ScanAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(scanned) != 1 {
		t.Errorf("got %d records, want 1", len(scanned))
	}
}

func TestSaveCancelledContext(t *testing.T) {
	s, _ := testStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, types.GenerationRequest{Type: types.TypeSOP}, "x", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists generated documents and their feedback as one
// JSON record per file, partitioned by document type.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/sop-engine/pkg/types"
)

const timestampLayout = "20060102_150405"

// now is the clock used for record timestamps. Tests override it to get
// deterministic keys.
var now = time.Now

// Store is the durable document store. All mutators are serialized by a
// store-level mutex so concurrent feedback and save calls cannot interleave
// partial file writes.
type Store struct {
	dataDir string

	mu sync.Mutex
}

// New creates the store's partition directories under cfg.DataDir and
// returns a Store rooted there.
func New(cfg types.StoreConfig) (*Store, error) {
	for _, t := range []types.DocumentType{types.TypeSOP, types.TypeBatchRecord} {
		dir := filepath.Join(cfg.DataDir, t.Partition())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating partition %s: %v", types.ErrStorage, dir, err)
		}
	}
	return &Store{dataDir: cfg.DataDir}, nil
}

// NewKey derives a record key from the current time, document type, and a
// collision-resistant random suffix. Second-resolution timestamps alone can
// collide under concurrent requests; the suffix removes that risk while
// keeping keys sortable by creation time.
func NewKey(docType types.DocumentType) string {
	ts := now().Format(timestampLayout)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", ts, docType, suffix)
}

// Save creates a new DocumentRecord for the given generation output, writes
// it durably, and returns its key.
func (s *Store) Save(ctx context.Context, input types.GenerationRequest, content string, metadata map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := NewKey(input.Type)
	rec := &types.DocumentRecord{
		Key:              key,
		Timestamp:        now().Format(timestampLayout),
		Input:            input,
		GeneratedContent: content,
		Metadata:         metadata,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeRecord(rec); err != nil {
		return "", err
	}
	return key, nil
}

// AttachFeedback loads the record by key, sets its feedback field
// (overwriting any prior feedback), and persists it. The store does not
// validate the score range; that is the caller's responsibility.
func (s *Store) AttachFeedback(ctx context.Context, key string, score float64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, err := s.loadRecord(key)
	if err != nil {
		return err
	}

	rec.Feedback = &types.Feedback{
		Score:     score,
		Text:      text,
		Timestamp: now().Format(timestampLayout),
	}
	return s.writeRecord(rec)
}

// Load reads a single record by key.
func (s *Store) Load(ctx context.Context, key string) (*types.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, _, err := s.loadRecord(key)
	return rec, err
}

// ListTrainingExamples scans all records across both partitions and returns
// the fed-back ones as TrainingExamples, optionally filtered by
// score >= *minScore. Order follows scan order and is not guaranteed stable
// across calls.
func (s *Store) ListTrainingExamples(ctx context.Context, minScore *float64) ([]types.TrainingExample, error) {
	var examples []types.TrainingExample

	err := s.scan(ctx, func(rec *types.DocumentRecord, _ time.Time) error {
		if rec.Feedback == nil {
			return nil
		}
		if minScore != nil && rec.Feedback.Score < *minScore {
			return nil
		}
		examples = append(examples, types.TrainingExample{
			RecordKey:     rec.Key,
			Input:         rec.Input,
			Output:        rec.GeneratedContent,
			FeedbackScore: rec.Feedback.Score,
			FeedbackText:  rec.Feedback.Text,
			Type:          rec.Input.Type,
		})
		return nil
	})
	return examples, err
}

// Statistics scans all records and tallies totals, per-type breakdowns, and
// the mean feedback score over fed-back records (0 when there are none).
func (s *Store) Statistics(ctx context.Context) (types.StatisticsSnapshot, error) {
	var snap types.StatisticsSnapshot
	var scoreSum float64

	err := s.scan(ctx, func(rec *types.DocumentRecord, _ time.Time) error {
		perType := &snap.SOPs
		if rec.Input.Type == types.TypeBatchRecord {
			perType = &snap.BatchRecords
		}

		snap.TotalDocuments++
		perType.Total++

		if rec.Feedback != nil {
			snap.DocumentsWithFeedback++
			perType.WithFeedback++
			scoreSum += rec.Feedback.Score
		}
		return nil
	})
	if err != nil {
		return types.StatisticsSnapshot{}, err
	}

	if snap.DocumentsWithFeedback > 0 {
		snap.AverageFeedbackScore = scoreSum / float64(snap.DocumentsWithFeedback)
	}
	return snap, nil
}

// ScannedRecord pairs a loaded record with its file modification time, for
// incremental index ingestion.
type ScannedRecord struct {
	Record  *types.DocumentRecord
	ModTime time.Time
}

// ScanAll loads every record across both partitions together with its file
// modification time.
func (s *Store) ScanAll(ctx context.Context) ([]ScannedRecord, error) {
	var out []ScannedRecord
	err := s.scan(ctx, func(rec *types.DocumentRecord, mod time.Time) error {
		out = append(out, ScannedRecord{Record: rec, ModTime: mod})
		return nil
	})
	return out, err
}

// scan visits every record file in both partitions.
func (s *Store) scan(ctx context.Context, visit func(*types.DocumentRecord, time.Time) error) error {
	for _, t := range []types.DocumentType{types.TypeSOP, types.TypeBatchRecord} {
		dir := filepath.Join(s.dataDir, t.Partition())

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("%w: reading partition %s: %v", types.ErrStorage, dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			path := filepath.Join(dir, entry.Name())
			rec, err := readRecord(path)
			if err != nil {
				return err
			}

			info, err := entry.Info()
			if err != nil {
				return fmt.Errorf("%w: stat %s: %v", types.ErrStorage, path, err)
			}

			if err := visit(rec, info.ModTime()); err != nil {
				return err
			}
		}
	}
	return nil
}

// validKey reports whether a key is a plain record name. Keys carrying
// path separators or parent-directory references could name files outside
// the partitions and are never valid.
func validKey(key string) bool {
	return key != "" &&
		!strings.ContainsAny(key, "/\\") &&
		!strings.Contains(key, "..")
}

// recordPath returns the file path for a key, checking both partitions.
// The key embeds the document type, so the matching partition is derived
// from it; unknown keys report ErrNotFound. Keys that could escape the
// partitions are rejected before any filesystem access.
func (s *Store) recordPath(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("%w: malformed record key %q", types.ErrValidation, key)
	}
	for _, t := range []types.DocumentType{types.TypeSOP, types.TypeBatchRecord} {
		path := filepath.Join(s.dataDir, t.Partition(), key+".json")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: record %s", types.ErrNotFound, key)
}

func (s *Store) loadRecord(key string) (*types.DocumentRecord, string, error) {
	path, err := s.recordPath(key)
	if err != nil {
		return nil, "", err
	}
	rec, err := readRecord(path)
	if err != nil {
		return nil, "", err
	}
	return rec, path, nil
}

func readRecord(path string) (*types.DocumentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", types.ErrStorage, path, err)
	}
	var rec types.DocumentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", types.ErrStorage, path, err)
	}
	return &rec, nil
}

// writeRecord marshals the record and writes it to its partition via a
// temp file and atomic rename, so a crash mid-write cannot corrupt an
// existing record.
func (s *Store) writeRecord(rec *types.DocumentRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling record %s: %v", types.ErrStorage, rec.Key, err)
	}

	dir := filepath.Join(s.dataDir, rec.Input.Type.Partition())
	path := filepath.Join(dir, rec.Key+".json")

	tmp, err := os.CreateTemp(dir, ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %v", types.ErrStorage, dir, err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing record %s: %v", types.ErrStorage, rec.Key, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing record %s: %v", types.ErrStorage, rec.Key, closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming record %s: %v", types.ErrStorage, rec.Key, err)
	}
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sop-engine/pkg/types"
)

// Corpus is the in-memory + persisted-to-disk list of training examples.
// Mutations are serialized by a mutex and flushed atomically, so the corpus
// file survives process restarts and concurrent feedback submissions.
type Corpus struct {
	path string

	mu       sync.Mutex
	examples []types.TrainingExample
	byKey    map[string]int
}

// corpusFileFormat is the on-disk shape of the corpus file.
type corpusFileFormat struct {
	Examples []types.TrainingExample `yaml:"examples"`
}

// LoadCorpus reads the corpus file at path. A missing file yields an empty
// corpus; a malformed one is an error.
func LoadCorpus(path string) (*Corpus, error) {
	c := &Corpus{
		path:  path,
		byKey: make(map[string]int),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("%w: reading corpus %s: %v", types.ErrStorage, path, err)
	}

	var file corpusFileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing corpus %s: %v", types.ErrStorage, path, err)
	}

	c.examples = file.Examples
	for i, ex := range c.examples {
		c.byKey[ex.RecordKey] = i
	}
	return c, nil
}

// Add inserts or overwrites the example keyed by its record key and persists
// the corpus. Sensitive identifiers are redacted on the way in, so the
// corpus file never holds them.
func (c *Corpus) Add(ex types.TrainingExample) error {
	ex = sanitizeExample(ex)

	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.byKey[ex.RecordKey]; ok {
		c.examples[i] = ex
	} else {
		c.byKey[ex.RecordKey] = len(c.examples)
		c.examples = append(c.examples, ex)
	}
	return c.flush()
}

// Replace swaps the full example list and persists it. Examples are
// redacted the same way Add redacts them, so a rebuild from the document
// store cannot reintroduce sensitive identifiers.
func (c *Corpus) Replace(examples []types.TrainingExample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.examples = make([]types.TrainingExample, len(examples))
	for i, ex := range examples {
		c.examples[i] = sanitizeExample(ex)
	}
	c.byKey = make(map[string]int, len(c.examples))
	for i, ex := range c.examples {
		c.byKey[ex.RecordKey] = i
	}
	return c.flush()
}

// Examples returns a copy of the corpus, optionally filtered by
// score >= *minScore.
func (c *Corpus) Examples(minScore *float64) []types.TrainingExample {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []types.TrainingExample
	for _, ex := range c.examples {
		if minScore != nil && ex.FeedbackScore < *minScore {
			continue
		}
		out = append(out, ex)
	}
	return out
}

// Len returns the number of examples in the corpus.
func (c *Corpus) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.examples)
}

// Snapshot writes the given examples to a temp file next to the corpus file
// and returns its path. The caller removes the file after the training run.
func (c *Corpus) Snapshot(examples []types.TrainingExample) (string, error) {
	data, err := yaml.Marshal(corpusFileFormat{Examples: examples})
	if err != nil {
		return "", fmt.Errorf("%w: marshaling corpus snapshot: %v", types.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".corpus-*.yaml")
	if err != nil {
		return "", fmt.Errorf("%w: creating corpus snapshot: %v", types.ErrStorage, err)
	}
	path := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: writing corpus snapshot: %v", types.ErrStorage, writeErr)
	}
	if closeErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: closing corpus snapshot: %v", types.ErrStorage, closeErr)
	}
	return path, nil
}

// flush writes the corpus to disk via temp file + atomic rename. Caller
// holds the mutex.
func (c *Corpus) flush() error {
	data, err := yaml.Marshal(corpusFileFormat{Examples: c.examples})
	if err != nil {
		return fmt.Errorf("%w: marshaling corpus: %v", types.ErrStorage, err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".corpus-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp corpus in %s: %v", types.ErrStorage, dir, err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing corpus: %v", types.ErrStorage, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing corpus: %v", types.ErrStorage, closeErr)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming corpus: %v", types.ErrStorage, err)
	}
	return nil
}

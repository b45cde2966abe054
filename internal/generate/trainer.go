// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/sop-engine/internal/container"
)

// containerCheckpointDir is where the training image expects to write the
// updated checkpoint inside the container.
const containerCheckpointDir = "/checkpoints"

// ContainerTrainer runs fine-tuning jobs in a local container: the corpus
// file is streamed on stdin and the checkpoint directory is bind-mounted so
// the job writes the updated model in place.
type ContainerTrainer struct {
	Runtime container.Runtime
	Image   string
	Log     io.Writer
}

// NewContainerTrainer detects an available container runtime and returns a
// trainer for the given image.
func NewContainerTrainer(image string, log io.Writer) (*ContainerTrainer, error) {
	rt, err := container.DetectRuntime()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = io.Discard
	}
	return &ContainerTrainer{Runtime: rt, Image: image, Log: log}, nil
}

// Train runs the training container over the corpus file. The context is
// checked before launch; the container run itself is bounded by the job's
// own lifecycle.
func (t *ContainerTrainer) Train(ctx context.Context, corpusPath, checkpointDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := t.Runtime.ImageExists(t.Image); err != nil {
		return err
	}

	absCkpt, err := filepath.Abs(checkpointDir)
	if err != nil {
		return fmt.Errorf("resolving checkpoint directory: %w", err)
	}

	corpus, err := os.Open(corpusPath)
	if err != nil {
		return fmt.Errorf("opening corpus %s: %w", corpusPath, err)
	}
	defer corpus.Close()

	fmt.Fprintf(t.Log, "training with %s via %s\n", t.Image, t.Runtime.Name())

	binds := []string{absCkpt + ":" + containerCheckpointDir}
	if err := t.Runtime.RunJob(t.Image, binds, corpus, t.Log); err != nil {
		return err
	}

	fmt.Fprintf(t.Log, "checkpoint updated in %s\n", checkpointDir)
	return nil
}

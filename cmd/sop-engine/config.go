// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"io"
	"net/http"

	"github.com/spf13/viper"

	"github.com/pdiddy/sop-engine/internal/audit"
	"github.com/pdiddy/sop-engine/internal/generate"
	"github.com/pdiddy/sop-engine/internal/httputil"
	"github.com/pdiddy/sop-engine/internal/pipeline"
	"github.com/pdiddy/sop-engine/internal/render"
	"github.com/pdiddy/sop-engine/internal/store"
	"github.com/pdiddy/sop-engine/pkg/types"
)

// pipelineConfig assembles the stage configuration from the config file and
// environment, with the project defaults.
func pipelineConfig() types.PipelineConfig {
	viper.SetDefault("http.timeout", "60s")
	viper.SetDefault("http.user_agent", "sop-engine/0.1")
	viper.SetDefault("store.data_dir", "collected_data")
	viper.SetDefault("generation.save_dir", "model_checkpoints")
	viper.SetDefault("generation.model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("generation.max_retries", 3)
	viper.SetDefault("training.min_score", 3.5)
	viper.SetDefault("training.image", "sop-engine-trainer:latest")
	viper.SetDefault("render.output_dir", "generated_docs")
	viper.SetDefault("render.organization", "COMPANY LOGO")
	viper.SetDefault("index.max_results", 20)
	viper.SetDefault("audit.path", "audit.log")

	cfg := types.PipelineConfig{
		HTTP: types.HTTPConfig{
			Timeout:   viper.GetDuration("http.timeout"),
			UserAgent: viper.GetString("http.user_agent"),
		},
		Store: types.StoreConfig{
			DataDir: viper.GetString("store.data_dir"),
		},
		Generation: types.GenerationConfig{
			AIConfig: types.AIConfig{
				Model:      viper.GetString("generation.model"),
				APIKey:     secretDefault("anthropic-api-key", viper.GetString("generation.api_key")),
				MaxRetries: viper.GetInt("generation.max_retries"),
			},
			SaveDir:          viper.GetString("generation.save_dir"),
			MaxTokens:        viper.GetInt("generation.max_tokens"),
			Temperature:      viper.GetFloat64("generation.temperature"),
			TopP:             viper.GetFloat64("generation.top_p"),
			RepetitionWindow: viper.GetInt("generation.repetition_window"),
			Greedy:           viper.GetBool("generation.greedy"),
		},
		Training: types.TrainingConfig{
			MinScore: viper.GetFloat64("training.min_score"),
			Image:    viper.GetString("training.image"),
		},
		Render: types.RenderConfig{
			OutputDir:    viper.GetString("render.output_dir"),
			Organization: viper.GetString("render.organization"),
		},
		Index: types.IndexConfig{
			DataDir:    viper.GetString("store.data_dir"),
			MaxResults: viper.GetInt("index.max_results"),
		},
		Audit: types.AuditConfig{
			Path: viper.GetString("audit.path"),
		},
	}
	return cfg
}

// buildPipeline constructs the store, adapter, renderer, and audit log for
// one command invocation. withTrainer controls whether a container runtime
// is detected for fine-tuning; commands that never train skip it.
func buildPipeline(cfg types.PipelineConfig, withTrainer bool, log io.Writer) (*pipeline.Pipeline, error) {
	// Rate-limit backoff notices from the model API share the warning writer.
	httputil.RetryLog = log

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, err
	}

	backend := &generate.ClaudeBackend{
		APIKey:    cfg.Generation.APIKey,
		Model:     cfg.Generation.Model,
		UserAgent: cfg.HTTP.UserAgent,
		Client:    &http.Client{Timeout: cfg.HTTP.Timeout},
	}

	var trainer generate.Trainer
	if withTrainer {
		trainer, err = generate.NewContainerTrainer(cfg.Training.Image, log)
		if err != nil {
			return nil, err
		}
	}

	gen, err := generate.New(cfg.Generation, backend, trainer)
	if err != nil {
		return nil, err
	}

	rend, err := render.New(cfg.Render)
	if err != nil {
		return nil, err
	}

	return pipeline.New(st, gen, rend, audit.New(cfg.Audit)), nil
}

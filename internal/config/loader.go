package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in zero-valued fields that must be non-zero for the
// service to behave sensibly out of the box.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Broker.OutboxFlushInterval <= 0 {
		cfg.Broker.OutboxFlushInterval = 5 * time.Second
	}
	if cfg.Database.EmbeddingDimensions <= 0 {
		cfg.Database.EmbeddingDimensions = 768
	}
	if cfg.Upstream.Timeout <= 0 {
		cfg.Upstream.Timeout = 5 * time.Second
	}
	if cfg.Model.Timeout <= 0 {
		cfg.Model.Timeout = 60 * time.Second
	}
	if cfg.Dialog.ReadyBaseTimeout <= 0 {
		cfg.Dialog.ReadyBaseTimeout = 5 * time.Second
	}
	if cfg.Dialog.ReadyMaxTimeout <= 0 {
		cfg.Dialog.ReadyMaxTimeout = 20 * time.Second
	}
	if cfg.Dialog.AnswerTimeout <= 0 {
		cfg.Dialog.AnswerTimeout = 45 * time.Second
	}
	if cfg.Dialog.SilenceNudgeAfter <= 0 {
		cfg.Dialog.SilenceNudgeAfter = 12 * time.Second
	} else {
		cfg.Dialog.AnswerTimeout = cfg.Dialog.SilenceNudgeAfter
	}
	if cfg.Dialog.SilenceRetries <= 0 {
		cfg.Dialog.SilenceRetries = 2
	}
	if cfg.Dialog.FragmentMergeWindow <= 0 {
		cfg.Dialog.FragmentMergeWindow = 2200 * time.Millisecond
	}
	if cfg.Dialog.EchoSimilarityThreshold <= 0 {
		cfg.Dialog.EchoSimilarityThreshold = 0.82
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:5173"}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Broker.URL == "" {
		errs = append(errs, errors.New("broker.url is required"))
	}
	if cfg.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}

	if cfg.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("upstream.base_url is required"))
	}
	if cfg.Upstream.Retries < 0 {
		errs = append(errs, fmt.Errorf("upstream.retries %d must be >= 0", cfg.Upstream.Retries))
	}

	if cfg.Model.BaseURL == "" {
		errs = append(errs, errors.New("model.base_url is required"))
	}
	if cfg.Model.EmbedModel == "" {
		errs = append(errs, errors.New("model.embed_model is required"))
	}
	if cfg.Model.ChatModel == "" {
		errs = append(errs, errors.New("model.chat_model is required"))
	}

	if cfg.Dialog.EchoSimilarityThreshold < 0 || cfg.Dialog.EchoSimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("dialog.echo_similarity_threshold %.2f is out of range [0, 1]", cfg.Dialog.EchoSimilarityThreshold))
	}
	if cfg.Dialog.SilenceRetries < 0 {
		errs = append(errs, fmt.Errorf("dialog.silence_retries %d must be >= 0", cfg.Dialog.SilenceRetries))
	}

	if len(errs) > 0 {
		slog.Warn("config: validation failed", "error_count", len(errs))
	}

	return errors.Join(errs...)
}

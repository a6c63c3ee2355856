package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/screeningd/internal/config"
)

func TestValidate_MissingBrokerURL(t *testing.T) {
	t.Parallel()

	yaml := `
database:
  url: postgres://localhost/screeningd
upstream:
  base_url: https://torre.ai
model:
  base_url: http://localhost:11434
  embed_model: nomic-embed-text
  chat_model: llama3.2
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing broker.url")
	}
	if !strings.Contains(err.Error(), "broker.url") {
		t.Errorf("error should mention broker.url, got: %v", err)
	}
}

func TestValidate_NegativeRetries(t *testing.T) {
	t.Parallel()

	yaml := strings.Replace(validYAML(), "upstream:\n", "upstream:\n  retries: -1\n", 1)
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative upstream.retries")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	yaml := validYAML() + "\nserver:\n  log_level: trace\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_EchoThresholdOutOfRange(t *testing.T) {
	t.Parallel()

	yaml := validYAML() + "\ndialog:\n  echo_similarity_threshold: 1.5\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range echo_similarity_threshold")
	}
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  log_level: trace
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"log_level", "broker.url", "database.url", "upstream.base_url", "model.base_url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %q, got: %v", want, err)
		}
	}
}

package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLLMConfigFlags(t *testing.T) {
	t.Setenv("TUTOR_LLM_URL", "")
	t.Setenv("TUTOR_LLM_KEY", "")

	tests := []struct {
		name     string
		args     []string
		provider string
		baseURL  string
		apiKey   string
	}{
		{"defaults", nil, "openai", "", ""},
		{"anthropic uses its own endpoint", []string{"--llm-provider", "anthropic", "--llm-key", "sk-test"}, "anthropic", "", "sk-test"},
		{"explicit url", []string{"--llm-provider", "openai", "--llm-url", "https://api.openai.com/v1"}, "openai", "https://api.openai.com/v1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := serveCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}
			cfg := llmConfig(viperForCmd(cmd))
			if cfg.Provider != tt.provider || cfg.BaseURL != tt.baseURL || cfg.APIKey != tt.apiKey {
				t.Errorf("llmConfig = %+v, want provider %q url %q key %q", cfg, tt.provider, tt.baseURL, tt.apiKey)
			}
		})
	}
}

func TestAnthropicWithoutKeyIsRejected(t *testing.T) {
	t.Setenv("TUTOR_LLM_KEY", "")

	cmd := serveCmd()
	if err := cmd.ParseFlags([]string{"--llm-provider", "anthropic"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if err := llmConfig(viperForCmd(cmd)).Validate(); err == nil {
		t.Error("expected a missing key error")
	}
}

func TestConfigFileFromWorkingDir(t *testing.T) {
	want := []string{".", "$HOME/.config/tutor", "/etc/tutor"}
	if !slices.Equal(configDirs, want) {
		t.Errorf("configDirs = %v, want %v", configDirs, want)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tutor.yaml"), []byte("llm-provider: mock\nmax-sessions: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	v := viperForCmd(serveCmd())
	if got := v.GetString("llm-provider"); got != "mock" {
		t.Errorf("llm-provider = %q, want mock from config file", got)
	}
	if got := v.GetInt("max-sessions"); got != 7 {
		t.Errorf("max-sessions = %d, want 7", got)
	}
}

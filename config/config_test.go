package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(fn, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return fn
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	fn := writeConfig(t, `
OpenAIToken = "file-token"
STT_LANG = "en"
TTS_ENABLED = true
TTS_VOICE = "nova"
MaxTokens = 120
ChatHistory = true
`)
	cfg, err := LoadConfig(fn)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.OpenAIToken != "file-token" {
		t.Errorf("expected token from file, got %q", cfg.OpenAIToken)
	}
	if cfg.STT_LANG != "en" || cfg.TTS_VOICE != "nova" || cfg.MaxTokens != 120 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if !cfg.TTS_ENABLED || !cfg.ChatHistory {
		t.Errorf("bool values not applied: %+v", cfg)
	}
	if cfg.TTS_LANGUAGE != "en" {
		t.Errorf("expected tts language to follow stt language, got %q", cfg.TTS_LANGUAGE)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("VOXCHAT_API_URL", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	cases := []struct {
		name string
		got  any
		want any
	}{
		{"APIURL", cfg.APIURL, "https://api.openai.com/v1"},
		{"STT_MODEL", cfg.STT_MODEL, "whisper-1"},
		{"STT_LANG", cfg.STT_LANG, "es"},
		{"STT_SR", cfg.STT_SR, 16000},
		{"ChatModel", cfg.ChatModel, "gpt-3.5-turbo"},
		{"MaxTokens", cfg.MaxTokens, 300},
		{"TTS_MODEL", cfg.TTS_MODEL, "tts-1"},
		{"TTS_VOICE", cfg.TTS_VOICE, "onyx"},
		{"TTS_PROVIDER", cfg.TTS_PROVIDER, "openai"},
		{"RequestTimeout", cfg.RequestTimeout, 90},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("default %s: expected %v, got %v", tc.name, tc.want, tc.got)
		}
	}
	// no startup validation of the credential
	if cfg.OpenAIToken != "" {
		t.Errorf("expected empty token, got %q", cfg.OpenAIToken)
	}
	if cfg.S3Enabled() {
		t.Errorf("s3 should be disabled without endpoint")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	fn := writeConfig(t, `OpenAIToken = "file-token"`)
	t.Setenv("OPENAI_API_KEY", "env-token")
	t.Setenv("VOXCHAT_API_URL", "http://localhost:8080/v1")
	cfg, err := LoadConfig(fn)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.OpenAIToken != "env-token" {
		t.Errorf("expected env token to win, got %q", cfg.OpenAIToken)
	}
	if cfg.APIURL != "http://localhost:8080/v1" {
		t.Errorf("expected env api url, got %q", cfg.APIURL)
	}
}

func TestLoadConfigBadFile(t *testing.T) {
	fn := writeConfig(t, `MaxTokens = "not a number"`)
	if _, err := LoadConfig(fn); err == nil {
		t.Errorf("expected decode error")
	}
}

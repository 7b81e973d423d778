package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv_fallback(t *testing.T) {
	t.Setenv("STREAMCHAT_TEST_KEY", "")
	if got := GetEnv("STREAMCHAT_TEST_KEY", "dflt"); got != "dflt" {
		t.Errorf("expected fallback, got %q", got)
	}
	t.Setenv("STREAMCHAT_TEST_KEY", "  value ")
	if got := GetEnv("STREAMCHAT_TEST_KEY", "dflt"); got != "value" {
		t.Errorf("expected trimmed value, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("STREAMCHAT_TEST_INT", "42")
	if got := GetEnvInt("STREAMCHAT_TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	t.Setenv("STREAMCHAT_TEST_INT", "nope")
	if got := GetEnvInt("STREAMCHAT_TEST_INT", 7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("STREAMCHAT_TEST_DUR", "250ms")
	if got := GetEnvDuration("STREAMCHAT_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", got)
	}
	t.Setenv("STREAMCHAT_TEST_DUR", "-1s")
	if got := GetEnvDuration("STREAMCHAT_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("negative duration should fall back, got %s", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("STREAMCHAT_TEST_BOOL", "false")
	if GetEnvBool("STREAMCHAT_TEST_BOOL", true) {
		t.Error("expected false")
	}
	t.Setenv("STREAMCHAT_TEST_BOOL", "maybe")
	if !GetEnvBool("STREAMCHAT_TEST_BOOL", true) {
		t.Error("invalid bool should fall back to true")
	}
}

func TestLoad_dotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("STREAMCHAT_DOTENV_KEY=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("STREAMCHAT_DOTENV_KEY") })

	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := GetEnv("STREAMCHAT_DOTENV_KEY", ""); got != "from-file" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

func TestLoadClient_defaults(t *testing.T) {
	t.Setenv("PAGE_URL", "https://video.example")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("CURRENCY", "")

	cfg := LoadClient()
	if cfg.APIBaseURL != "https://video.example" {
		t.Errorf("API base should default to page URL, got %q", cfg.APIBaseURL)
	}
	if cfg.RealtimePath != "/ws" {
		t.Errorf("expected /ws, got %q", cfg.RealtimePath)
	}
	if cfg.Currency != "KRW" {
		t.Errorf("expected KRW, got %q", cfg.Currency)
	}
}

func TestLoadServer_defaults(t *testing.T) {
	t.Setenv("STREAM_TTL", "")
	t.Setenv("CHAT_STORE_DRIVER", "")
	t.Setenv("CHAT_RATE_PER_SEC", "")
	t.Setenv("CHAT_BURST", "")

	cfg := LoadServer()
	if cfg.StreamTTL != time.Minute {
		t.Errorf("expected 1m TTL, got %s", cfg.StreamTTL)
	}
	if cfg.ChatStoreDriver != "memory" {
		t.Errorf("expected memory driver, got %q", cfg.ChatStoreDriver)
	}
	if cfg.ChatRate != 5 || cfg.ChatBurst != 10 {
		t.Errorf("expected 5/s burst 10, got %d/s burst %d", cfg.ChatRate, cfg.ChatBurst)
	}
}

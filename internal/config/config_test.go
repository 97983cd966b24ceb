package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ytbatch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("YTBATCH_DOWNLOAD_DIR", "")
	t.Setenv("YTDLP_BINARY", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDownload := filepath.Join(tempHome, "Downloads", "ytbatch")
	if cfg.Paths.DownloadDir != wantDownload {
		t.Fatalf("unexpected download dir: got %q want %q", cfg.Paths.DownloadDir, wantDownload)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "ytbatch") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Tools.YtdlpBinary != "yt-dlp" {
		t.Fatalf("unexpected yt-dlp binary: %q", cfg.Tools.YtdlpBinary)
	}
	if cfg.Verify.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", cfg.Verify.MaxAttempts)
	}
	if got := cfg.RetryBackoff().Seconds(); got != 3 {
		t.Fatalf("expected default backoff 3s, got %v", got)
	}
	if cfg.Download.OutputTemplate != "%(title)s.%(ext)s" {
		t.Fatalf("unexpected default template: %q", cfg.Download.OutputTemplate)
	}
	if !cfg.Download.ContinueOnError {
		t.Fatal("expected continue_on_error enabled by default")
	}
	if len(cfg.Output.SuppressPatterns) == 0 {
		t.Fatal("expected default suppress patterns")
	}
	if cfg.HistoryPath() != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ytbatch.toml")
	t.Setenv("YTBATCH_DOWNLOAD_DIR", "")
	t.Setenv("YTDLP_BINARY", "")

	type payload struct {
		Paths struct {
			DownloadDir string `toml:"download_dir"`
		} `toml:"paths"`
		Download struct {
			Quality    string `toml:"quality"`
			AutoNumber bool   `toml:"auto_number"`
		} `toml:"download"`
		Verify struct {
			MaxAttempts int `toml:"max_attempts"`
		} `toml:"verify"`
		Output struct {
			SuppressPatterns []string `toml:"suppress_patterns"`
		} `toml:"output"`
	}
	custom := payload{}
	custom.Paths.DownloadDir = filepath.Join(tempDir, "media")
	custom.Download.Quality = "720p"
	custom.Download.AutoNumber = true
	custom.Verify.MaxAttempts = 5
	custom.Output.SuppressPatterns = []string{" Sleeping ", "Sleeping", ""}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DownloadDir != filepath.Join(tempDir, "media") {
		t.Fatalf("expected download dir from file, got %q", cfg.Paths.DownloadDir)
	}
	if cfg.Download.Quality != "720p" || !cfg.Download.AutoNumber {
		t.Fatalf("unexpected download section: %#v", cfg.Download)
	}
	if cfg.Verify.MaxAttempts != 5 {
		t.Fatalf("expected max attempts 5, got %d", cfg.Verify.MaxAttempts)
	}
	if len(cfg.Output.SuppressPatterns) != 1 || cfg.Output.SuppressPatterns[0] != "Sleeping" {
		t.Fatalf("expected deduplicated suppress patterns, got %v", cfg.Output.SuppressPatterns)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ytbatch.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nstaging_dir = \"/tmp\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestEnvOverridesDownloadDirAndBinary(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("YTBATCH_DOWNLOAD_DIR", filepath.Join(tempDir, "env-downloads"))
	t.Setenv("YTDLP_BINARY", "/opt/bin/yt-dlp")

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DownloadDir != filepath.Join(tempDir, "env-downloads") {
		t.Fatalf("expected env download dir, got %q", cfg.Paths.DownloadDir)
	}
	if cfg.Tools.YtdlpBinary != "/opt/bin/yt-dlp" {
		t.Fatalf("expected env binary, got %q", cfg.Tools.YtdlpBinary)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "download_dir") {
		t.Fatalf("sample config missing download_dir: %s", contents)
	}

	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Verify.MaxAttempts != 3 {
		t.Fatalf("expected sample max attempts 3, got %d", cfg.Verify.MaxAttempts)
	}
	if !strings.Contains(cfg.Paths.DownloadDir, "ytbatch") {
		t.Fatalf("expected download dir to contain ytbatch, got %q", cfg.Paths.DownloadDir)
	}
	if cfg.Notifications.NtfyTopic != "" || cfg.Notifications.RequestTimeoutSeconds != 10 {
		t.Fatalf("unexpected sample notifications: %#v", cfg.Notifications)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"negative attempts", func(c *config.Config) { c.Verify.MaxAttempts = -1 }},
		{"negative backoff", func(c *config.Config) { c.Verify.RetryBackoffSeconds = -1 }},
		{"zero probe timeout", func(c *config.Config) { c.Verify.ProbeTimeoutSeconds = 0 }},
		{"template without title", func(c *config.Config) { c.Download.OutputTemplate = "%(id)s.%(ext)s" }},
		{"unknown audio format", func(c *config.Config) { c.Download.AudioFormat = "midi" }},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }},
		{"empty download dir", func(c *config.Config) { c.Paths.DownloadDir = "" }},
		{"bare ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-downloads" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tt.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg := config.Default()
	cfg.Download.Quality = "audio"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal encoded config: %v", err)
	}
	if decoded.Download.Quality != "audio" {
		t.Fatalf("expected quality to survive encoding, got %q", decoded.Download.Quality)
	}
}

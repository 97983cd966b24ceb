package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytbatch/internal/config"
	"ytbatch/internal/history"
	"ytbatch/internal/testsupport"
	"ytbatch/internal/ytdlp"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	exec       *testsupport.StubExecutor
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	opts = append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("YTBATCH_DOWNLOAD_DIR", "")
	t.Setenv("YTDLP_BINARY", "")

	configPath := filepath.Join(base, "ytbatch.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		exec:       &testsupport.StubExecutor{},
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(ytdlp.WithExecutor(env.exec))
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func latestRun(t *testing.T, env *cliTestEnv) history.Run {
	t.Helper()
	store := testsupport.MustOpenHistory(t, env.cfg)
	runs, err := store.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) == 0 {
		t.Fatal("expected a recorded run")
	}
	run, err := store.Get(context.Background(), runs[0].ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	return run
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

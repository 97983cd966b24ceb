package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/history"
	"ytbatch/internal/job"
	"ytbatch/internal/logging"
	"ytbatch/internal/media/ffprobe"
	"ytbatch/internal/verify"
	"ytbatch/internal/ytdlp"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool
	runnerOpts  []ytdlp.Option

	configOnce   sync.Once
	config       *config.Config
	configFile   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool, runnerOpts []ytdlp.Option) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
		runnerOpts:  runnerOpts,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		c.configFile = path
		c.configExists = exists
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

// ensureLogger builds the file logger once; a failure falls back to a no-op
// logger so a read-only log directory never blocks a download.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg, c.verbose())
		if err != nil {
			c.loggerErr = err
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) newRunner(cfg *config.Config, logger *slog.Logger) *ytdlp.Runner {
	opts := append([]ytdlp.Option{ytdlp.WithLogger(logger)}, c.runnerOpts...)
	return ytdlp.NewRunner(cfg.Tools.YtdlpBinary, opts...)
}

func (c *commandContext) newVerifier(cfg *config.Config, runner *ytdlp.Runner, logger *slog.Logger, maxAttempts int, backoff time.Duration) *verify.Verifier {
	opts := []verify.Option{verify.WithLogger(logger)}
	if cfg.Verify.InspectFiles {
		opts = append(opts, verify.WithInspector(ffprobe.NewInspector(cfg.Tools.FFprobeBinary, nil)))
	}
	return verify.New(ytdlp.NewProber(runner, cfg.ProbeTimeout()), maxAttempts, backoff, opts...)
}

func (c *commandContext) newOrchestrator(cfg *config.Config, runner *ytdlp.Runner, verifier *verify.Verifier, logger *slog.Logger) *job.Orchestrator {
	opts := []job.Option{
		job.WithLogger(logger),
		job.WithSuppressPatterns(cfg.Output.SuppressPatterns),
	}
	if verifier != nil {
		opts = append(opts, job.WithVerifier(verifier))
	}
	return job.New(runner, opts...)
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg)
}

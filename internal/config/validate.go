package config

import (
	"errors"
	"fmt"
	"strings"

	"ytbatch/internal/naming"
)

var validAudioFormats = map[string]struct{}{
	"best":   {},
	"aac":    {},
	"alac":   {},
	"flac":   {},
	"m4a":    {},
	"mp3":    {},
	"opus":   {},
	"vorbis": {},
	"wav":    {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateVerify(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	if c.Paths.DownloadDir == c.Paths.LogDir {
		return errors.New("paths.download_dir must differ from paths.log_dir")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if _, ok := validAudioFormats[c.Download.AudioFormat]; !ok {
		return fmt.Errorf("download.audio_format: unsupported value %q", c.Download.AudioFormat)
	}
	if naming.TitleCount(c.Download.OutputTemplate) == 0 {
		return fmt.Errorf("download.output_template must contain %%(title)s, got %q", c.Download.OutputTemplate)
	}
	return nil
}

func (c *Config) validateVerify() error {
	if c.Verify.MaxAttempts < 0 {
		return errors.New("verify.max_attempts must be zero or positive")
	}
	if c.Verify.RetryBackoffSeconds < 0 {
		return errors.New("verify.retry_backoff_seconds must be zero or positive")
	}
	if c.Verify.ProbeTimeoutSeconds <= 0 {
		return errors.New("verify.probe_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

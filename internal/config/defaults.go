package config

const (
	defaultConfigPath           = "~/.config/ytbatch/config.toml"
	defaultDownloadDir          = "~/Downloads/ytbatch"
	defaultStateDir             = "~/.local/share/ytbatch"
	defaultLogDir               = "~/.local/share/ytbatch/logs"
	defaultYtdlpBinary          = "yt-dlp"
	defaultFFprobeBinary        = "ffprobe"
	defaultQuality              = "best"
	defaultAudioFormat          = "mp3"
	defaultAudioQuality         = "0"
	defaultOutputTemplate       = "%(title)s.%(ext)s"
	defaultMaxAttempts          = 3
	defaultRetryBackoffSeconds  = 3
	defaultProbeTimeoutSeconds  = 60
	defaultNotifyTimeoutSeconds = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// defaultSuppressPatterns are tool output fragments hidden from forwarded logs.
var defaultSuppressPatterns = []string{
	"Sleeping",
	"rate-limit",
	"rate limit",
	"Retrying",
	"HTTP Error 429",
	"nsig extraction failed",
	"WARNING: [youtube]",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Tools: Tools{
			YtdlpBinary:   defaultYtdlpBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Download: Download{
			Quality:         defaultQuality,
			AudioFormat:     defaultAudioFormat,
			AudioQuality:    defaultAudioQuality,
			OutputTemplate:  defaultOutputTemplate,
			ContinueOnError: true,
		},
		Verify: Verify{
			MaxAttempts:         defaultMaxAttempts,
			RetryBackoffSeconds: defaultRetryBackoffSeconds,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Output: Output{
			SuppressPatterns: append([]string(nil), defaultSuppressPatterns...),
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
			OnSuccess:             true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytbatch/internal/config"
	"ytbatch/internal/job"
	"ytbatch/internal/ytdlp"
)

// jobFlags holds the per-run overrides shared by get and playlist. Flags the
// user did not set fall back to the [download] section of the config.
type jobFlags struct {
	quality         string
	audioFormat     string
	audioQuality    string
	output          string
	dir             string
	number          bool
	thumbnail       bool
	metadata        bool
	continueOnError bool
	quiet           bool
}

func (f *jobFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.quality, "quality", "q", "", "best, 720p, 480p, audio, or a raw yt-dlp format selector")
	flags.StringVar(&f.audioFormat, "audio-format", "", "Audio format for --quality audio")
	flags.StringVar(&f.audioQuality, "audio-quality", "", "Audio quality for --quality audio (0 is best)")
	flags.StringVarP(&f.output, "output", "o", "", "yt-dlp output template")
	flags.StringVarP(&f.dir, "dir", "d", "", "Download directory")
	flags.BoolVarP(&f.number, "number", "n", false, "Prefix filenames with the item index")
	flags.BoolVar(&f.thumbnail, "thumbnail", false, "Embed thumbnails")
	flags.BoolVar(&f.metadata, "metadata", false, "Embed metadata")
	flags.BoolVar(&f.continueOnError, "continue-on-error", false, "Keep going after a failed item")
	flags.BoolVar(&f.quiet, "quiet", false, "Do not forward yt-dlp output")
}

// build merges the flags over cfg defaults into a job.
func (f *jobFlags) build(cmd *cobra.Command, cfg *config.Config, kind job.Kind) (job.DownloadJob, error) {
	d := cfg.Download
	opts := ytdlp.Options{
		Selector:        pick(f.quality, d.Quality),
		AudioFormat:     pick(f.audioFormat, d.AudioFormat),
		AudioQuality:    pick(f.audioQuality, d.AudioQuality),
		OutputTemplate:  pick(f.output, d.OutputTemplate),
		EmbedThumbnail:  pickBool(cmd, "thumbnail", f.thumbnail, d.EmbedThumbnail),
		EmbedMetadata:   pickBool(cmd, "metadata", f.metadata, d.EmbedMetadata),
		ContinueOnError: pickBool(cmd, "continue-on-error", f.continueOnError, d.ContinueOnError),
	}
	dir := cfg.Paths.DownloadDir
	if value := strings.TrimSpace(f.dir); value != "" {
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return job.DownloadJob{}, fmt.Errorf("resolve --dir: %w", err)
		}
		dir = expanded
	}
	return job.DownloadJob{
		Kind:       kind,
		Dir:        dir,
		Options:    opts,
		AutoNumber: pickBool(cmd, "number", f.number, d.AutoNumber),
	}, nil
}

func pick(flag, fallback string) string {
	if value := strings.TrimSpace(flag); value != "" {
		return value
	}
	return fallback
}

func pickBool(cmd *cobra.Command, name string, flag, fallback bool) bool {
	if cmd.Flags().Changed(name) {
		return flag
	}
	return fallback
}

func newGetCommand(ctx *commandContext) *cobra.Command {
	var flags jobFlags
	var file string

	cmd := &cobra.Command{
		Use:   "get [URL...]",
		Short: "Download one or more URLs, one yt-dlp invocation each",
		Long: "Download one or more URLs in order. URLs come from arguments, from --file\n" +
			"(one per line, # comments allowed), or from stdin when an argument is \"-\".",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			urls, err := collectURLs(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return errors.New("no URLs given (pass URLs, --file, or - for stdin)")
			}
			j, err := flags.build(cmd, cfg, job.KindSingle)
			if err != nil {
				return err
			}
			j.URLs = urls
			return ctx.runJob(cmd, cfg, j, runSettings{quiet: flags.quiet})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read URLs from a file (- for stdin)")
	return cmd
}

func newPlaylistCommand(ctx *commandContext) *cobra.Command {
	var flags jobFlags
	var maxAttempts int
	var backoff int

	cmd := &cobra.Command{
		Use:   "playlist URL",
		Short: "Download a playlist and retry until every entry is on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			j, err := flags.build(cmd, cfg, job.KindPlaylist)
			if err != nil {
				return err
			}
			j.Source = strings.TrimSpace(args[0])
			if err := job.ValidateURL(j.Source); err != nil {
				return err
			}
			settings := runSettings{quiet: flags.quiet, verify: true, maxAttempts: cfg.Verify.MaxAttempts, backoff: cfg.RetryBackoff()}
			if cmd.Flags().Changed("max-attempts") {
				if maxAttempts < 0 {
					return errors.New("--max-attempts must be zero or positive")
				}
				settings.maxAttempts = maxAttempts
			}
			if cmd.Flags().Changed("backoff") {
				if backoff < 0 {
					return errors.New("--backoff must be zero or positive")
				}
				settings.backoff = seconds(backoff)
			}
			return ctx.runJob(cmd, cfg, j, settings)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Verification retries after the first pass (default from config)")
	cmd.Flags().IntVar(&backoff, "backoff", 0, "Seconds to wait between retries (default from config)")
	return cmd
}

package ytdlp

import "strings"

// Quality presets understood by FormatArgs. Any other non-empty selector is
// passed to yt-dlp verbatim as a -f format expression.
const (
	QualityBest  = "best"
	Quality720p  = "720p"
	Quality480p  = "480p"
	QualityAudio = "audio"
)

const (
	DefaultAudioFormat  = "mp3"
	DefaultAudioQuality = "0"
)

// Options controls a single yt-dlp invocation.
type Options struct {
	Selector        string `json:"selector"`
	AudioFormat     string `json:"audio_format,omitempty"`
	AudioQuality    string `json:"audio_quality,omitempty"`
	OutputTemplate  string `json:"output_template,omitempty"`
	EmbedThumbnail  bool   `json:"embed_thumbnail,omitempty"`
	EmbedMetadata   bool   `json:"embed_metadata,omitempty"`
	ContinueOnError bool   `json:"continue_on_error,omitempty"`
}

// AudioOnly reports whether the options extract audio instead of video.
func (o Options) AudioOnly() bool {
	return strings.EqualFold(strings.TrimSpace(o.Selector), QualityAudio)
}

var formatPresets = map[string]string{
	QualityBest: "bestvideo+bestaudio/best",
	Quality720p: "bestvideo[height<=720]+bestaudio/best[height<=720]",
	Quality480p: "bestvideo[height<=480]+bestaudio/best[height<=480]",
}

// FormatArgs translates the quality selector into format arguments.
func FormatArgs(opts Options) []string {
	selector := strings.TrimSpace(opts.Selector)
	if selector == "" {
		selector = QualityBest
	}
	key := strings.ToLower(selector)
	if key == QualityAudio {
		format := strings.TrimSpace(opts.AudioFormat)
		if format == "" {
			format = DefaultAudioFormat
		}
		quality := strings.TrimSpace(opts.AudioQuality)
		if quality == "" {
			quality = DefaultAudioQuality
		}
		return []string{"-x", "--audio-format", format, "--audio-quality", quality}
	}
	if expr, ok := formatPresets[key]; ok {
		return []string{"-f", expr}
	}
	return []string{"-f", selector}
}

// BuildArgs returns the full argument vector for downloading target.
func BuildArgs(target string, opts Options) []string {
	args := []string{"--newline", "--no-colors"}
	args = append(args, FormatArgs(opts)...)
	if tmpl := strings.TrimSpace(opts.OutputTemplate); tmpl != "" {
		args = append(args, "-o", tmpl)
	}
	if opts.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if opts.EmbedMetadata {
		args = append(args, "--add-metadata")
	}
	if opts.ContinueOnError {
		args = append(args, "--ignore-errors")
	}
	return append(args, "--", strings.TrimSpace(target))
}

// ProbeArgs lists playlist entries without downloading, one JSON object per line.
func ProbeArgs(url string) []string {
	return []string{"--flat-playlist", "-j", "--no-warnings", "--", strings.TrimSpace(url)}
}

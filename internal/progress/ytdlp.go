package progress

import (
	"regexp"
	"strconv"
	"strings"

	"ytbatch/internal/textutil"
)

var (
	totalPattern       = regexp.MustCompile(`Downloading (\d+) (?:items|videos)(?: of (\d+))?`)
	boundaryPattern    = regexp.MustCompile(`^\[download\] Downloading (?:item|video) (\d+) of (\d+)`)
	extractorPattern   = regexp.MustCompile(`^\[([\w:.\-]+)\] ([^\s:]+): (?:Downloading|Extracting URL)`)
	destinationPattern = regexp.MustCompile(`^\[(?:download|ExtractAudio)\] Destination: (.+)$`)
	alreadyPattern     = regexp.MustCompile(`^\[download\] (.+) has already been downloaded`)
	completePattern    = regexp.MustCompile(`^\[download\]\s+100(?:\.0+)?%`)
)

// YtdlpClassifier recognizes yt-dlp's --newline output.
type YtdlpClassifier struct{}

// Classify implements Classifier.
func (YtdlpClassifier) Classify(line string) []Event {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "ERROR:") {
		return []Event{{Kind: EventItemFailed, Text: strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))}}
	}
	if m := boundaryPattern.FindStringSubmatch(line); m != nil {
		return []Event{{Kind: EventItemBoundary, Index: atoi(m[1]), Total: atoi(m[2])}}
	}
	if m := totalPattern.FindStringSubmatch(line); m != nil {
		return []Event{{Kind: EventTotalKnown, Total: atoi(m[1])}}
	}
	if m := alreadyPattern.FindStringSubmatch(line); m != nil {
		return []Event{
			{Kind: EventLabel, Text: textutil.FileStem(m[1])},
			{Kind: EventItemSucceeded},
		}
	}
	if m := destinationPattern.FindStringSubmatch(line); m != nil {
		return []Event{{Kind: EventLabel, Text: textutil.FileStem(m[1])}}
	}
	if completePattern.MatchString(line) {
		return []Event{{Kind: EventItemSucceeded}}
	}
	if m := extractorPattern.FindStringSubmatch(line); m != nil && m[1] != "download" {
		return []Event{{Kind: EventLabel, Text: textutil.NormalizeLabel(m[2])}}
	}
	return []Event{{Kind: EventLog, Text: line}}
}

func atoi(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

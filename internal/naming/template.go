package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	TitleToken      = "%(title)s"
	IndexToken      = "%(playlist_index)s"
	ExtToken        = "%(ext)s"
	DefaultTemplate = TitleToken + "." + ExtToken

	numberSeparator = " - "
)

var (
	titlePattern = regexp.MustCompile(`%\(title\)[#0\-+ ]*\d*(?:\.\d+)?[a-zA-Z]`)
	indexPattern = regexp.MustCompile(`%\(playlist_index\)([#0\-+ ]*)(\d*)[a-zA-Z]`)
	// index token plus the separator that follows it; a trailing slash means
	// the token was a whole directory level
	indexWithSeparator = regexp.MustCompile(`%\(playlist_index\)[#0\-+ ]*\d*[a-zA-Z](?:\s*/|\s*-\s*|\s*_\s*|\.\s+|\s+)?`)
	danglingBeforeExt  = regexp.MustCompile(`[\s\-_./]+(\.%\(ext\)s)`)
	emptyBrackets      = regexp.MustCompile(`\(\s*\)|\[\s*\]`)
	spaceRun           = regexp.MustCompile(`[ \t]{2,}`)
	spaceAroundSlash   = regexp.MustCompile(`\s*/\s*`)
	leadingSeparators  = regexp.MustCompile(`(^|/)[\s\-_]+`)
	slashRun           = regexp.MustCompile(`/{2,}`)
)

// TitleCount returns the number of title tokens in template.
func TitleCount(template string) int {
	return len(titlePattern.FindAllStringIndex(template, -1))
}

// IndexCount returns the number of playlist index tokens in template.
func IndexCount(template string) int {
	return len(indexPattern.FindAllStringIndex(template, -1))
}

// Apply returns template with numbering enabled or disabled.
func Apply(template string, autoNumber bool) string {
	if autoNumber {
		return EnableNumbering(template)
	}
	return DisableNumbering(template)
}

// EnableNumbering ensures template carries an index token. When the title
// token starts its path segment the index is inserted right before it;
// otherwise the segment holding the title is prefixed with "<index> - ".
func EnableNumbering(template string) string {
	template = ensureSingleTitle(template)
	if IndexCount(template) > 0 {
		return keepFirstIndex(template)
	}

	loc := titlePattern.FindStringIndex(template)
	segmentStart := strings.LastIndex(template[:loc[0]], "/") + 1
	if loc[0] == segmentStart {
		return template[:loc[0]] + IndexToken + numberSeparator + template[loc[0]:]
	}
	return template[:segmentStart] + IndexToken + numberSeparator + template[segmentStart:]
}

// DisableNumbering removes index tokens together with the separator that
// follows each of them, then tidies leftover punctuation and whitespace.
func DisableNumbering(template string) string {
	out := indexWithSeparator.ReplaceAllString(template, "")
	out = emptyBrackets.ReplaceAllString(out, "")
	out = tidy(out)
	out = keepRelative(template, out)
	if TitleCount(out) == 0 {
		return DefaultTemplate
	}
	return ensureSingleTitle(out)
}

// keepRelative strips a leading "/" or "./" that removing tokens produced,
// so a relative template never turns into an absolute path.
func keepRelative(original, out string) string {
	original = strings.TrimSpace(original)
	if !strings.HasPrefix(original, "./") {
		for strings.HasPrefix(out, "./") {
			out = out[2:]
		}
	}
	if !strings.HasPrefix(original, "/") {
		out = strings.TrimLeft(out, "/")
	}
	return out
}

// BindIndex replaces index tokens with a literal zero-padded number. A width
// of zero uses the padding declared by the token, if any.
func BindIndex(template string, index, width int) string {
	return indexPattern.ReplaceAllStringFunc(template, func(token string) string {
		w := width
		if w <= 0 {
			if m := indexPattern.FindStringSubmatch(token); m != nil && m[2] != "" {
				w, _ = strconv.Atoi(m[2])
			}
		}
		if w <= 0 {
			return strconv.Itoa(index)
		}
		return fmt.Sprintf("%0*d", w, index)
	})
}

// Width returns the digit count needed to number total items, minimum two.
func Width(total int) int {
	w := len(strconv.Itoa(total))
	if w < 2 {
		w = 2
	}
	return w
}

func ensureSingleTitle(template string) string {
	template = strings.TrimSpace(template)
	if template == "" || TitleCount(template) == 0 {
		return DefaultTemplate
	}
	seen := false
	out := titlePattern.ReplaceAllStringFunc(template, func(token string) string {
		if seen {
			return ""
		}
		seen = true
		return token
	})
	return tidy(out)
}

func keepFirstIndex(template string) string {
	if IndexCount(template) < 2 {
		return template
	}
	first := indexPattern.FindStringIndex(template)
	rest := indexWithSeparator.ReplaceAllString(template[first[1]:], "")
	return tidy(template[:first[1]] + rest)
}

func tidy(template string) string {
	out := danglingBeforeExt.ReplaceAllString(template, "$1")
	out = spaceRun.ReplaceAllString(out, " ")
	out = spaceAroundSlash.ReplaceAllString(out, "/")
	out = slashRun.ReplaceAllString(out, "/")
	out = leadingSeparators.ReplaceAllString(out, "$1")
	return strings.TrimSpace(out)
}

package job

import (
	"net"
	"net/url"
	"strings"

	"ytbatch/internal/services"
)

// WorkSet is an insertion-ordered set of normalized URLs.
type WorkSet struct {
	order []string
	index map[string]struct{}
}

// NewWorkSet builds a set from urls, dropping blanks and duplicates.
func NewWorkSet(urls ...string) *WorkSet {
	w := &WorkSet{index: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		w.Add(u)
	}
	return w
}

// Add inserts raw and reports whether it was new.
func (w *WorkSet) Add(raw string) bool {
	key := NormalizeURL(raw)
	if key == "" {
		return false
	}
	if _, ok := w.index[key]; ok {
		return false
	}
	w.index[key] = struct{}{}
	w.order = append(w.order, key)
	return true
}

// Remove deletes raw and reports whether it was present.
func (w *WorkSet) Remove(raw string) bool {
	key := NormalizeURL(raw)
	if _, ok := w.index[key]; !ok {
		return false
	}
	delete(w.index, key)
	for i, existing := range w.order {
		if existing == key {
			w.order = append(w.order[:i:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether raw is in the set.
func (w *WorkSet) Contains(raw string) bool {
	_, ok := w.index[NormalizeURL(raw)]
	return ok
}

// Without returns a copy of the set minus urls.
func (w *WorkSet) Without(urls ...string) *WorkSet {
	out := NewWorkSet(w.order...)
	for _, u := range urls {
		out.Remove(u)
	}
	return out
}

// Items returns the URLs in insertion order.
func (w *WorkSet) Items() []string {
	return append([]string(nil), w.order...)
}

// Len returns the number of URLs.
func (w *WorkSet) Len() int {
	return len(w.order)
}

// NormalizeURL trims raw and, for absolute http(s) URLs, lowercases scheme
// and host, drops default ports and fragments. Other input is only trimmed.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return trimmed
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return trimmed
	}
	parsed.Scheme = scheme
	host := strings.ToLower(parsed.Hostname())
	port := parsed.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	switch {
	case port != "":
		host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		// IPv6 literal
		host = "[" + host + "]"
	}
	parsed.Host = host
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String()
}

// ValidateURL rejects URLs yt-dlp cannot possibly fetch.
func ValidateURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return services.Wrap(services.ErrInvalidURL, "job", "validate url", trimmed, err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return services.Wrap(services.ErrInvalidURL, "job", "validate url", "scheme must be http or https: "+trimmed, nil)
	}
	if parsed.Hostname() == "" {
		return services.Wrap(services.ErrInvalidURL, "job", "validate url", "missing host: "+trimmed, nil)
	}
	return nil
}

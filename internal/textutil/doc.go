// Package textutil provides small text helpers shared by the progress parser
// and the CLI renderers.
//
// Labels scraped from yt-dlp output arrive in whatever Unicode form the
// extractor produced; NormalizeLabel folds them to NFC and strips control
// characters so that identical titles compare equal in summaries and in the
// history store.
package textutil

// Package naming derives yt-dlp output templates from the auto-numbering
// preference.
//
// Every template produced here holds exactly one title token and at most one
// playlist index token. Templates that lose their title are replaced with
// DefaultTemplate rather than returned, so a file name can never be reduced to
// a bare index or extension.
package naming

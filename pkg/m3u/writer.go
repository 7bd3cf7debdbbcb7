// Package m3u provides streaming M3U extended playlist writing.
package m3u

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Entry is one playlist item.
type Entry struct {
	// Title is the display name after the EXTINF comma.
	Title string

	// URL is the playback location.
	URL string

	// Duration in seconds; zero renders as -1 for live streams.
	Duration int

	TvgID      string
	TvgName    string
	TvgLogo    string
	GroupTitle string

	// Extra carries additional EXTINF attributes verbatim.
	Extra map[string]string
}

// Writer streams an extended M3U playlist.
type Writer struct {
	w             io.Writer
	headerWritten bool
}

// NewWriter creates a new M3U writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the #EXTM3U header. WriteEntry calls it implicitly.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := fmt.Fprintln(w.w, "#EXTM3U"); err != nil {
		return fmt.Errorf("writing M3U header: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteEntry writes one channel entry.
func (w *Writer) WriteEntry(entry *Entry) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}

	var attrs []string
	if entry.TvgID != "" {
		attrs = append(attrs, fmt.Sprintf(`tvg-id="%s"`, escapeQuotes(entry.TvgID)))
	}
	if entry.TvgName != "" {
		attrs = append(attrs, fmt.Sprintf(`tvg-name="%s"`, escapeQuotes(entry.TvgName)))
	}
	if entry.TvgLogo != "" {
		attrs = append(attrs, fmt.Sprintf(`tvg-logo="%s"`, escapeQuotes(entry.TvgLogo)))
	}
	if entry.GroupTitle != "" {
		attrs = append(attrs, fmt.Sprintf(`group-title="%s"`, escapeQuotes(entry.GroupTitle)))
	}
	// Extra attributes in sorted key order so output is stable.
	keys := make([]string, 0, len(entry.Extra))
	for k := range entry.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, fmt.Sprintf(`%s="%s"`, k, escapeQuotes(entry.Extra[k])))
	}

	duration := entry.Duration
	if duration == 0 {
		duration = -1
	}

	var extinf string
	if len(attrs) > 0 {
		extinf = fmt.Sprintf("#EXTINF:%d %s,%s", duration, strings.Join(attrs, " "), entry.Title)
	} else {
		extinf = fmt.Sprintf("#EXTINF:%d,%s", duration, entry.Title)
	}

	if _, err := fmt.Fprintln(w.w, extinf); err != nil {
		return fmt.Errorf("writing EXTINF: %w", err)
	}
	if _, err := fmt.Fprintln(w.w, entry.URL); err != nil {
		return fmt.Errorf("writing URL: %w", err)
	}
	return nil
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

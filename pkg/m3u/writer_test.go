package m3u

import (
	"strings"
	"testing"
)

func TestWriter_BasicEntry(t *testing.T) {
	var buf strings.Builder
	w := NewWriter(&buf)

	err := w.WriteEntry(&Entry{
		Title:      "Channel 1 HD",
		URL:        "http://example.com/stream1.m3u8",
		TvgID:      "channel1",
		TvgName:    "Channel One",
		TvgLogo:    "http://example.com/logo.png",
		GroupTitle: "News",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	expected := "#EXTM3U\n" +
		`#EXTINF:-1 tvg-id="channel1" tvg-name="Channel One" tvg-logo="http://example.com/logo.png" group-title="News",Channel 1 HD` + "\n" +
		"http://example.com/stream1.m3u8\n"
	if output != expected {
		t.Errorf("expected output:\n%s\ngot:\n%s", expected, output)
	}
}

func TestWriter_HeaderWrittenOnce(t *testing.T) {
	var buf strings.Builder
	w := NewWriter(&buf)

	if err := w.WriteHeader(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteEntry(&Entry{Title: "One", URL: "http://example.com/1.ts"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteEntry(&Entry{Title: "Two", URL: "http://example.com/2.ts"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if count := strings.Count(buf.String(), "#EXTM3U"); count != 1 {
		t.Errorf("expected 1 header, got %d", count)
	}
}

func TestWriter_NoAttributes(t *testing.T) {
	var buf strings.Builder
	w := NewWriter(&buf)

	if err := w.WriteEntry(&Entry{Title: "Plain", URL: "http://example.com/plain.ts"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "#EXTINF:-1,Plain\n") {
		t.Errorf("expected bare EXTINF line, got:\n%s", buf.String())
	}
}

func TestWriter_PositiveDuration(t *testing.T) {
	var buf strings.Builder
	w := NewWriter(&buf)

	if err := w.WriteEntry(&Entry{Title: "Song", URL: "http://example.com/song.mp3", Duration: 180}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "#EXTINF:180,Song\n") {
		t.Errorf("expected duration 180, got:\n%s", buf.String())
	}
}

func TestWriter_EscapesQuotes(t *testing.T) {
	var buf strings.Builder
	w := NewWriter(&buf)

	if err := w.WriteEntry(&Entry{
		Title:   "Quoted",
		URL:     "http://example.com/q.ts",
		TvgName: `Channel "Prime"`,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), `tvg-name="Channel \"Prime\""`) {
		t.Errorf("expected escaped quotes, got:\n%s", buf.String())
	}
}

func TestWriter_ExtraAttributesSorted(t *testing.T) {
	entry := &Entry{
		Title: "Extras",
		URL:   "http://example.com/x.ts",
		Extra: map[string]string{
			"tvg-shift":   "-3",
			"audio-track": "en",
			"catchup":     "default",
		},
	}

	var first string
	for i := 0; i < 10; i++ {
		var buf strings.Builder
		if err := NewWriter(&buf).WriteEntry(entry); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if i == 0 {
			first = buf.String()
			continue
		}
		if buf.String() != first {
			t.Fatalf("output differs between runs:\n%s\nvs:\n%s", first, buf.String())
		}
	}

	if !strings.Contains(first, `audio-track="en" catchup="default" tvg-shift="-3"`) {
		t.Errorf("expected extra attributes in key order, got:\n%s", first)
	}
}

package xmltv

import (
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ulikunitz/xz"
)

const sampleXMLTV = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
  <channel id="channel1.tv">
    <display-name>Channel One</display-name>
    <display-name>CH1</display-name>
    <icon src="http://example.com/logo1.png"/>
    <url>http://example.com/channel1</url>
  </channel>
  <channel id="channel2.tv">
    <display-name>Channel Two</display-name>
  </channel>
  <programme start="20240115180000 +0000" stop="20240115190000 +0000" channel="channel1.tv">
    <title>News at Six</title>
    <sub-title>Evening Edition</sub-title>
    <desc>The latest news and weather.</desc>
    <category>News</category>
    <icon src="http://example.com/news.png"/>
    <episode-num system="onscreen">S01E05</episode-num>
    <rating>
      <value>TV-PG</value>
    </rating>
    <language>en</language>
    <new/>
  </programme>
  <programme start="20240115190000 +0000" stop="20240115200000 +0000" channel="channel1.tv">
    <title>Evening Drama</title>
    <desc>A dramatic story unfolds.</desc>
    <category>Drama</category>
    <premiere/>
  </programme>
</tv>`

func TestParser_ParseChannels(t *testing.T) {
	var channels []*Channel
	p := &Parser{
		OnChannel: func(ch *Channel) error {
			channels = append(channels, ch)
			return nil
		},
	}

	err := p.Parse(strings.NewReader(sampleXMLTV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(channels))
	}

	ch1 := channels[0]
	if ch1.ID != "channel1.tv" {
		t.Errorf("expected ID 'channel1.tv', got %q", ch1.ID)
	}
	if len(ch1.DisplayNames) != 2 || ch1.DisplayNames[0] != "Channel One" || ch1.DisplayNames[1] != "CH1" {
		t.Errorf("expected display names [Channel One CH1], got %v", ch1.DisplayNames)
	}
	if ch1.Icon != "http://example.com/logo1.png" {
		t.Errorf("expected icon URL, got %q", ch1.Icon)
	}
	if ch1.URL != "http://example.com/channel1" {
		t.Errorf("expected URL, got %q", ch1.URL)
	}

	if channels[1].ID != "channel2.tv" {
		t.Errorf("expected ID 'channel2.tv', got %q", channels[1].ID)
	}
}

func TestParser_ParseProgrammes(t *testing.T) {
	var programmes []*Programme
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			programmes = append(programmes, prog)
			return nil
		},
	}

	err := p.Parse(strings.NewReader(sampleXMLTV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(programmes) != 2 {
		t.Fatalf("expected 2 programmes, got %d", len(programmes))
	}

	prog1 := programmes[0]
	if prog1.Channel != "channel1.tv" {
		t.Errorf("expected channel 'channel1.tv', got %q", prog1.Channel)
	}
	if prog1.Title != "News at Six" {
		t.Errorf("expected title 'News at Six', got %q", prog1.Title)
	}
	if prog1.SubTitle != "Evening Edition" {
		t.Errorf("expected subtitle 'Evening Edition', got %q", prog1.SubTitle)
	}
	if prog1.Description != "The latest news and weather." {
		t.Errorf("expected description, got %q", prog1.Description)
	}
	if prog1.Category != "News" {
		t.Errorf("expected category 'News', got %q", prog1.Category)
	}
	if prog1.EpisodeNum != "S01E05" {
		t.Errorf("expected episode num 'S01E05', got %q", prog1.EpisodeNum)
	}
	if prog1.Rating != "TV-PG" {
		t.Errorf("expected rating 'TV-PG', got %q", prog1.Rating)
	}
	if !prog1.IsNew {
		t.Error("expected IsNew to be true")
	}
	if prog1.IsPremiere {
		t.Error("expected IsPremiere to be false")
	}

	expectedStart := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	if !prog1.Start.Equal(expectedStart) {
		t.Errorf("expected start %v, got %v", expectedStart, prog1.Start)
	}
	expectedStop := time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC)
	if !prog1.Stop.Equal(expectedStop) {
		t.Errorf("expected stop %v, got %v", expectedStop, prog1.Stop)
	}

	prog2 := programmes[1]
	if prog2.Title != "Evening Drama" {
		t.Errorf("expected title 'Evening Drama', got %q", prog2.Title)
	}
	if !prog2.IsPremiere {
		t.Error("expected IsPremiere to be true")
	}
}

func TestParser_CallbackError(t *testing.T) {
	expectedErr := errors.New("callback failed")
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			return expectedErr
		},
	}

	err := p.Parse(strings.NewReader(sampleXMLTV))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "callback") {
		t.Errorf("expected callback error, got: %v", err)
	}
}

func TestParser_ParseCompressed_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, _ = gw.Write([]byte(sampleXMLTV))
	_ = gw.Close()

	count := 0
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			count++
			return nil
		},
	}

	if err := p.ParseCompressed(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 programmes, got %d", count)
	}
}

func TestParser_ParseCompressed_XZ(t *testing.T) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create xz writer: %v", err)
	}
	if _, err := xw.Write([]byte(sampleXMLTV)); err != nil {
		t.Fatalf("failed to write xz: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("failed to close xz: %v", err)
	}

	count := 0
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			count++
			return nil
		},
	}

	if err := p.ParseCompressed(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 programmes, got %d", count)
	}
}

func TestParser_ParseCompressed_Uncompressed(t *testing.T) {
	count := 0
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			count++
			return nil
		},
	}

	if err := p.ParseCompressed(strings.NewReader(sampleXMLTV)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 programmes, got %d", count)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			input:    "20240115180000 +0000",
			expected: time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC),
		},
		{
			input:    "20240115180000 -0500",
			expected: time.Date(2024, 1, 15, 18, 0, 0, 0, time.FixedZone("", -5*3600)),
		},
		{
			input:    "20240115180000",
			expected: time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC),
		},
		{
			input:    "202401151800",
			expected: time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC),
		},
		{
			input:   "",
			wantErr: true,
		},
		{
			input:   "invalid",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.Equal(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// Parsing a document, writing it back out, and parsing the result must
// preserve channels and programmes.
func TestRoundTrip(t *testing.T) {
	var channels []*Channel
	var programmes []*Programme
	p := &Parser{
		OnChannel: func(ch *Channel) error {
			channels = append(channels, ch)
			return nil
		},
		OnProgramme: func(prog *Programme) error {
			programmes = append(programmes, prog)
			return nil
		},
	}
	if err := p.Parse(strings.NewReader(sampleXMLTV)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, ch := range channels {
		if err := w.WriteChannel(ch); err != nil {
			t.Fatalf("writing channel: %v", err)
		}
	}
	for _, prog := range programmes {
		if err := w.WriteProgramme(prog); err != nil {
			t.Fatalf("writing programme: %v", err)
		}
	}
	if err := w.WriteFooter(); err != nil {
		t.Fatalf("writing footer: %v", err)
	}

	var channels2 []*Channel
	var programmes2 []*Programme
	p2 := &Parser{
		OnChannel: func(ch *Channel) error {
			channels2 = append(channels2, ch)
			return nil
		},
		OnProgramme: func(prog *Programme) error {
			programmes2 = append(programmes2, prog)
			return nil
		},
	}
	if err := p2.Parse(strings.NewReader(buf.String())); err != nil {
		t.Fatalf("reparsing output: %v", err)
	}

	if len(channels2) != len(channels) {
		t.Fatalf("expected %d channels after round trip, got %d", len(channels), len(channels2))
	}
	for i, ch := range channels {
		got := channels2[i]
		if got.ID != ch.ID {
			t.Errorf("channel %d: expected ID %q, got %q", i, ch.ID, got.ID)
		}
		if len(got.DisplayNames) != len(ch.DisplayNames) {
			t.Errorf("channel %d: expected %d display names, got %d", i, len(ch.DisplayNames), len(got.DisplayNames))
			continue
		}
		for j, name := range ch.DisplayNames {
			if got.DisplayNames[j] != name {
				t.Errorf("channel %d: expected display name %q, got %q", i, name, got.DisplayNames[j])
			}
		}
		if got.Icon != ch.Icon {
			t.Errorf("channel %d: expected icon %q, got %q", i, ch.Icon, got.Icon)
		}
	}

	if len(programmes2) != len(programmes) {
		t.Fatalf("expected %d programmes after round trip, got %d", len(programmes), len(programmes2))
	}
	for i, prog := range programmes {
		got := programmes2[i]
		if got.Channel != prog.Channel {
			t.Errorf("programme %d: expected channel %q, got %q", i, prog.Channel, got.Channel)
		}
		if got.Title != prog.Title {
			t.Errorf("programme %d: expected title %q, got %q", i, prog.Title, got.Title)
		}
		if got.Description != prog.Description {
			t.Errorf("programme %d: expected description %q, got %q", i, prog.Description, got.Description)
		}
		if got.Category != prog.Category {
			t.Errorf("programme %d: expected category %q, got %q", i, prog.Category, got.Category)
		}
		if got.Rating != prog.Rating {
			t.Errorf("programme %d: expected rating %q, got %q", i, prog.Rating, got.Rating)
		}
		if !got.Start.Equal(prog.Start) {
			t.Errorf("programme %d: expected start %v, got %v", i, prog.Start, got.Start)
		}
		if !got.Stop.Equal(prog.Stop) {
			t.Errorf("programme %d: expected stop %v, got %v", i, prog.Stop, got.Stop)
		}
		if got.IsNew != prog.IsNew || got.IsPremiere != prog.IsPremiere {
			t.Errorf("programme %d: new/premiere flags changed", i)
		}
	}
}

func TestWriter_ChannelsBeforeProgrammes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteProgramme(&Programme{
		Channel: "ch1",
		Title:   "Show",
		Start:   time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC),
		Stop:    time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := w.WriteChannel(&Channel{ID: "ch1"})
	if err == nil {
		t.Fatal("expected error writing channel after programme")
	}
}

func TestWriter_EscapesMarkup(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteProgramme(&Programme{
		Channel: "ch1",
		Title:   "Tom & Jerry <Special>",
		Start:   time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC),
		Stop:    time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "Tom &amp; Jerry &lt;Special&gt;") {
		t.Errorf("expected escaped title, got:\n%s", buf.String())
	}
}

func TestParser_LargeFile(t *testing.T) {
	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?><tv>`)

	numProgrammes := 10000
	for i := 0; i < numProgrammes; i++ {
		builder.WriteString(`<programme start="20240115180000 +0000" stop="20240115190000 +0000" channel="ch1">`)
		builder.WriteString(`<title>Programme Title</title>`)
		builder.WriteString(`<desc>Programme description goes here.</desc>`)
		builder.WriteString(`</programme>`)
	}
	builder.WriteString(`</tv>`)

	count := 0
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			count++
			return nil
		},
	}

	if err := p.Parse(strings.NewReader(builder.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != numProgrammes {
		t.Errorf("expected %d programmes, got %d", numProgrammes, count)
	}
}

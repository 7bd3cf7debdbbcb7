package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// Writer streams an XMLTV document. Channels must all be written before
// the first programme, matching the DTD element order.
type Writer struct {
	w             io.Writer
	headerWritten bool
	channelsDone  bool
}

// NewWriter creates a new XMLTV writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the XML declaration and opens the tv element.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := fmt.Fprintln(w.w, `<?xml version="1.0" encoding="UTF-8"?>`); err != nil {
		return fmt.Errorf("writing XML declaration: %w", err)
	}
	if _, err := fmt.Fprintln(w.w, `<tv generator-info-name="muxarr">`); err != nil {
		return fmt.Errorf("writing tv element: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteChannel writes a channel definition.
func (w *Writer) WriteChannel(ch *Channel) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if w.channelsDone {
		return fmt.Errorf("channels must be written before programmes")
	}

	if _, err := fmt.Fprintf(w.w, "  <channel id=\"%s\">\n", escape(ch.ID)); err != nil {
		return fmt.Errorf("writing channel: %w", err)
	}
	names := ch.DisplayNames
	if len(names) == 0 {
		names = []string{ch.ID}
	}
	for _, name := range names {
		if _, err := fmt.Fprintf(w.w, "    <display-name>%s</display-name>\n", escape(name)); err != nil {
			return err
		}
	}
	if ch.Icon != "" {
		if _, err := fmt.Fprintf(w.w, "    <icon src=\"%s\"/>\n", escape(ch.Icon)); err != nil {
			return err
		}
	}
	if ch.URL != "" {
		if _, err := fmt.Fprintf(w.w, "    <url>%s</url>\n", escape(ch.URL)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w.w, "  </channel>")
	return err
}

// WriteProgramme writes a programme entry.
func (w *Writer) WriteProgramme(prog *Programme) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	w.channelsDone = true

	if _, err := fmt.Fprintf(w.w, "  <programme start=\"%s\" stop=\"%s\" channel=\"%s\">\n",
		FormatTime(prog.Start), FormatTime(prog.Stop), escape(prog.Channel)); err != nil {
		return fmt.Errorf("writing programme: %w", err)
	}

	lang := prog.Language
	if lang == "" {
		lang = "en"
	}
	if _, err := fmt.Fprintf(w.w, "    <title lang=\"%s\">%s</title>\n", lang, escape(prog.Title)); err != nil {
		return err
	}
	if prog.SubTitle != "" {
		if _, err := fmt.Fprintf(w.w, "    <sub-title lang=\"%s\">%s</sub-title>\n", lang, escape(prog.SubTitle)); err != nil {
			return err
		}
	}
	if prog.Description != "" {
		if _, err := fmt.Fprintf(w.w, "    <desc lang=\"%s\">%s</desc>\n", lang, escape(prog.Description)); err != nil {
			return err
		}
	}
	if prog.Category != "" {
		if _, err := fmt.Fprintf(w.w, "    <category lang=\"%s\">%s</category>\n", lang, escape(prog.Category)); err != nil {
			return err
		}
	}
	if prog.Icon != "" {
		if _, err := fmt.Fprintf(w.w, "    <icon src=\"%s\"/>\n", escape(prog.Icon)); err != nil {
			return err
		}
	}
	if prog.EpisodeNum != "" {
		if _, err := fmt.Fprintf(w.w, "    <episode-num system=\"onscreen\">%s</episode-num>\n", escape(prog.EpisodeNum)); err != nil {
			return err
		}
	}
	if prog.Rating != "" {
		if _, err := fmt.Fprintf(w.w, "    <rating><value>%s</value></rating>\n", escape(prog.Rating)); err != nil {
			return err
		}
	}
	if prog.IsNew {
		if _, err := fmt.Fprintln(w.w, "    <new/>"); err != nil {
			return err
		}
	}
	if prog.IsPremiere {
		if _, err := fmt.Fprintln(w.w, "    <premiere/>"); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w.w, "  </programme>")
	return err
}

// WriteFooter closes the tv element.
func (w *Writer) WriteFooter() error {
	_, err := fmt.Fprintln(w.w, "</tv>")
	return err
}

// FormatTime renders a timestamp in XMLTV format.
func FormatTime(t time.Time) string {
	return t.UTC().Format("20060102150405 +0000")
}

func escape(s string) string {
	var buf escapeBuffer
	_ = xml.EscapeText(&buf, []byte(s))
	return string(buf)
}

type escapeBuffer []byte

func (b *escapeBuffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

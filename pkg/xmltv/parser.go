// Package xmltv provides streaming XMLTV parsing and writing for
// electronic programme guide data.
package xmltv

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Channel is a channel definition from an XMLTV file. DisplayNames holds
// every display-name element in document order.
type Channel struct {
	ID           string
	DisplayNames []string
	Icon         string
	URL          string
}

// Programme is a single programme entry.
type Programme struct {
	Start       time.Time
	Stop        time.Time
	Channel     string
	Title       string
	SubTitle    string
	Description string
	Category    string
	Icon        string
	EpisodeNum  string
	Rating      string
	Language    string
	IsNew       bool
	IsPremiere  bool
}

// Parser streams an XMLTV document, invoking callbacks per element.
// Feeds routinely run to hundreds of megabytes, so nothing is buffered.
type Parser struct {
	// OnChannel is called for each channel definition.
	OnChannel func(*Channel) error

	// OnProgramme is called for each programme.
	OnProgramme func(*Programme) error

	// OnError is called for recoverable per-element errors.
	OnError func(error)
}

// timeFormats lists the start/stop formats seen in the wild.
var timeFormats = []string{
	"20060102150405 -0700",
	"20060102150405",
	"200601021504",
}

// ParseTime parses an XMLTV timestamp such as "20240101120000 +0000".
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time: %s", s)
}

// Parse reads an uncompressed XMLTV document.
func (p *Parser) Parse(r io.Reader) error {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading XML token: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "channel":
			if p.OnChannel == nil {
				_ = decoder.Skip()
				continue
			}
			channel, err := p.parseChannel(decoder, start)
			if err != nil {
				p.recover(err)
				continue
			}
			if err := p.OnChannel(channel); err != nil {
				return fmt.Errorf("channel callback: %w", err)
			}
		case "programme":
			if p.OnProgramme == nil {
				_ = decoder.Skip()
				continue
			}
			prog, err := p.parseProgramme(decoder, start)
			if err != nil {
				p.recover(err)
				continue
			}
			if err := p.OnProgramme(prog); err != nil {
				return fmt.Errorf("programme callback: %w", err)
			}
		}
	}
	return nil
}

// ParseCompressed parses an XMLTV document, sniffing gzip, bzip2, and xz
// compression from magic bytes.
func (p *Parser) ParseCompressed(r io.Reader) error {
	br := bufio.NewReader(r)

	header, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return fmt.Errorf("peeking header: %w", err)
	}

	var reader io.Reader = br
	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr
	case len(header) >= 3 && header[0] == 'B' && header[1] == 'Z' && header[2] == 'h':
		reader = bzip2.NewReader(br)
	case len(header) >= 6 && header[0] == 0xfd && header[1] == '7' && header[2] == 'z' &&
		header[3] == 'X' && header[4] == 'Z' && header[5] == 0x00:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		reader = xzr
	}

	return p.Parse(reader)
}

func (p *Parser) parseChannel(decoder *xml.Decoder, start xml.StartElement) (*Channel, error) {
	channel := &Channel{}
	for _, attr := range start.Attr {
		if attr.Name.Local == "id" {
			channel.ID = attr.Value
		}
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "display-name":
				var name string
				if err := decoder.DecodeElement(&name, &elem); err == nil {
					if name = strings.TrimSpace(name); name != "" {
						channel.DisplayNames = append(channel.DisplayNames, name)
					}
				}
			case "icon":
				for _, attr := range elem.Attr {
					if attr.Name.Local == "src" {
						channel.Icon = attr.Value
					}
				}
				_ = decoder.Skip()
			case "url":
				var u string
				if err := decoder.DecodeElement(&u, &elem); err == nil {
					channel.URL = strings.TrimSpace(u)
				}
			default:
				_ = decoder.Skip()
			}
		case xml.EndElement:
			if elem.Name.Local == "channel" {
				return channel, nil
			}
		}
	}
}

func (p *Parser) parseProgramme(decoder *xml.Decoder, start xml.StartElement) (*Programme, error) {
	prog := &Programme{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "start":
			if t, err := ParseTime(attr.Value); err == nil {
				prog.Start = t
			}
		case "stop":
			if t, err := ParseTime(attr.Value); err == nil {
				prog.Stop = t
			}
		case "channel":
			prog.Channel = attr.Value
		}
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "title":
				var title string
				if err := decoder.DecodeElement(&title, &elem); err == nil && prog.Title == "" {
					prog.Title = strings.TrimSpace(title)
				}
			case "sub-title":
				var sub string
				if err := decoder.DecodeElement(&sub, &elem); err == nil {
					prog.SubTitle = strings.TrimSpace(sub)
				}
			case "desc":
				var desc string
				if err := decoder.DecodeElement(&desc, &elem); err == nil {
					prog.Description = strings.TrimSpace(desc)
				}
			case "category":
				var cat string
				if err := decoder.DecodeElement(&cat, &elem); err == nil && prog.Category == "" {
					prog.Category = strings.TrimSpace(cat)
				}
			case "icon":
				for _, attr := range elem.Attr {
					if attr.Name.Local == "src" {
						prog.Icon = attr.Value
					}
				}
				_ = decoder.Skip()
			case "episode-num":
				var ep string
				if err := decoder.DecodeElement(&ep, &elem); err == nil {
					prog.EpisodeNum = strings.TrimSpace(ep)
				}
			case "rating":
				p.parseRating(decoder, prog)
			case "language":
				var lang string
				if err := decoder.DecodeElement(&lang, &elem); err == nil {
					prog.Language = strings.TrimSpace(lang)
				}
			case "new":
				prog.IsNew = true
				_ = decoder.Skip()
			case "premiere":
				prog.IsPremiere = true
				_ = decoder.Skip()
			default:
				_ = decoder.Skip()
			}
		case xml.EndElement:
			if elem.Name.Local == "programme" {
				return prog, nil
			}
		}
	}
}

func (p *Parser) parseRating(decoder *xml.Decoder, prog *Programme) {
	for {
		token, err := decoder.Token()
		if err != nil {
			return
		}
		switch elem := token.(type) {
		case xml.StartElement:
			if elem.Name.Local == "value" {
				var value string
				if err := decoder.DecodeElement(&value, &elem); err == nil {
					prog.Rating = strings.TrimSpace(value)
				}
			} else {
				_ = decoder.Skip()
			}
		case xml.EndElement:
			if elem.Name.Local == "rating" {
				return
			}
		}
	}
}

func (p *Parser) recover(err error) {
	if p.OnError != nil {
		p.OnError(err)
	}
}

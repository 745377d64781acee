// Package meta extracts embedded tag metadata from raw audio payloads.
package meta

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// Picture is an embedded cover image with its declared mime type.
type Picture struct {
	Data []byte
	Mime string
}

// Meta is the structured tag data extracted from one audio file. String
// fields are already null-stripped; any of them may be empty.
type Meta struct {
	Title   string
	Artist  string
	Album   string
	Genre   string
	Year    string
	Picture *Picture
}

// Extractor parses embedded tag metadata out of raw audio bytes.
// Implementations must treat unparseable input as an error, not a panic.
type Extractor interface {
	Extract(data []byte) (*Meta, error)
}

// TagExtractor implements Extractor on top of dhowden/tag, which covers
// ID3v1/ID3v2, MP4 atoms, FLAC and OGG comments.
type TagExtractor struct{}

// NewTagExtractor creates the production extractor.
func NewTagExtractor() *TagExtractor {
	return &TagExtractor{}
}

// Extract parses the tag block of the given audio payload.
func (e *TagExtractor) Extract(data []byte) (*Meta, error) {
	md, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	m := &Meta{
		Title:  StripNulls(md.Title()),
		Artist: StripNulls(md.Artist()),
		Album:  StripNulls(md.Album()),
		Genre:  StripNulls(md.Genre()),
	}
	if year := md.Year(); year != 0 {
		m.Year = strconv.Itoa(year)
	}
	if pic := md.Picture(); pic != nil && len(pic.Data) > 0 {
		mime := pic.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		m.Picture = &Picture{Data: pic.Data, Mime: mime}
	}
	return m, nil
}

// StripNulls removes embedded NUL characters. Some taggers pad fixed-width
// frames with them and they corrupt both JSON output and SQL text columns.
func StripNulls(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// TitleFallback derives a display title from a filename by dropping its
// extension, for files whose tags carry no title.
func TitleFallback(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

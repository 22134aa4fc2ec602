// Package exifmeta reads metadata through a long-lived exiftool process.
// Tags are group-qualified ("EXIF:DateTimeOriginal") and values are raw,
// without exiftool's human print conversion, so numeric tags stay numeric.
package exifmeta

import (
	"fmt"
	"strconv"

	"github.com/barasher/go-exiftool"
)

type extractor interface {
	ExtractMetadata(files ...string) []exiftool.FileMetadata
}

// Reader owns the exiftool process. It is safe to keep for the lifetime of
// a scan; exiftool stays warm between files.
type Reader struct {
	et     *exiftool.Exiftool
	source extractor
}

// NewReader starts exiftool with group names, no print conversion and
// structured XMP output alongside the flattened tags.
func NewReader() (*Reader, error) {
	et, err := exiftool.NewExiftool(
		exiftool.PrintGroupNames("0"),
		exiftool.NoPrintConversion(),
		exiftool.Api("struct=2"),
	)
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &Reader{et: et, source: et}, nil
}

func (r *Reader) Close() error {
	if r.et == nil {
		return nil
	}
	return r.et.Close()
}

// Source extracts metadata for the given files and returns a combined view.
// Files are listed in reverse priority: a value found in a later file (the
// sidecar) overrides the same tag from an earlier one (the primary media).
func (r *Reader) Source(paths ...string) (*Source, error) {
	metas := r.source.ExtractMetadata(paths...)
	files := make([]map[string]any, 0, len(metas))
	for _, m := range metas {
		if m.Err != nil {
			// A missing or unreadable sidecar should not sink the photo.
			continue
		}
		files = append(files, m.Fields)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("exif: no readable metadata in %v", paths)
	}
	return &Source{files: files}, nil
}

// Source is a merged tag view over one media file and its sidecars.
type Source struct {
	files []map[string]any
}

// NewSource builds a merged view directly from raw tag maps, listed in
// reverse priority like Reader.Source.
func NewSource(files ...map[string]any) *Source {
	return &Source{files: files}
}

func (s *Source) lookup(tag string) (any, bool) {
	var val any
	found := false
	for _, fields := range s.files {
		if v, ok := fields[tag]; ok && v != nil {
			val = v
			found = true
		}
	}
	return val, found
}

// Tags returns the string rendering of every requested tag that is present.
func (s *Source) Tags(names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := s.GetString(name); ok {
			out[name] = v
		}
	}
	return out, nil
}

// GetString returns the tag value as a string.
func (s *Source) GetString(tag string) (string, bool) {
	v, ok := s.lookup(tag)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// GetFloat returns the tag value as a float. Non-numeric values are treated
// as absent rather than coerced, so a mangled GPS tag cannot place a photo
// at a garbage coordinate.
func (s *Source) GetFloat(tag string) (float64, bool) {
	v, ok := s.lookup(tag)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// GetInt returns the tag value as an integer, truncating floats.
func (s *Source) GetInt(tag string) (int, bool) {
	f, ok := s.GetFloat(tag)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Package search builds the per-photo search text and answers semantic
// search queries by combining embedding similarity with substring
// matching.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/photo-library/internal/database"
)

// BuildCaptions assembles the flat search text of a photo: scene labels,
// captions, the names of the people on it, file paths and gear names.
func BuildCaptions(photo *database.Photo, personNames []string) string {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	if photo.Captions != nil {
		for _, attr := range photo.Captions.Places365.Attributes {
			add(attr)
		}
		for _, cat := range photo.Captions.Places365.Categories {
			add(cat)
		}
		add(photo.Captions.Places365.Environment)
		add(photo.Captions.UserCaption)
		add(photo.Captions.Im2txt)
	}
	for _, name := range personNames {
		add(name)
	}
	if photo.MainFile != nil {
		add(photo.MainFile.Path)
	}
	for _, file := range photo.Files {
		if photo.MainFile == nil || file.Path != photo.MainFile.Path {
			add(file.Path)
		}
	}
	if photo.MainFile != nil && photo.MainFile.Type == database.MediaTypeVideo {
		add("type: video")
	}
	add(photo.Camera)
	add(photo.Lens)

	return strings.Join(parts, " , ")
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases and strips diacritics so "Škofja Loka" matches
// "skofja loka".
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Package media decides what kind of artifact a path holds and detects
// embedded motion-photo streams.
package media

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Type classifies a physical file on disk.
type Type int

const (
	TypeUnknown Type = iota
	TypeImage
	TypeVideo
	TypeRaw
	TypeSidecar
)

func (t Type) String() string {
	switch t {
	case TypeImage:
		return "image"
	case TypeVideo:
		return "video"
	case TypeRaw:
		return "raw"
	case TypeSidecar:
		return "sidecar"
	default:
		return "unknown"
	}
}

// rawExtensions mirrors the raw formats the library accepts. Extensions are
// upper-cased with the leading dot.
var rawExtensions = map[string]struct{}{
	".RWZ": {}, ".CR2": {}, ".NRW": {}, ".EIP": {}, ".RAF": {}, ".ERF": {},
	".RW2": {}, ".NEF": {}, ".ARW": {}, ".K25": {}, ".DNG": {}, ".SRF": {},
	".DCR": {}, ".RAW": {}, ".CRW": {}, ".BAY": {}, ".3FR": {}, ".CS1": {},
	".MEF": {}, ".ORF": {}, ".ARI": {}, ".SR2": {}, ".KDC": {}, ".MOS": {},
	".MFW": {}, ".FFF": {}, ".CR3": {}, ".SRW": {}, ".RWL": {}, ".J6I": {},
	".KC2": {}, ".X3F": {}, ".MRW": {}, ".IIQ": {}, ".PEF": {}, ".CXI": {},
	".MDC": {},
}

// IsRaw reports whether the path has a known camera-raw extension.
func IsRaw(path string) bool {
	ext := strings.ToUpper(filepath.Ext(path))
	_, ok := rawExtensions[ext]
	return ok
}

// IsSidecar reports whether the path is an XMP metadata sidecar.
func IsSidecar(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xmp")
}

// IsVideo sniffs the file content and reports whether its MIME type is in
// the video/ family.
func IsVideo(path string) bool {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt.String(), "video/")
}

// Classify decides the file type. Raw and sidecar are extension-based, video
// is content-sniffed, everything else is treated as an image candidate.
func Classify(path string) Type {
	if IsRaw(path) {
		return TypeRaw
	}
	if IsSidecar(path) {
		return TypeSidecar
	}
	if IsVideo(path) {
		return TypeVideo
	}
	return TypeImage
}

// Prober validates that an image can actually be thumbnailed. The pipeline
// injects the thumbnail engine here.
type Prober interface {
	Probe(path string) error
}

// IsValidMedia accepts videos, raws and sidecars outright and subjects image
// candidates to a thumbnail probe.
func IsValidMedia(path string, prober Prober) bool {
	switch Classify(path) {
	case TypeVideo, TypeRaw, TypeSidecar:
		return true
	}
	if prober == nil {
		return true
	}
	return prober.Probe(path) == nil
}

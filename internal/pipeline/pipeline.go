// Package pipeline enriches one photo at a time: hashing, thumbnails,
// metadata, geolocation, captions, faces, embeddings and the derived
// search text. Steps are independent; a failing step logs and the photo
// keeps whatever the other steps produced.
package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kozaktomas/photo-library/internal/albums"
	"github.com/kozaktomas/photo-library/internal/caption"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/exifmeta"
	"github.com/kozaktomas/photo-library/internal/faces"
	"github.com/kozaktomas/photo-library/internal/geocode"
	"github.com/kozaktomas/photo-library/internal/inference"
	"github.com/kozaktomas/photo-library/internal/media"
	"github.com/kozaktomas/photo-library/internal/search"
	"github.com/kozaktomas/photo-library/internal/thumbnails"
	"github.com/kozaktomas/photo-library/internal/timestamp"
)

// Store is the persistence surface the pipeline writes to.
type Store interface {
	database.FileStore
	database.PhotoStore
	database.FaceStore
	database.PersonStore
	database.ClusterStore
	database.AlbumStore
}

// metaSource lets tests feed tag maps without a live exiftool process.
type metaSource interface {
	Source(paths ...string) (*exifmeta.Source, error)
}

// Deps carries the collaborators of the pipeline. Exif, Geocoder, Tags,
// Captioner, Refiner, Extractor and Embeddings may each be nil; the steps
// that need a missing collaborator are skipped.
type Deps struct {
	Store      Store
	Exif       metaSource
	Thumbs     *thumbnails.Engine
	Geocoder   *geocode.Client
	Tags       *inference.TagsClient
	Captioner  *inference.CaptionClient
	Refiner    caption.Provider
	Extractor  *faces.Extractor
	Embeddings *inference.EmbeddingClient
	Logger     *slog.Logger
}

// Pipeline enriches photos for one library.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{deps: deps, logger: logger, now: time.Now}
}

// Process runs the full enrichment for one media path. The returned error
// covers only the fatal prelude (unreadable file, broken store); step
// failures are logged and swallowed so a later rescan can fill the gaps.
func (p *Pipeline) Process(ctx context.Context, user *database.User, path string) error {
	if !media.IsValidMedia(path, p.deps.Thumbs) {
		return fmt.Errorf("not a valid media file: %s", path)
	}

	hash, err := contentHash(path, user.ID)
	if err != nil {
		return err
	}

	photo, err := p.upsert(ctx, user, path, hash)
	if err != nil {
		return err
	}

	source := p.metadata(path)

	steps := []struct {
		name string
		fn   func() error
	}{
		{"thumbnails", func() error { return p.stepThumbnails(ctx, photo, path) }},
		{"exif", func() error { return p.stepExif(photo, source) }},
		{"datetime", func() error { return p.stepDateTime(ctx, user, photo, path, source) }},
		{"geolocation", func() error { return p.stepGeolocation(ctx, photo, source) }},
		{"captions", func() error { return p.stepCaptions(ctx, user, photo) }},
		{"faces", func() error { return p.stepFaces(ctx, user, photo, source) }},
		{"embeddings", func() error { return p.stepEmbeddings(ctx, photo) }},
		{"search text", func() error { return p.stepSearchText(ctx, photo) }},
		{"dominant color", func() error { return p.stepDominantColor(photo) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			p.logger.Warn("enrichment step failed",
				"step", step.name, "photo", photo.ID, "path", path, "error", err)
		}
	}

	if err := p.deps.Store.SavePhoto(ctx, photo); err != nil {
		return fmt.Errorf("save photo %s: %w", photo.ID, err)
	}
	return nil
}

// contentHash produces the photo id: MD5 over the file bytes followed by
// the decimal owner id, so two users importing the same bytes get
// distinct photos.
func contentHash(path string, ownerID int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	io.WriteString(h, strconv.FormatInt(ownerID, 10))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// upsert finds or creates the File and Photo rows for the hash. A second
// path with the same content attaches as an extra file of the existing
// photo.
func (p *Pipeline) upsert(ctx context.Context, user *database.User, path, hash string) (*database.Photo, error) {
	file := &database.File{Hash: hash, Path: path, Type: mediaType(path)}
	p.attachEmbeddedMedia(file)
	if err := p.deps.Store.UpsertFile(ctx, file); err != nil {
		return nil, fmt.Errorf("upsert file %s: %w", path, err)
	}

	photo, err := p.deps.Store.GetPhoto(ctx, hash)
	switch err {
	case nil:
		for _, existing := range photo.Files {
			if existing.Path == path {
				return photo, nil
			}
		}
		photo.Files = append(photo.Files, file)
		return photo, nil
	case database.ErrNotFound:
		photo = &database.Photo{
			ID:       hash,
			OwnerID:  user.ID,
			MainFile: file,
			Files:    []*database.File{file},
			AddedOn:  p.now(),
		}
		if err := p.deps.Store.SavePhoto(ctx, photo); err != nil {
			return nil, fmt.Errorf("create photo %s: %w", hash, err)
		}
		return photo, nil
	default:
		return nil, fmt.Errorf("load photo %s: %w", hash, err)
	}
}

// metadata loads the merged tag view of the file and its sidecar, best
// effort. Steps treat a nil source as "no metadata".
func (p *Pipeline) metadata(path string) *exifmeta.Source {
	if p.deps.Exif == nil {
		return nil
	}
	paths := []string{path}
	if sidecar := path + ".xmp"; fileExists(sidecar) {
		paths = append(paths, sidecar)
	}
	source, err := p.deps.Exif.Source(paths...)
	if err != nil {
		p.logger.Warn("metadata extraction failed", "path", path, "error", err)
		return nil
	}
	return source
}

func (p *Pipeline) stepThumbnails(ctx context.Context, photo *database.Photo, path string) error {
	thumbs := p.deps.Thumbs
	if thumbs == nil {
		return nil
	}

	var big string
	var err error
	if photo.MainFile != nil && photo.MainFile.Type == database.MediaTypeVideo {
		big, err = thumbs.CreatePosterFrame(ctx, path, photo.ID)
		if err != nil {
			return fmt.Errorf("poster frame: %w", err)
		}
		clip, err := thumbs.CreateClip(ctx, path, photo.ID, thumbnails.HeightSquare)
		if err != nil {
			return fmt.Errorf("preview clip: %w", err)
		}
		photo.ThumbnailSquare = clip
	} else {
		big, err = thumbs.CreateThumbnail(path, thumbnails.HeightBig, thumbnails.DirBig, photo.ID)
		if err != nil {
			return fmt.Errorf("big thumbnail: %w", err)
		}
		square, err := thumbs.CreateThumbnail(big, thumbnails.HeightSquare, thumbnails.DirSquare, photo.ID)
		if err != nil {
			return fmt.Errorf("square thumbnail: %w", err)
		}
		photo.ThumbnailSquare = square
	}
	photo.ThumbnailBig = big

	small, err := thumbs.CreateThumbnail(big, thumbnails.HeightSquareSmall, thumbnails.DirSquareSmall, photo.ID)
	if err != nil {
		return fmt.Errorf("small thumbnail: %w", err)
	}
	photo.ThumbnailSquareSmall = small

	width, height, err := thumbs.Dimensions(big)
	if err != nil {
		return fmt.Errorf("thumbnail dimensions: %w", err)
	}
	ratio := math.Round(float64(width)/float64(height)*100) / 100
	photo.AspectRatio = &ratio
	return nil
}

func (p *Pipeline) stepDateTime(ctx context.Context, user *database.User, photo *database.Photo, path string, source *exifmeta.Source) error {
	rules := user.DatetimeRules
	if len(rules) == 0 {
		rules = timestamp.DefaultRules()
	}
	in := timestamp.Input{
		Path:          path,
		GPSLat:        photo.GPSLat,
		GPSLon:        photo.GPSLon,
		UserDefaultTZ: user.DefaultTimezone,
	}
	if source != nil {
		in.Exif = source
	}
	resolved, err := timestamp.Resolve(rules, in)
	if err != nil {
		return err
	}
	photo.ExifTimestamp = resolved
	return albums.RelinkDate(ctx, p.deps.Store, photo)
}

func (p *Pipeline) stepGeolocation(ctx context.Context, photo *database.Photo, source *exifmeta.Source) error {
	if source != nil {
		if lat, ok := source.GetFloat(tagGPSLatitude); ok {
			if lon, ok := source.GetFloat(tagGPSLongitude); ok {
				photo.GPSLat = &lat
				photo.GPSLon = &lon
			}
		}
	}
	if photo.GPSLat == nil || photo.GPSLon == nil {
		return nil
	}
	if photo.Geolocation != nil && !photo.Geolocation.Empty() && !photo.Geolocation.Stale() {
		return nil
	}
	if p.deps.Geocoder == nil {
		return nil
	}

	result := p.deps.Geocoder.Reverse(ctx, *photo.GPSLat, *photo.GPSLon)
	if result.Empty() {
		return fmt.Errorf("reverse geocode returned nothing for (%f, %f)", *photo.GPSLat, *photo.GPSLon)
	}
	photo.Geolocation = &result
	return albums.UpdatePlaces(ctx, p.deps.Store, photo)
}

func (p *Pipeline) stepCaptions(ctx context.Context, user *database.User, photo *database.Photo) error {
	if photo.Captions == nil {
		photo.Captions = &database.Captions{}
	}

	if p.deps.Tags != nil && photo.ThumbnailBig != "" {
		tags, err := p.deps.Tags.GenerateTags(ctx, photo.ThumbnailBig, user.Confidence)
		if err != nil {
			return fmt.Errorf("scene tags: %w", err)
		}
		if tags != nil {
			photo.Captions.Places365 = database.Places365Captions{
				Attributes:  tags.Attributes,
				Categories:  tags.Categories,
				Environment: tags.Environment,
			}
		}
	}

	if p.deps.Captioner != nil && photo.ThumbnailBig != "" && photo.Captions.Im2txt == "" {
		raw, err := p.deps.Captioner.GenerateCaption(ctx, photo.ThumbnailBig, false, false)
		if err != nil {
			return fmt.Errorf("caption: %w", err)
		}
		sentence := caption.Normalize(raw)
		if p.deps.Refiner != nil && sentence != "" {
			people, err := p.personNames(ctx, photo)
			if err == nil {
				if refined, err := p.deps.Refiner.RefineCaption(ctx, sentence, people); err == nil && refined != "" {
					sentence = refined
				}
			}
		}
		photo.Captions.Im2txt = sentence
	}

	return albums.UpdateThings(ctx, p.deps.Store, photo)
}

func (p *Pipeline) stepFaces(ctx context.Context, user *database.User, photo *database.Photo, source *exifmeta.Source) error {
	if p.deps.Extractor == nil {
		return nil
	}
	_, err := p.deps.Extractor.ExtractFaces(ctx, user, photo, source)
	return err
}

func (p *Pipeline) stepEmbeddings(ctx context.Context, photo *database.Photo) error {
	if p.deps.Embeddings == nil || photo.ThumbnailBig == "" {
		return nil
	}
	if len(photo.ClipEmbeddings) > 0 {
		return nil
	}
	embeddings, magnitudes, err := p.deps.Embeddings.ImageEmbeddings(ctx, []string{photo.ThumbnailBig})
	if err != nil {
		return fmt.Errorf("image embedding: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("embedding service returned no vectors")
	}
	photo.ClipEmbeddings = embeddings[0]
	photo.ClipEmbeddingsMagnitude = &magnitudes[0]
	return p.deps.Store.UpdateClipEmbedding(ctx, photo.ID, embeddings[0], magnitudes[0])
}

func (p *Pipeline) stepSearchText(ctx context.Context, photo *database.Photo) error {
	names, err := p.personNames(ctx, photo)
	if err != nil {
		return err
	}
	photo.SearchCaptions = search.BuildCaptions(photo, names)
	return nil
}

func (p *Pipeline) personNames(ctx context.Context, photo *database.Photo) ([]string, error) {
	photoFaces, err := p.deps.Store.ListFacesByPhoto(ctx, photo.ID)
	if err != nil {
		return nil, fmt.Errorf("list faces of %s: %w", photo.ID, err)
	}
	var names []string
	for _, face := range photoFaces {
		person, err := p.deps.Store.GetPerson(ctx, face.PersonID)
		if err != nil || person.Name == database.UnknownPersonName {
			continue
		}
		names = append(names, person.Name)
	}
	return names, nil
}

// attachEmbeddedMedia pulls a motion-photo video out of an image file and
// records it as an embedded file. Best effort: extraction failures are
// logged and the image is processed as a plain photo.
func (p *Pipeline) attachEmbeddedMedia(file *database.File) {
	if file.Type != database.MediaTypeImage || p.deps.Thumbs == nil {
		return
	}
	dst := p.deps.Thumbs.Path("embedded_media", file.Hash, ".mp4")
	if !fileExists(dst) {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			p.logger.Warn("embedded media dir", "path", dst, "error", err)
			return
		}
		found, err := media.ExtractEmbeddedMedia(file.Path, dst)
		if err != nil {
			p.logger.Warn("embedded media extraction failed", "path", file.Path, "error", err)
			return
		}
		if !found {
			return
		}
	}
	file.EmbeddedMedia = []*database.File{{
		Hash: file.Hash + "_em",
		Path: dst,
		Type: database.MediaTypeVideo,
	}}
}

func mediaType(path string) database.MediaType {
	switch media.Classify(path) {
	case media.TypeVideo:
		return database.MediaTypeVideo
	case media.TypeRaw:
		return database.MediaTypeRaw
	case media.TypeSidecar:
		return database.MediaTypeSidecar
	case media.TypeImage:
		return database.MediaTypeImage
	default:
		return database.MediaTypeUnknown
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

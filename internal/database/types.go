package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-library/internal/geocode"
	"github.com/kozaktomas/photo-library/internal/timestamp"
)

// MediaType classifies the physical file behind a Photo.
type MediaType string

const (
	MediaTypeImage   MediaType = "IMAGE"
	MediaTypeVideo   MediaType = "VIDEO"
	MediaTypeRaw     MediaType = "RAW"
	MediaTypeSidecar MediaType = "SIDECAR"
	MediaTypeUnknown MediaType = "UNKNOWN"
)

// PersonKind distinguishes user-labeled identities from automatic ones.
type PersonKind string

const (
	PersonKindUser    PersonKind = "USER"
	PersonKindCluster PersonKind = "CLUSTER"
	PersonKindUnknown PersonKind = "UNKNOWN"
)

// UnknownPersonName is the catch-all identity every new face starts at.
const UnknownPersonName = "Unknown - Other"

// User owns every other entity and carries the per-user knobs the
// enrichment and identity code reads.
type User struct {
	ID            int64
	Username      string
	ScanDirectory string

	Confidence           float64
	SemanticSearchTopK   int
	FavoriteMinRating    float64
	DefaultTimezone      string
	DatetimeRules        []timestamp.Rule
	FaceRecognitionModel string
}

// File is one physical artifact on disk. Hash is the content hash salted
// with the owner id and acts as the primary key.
type File struct {
	Hash    string
	Path    string
	Type    MediaType
	Missing bool

	// Extracted motion-photo streams, owned by the same photo.
	EmbeddedMedia []*File
}

// Captions aggregates everything caption-like attached to a photo.
type Captions struct {
	Im2txt      string            `json:"im2txt,omitempty"`
	UserCaption string            `json:"user_caption,omitempty"`
	Places365   Places365Captions `json:"places365"`
}

// Places365Captions is the scene classification result.
type Places365Captions struct {
	Attributes  []string `json:"attributes"`
	Categories  []string `json:"categories"`
	Environment string   `json:"environment,omitempty"`
}

// Photo is the logical media item: one main file plus any number of
// derived or duplicate files, and everything enrichment produced for it.
type Photo struct {
	ID      string
	OwnerID int64

	MainFile *File
	Files    []*File

	ThumbnailBig         string
	ThumbnailSquare      string
	ThumbnailSquareSmall string
	AspectRatio          *float64

	GPSLat        *float64
	GPSLon        *float64
	ExifTimestamp *timestamp.LocalWallClock
	Camera        string
	Lens          string
	ISO           *int
	FStop         *float64
	ShutterSpeed  string
	FocalLength   *float64
	Width         int
	Height        int
	VideoLength   *float64

	Geolocation    *geocode.Result
	Captions       *Captions
	SearchCaptions string
	DominantColor  string

	Rating  int
	Deleted bool
	Hidden  bool
	Public  bool

	ClipEmbeddings          []float32
	ClipEmbeddingsMagnitude *float64

	SharedTo []int64

	AddedOn time.Time
}

// Visible reports whether the photo participates in albums, search and the
// similarity index.
func (p *Photo) Visible() bool {
	return !p.Hidden && !p.Deleted && p.AspectRatio != nil
}

// Favorite reports whether the photo's rating meets the owner's favourite
// threshold.
func (p *Photo) Favorite(minRating float64) bool {
	return p.Rating > 0 && float64(p.Rating) >= minRating
}

// Person is a human identity, either labeled by the user or synthesized
// from a face cluster.
type Person struct {
	ID           int64
	OwnerID      int64
	Name         string
	Kind         PersonKind
	CoverPhotoID string
	CoverFaceID  *int64
	FaceCount    int
}

// Face is one detected face inside a photo. Encoding is the 128-dim
// descriptor; the box is in pixel coordinates of the big thumbnail.
type Face struct {
	ID      int64
	PhotoID string
	OwnerID int64

	Top    int
	Right  int
	Bottom int
	Left   int

	Encoding []float64

	PersonID               int64
	ClusterID              *int64
	PersonLabelIsInferred  bool
	PersonLabelProbability float64

	ImagePath string
}

// UnknownClusterID marks the per-user cluster that collects noise faces.
const UnknownClusterID = -1

// Cluster groups faces sharing an encoding neighbourhood within one
// clustering run.
type Cluster struct {
	ID       int64
	OwnerID  int64
	PersonID *int64

	ClusterID int
	Name      string

	MeanFaceEncoding []float64
	MeanDistance     float64
	StdDevDistance   float64
}

// AlbumAuto is an event album generated from temporally dense photo runs.
type AlbumAuto struct {
	ID        int64
	OwnerID   int64
	Title     string
	Timestamp time.Time
	CreatedOn time.Time
	GPSLat    *float64
	GPSLon    *float64
	Favorited bool
	PhotoIDs  []string
}

// AlbumDate buckets photos by calendar day; the nil date album collects
// photos without a resolved timestamp.
type AlbumDate struct {
	ID            int64
	OwnerID       int64
	Date          *time.Time
	Title         string
	PhotoIDs      []string
	CoverPhotoIDs []string
	PhotoCount    int
}

// AlbumPlace buckets photos by a geocoded feature; Level orders features
// from country (high) down to street (low).
type AlbumPlace struct {
	ID            int64
	OwnerID       int64
	Title         string
	Level         int
	PhotoIDs      []string
	CoverPhotoIDs []string
	PhotoCount    int
}

// AlbumThing buckets photos by a scene attribute, category or hashtag.
type AlbumThing struct {
	ID            int64
	OwnerID       int64
	Title         string
	ThingType     string
	PhotoIDs      []string
	CoverPhotoIDs []string
	PhotoCount    int
}

// AlbumUser is a manually curated album.
type AlbumUser struct {
	ID            int64
	OwnerID       int64
	Title         string
	PhotoIDs      []string
	CoverPhotoIDs []string
	PhotoCount    int
}

// JobProgress is the current/target counter of a long running job.
type JobProgress struct {
	Current int `json:"current"`
	Target  int `json:"target"`
}

// JobResult is persisted as JSON on the job row. Details carries
// job-specific fields next to the uniform progress object.
type JobResult struct {
	Progress JobProgress    `json:"progress"`
	Details  map[string]any `json:"details,omitempty"`
}

// LongRunningJob is the persisted state of one background job run.
type LongRunningJob struct {
	JobID       uuid.UUID
	JobType     string
	StartedByID int64
	QueuedAt    time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Finished    bool
	Failed      bool
	Result      JobResult
}

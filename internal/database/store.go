package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore manages library owners.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SaveUser(ctx context.Context, user *User) error
}

// FileStore manages physical files keyed by their salted content hash.
type FileStore interface {
	UpsertFile(ctx context.Context, file *File) error
	GetFileByPath(ctx context.Context, path string) (*File, error)
	ListFilePaths(ctx context.Context, ownerID int64) ([]string, error)
	SetFileMissing(ctx context.Context, hash string, missing bool) error
}

// FaceAssignment is one face relabel produced by the identity engine.
type FaceAssignment struct {
	FaceID      int64
	PersonID    int64
	Inferred    bool
	Probability float64
}

// PhotoStore manages logical photos and their enrichment output.
type PhotoStore interface {
	GetPhoto(ctx context.Context, id string) (*Photo, error)
	PhotoExists(ctx context.Context, id string) (bool, error)
	SavePhoto(ctx context.Context, photo *Photo) error
	DeletePhoto(ctx context.Context, id string) error
	ListPhotos(ctx context.Context, ownerID int64) ([]Photo, error)
	ListVisiblePhotos(ctx context.Context, ownerID int64) ([]Photo, error)
	ListPhotosWithoutEmbeddings(ctx context.Context, ownerID int64) ([]Photo, error)
	UpdateClipEmbedding(ctx context.Context, id string, embedding []float32, magnitude float64) error
}

// FaceStore manages detected faces. CreateFace returns ErrConflict when a
// face with the same photo and box already exists.
type FaceStore interface {
	CreateFace(ctx context.Context, face *Face) error
	GetFace(ctx context.Context, id int64) (*Face, error)
	ListFacesByPhoto(ctx context.Context, photoID string) ([]Face, error)
	ListFacesByUser(ctx context.Context, ownerID int64) ([]Face, error)
	UpdateFacePerson(ctx context.Context, assignment FaceAssignment) error
	BulkUpdateFacePersons(ctx context.Context, assignments []FaceAssignment) error
	SetFaceCluster(ctx context.Context, faceID int64, clusterID *int64) error
	DeleteFacesByPhoto(ctx context.Context, photoID string) error
}

// PersonStore manages identities.
type PersonStore interface {
	GetPerson(ctx context.Context, id int64) (*Person, error)
	GetOrCreatePerson(ctx context.Context, ownerID int64, name string, kind PersonKind) (*Person, error)
	ListPersons(ctx context.Context, ownerID int64) ([]Person, error)
	SavePerson(ctx context.Context, person *Person) error
	DeletePerson(ctx context.Context, id int64) error
}

// ClusterStore manages face clusters. ResetClusters removes every cluster
// of the owner except the unknown one.
type ClusterStore interface {
	CreateCluster(ctx context.Context, cluster *Cluster) error
	SaveCluster(ctx context.Context, cluster *Cluster) error
	GetOrCreateUnknownCluster(ctx context.Context, ownerID int64) (*Cluster, error)
	ListClusters(ctx context.Context, ownerID int64) ([]Cluster, error)
	ResetClusters(ctx context.Context, ownerID int64) error
}

// AlbumStore manages all materialised album kinds.
type AlbumStore interface {
	// Date albums. A nil date addresses the "no timestamp" album. Relink
	// moves the photo out of every other date album of the owner.
	GetOrCreateAlbumDate(ctx context.Context, ownerID int64, date *time.Time) (*AlbumDate, error)
	RelinkPhotoToAlbumDate(ctx context.Context, albumID int64, photoID string) error

	GetOrCreateAlbumPlace(ctx context.Context, ownerID int64, title string, level int) (*AlbumPlace, error)
	AddPhotoToAlbumPlace(ctx context.Context, albumID int64, photoID string) error
	RemovePhotoFromAlbumPlaces(ctx context.Context, ownerID int64, photoID string) error

	GetOrCreateAlbumThing(ctx context.Context, ownerID int64, title, thingType string) (*AlbumThing, error)
	AddPhotoToAlbumThing(ctx context.Context, albumID int64, photoID string) error
	RemovePhotoFromAlbumThings(ctx context.Context, ownerID int64, photoID, thingType string) error

	GetOrCreateAlbumUser(ctx context.Context, ownerID int64, title string) (*AlbumUser, error)
	AddPhotoToAlbumUser(ctx context.Context, albumID int64, photoID string) error

	CreateAlbumAuto(ctx context.Context, album *AlbumAuto) error
	SaveAlbumAuto(ctx context.Context, album *AlbumAuto) error
	ListAlbumAutos(ctx context.Context, ownerID int64) ([]AlbumAuto, error)
}

// JobStore persists long running job state. UpsertJob inserts or replaces
// the row addressed by the job UUID.
type JobStore interface {
	UpsertJob(ctx context.Context, job *LongRunningJob) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*LongRunningJob, error)
	UpdateJob(ctx context.Context, job *LongRunningJob) error
	ListJobs(ctx context.Context, limit int) ([]LongRunningJob, error)
	CountRunningJobs(ctx context.Context) (int, error)
}

// Store is the single persistence façade the rest of the library talks to.
type Store interface {
	UserStore
	FileStore
	PhotoStore
	FaceStore
	PersonStore
	ClusterStore
	AlbumStore
	JobStore
}

// Package mock provides an in-memory Store implementation for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-library/internal/database"
)

// Store is an in-memory database.Store. Zero-value maps are initialised
// by NewStore; all methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	users    map[int64]*database.User
	files    map[string]*database.File // by hash
	photos   map[string]*database.Photo
	faces    map[int64]*database.Face
	persons  map[int64]*database.Person
	clusters map[int64]*database.Cluster
	jobs     map[uuid.UUID]*database.LongRunningJob

	albumAutos  map[int64]*database.AlbumAuto
	albumDates  map[int64]*database.AlbumDate
	albumPlaces map[int64]*database.AlbumPlace
	albumThings map[int64]*database.AlbumThing
	albumUsers  map[int64]*database.AlbumUser

	nextID int64

	// Error injection for failure-path tests.
	SavePhotoError  error
	CreateFaceError error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:       make(map[int64]*database.User),
		files:       make(map[string]*database.File),
		photos:      make(map[string]*database.Photo),
		faces:       make(map[int64]*database.Face),
		persons:     make(map[int64]*database.Person),
		clusters:    make(map[int64]*database.Cluster),
		jobs:        make(map[uuid.UUID]*database.LongRunningJob),
		albumAutos:  make(map[int64]*database.AlbumAuto),
		albumDates:  make(map[int64]*database.AlbumDate),
		albumPlaces: make(map[int64]*database.AlbumPlace),
		albumThings: make(map[int64]*database.AlbumThing),
		albumUsers:  make(map[int64]*database.AlbumUser),
	}
}

func (s *Store) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

// --- users ---

func (s *Store) GetUser(ctx context.Context, id int64) (*database.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*database.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]database.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]database.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveUser(ctx context.Context, user *database.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.nextIDLocked()
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

// --- files ---

func (s *Store) UpsertFile(ctx context.Context, file *database.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *file
	s.files[file.Hash] = &cp
	return nil
}

func (s *Store) GetFileByPath(ctx context.Context, path string) (*database.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.files {
		if f.Path == path {
			cp := *f
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *Store) ListFilePaths(ctx context.Context, ownerID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, f := range s.files {
		out = append(out, f.Path)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SetFileMissing(ctx context.Context, hash string, missing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[hash]
	if !ok {
		return database.ErrNotFound
	}
	f.Missing = missing
	return nil
}

// --- photos ---

func (s *Store) GetPhoto(ctx context.Context, id string) (*database.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.photos[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) PhotoExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.photos[id]
	return ok, nil
}

func (s *Store) SavePhoto(ctx context.Context, photo *database.Photo) error {
	if s.SavePhotoError != nil {
		return s.SavePhotoError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *photo
	s.photos[photo.ID] = &cp
	return nil
}

func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.photos[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.photos, id)
	for faceID, face := range s.faces {
		if face.PhotoID == id {
			delete(s.faces, faceID)
		}
	}
	return nil
}

func (s *Store) ListPhotos(ctx context.Context, ownerID int64) ([]database.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.Photo
	for _, p := range s.photos {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListVisiblePhotos(ctx context.Context, ownerID int64) ([]database.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.Photo
	for _, p := range s.photos {
		if p.OwnerID == ownerID && p.Visible() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListPhotosWithoutEmbeddings(ctx context.Context, ownerID int64) ([]database.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.Photo
	for _, p := range s.photos {
		if p.OwnerID == ownerID && len(p.ClipEmbeddings) == 0 {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateClipEmbedding(ctx context.Context, id string, embedding []float32, magnitude float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return database.ErrNotFound
	}
	p.ClipEmbeddings = embedding
	p.ClipEmbeddingsMagnitude = &magnitude
	return nil
}

// --- faces ---

func (s *Store) CreateFace(ctx context.Context, face *database.Face) error {
	if s.CreateFaceError != nil {
		return s.CreateFaceError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.faces {
		if existing.PhotoID == face.PhotoID &&
			existing.Top == face.Top && existing.Right == face.Right &&
			existing.Bottom == face.Bottom && existing.Left == face.Left {
			return database.ErrConflict
		}
	}
	if face.ID == 0 {
		face.ID = s.nextIDLocked()
	}
	cp := *face
	s.faces[face.ID] = &cp
	return nil
}

func (s *Store) GetFace(ctx context.Context, id int64) (*database.Face, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.faces[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *Store) ListFacesByPhoto(ctx context.Context, photoID string) ([]database.Face, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.Face
	for _, f := range s.faces {
		if f.PhotoID == photoID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListFacesByUser(ctx context.Context, ownerID int64) ([]database.Face, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.Face
	for _, f := range s.faces {
		if f.OwnerID == ownerID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateFacePerson(ctx context.Context, assignment database.FaceAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateFacePersonLocked(assignment)
}

func (s *Store) updateFacePersonLocked(assignment database.FaceAssignment) error {
	f, ok := s.faces[assignment.FaceID]
	if !ok {
		return database.ErrNotFound
	}
	f.PersonID = assignment.PersonID
	f.PersonLabelIsInferred = assignment.Inferred
	f.PersonLabelProbability = assignment.Probability
	return nil
}

func (s *Store) BulkUpdateFacePersons(ctx context.Context, assignments []database.FaceAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range assignments {
		if err := s.updateFacePersonLocked(a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SetFaceCluster(ctx context.Context, faceID int64, clusterID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.faces[faceID]
	if !ok {
		return database.ErrNotFound
	}
	f.ClusterID = clusterID
	return nil
}

func (s *Store) DeleteFacesByPhoto(ctx context.Context, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.faces {
		if f.PhotoID == photoID {
			delete(s.faces, id)
		}
	}
	return nil
}

// --- persons ---

func (s *Store) GetPerson(ctx context.Context, id int64) (*database.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetOrCreatePerson(ctx context.Context, ownerID int64, name string, kind database.PersonKind) (*database.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.persons {
		if p.OwnerID == ownerID && p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	p := &database.Person{
		ID:      s.nextIDLocked(),
		OwnerID: ownerID,
		Name:    name,
		Kind:    kind,
	}
	s.persons[p.ID] = p
	cp := *p
	return &cp, nil
}

func (s *Store) ListPersons(ctx context.Context, ownerID int64) ([]database.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.Person
	for _, p := range s.persons {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SavePerson(ctx context.Context, person *database.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if person.ID == 0 {
		person.ID = s.nextIDLocked()
	}
	cp := *person
	s.persons[person.ID] = &cp
	return nil
}

func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.persons, id)
	return nil
}

// --- clusters ---

func (s *Store) CreateCluster(ctx context.Context, cluster *database.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cluster.ID == 0 {
		cluster.ID = s.nextIDLocked()
	}
	cp := *cluster
	s.clusters[cluster.ID] = &cp
	return nil
}

func (s *Store) SaveCluster(ctx context.Context, cluster *database.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cluster.ID == 0 {
		cluster.ID = s.nextIDLocked()
	}
	cp := *cluster
	s.clusters[cluster.ID] = &cp
	return nil
}

func (s *Store) GetOrCreateUnknownCluster(ctx context.Context, ownerID int64) (*database.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clusters {
		if c.OwnerID == ownerID && c.ClusterID == database.UnknownClusterID {
			cp := *c
			return &cp, nil
		}
	}
	c := &database.Cluster{
		ID:        s.nextIDLocked(),
		OwnerID:   ownerID,
		ClusterID: database.UnknownClusterID,
		Name:      "unknown",
	}
	s.clusters[c.ID] = c
	cp := *c
	return &cp, nil
}

func (s *Store) ListClusters(ctx context.Context, ownerID int64) ([]database.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.Cluster
	for _, c := range s.clusters {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ResetClusters(ctx context.Context, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clusters {
		if c.OwnerID == ownerID && c.ClusterID != database.UnknownClusterID {
			delete(s.clusters, id)
		}
	}
	for _, f := range s.faces {
		if f.OwnerID == ownerID {
			f.ClusterID = nil
		}
	}
	return nil
}

// --- albums ---

func (s *Store) GetOrCreateAlbumDate(ctx context.Context, ownerID int64, date *time.Time) (*database.AlbumDate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.albumDates {
		if a.OwnerID != ownerID {
			continue
		}
		if date == nil && a.Date == nil {
			cp := *a
			return &cp, nil
		}
		if date != nil && a.Date != nil && a.Date.Equal(*date) {
			cp := *a
			return &cp, nil
		}
	}
	a := &database.AlbumDate{ID: s.nextIDLocked(), OwnerID: ownerID, Date: date}
	s.albumDates[a.ID] = a
	cp := *a
	return &cp, nil
}

func (s *Store) RelinkPhotoToAlbumDate(ctx context.Context, albumID int64, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.albumDates[albumID]
	if !ok {
		return database.ErrNotFound
	}
	for _, a := range s.albumDates {
		if a.ID == albumID {
			continue
		}
		a.PhotoIDs = removeString(a.PhotoIDs, photoID)
		a.PhotoCount = len(a.PhotoIDs)
	}
	if !containsString(target.PhotoIDs, photoID) {
		target.PhotoIDs = append(target.PhotoIDs, photoID)
	}
	target.PhotoCount = len(target.PhotoIDs)
	return nil
}

func (s *Store) GetOrCreateAlbumPlace(ctx context.Context, ownerID int64, title string, level int) (*database.AlbumPlace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.albumPlaces {
		if a.OwnerID == ownerID && a.Title == title {
			cp := *a
			return &cp, nil
		}
	}
	a := &database.AlbumPlace{ID: s.nextIDLocked(), OwnerID: ownerID, Title: title, Level: level}
	s.albumPlaces[a.ID] = a
	cp := *a
	return &cp, nil
}

func (s *Store) AddPhotoToAlbumPlace(ctx context.Context, albumID int64, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.albumPlaces[albumID]
	if !ok {
		return database.ErrNotFound
	}
	if !containsString(a.PhotoIDs, photoID) {
		a.PhotoIDs = append(a.PhotoIDs, photoID)
	}
	a.PhotoCount = len(a.PhotoIDs)
	return nil
}

func (s *Store) RemovePhotoFromAlbumPlaces(ctx context.Context, ownerID int64, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.albumPlaces {
		if a.OwnerID != ownerID {
			continue
		}
		a.PhotoIDs = removeString(a.PhotoIDs, photoID)
		a.PhotoCount = len(a.PhotoIDs)
	}
	return nil
}

func (s *Store) GetOrCreateAlbumThing(ctx context.Context, ownerID int64, title, thingType string) (*database.AlbumThing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.albumThings {
		if a.OwnerID == ownerID && a.Title == title && a.ThingType == thingType {
			cp := *a
			return &cp, nil
		}
	}
	a := &database.AlbumThing{ID: s.nextIDLocked(), OwnerID: ownerID, Title: title, ThingType: thingType}
	s.albumThings[a.ID] = a
	cp := *a
	return &cp, nil
}

func (s *Store) AddPhotoToAlbumThing(ctx context.Context, albumID int64, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.albumThings[albumID]
	if !ok {
		return database.ErrNotFound
	}
	if !containsString(a.PhotoIDs, photoID) {
		a.PhotoIDs = append(a.PhotoIDs, photoID)
	}
	a.PhotoCount = len(a.PhotoIDs)
	return nil
}

func (s *Store) RemovePhotoFromAlbumThings(ctx context.Context, ownerID int64, photoID, thingType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.albumThings {
		if a.OwnerID != ownerID || a.ThingType != thingType {
			continue
		}
		a.PhotoIDs = removeString(a.PhotoIDs, photoID)
		a.PhotoCount = len(a.PhotoIDs)
	}
	return nil
}

func (s *Store) GetOrCreateAlbumUser(ctx context.Context, ownerID int64, title string) (*database.AlbumUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.albumUsers {
		if a.OwnerID == ownerID && a.Title == title {
			cp := *a
			return &cp, nil
		}
	}
	a := &database.AlbumUser{ID: s.nextIDLocked(), OwnerID: ownerID, Title: title}
	s.albumUsers[a.ID] = a
	cp := *a
	return &cp, nil
}

func (s *Store) AddPhotoToAlbumUser(ctx context.Context, albumID int64, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.albumUsers[albumID]
	if !ok {
		return database.ErrNotFound
	}
	if !containsString(a.PhotoIDs, photoID) {
		a.PhotoIDs = append(a.PhotoIDs, photoID)
	}
	a.PhotoCount = len(a.PhotoIDs)
	return nil
}

func (s *Store) CreateAlbumAuto(ctx context.Context, album *database.AlbumAuto) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if album.ID == 0 {
		album.ID = s.nextIDLocked()
	}
	cp := *album
	s.albumAutos[album.ID] = &cp
	return nil
}

func (s *Store) SaveAlbumAuto(ctx context.Context, album *database.AlbumAuto) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if album.ID == 0 {
		album.ID = s.nextIDLocked()
	}
	cp := *album
	s.albumAutos[album.ID] = &cp
	return nil
}

func (s *Store) ListAlbumAutos(ctx context.Context, ownerID int64) ([]database.AlbumAuto, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.AlbumAuto
	for _, a := range s.albumAutos {
		if a.OwnerID == ownerID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- jobs ---

func (s *Store) UpsertJob(ctx context.Context, job *database.LongRunningJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (*database.LongRunningJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *Store) UpdateJob(ctx context.Context, job *database.LongRunningJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.JobID]; !ok {
		return database.ErrNotFound
	}
	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

func (s *Store) ListJobs(ctx context.Context, limit int) ([]database.LongRunningJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]database.LongRunningJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueuedAt.After(out[j].QueuedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountRunningJobs(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, j := range s.jobs {
		if !j.Finished {
			count++
		}
	}
	return count, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func removeString(haystack []string, needle string) []string {
	out := haystack[:0]
	for _, s := range haystack {
		if s != needle {
			out = append(out, s)
		}
	}
	return out
}

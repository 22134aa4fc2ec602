package albums

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/mock"
	"github.com/kozaktomas/photo-library/internal/geocode"
	"github.com/kozaktomas/photo-library/internal/timestamp"
)

func timedPhoto(t *testing.T, store *mock.Store, id string, ts time.Time) *database.Photo {
	t.Helper()
	ar := 1.0
	wall := timestamp.FromLocal(ts)
	photo := &database.Photo{ID: id, OwnerID: 1, AspectRatio: &ar, ExifTimestamp: &wall}
	if err := store.SavePhoto(context.Background(), photo); err != nil {
		t.Fatal(err)
	}
	return photo
}

func TestGroupByGap(t *testing.T) {
	base := time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)
	wall := func(ts time.Time) *timestamp.LocalWallClock {
		w := timestamp.FromLocal(ts)
		return &w
	}
	photos := []database.Photo{
		{ID: "a", ExifTimestamp: wall(base)},
		{ID: "b", ExifTimestamp: wall(base.Add(2 * time.Hour))},
		{ID: "c", ExifTimestamp: wall(base.Add(40 * time.Hour))},
	}

	groups := groupByGap(photos, eventGap)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if len(groups[0]) != 2 || len(groups[1]) != 1 {
		t.Errorf("group sizes = %d, %d, want 2, 1", len(groups[0]), len(groups[1]))
	}
}

func TestGenerateEventAlbums(t *testing.T) {
	store := mock.NewStore()
	ctx := context.Background()
	user := &database.User{ID: 1}

	base := time.Date(2023, time.June, 5, 10, 0, 0, 0, time.UTC)
	lat1, lon1 := 48.85, 2.35
	lat2, lon2 := 48.87, 2.37
	p1 := timedPhoto(t, store, "p1", base)
	p1.GPSLat, p1.GPSLon = &lat1, &lon1
	if err := store.SavePhoto(ctx, p1); err != nil {
		t.Fatal(err)
	}
	p2 := timedPhoto(t, store, "p2", base.Add(3*time.Hour))
	p2.GPSLat, p2.GPSLon = &lat2, &lon2
	if err := store.SavePhoto(ctx, p2); err != nil {
		t.Fatal(err)
	}
	// A lone photo two weeks later never becomes an album.
	timedPhoto(t, store, "solo", base.Add(14*24*time.Hour))

	g := NewGenerator(store, slog.Default())
	if err := g.GenerateEventAlbums(ctx, user, nil); err != nil {
		t.Fatalf("GenerateEventAlbums() error = %v", err)
	}

	albums, _ := store.ListAlbumAutos(ctx, 1)
	if len(albums) != 1 {
		t.Fatalf("got %d albums, want 1", len(albums))
	}
	album := albums[0]
	if len(album.PhotoIDs) != 2 {
		t.Errorf("album has %d photos, want 2", len(album.PhotoIDs))
	}
	if album.GPSLat == nil || *album.GPSLat != (lat1+lat2)/2 {
		t.Errorf("album latitude = %v, want centroid", album.GPSLat)
	}
	if !album.Timestamp.Equal(base) {
		t.Errorf("album timestamp = %v, want first photo time", album.Timestamp)
	}

	// A second run must not duplicate the album.
	if err := g.GenerateEventAlbums(ctx, user, nil); err != nil {
		t.Fatal(err)
	}
	albums, _ = store.ListAlbumAutos(ctx, 1)
	if len(albums) != 1 {
		t.Errorf("rerun created %d albums, want 1", len(albums))
	}
}

func TestEventAlbumWeekendTitle(t *testing.T) {
	store := mock.NewStore()
	ctx := context.Background()
	user := &database.User{ID: 1}

	alice, _ := store.GetOrCreatePerson(ctx, 1, "Alice", database.PersonKindUser)
	bob, _ := store.GetOrCreatePerson(ctx, 1, "Bob", database.PersonKindUser)

	// Saturday morning through Sunday afternoon.
	sat := time.Date(2023, time.June, 10, 10, 0, 0, 0, time.UTC)
	sun := time.Date(2023, time.June, 11, 14, 0, 0, 0, time.UTC)
	p1 := timedPhoto(t, store, "p1", sat)
	p2 := timedPhoto(t, store, "p2", sun)

	paris := &geocode.Result{Features: []geocode.Feature{{Text: "Paris"}}}
	p1.Geolocation = paris
	p2.Geolocation = paris
	if err := store.SavePhoto(ctx, p1); err != nil {
		t.Fatal(err)
	}
	if err := store.SavePhoto(ctx, p2); err != nil {
		t.Fatal(err)
	}

	for i, face := range []struct {
		photoID  string
		personID int64
	}{{"p1", alice.ID}, {"p2", bob.ID}} {
		err := store.CreateFace(ctx, &database.Face{
			PhotoID: face.photoID, OwnerID: 1, PersonID: face.personID,
			Top: i * 10, Right: 50, Bottom: i*10 + 40, Left: 10,
			Encoding: []float64{0.1, 0.2},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	g := NewGenerator(store, slog.Default())
	if err := g.GenerateEventAlbums(ctx, user, nil); err != nil {
		t.Fatalf("GenerateEventAlbums() error = %v", err)
	}

	albums, _ := store.ListAlbumAutos(ctx, 1)
	if len(albums) != 1 {
		t.Fatalf("got %d albums, want 1", len(albums))
	}
	want := "Weekend with Alice and Bob in Paris"
	if albums[0].Title != want {
		t.Errorf("title = %q, want %q", albums[0].Title, want)
	}
}

func TestEventAlbumMultiDayTitle(t *testing.T) {
	store := mock.NewStore()
	ctx := context.Background()
	user := &database.User{ID: 1}

	// Monday to Friday, one photo a day.
	start := time.Date(2023, time.June, 5, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		timedPhoto(t, store, string(rune('a'+i)), start.Add(time.Duration(i)*24*time.Hour))
	}

	g := NewGenerator(store, slog.Default())
	if err := g.GenerateEventAlbums(ctx, user, nil); err != nil {
		t.Fatal(err)
	}

	albums, _ := store.ListAlbumAutos(ctx, 1)
	if len(albums) != 1 {
		t.Fatalf("got %d albums, want 1", len(albums))
	}
	if albums[0].Title != "4 days" {
		t.Errorf("title = %q, want %q", albums[0].Title, "4 days")
	}
}

func TestRegenerateTitlesPicksUpNewNames(t *testing.T) {
	store := mock.NewStore()
	ctx := context.Background()
	user := &database.User{ID: 1}

	base := time.Date(2023, time.June, 5, 10, 0, 0, 0, time.UTC)
	timedPhoto(t, store, "p1", base)
	timedPhoto(t, store, "p2", base.Add(time.Hour))

	g := NewGenerator(store, slog.Default())
	if err := g.GenerateEventAlbums(ctx, user, nil); err != nil {
		t.Fatal(err)
	}
	albums, _ := store.ListAlbumAutos(ctx, 1)
	if albums[0].Title != "Monday Morning" {
		t.Fatalf("initial title = %q, want %q", albums[0].Title, "Monday Morning")
	}

	// A face gets named after the album was created.
	carol, _ := store.GetOrCreatePerson(ctx, 1, "Carol", database.PersonKindUser)
	err := store.CreateFace(ctx, &database.Face{
		PhotoID: "p1", OwnerID: 1, PersonID: carol.ID,
		Top: 1, Right: 2, Bottom: 3, Left: 0, Encoding: []float64{0.5},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := g.RegenerateTitles(ctx, user, nil); err != nil {
		t.Fatalf("RegenerateTitles() error = %v", err)
	}
	albums, _ = store.ListAlbumAutos(ctx, 1)
	if albums[0].Title != "Monday Morning with Carol" {
		t.Errorf("title = %q, want %q", albums[0].Title, "Monday Morning with Carol")
	}
}

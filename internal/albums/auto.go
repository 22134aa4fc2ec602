package albums

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

// eventGap is the silence between two photos that ends an event.
const eventGap = 36 * time.Hour

type autoStore interface {
	database.PhotoStore
	database.FaceStore
	database.PersonStore
	database.AlbumStore
}

// Generator produces event albums from temporally dense photo runs.
type Generator struct {
	store  autoStore
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator creates an event album generator.
func NewGenerator(store autoStore, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: store, logger: logger, now: time.Now}
}

// GenerateEventAlbums groups the user's photos into events separated by
// at least the gap threshold and creates one album per new event of two
// or more photos. Events that overlap an existing album are left alone.
func (g *Generator) GenerateEventAlbums(ctx context.Context, user *database.User, run *jobs.Run) error {
	photos, err := g.store.ListVisiblePhotos(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list photos: %w", err)
	}

	var timed []database.Photo
	for _, p := range photos {
		if p.ExifTimestamp != nil {
			timed = append(timed, p)
		}
	}
	sort.Slice(timed, func(i, j int) bool {
		return timed[i].ExifTimestamp.Before(timed[j].ExifTimestamp.Time)
	})

	groups := groupByGap(timed, eventGap)
	if run != nil {
		if err := run.SetTarget(ctx, len(groups)); err != nil {
			return err
		}
	}

	existing, err := g.store.ListAlbumAutos(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list event albums: %w", err)
	}

	created := 0
	for i, group := range groups {
		if len(group) >= 2 && !overlapsExisting(group, existing) {
			if err := g.createAlbum(ctx, user, group); err != nil {
				return err
			}
			created++
		}
		if run != nil {
			if err := run.Progress(ctx, i+1); err != nil {
				return err
			}
		}
	}

	g.logger.Info("event albums generated", "user_id", user.ID, "groups", len(groups), "created", created)
	return nil
}

// RegenerateTitles recomputes the title of every existing event album,
// picking up person names and places that arrived after creation.
func (g *Generator) RegenerateTitles(ctx context.Context, user *database.User, run *jobs.Run) error {
	existing, err := g.store.ListAlbumAutos(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list event albums: %w", err)
	}
	if run != nil {
		if err := run.SetTarget(ctx, len(existing)); err != nil {
			return err
		}
	}

	for i := range existing {
		album := &existing[i]
		group := make([]database.Photo, 0, len(album.PhotoIDs))
		for _, id := range album.PhotoIDs {
			photo, err := g.store.GetPhoto(ctx, id)
			if err != nil {
				continue
			}
			group = append(group, *photo)
		}
		title, err := g.title(ctx, group, album.Timestamp)
		if err != nil {
			return err
		}
		if title != album.Title {
			album.Title = title
			if err := g.store.SaveAlbumAuto(ctx, album); err != nil {
				return fmt.Errorf("save album %d: %w", album.ID, err)
			}
		}
		if run != nil {
			if err := run.Progress(ctx, i+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// groupByGap splits timestamp-sorted photos into runs where consecutive
// shots are closer than the gap.
func groupByGap(sorted []database.Photo, gap time.Duration) [][]database.Photo {
	var groups [][]database.Photo
	for _, photo := range sorted {
		if len(groups) > 0 {
			last := groups[len(groups)-1]
			prev := last[len(last)-1].ExifTimestamp.Time
			if photo.ExifTimestamp.Sub(prev) < gap {
				groups[len(groups)-1] = append(last, photo)
				continue
			}
		}
		groups = append(groups, []database.Photo{photo})
	}
	return groups
}

// overlapsExisting reports whether an existing album's timestamp falls
// inside the group's time window.
func overlapsExisting(group []database.Photo, existing []database.AlbumAuto) bool {
	start := group[0].ExifTimestamp.Time
	end := group[len(group)-1].ExifTimestamp.Time
	for _, album := range existing {
		if !album.Timestamp.Before(start) && !album.Timestamp.After(end) {
			return true
		}
	}
	return false
}

func (g *Generator) createAlbum(ctx context.Context, user *database.User, group []database.Photo) error {
	album := &database.AlbumAuto{
		OwnerID:   user.ID,
		Timestamp: group[0].ExifTimestamp.Time,
		CreatedOn: g.now(),
	}
	for _, photo := range group {
		album.PhotoIDs = append(album.PhotoIDs, photo.ID)
	}

	var lats, lons []float64
	for _, photo := range group {
		if photo.GPSLat != nil && photo.GPSLon != nil {
			lats = append(lats, *photo.GPSLat)
			lons = append(lons, *photo.GPSLon)
		}
	}
	if len(lats) > 0 {
		lat := mean(lats)
		lon := mean(lons)
		album.GPSLat = &lat
		album.GPSLon = &lon
	}

	title, err := g.title(ctx, group, album.Timestamp)
	if err != nil {
		return err
	}
	album.Title = title

	if err := g.store.CreateAlbumAuto(ctx, album); err != nil {
		return fmt.Errorf("create event album: %w", err)
	}
	return nil
}

// title builds the event name: when it happened, who is on the photos
// and where they were taken.
func (g *Generator) title(ctx context.Context, group []database.Photo, timestamp time.Time) (string, error) {
	when := strings.TrimSpace(timestamp.Weekday().String() + " " + dayPart(timestamp.Hour()))

	var first, last time.Time
	var places, people []string
	for _, photo := range group {
		if photo.ExifTimestamp != nil {
			ts := photo.ExifTimestamp.Time
			if first.IsZero() || ts.Before(first) {
				first = ts
			}
			if ts.After(last) {
				last = ts
			}
		}
		if photo.Geolocation != nil {
			for _, feature := range photo.Geolocation.Features {
				if feature.Text != "" && !isNumeric(feature.Text) {
					places = append(places, feature.Text)
				}
			}
		}

		photoFaces, err := g.store.ListFacesByPhoto(ctx, photo.ID)
		if err != nil {
			return "", fmt.Errorf("list faces of %s: %w", photo.ID, err)
		}
		for _, face := range photoFaces {
			person, err := g.store.GetPerson(ctx, face.PersonID)
			if err != nil {
				continue
			}
			if person.Name == database.UnknownPersonName || strings.EqualFold(person.Name, "unknown") {
				continue
			}
			people = append(people, person.Name)
		}
	}

	if days := int(last.Sub(first).Hours() / 24); days >= 3 {
		when = fmt.Sprintf("%d days", days)
	}
	if isWeekend(first.Weekday()) && isWeekend(last.Weekday()) && first.Weekday() != last.Weekday() {
		when = "Weekend"
	}

	parts := []string{when}
	if names := topTwo(people); len(names) > 0 {
		parts = append(parts, "with "+strings.Join(names, " and "))
	}
	if top := topTwo(places); len(top) > 0 {
		parts = append(parts, "in "+strings.Join(top, " and "))
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

func dayPart(hour int) string {
	switch {
	case hour > 0 && hour < 5:
		return "Early Morning"
	case hour >= 5 && hour < 12:
		return "Morning"
	case hour >= 12 && hour < 18:
		return "Afternoon"
	case hour >= 18:
		return "Evening"
	default:
		return ""
	}
}

func isWeekend(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}

// topTwo returns the at most two most frequent values, ties broken by
// first appearance.
func topTwo(values []string) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var distinct []string
	for i, v := range values {
		if counts[v] == 0 {
			firstSeen[v] = i
			distinct = append(distinct, v)
		}
		counts[v]++
	}
	sort.SliceStable(distinct, func(i, j int) bool {
		if counts[distinct[i]] != counts[distinct[j]] {
			return counts[distinct[i]] > counts[distinct[j]]
		}
		return firstSeen[distinct[i]] < firstSeen[distinct[j]]
	})
	if len(distinct) > 2 {
		distinct = distinct[:2]
	}
	return distinct
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

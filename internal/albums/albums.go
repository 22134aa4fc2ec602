// Package albums materialises the derived album kinds: calendar, place
// and thing albums maintained per photo, and generated event albums.
package albums

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kozaktomas/photo-library/internal/database"
)

// Thing album types.
const (
	ThingPlaces365Attribute = "places365_attribute"
	ThingPlaces365Category  = "places365_category"
	ThingHashtagAttribute   = "hashtag_attribute"
)

// RelinkDate moves the photo into the date album of its resolved
// timestamp, or into the undated album when the timestamp is unknown.
func RelinkDate(ctx context.Context, store database.AlbumStore, photo *database.Photo) error {
	var date *time.Time
	if photo.ExifTimestamp != nil {
		d := photo.ExifTimestamp.DateOnly()
		date = &d
	}
	album, err := store.GetOrCreateAlbumDate(ctx, photo.OwnerID, date)
	if err != nil {
		return fmt.Errorf("date album: %w", err)
	}
	if err := store.RelinkPhotoToAlbumDate(ctx, album.ID, photo.ID); err != nil {
		return fmt.Errorf("relink photo to date album: %w", err)
	}
	return nil
}

// UpdatePlaces rebuilds the photo's place album memberships from its
// geocoded features. The level orders features from the widest area down:
// the first feature gets the highest level. Purely numeric feature texts
// (house numbers, postcodes) never become albums.
func UpdatePlaces(ctx context.Context, store database.AlbumStore, photo *database.Photo) error {
	if err := store.RemovePhotoFromAlbumPlaces(ctx, photo.OwnerID, photo.ID); err != nil {
		return fmt.Errorf("clear place albums: %w", err)
	}
	if photo.Geolocation == nil {
		return nil
	}

	features := photo.Geolocation.Features
	for i, feature := range features {
		if feature.Text == "" || isNumeric(feature.Text) {
			continue
		}
		level := len(features) - i
		album, err := store.GetOrCreateAlbumPlace(ctx, photo.OwnerID, feature.Text, level)
		if err != nil {
			return fmt.Errorf("place album %q: %w", feature.Text, err)
		}
		if err := store.AddPhotoToAlbumPlace(ctx, album.ID, photo.ID); err != nil {
			return fmt.Errorf("add photo to place album %q: %w", feature.Text, err)
		}
	}
	return nil
}

// UpdateThings rebuilds the scene and hashtag thing albums of the photo
// from its current captions.
func UpdateThings(ctx context.Context, store database.AlbumStore, photo *database.Photo) error {
	var attributes, categories []string
	var userCaption string
	if photo.Captions != nil {
		attributes = photo.Captions.Places365.Attributes
		categories = photo.Captions.Places365.Categories
		userCaption = photo.Captions.UserCaption
	}

	if err := replaceThings(ctx, store, photo, ThingPlaces365Attribute, attributes); err != nil {
		return err
	}
	if err := replaceThings(ctx, store, photo, ThingPlaces365Category, categories); err != nil {
		return err
	}
	return replaceThings(ctx, store, photo, ThingHashtagAttribute, hashtags(userCaption))
}

func replaceThings(ctx context.Context, store database.AlbumStore, photo *database.Photo, thingType string, titles []string) error {
	if err := store.RemovePhotoFromAlbumThings(ctx, photo.OwnerID, photo.ID, thingType); err != nil {
		return fmt.Errorf("clear %s albums: %w", thingType, err)
	}
	for _, title := range titles {
		if title == "" {
			continue
		}
		album, err := store.GetOrCreateAlbumThing(ctx, photo.OwnerID, title, thingType)
		if err != nil {
			return fmt.Errorf("thing album %q: %w", title, err)
		}
		if err := store.AddPhotoToAlbumThing(ctx, album.ID, photo.ID); err != nil {
			return fmt.Errorf("add photo to thing album %q: %w", title, err)
		}
	}
	return nil
}

// hashtags extracts #tag tokens from a user caption, without the hash.
func hashtags(caption string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(caption) {
		if !strings.HasPrefix(word, "#") || len(word) < 2 {
			continue
		}
		tag := strings.TrimFunc(word[1:], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

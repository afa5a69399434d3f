package photo

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dukerupert/familyhub/internal/model"
)

// MaxDataURLLength keeps a photo document under the store's per-document
// size ceiling. Clients re-encode at lower quality when they exceed it.
const MaxDataURLLength = 900_000

var (
	ErrInvalidDataURL = errors.New("photo must be an inline image data URL")
	ErrTooLarge       = errors.New("photo is too large")
)

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortOldest    SortOrder = "oldest"
	SortFavorites SortOrder = "favorites"
)

// ParseSortOrder defaults an empty value to newest.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortFavorites:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// ValidateDataURL checks an uploaded image and returns its MIME type.
func ValidateDataURL(url string) (string, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", ErrInvalidDataURL
	}
	mime, payload, ok := strings.Cut(rest, ",")
	if !ok || payload == "" {
		return "", ErrInvalidDataURL
	}
	mime = strings.TrimSuffix(mime, ";base64")
	if !strings.HasPrefix(mime, "image/") {
		return "", ErrInvalidDataURL
	}
	if len(url) > MaxDataURLLength {
		return "", fmt.Errorf("%w: %d characters, limit %d", ErrTooLarge, len(url), MaxDataURLLength)
	}
	return mime, nil
}

// Sorted returns a copy of photos in the given order. Favorites puts
// favorites first, newest first within each group.
func Sorted(photos []model.Photo, order SortOrder) []model.Photo {
	out := slices.Clone(photos)
	newestFirst := func(a, b model.Photo) int { return b.UploadedAt.Compare(a.UploadedAt) }

	switch order {
	case SortOldest:
		slices.SortStableFunc(out, func(a, b model.Photo) int { return a.UploadedAt.Compare(b.UploadedAt) })
	case SortFavorites:
		slices.SortStableFunc(out, func(a, b model.Photo) int {
			if a.IsFavorite != b.IsFavorite {
				if a.IsFavorite {
					return -1
				}
				return 1
			}
			return newestFirst(a, b)
		})
	default:
		slices.SortStableFunc(out, newestFirst)
	}
	return out
}

// Favorites returns only the favorite photos, newest first.
func Favorites(photos []model.Photo) []model.Photo {
	var out []model.Photo
	for _, p := range Sorted(photos, SortNewest) {
		if p.IsFavorite {
			out = append(out, p)
		}
	}
	return out
}

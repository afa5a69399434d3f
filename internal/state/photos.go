package state

import (
	"context"
	"strings"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/photo"
)

// PhotoInput is an uploaded image as a data URL.
type PhotoInput struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

func (a *App) Photos(order photo.SortOrder) []model.Photo {
	return photo.Sorted(a.photos.Items(), order)
}

// FavoritePhotos returns the favorites, newest first.
func (a *App) FavoritePhotos() []model.Photo {
	return photo.Favorites(a.photos.Items())
}

func (a *App) AddPhoto(ctx context.Context, ac auth.AuthContext, in PhotoInput) (model.Photo, error) {
	if err := requireManager(ac, "add photos"); err != nil {
		return model.Photo{}, err
	}
	mime, err := photo.ValidateDataURL(in.URL)
	if err != nil {
		return model.Photo{}, &model.ValidationError{Field: "url", Message: err.Error()}
	}
	p := model.Photo{
		URL:        in.URL,
		Name:       strings.TrimSpace(in.Name),
		Type:       mime,
		UploadedBy: ac.ProfileID,
		UploadedAt: a.now().UTC(),
	}
	id, p, err := addDoc(ctx, a, docstore.Photos, p)
	if err != nil {
		return model.Photo{}, err
	}
	p.ID = id
	a.logger.Info("photo added", "photo_id", id, "type", mime, "bytes", len(in.URL))
	return p, nil
}

// UpdatePhoto renames a photo.
func (a *App) UpdatePhoto(ctx context.Context, ac auth.AuthContext, id string, patch Patch) (model.Photo, error) {
	if err := requireManager(ac, "edit photos"); err != nil {
		return model.Photo{}, err
	}
	return updateDoc[model.Photo](ctx, a, docstore.Photos, id, patch, []string{"name", "isFavorite"}, nil)
}

// ToggleFavorite flips a photo's favorite flag. Anyone can favorite.
func (a *App) ToggleFavorite(ctx context.Context, ac auth.AuthContext, id string) (model.Photo, error) {
	if err := requireProfile(ac); err != nil {
		return model.Photo{}, err
	}
	return mutateDoc(ctx, a, docstore.Photos, id, func(p *model.Photo) error {
		p.IsFavorite = !p.IsFavorite
		return nil
	})
}

func (a *App) DeletePhoto(ctx context.Context, ac auth.AuthContext, id string) error {
	if err := requireManager(ac, "remove photos"); err != nil {
		return err
	}
	return deleteDoc[model.Photo](ctx, a, docstore.Photos, id, nil)
}

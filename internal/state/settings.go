package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/model"
)

// Settings returns the hub settings, or the defaults until the settings
// document exists.
func (a *App) Settings() model.Settings {
	items := a.settings.Items()
	if len(items) == 0 {
		return model.DefaultSettings()
	}
	return items[0]
}

// UpdateSettings applies a partial update. Admins and parents may change
// settings.
func (a *App) UpdateSettings(ctx context.Context, ac auth.AuthContext, patch model.SettingsPatch) (model.Settings, error) {
	if !auth.CanManageTasks(ac.Role) {
		return model.Settings{}, fmt.Errorf("%w: only admins and parents can change settings", ErrForbidden)
	}
	next, err := patch.Apply(a.Settings())
	if err != nil {
		return model.Settings{}, err
	}

	err = a.store.Update(ctx, docstore.Config, docstore.SettingsID, patch.Fields())
	if errors.Is(err, docstore.ErrNotFound) {
		data, encErr := docstore.Encode(next)
		if encErr != nil {
			return model.Settings{}, encErr
		}
		err = a.store.Set(ctx, docstore.Config, docstore.SettingsID, data)
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("update settings: %w", err)
	}
	a.logger.Info("settings updated", "by", ac.ProfileID)
	return next, nil
}

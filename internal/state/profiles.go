package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/session"
)

// ProfileInput is the form for a new profile.
type ProfileInput struct {
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	PIN    string     `json:"pin"`
	Color  string     `json:"color"`
	Avatar string     `json:"avatar"`
}

var profileFields = []string{"name", "role", "color", "avatar"}

func (a *App) Profiles() []model.Profile {
	return a.profiles.Items()
}

func (a *App) Profile(id string) (model.Profile, bool) {
	return a.profiles.Find(func(p model.Profile) bool { return p.ID == id })
}

// CurrentProfile returns the logged-in profile.
func (a *App) CurrentProfile() (model.Profile, bool) {
	id, ok := a.Session.Current()
	if !ok {
		return model.Profile{}, false
	}
	return a.Profile(id)
}

// Touch records user activity on the session.
func (a *App) Touch() {
	a.Session.Touch()
}

// NeedsSetup reports whether the hub has no profiles yet.
func (a *App) NeedsSetup() bool {
	return len(a.profiles.Items()) == 0
}

// Login switches the session to profileID, checking the PIN when the hub
// requires one and the profile has one.
func (a *App) Login(profileID, pin string) (model.Profile, error) {
	p, ok := a.Profile(profileID)
	if !ok {
		return model.Profile{}, session.ErrProfileNotFound
	}
	if err := a.Session.Login(p, pin, a.Settings().RequirePin); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// VerifyPIN checks pin against a profile without changing the session.
func (a *App) VerifyPIN(profileID, pin string) bool {
	p, ok := a.Profile(profileID)
	return ok && session.CheckPIN(p, pin)
}

// ActAs authorizes a one-off action for profileID without logging it in,
// as the home screen does when someone taps their chore or task. The PIN is
// only checked when the hub requires PINs and the profile has one.
func (a *App) ActAs(profileID, pin string) (auth.AuthContext, error) {
	p, ok := a.Profile(profileID)
	if !ok {
		return auth.AuthContext{}, session.ErrProfileNotFound
	}
	if a.Settings().RequirePin && !a.VerifyPIN(p.ID, pin) {
		a.logger.Warn("pin mismatch", "profile_id", profileID, "action", "quick")
		return auth.AuthContext{}, session.ErrIncorrectPIN
	}
	return auth.ForProfile(p), nil
}

// AddProfile creates a profile with zero points. Only admins may add
// profiles, except on a hub with none, whose first profile must be an admin.
func (a *App) AddProfile(ctx context.Context, ac auth.AuthContext, in ProfileInput) (model.Profile, error) {
	if a.NeedsSetup() {
		if in.Role != model.RoleAdmin {
			return model.Profile{}, &model.ValidationError{Field: "role", Message: "the first profile must be an admin"}
		}
	} else if !auth.CanManageUsers(ac.Role) {
		return model.Profile{}, fmt.Errorf("%w: only admins can add profiles", ErrForbidden)
	}

	p := model.Profile{
		Name:      strings.TrimSpace(in.Name),
		Role:      in.Role,
		Color:     in.Color,
		Avatar:    in.Avatar,
		Points:    0,
		CreatedAt: a.now().UTC(),
	}
	if in.PIN != "" {
		hash, err := session.HashPIN(in.PIN)
		if err != nil {
			return model.Profile{}, err
		}
		p.PINHash = hash
	}

	id, p, err := addDoc(ctx, a, docstore.Users, p)
	if err != nil {
		return model.Profile{}, err
	}
	p.ID = id
	a.logger.Info("profile added", "profile_id", id, "role", p.Role)
	return p, nil
}

// UpdateProfile edits name, role, color or avatar.
func (a *App) UpdateProfile(ctx context.Context, ac auth.AuthContext, id string, patch Patch) (model.Profile, error) {
	if !auth.CanManageUsers(ac.Role) {
		return model.Profile{}, fmt.Errorf("%w: only admins can edit profiles", ErrForbidden)
	}
	var authorize func(docstore.Tx, model.Profile) error
	if role, ok := patch["role"]; ok && role != string(model.RoleAdmin) {
		authorize = keepAnAdmin
	}
	return updateDoc[model.Profile](ctx, a, docstore.Users, id, patch, profileFields, authorize)
}

// DeleteProfile removes a profile. The last admin cannot be removed.
func (a *App) DeleteProfile(ctx context.Context, ac auth.AuthContext, id string) error {
	if !auth.CanManageUsers(ac.Role) {
		return fmt.Errorf("%w: only admins can remove profiles", ErrForbidden)
	}
	if err := deleteDoc[model.Profile](ctx, a, docstore.Users, id, keepAnAdmin); err != nil {
		return err
	}
	a.logger.Info("profile deleted", "profile_id", id)
	return nil
}

// SetPIN replaces a profile's PIN. Admins may set any PIN; others only
// their own.
func (a *App) SetPIN(ctx context.Context, ac auth.AuthContext, id, pin string) error {
	if !auth.CanManageUsers(ac.Role) && ac.ProfileID != id {
		return fmt.Errorf("%w: cannot change another profile's PIN", ErrForbidden)
	}
	hash, err := session.HashPIN(pin)
	if err != nil {
		return err
	}
	return a.setPINHash(ctx, id, hash)
}

// ClearPIN removes a profile's PIN.
func (a *App) ClearPIN(ctx context.Context, ac auth.AuthContext, id string) error {
	if !auth.CanManageUsers(ac.Role) && ac.ProfileID != id {
		return fmt.Errorf("%w: cannot change another profile's PIN", ErrForbidden)
	}
	return a.setPINHash(ctx, id, "")
}

// ResetPIN clears a PIN without a session, for maintenance tooling.
func (a *App) ResetPIN(ctx context.Context, id string) error {
	return a.setPINHash(ctx, id, "")
}

func (a *App) setPINHash(ctx context.Context, id, hash string) error {
	var value any = hash
	if hash == "" {
		value = nil
	}
	_, err := updateDoc[model.Profile](ctx, a, docstore.Users, id, Patch{"pinHash": value}, []string{"pinHash"}, nil)
	return err
}

// keepAnAdmin fails if current is the only admin profile. The admins are
// read inside tx, so two removals racing cannot both pass.
func keepAnAdmin(tx docstore.Tx, current model.Profile) error {
	if current.Role != model.RoleAdmin {
		return nil
	}
	admins, err := tx.Where(docstore.Users, "role", string(model.RoleAdmin))
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if len(admins) <= 1 {
		return ErrLastAdmin
	}
	return nil
}

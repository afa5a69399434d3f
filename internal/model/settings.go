package model

import (
	"slices"
	"strings"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
	ThemeAuto  Theme = "auto"
)

// AutoLockChoices are the inactivity thresholds offered to households.
// Zero disables auto-lock.
var AutoLockChoices = []int{0, 1, 2, 5, 10, 15, 30}

// Settings is the singleton hub configuration document.
type Settings struct {
	FamilyName      string `json:"familyName"`
	Use24Hour       bool   `json:"use24Hour"`
	AutoDim         bool   `json:"autoDim"`
	RequirePin      bool   `json:"requirePin"`
	AutoLockMinutes int    `json:"autoLockMinutes"`
	Theme           Theme  `json:"theme"`
}

func DefaultSettings() Settings {
	return Settings{
		FamilyName:      "Our Family",
		Use24Hour:       false,
		AutoDim:         true,
		RequirePin:      true,
		AutoLockMinutes: 5,
		Theme:           ThemeDark,
	}
}

func (s *Settings) Validate() error {
	if strings.TrimSpace(s.FamilyName) == "" {
		return invalid("familyName", "is required")
	}
	if s.AutoLockMinutes < 0 {
		return invalid("autoLockMinutes", "must not be negative")
	}
	switch s.Theme {
	case ThemeDark, ThemeLight, ThemeAuto:
	default:
		return invalid("theme", "must be dark, light or auto")
	}
	return nil
}

// SettingsPatch is a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	FamilyName      *string `json:"familyName,omitempty"`
	Use24Hour       *bool   `json:"use24Hour,omitempty"`
	AutoDim         *bool   `json:"autoDim,omitempty"`
	RequirePin      *bool   `json:"requirePin,omitempty"`
	AutoLockMinutes *int    `json:"autoLockMinutes,omitempty"`
	Theme           *Theme  `json:"theme,omitempty"`
}

// Apply returns s with the patch applied. The result is validated, and an
// auto-lock value outside AutoLockChoices is rejected.
func (p SettingsPatch) Apply(s Settings) (Settings, error) {
	if p.FamilyName != nil {
		s.FamilyName = strings.TrimSpace(*p.FamilyName)
	}
	if p.Use24Hour != nil {
		s.Use24Hour = *p.Use24Hour
	}
	if p.AutoDim != nil {
		s.AutoDim = *p.AutoDim
	}
	if p.RequirePin != nil {
		s.RequirePin = *p.RequirePin
	}
	if p.AutoLockMinutes != nil {
		if !slices.Contains(AutoLockChoices, *p.AutoLockMinutes) {
			return s, invalid("autoLockMinutes", "must be one of 0, 1, 2, 5, 10, 15, 30")
		}
		s.AutoLockMinutes = *p.AutoLockMinutes
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Fields returns the patch as a top-level field map for a document update.
func (p SettingsPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.FamilyName != nil {
		fields["familyName"] = strings.TrimSpace(*p.FamilyName)
	}
	if p.Use24Hour != nil {
		fields["use24Hour"] = *p.Use24Hour
	}
	if p.AutoDim != nil {
		fields["autoDim"] = *p.AutoDim
	}
	if p.RequirePin != nil {
		fields["requirePin"] = *p.RequirePin
	}
	if p.AutoLockMinutes != nil {
		fields["autoLockMinutes"] = int64(*p.AutoLockMinutes)
	}
	if p.Theme != nil {
		fields["theme"] = string(*p.Theme)
	}
	return fields
}

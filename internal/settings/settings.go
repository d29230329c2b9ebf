// Package settings resolves per-user provider overrides: API keys that take
// precedence over the system ones and a preferred model per provider.
package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/blueberrycongee/recall/internal/provider"
)

// ErrMissingUser is returned when a lookup has no user ID.
var ErrMissingUser = errors.New("settings: user id is required")

// UserSettings holds one user's overrides. Provider names are matched
// case-insensitively. A nil *UserSettings has no overrides.
type UserSettings struct {
	PreferredProvider string            `yaml:"preferred_provider" json:"preferred_provider,omitempty"`
	APIKeys           map[string]string `yaml:"api_keys" json:"api_keys,omitempty"`
	PreferredModels   map[string]string `yaml:"preferred_models" json:"preferred_models,omitempty"`
}

var _ provider.Preferences = (*UserSettings)(nil)

// APIKey implements provider.Preferences.
func (u *UserSettings) APIKey(name string) string {
	if u == nil {
		return ""
	}
	return u.APIKeys[normalize(name)]
}

// PreferredModel implements provider.Preferences.
func (u *UserSettings) PreferredModel(name string) string {
	if u == nil {
		return ""
	}
	return u.PreferredModels[normalize(name)]
}

// Provider returns the preferred provider, or "" for none.
func (u *UserSettings) Provider() string {
	if u == nil {
		return ""
	}
	return normalize(u.PreferredProvider)
}

func (u UserSettings) normalized() *UserSettings {
	out := &UserSettings{
		PreferredProvider: normalize(u.PreferredProvider),
		APIKeys:           make(map[string]string, len(u.APIKeys)),
		PreferredModels:   make(map[string]string, len(u.PreferredModels)),
	}
	for k, v := range u.APIKeys {
		if v = strings.TrimSpace(v); v != "" {
			out.APIKeys[normalize(k)] = v
		}
	}
	for k, v := range u.PreferredModels {
		if v = strings.TrimSpace(v); v != "" {
			out.PreferredModels[normalize(k)] = v
		}
	}
	return out
}

// Store looks up user settings. Unknown users have no overrides and are
// not an error.
type Store interface {
	Get(ctx context.Context, userID string) (*UserSettings, error)
}

// StaticStore serves settings fixed at construction, typically from the
// users section of the config file.
type StaticStore struct {
	users map[string]*UserSettings
}

// NewStaticStore creates a StaticStore from a user ID to settings map.
func NewStaticStore(users map[string]UserSettings) *StaticStore {
	s := &StaticStore{users: make(map[string]*UserSettings, len(users))}
	for id, u := range users {
		s.users[id] = u.normalized()
	}
	return s
}

// Get implements Store.
func (s *StaticStore) Get(_ context.Context, userID string) (*UserSettings, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return &UserSettings{}, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

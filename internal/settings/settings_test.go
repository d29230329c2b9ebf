package settings

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/recall/internal/provider"
)

func TestStaticStore(t *testing.T) {
	store := NewStaticStore(map[string]UserSettings{
		"alice": {
			PreferredProvider: " Groq ",
			APIKeys:           map[string]string{"Gemini": "AIza-user", "groq": "  "},
			PreferredModels:   map[string]string{"COHERE": "command-r"},
		},
	})
	ctx := context.Background()

	u, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "groq", u.Provider())
	assert.Equal(t, "AIza-user", u.APIKey("gemini"))
	assert.Empty(t, u.APIKey("groq"), "blank keys are not overrides")
	assert.Equal(t, "command-r", u.PreferredModel("Cohere"))

	other, err := store.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, other.APIKey("gemini"))
	assert.Empty(t, other.Provider())

	_, err = store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestNilSettingsHaveNoOverrides(t *testing.T) {
	var u *UserSettings
	assert.Empty(t, u.APIKey("gemini"))
	assert.Empty(t, u.PreferredModel("gemini"))
	assert.Empty(t, u.Provider())
}

func TestUserSettingsDriveRegistry(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register(provider.Spec{Name: "gemini", DefaultModel: "g"})
	reg.Configure("gemini", provider.Settings{APIKey: "system"})

	u, err := NewStaticStore(map[string]UserSettings{
		"alice": {APIKeys: map[string]string{"gemini": "user"}, PreferredModels: map[string]string{"gemini": "g-pro"}},
	}).Get(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "user", reg.ResolveKey("gemini", "", u))
	assert.Equal(t, "g-pro", reg.ResolveModel("gemini", "", u))
}

type countingStore struct {
	calls atomic.Int64
	err   error
}

func (c *countingStore) Get(_ context.Context, userID string) (*UserSettings, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &UserSettings{PreferredProvider: userID}, nil
}

func TestCachedStore(t *testing.T) {
	next := &countingStore{}
	c := NewCachedStore(next, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := c.Get(ctx, "cohere")
		require.NoError(t, err)
		assert.Equal(t, "cohere", u.Provider())
	}
	assert.EqualValues(t, 1, next.calls.Load())

	_, err := c.Get(ctx, "groq")
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCachedStore_Expires(t *testing.T) {
	next := &countingStore{}
	c := NewCachedStore(next, 20*time.Millisecond)
	ctx := context.Background()

	_, err := c.Get(ctx, "groq")
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = c.Get(ctx, "groq")
	require.NoError(t, err)

	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCachedStore_ErrorsNotCached(t *testing.T) {
	next := &countingStore{err: errors.New("db down")}
	c := NewCachedStore(next, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := c.Get(context.Background(), "alice")
		require.Error(t, err)
	}
	assert.EqualValues(t, 2, next.calls.Load())

	_, err := c.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingUser)
	assert.EqualValues(t, 2, next.calls.Load())
}

package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadKeepsDefaultsForAbsentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("[classpath]\nfind_other_project = false\n"), 0o600))
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SpaceHasAnnotation, s.Formatting.PropsSpaceLine)
	assert.True(t, s.Classpath.FindBuilder)
	assert.False(t, s.Classpath.FindOtherProject)
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("[formatting]\nprops_space_line = \"sometimes\"\n"), 0o600))
	s, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, Default(), s)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")
	want := Default()
	want.Formatting.PropsSpaceLine = SpaceAlways
	want.Classpath.FindBuilder = false
	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMergeClientSettings(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		changed bool
		check   func(t *testing.T, s Settings)
	}{
		{"empty", ``, false, nil},
		{"bare", `{"formatting":{"propsSpaceLine":"never"}}`, true, func(t *testing.T, s Settings) {
			assert.Equal(t, SpaceNever, s.Formatting.PropsSpaceLine)
		}},
		{"nested", `{"jimmer":{"classpath":{"findBuilder":false}}}`, true, func(t *testing.T, s Settings) {
			assert.False(t, s.Classpath.FindBuilder)
			assert.True(t, s.Classpath.FindConfiguration)
		}},
		{"invalid policy ignored", `{"formatting":{"propsSpaceLine":"odd"}}`, false, nil},
		{"not json", `[1,`, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Default().Merge([]byte(tt.raw))
			if changed != tt.changed {
				t.Fatalf("changed = %v, want %v", changed, tt.changed)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestPathHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	p, err := Path("dtolsp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cfg", "dtolsp", "settings.toml"), p)
}

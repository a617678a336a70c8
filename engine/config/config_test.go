package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-apng/engine/playback"
)

func TestDefaultIsValid(t *testing.T) {
	paths, err := Validate(Schema, Default())
	assert.NoError(t, err)
	assert.Empty(t, paths)

	mode, loop, fps, err := Default().Playback.Settings()
	require.NoError(t, err)
	assert.Equal(t, playback.ModeVariableRate, mode)
	assert.True(t, loop)
	assert.Equal(t, 30, fps)
}

func TestParseKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Parse([]byte(`
[playback]
mode = "fixed"
`))
	require.NoError(t, err)
	assert.Equal(t, Playback{Mode: "fixed", Loop: true, FixedFrameRate: 30}, cfg.Playback)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(`
[playback]
mode = "fixed"
loop = false
fixed_frame_rate = 12

[log]
level = "DEBUG"
`))
	require.NoError(t, err)
	mode, loop, fps, err := cfg.Playback.Settings()
	require.NoError(t, err)
	assert.Equal(t, playback.ModeFixedRate, mode)
	assert.False(t, loop)
	assert.Equal(t, 12, fps)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestParseRejects(t *testing.T) {
	for _, test := range []struct {
		name string
		data string
		path []string
	}{
		{
			name: "fixed_zero_rate",
			data: "[playback]\nmode = \"fixed\"\nfixed_frame_rate = 0\n",
			path: []string{"playback", "fixed_frame_rate"},
		},
		{
			name: "fixed_negative_rate",
			data: "[playback]\nmode = \"fixed\"\nfixed_frame_rate = -5\n",
			path: []string{"playback", "fixed_frame_rate"},
		},
		{
			name: "unknown_mode",
			data: "[playback]\nmode = \"fps\"\n",
			path: []string{"playback", "mode"},
		},
		{
			name: "bad_level",
			data: "[log]\nlevel = \"loud\"\n",
			path: []string{"log", "level"},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.data))
			assert.Error(t, err)

			cfg := Default()
			_, err = toml.Decode(test.data, &cfg)
			require.NoError(t, err)
			paths, err := Validate(Schema, cfg)
			assert.Error(t, err)
			assert.Contains(t, paths, test.path)
		})
	}
}

func TestVariableModeIgnoresRate(t *testing.T) {
	_, err := Parse([]byte("[playback]\nmode = \"variable\"\nfixed_frame_rate = 0\n"))
	assert.NoError(t, err)
}

func TestParseSyntaxAndUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[playback\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("[playback]\nfps = 30\n"))
	assert.ErrorContains(t, err, "playback.fps")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.toml")
	require.NoError(t, os.WriteFile(path, []byte("[playback]\nloop = false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Playback.Loop)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLogLevelFallback(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, Log{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Log{Level: ""}.SlogLevel())
}

func TestUnique(t *testing.T) {
	got := unique([][]string{{"b"}, {"a", "x"}, {"b"}, {"a"}, {"a", "x"}})
	assert.Equal(t, [][]string{{"a"}, {"a", "x"}, {"b"}}, got)
	assert.Empty(t, unique(nil))
}

// package config loads, validates and watches the player's TOML configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Carmen-Shannon/oxy-apng/engine/playback"
)

// Schema is the CUE schema a configuration must satisfy after defaults are applied.
const Schema = `
{
	playback: _#playback
	log:      _#log
}

_#playback: P={
	mode:             "fixed" | "variable"
	loop:             bool
	fixed_frame_rate: int
	if P.mode == "fixed" {
		fixed_frame_rate: >0
	}
}

_#log: {
	level: =~"(?i)^(?:debug|info|warn|error)$"
}
`

// Config is the player configuration.
type Config struct {
	Playback Playback `toml:"playback" json:"playback"`
	Log      Log      `toml:"log" json:"log"`
}

// Playback holds the pacing settings applied to the scheduler.
type Playback struct {
	// Mode is "fixed" or "variable".
	Mode string `toml:"mode" json:"mode"`

	// Loop wraps playback to the first frame at the end of the sequence.
	Loop bool `toml:"loop" json:"loop"`

	// FixedFrameRate is the refresh rate in frames per second used in fixed mode.
	FixedFrameRate int `toml:"fixed_frame_rate" json:"fixed_frame_rate"`
}

// Log holds logger settings.
type Log struct {
	Level string `toml:"level" json:"level"`
}

// Default returns the configuration used when no file is given: variable rate, looping, 30 fps for fixed mode.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Playback: Playback{
			Mode:           playback.ModeVariableRate.String(),
			Loop:           true,
			FixedFrameRate: 30,
		},
		Log: Log{Level: "info"},
	}
}

// Parse decodes TOML data over the defaults and validates the result against Schema.
// Keys missing from data keep their default values.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the decoded configuration
//   - error: a TOML syntax error or a CUE validation error
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: unknown keys: %s", strings.Join(keys, ", "))
	}
	if _, err := Validate(Schema, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
//
// Parameters:
//   - path: the TOML file path
//
// Returns:
//   - Config: the decoded configuration
//   - error: a read, syntax or validation error
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(b)
}

// Settings converts the playback section into scheduler settings.
//
// Returns:
//   - playback.Mode: the pacing policy
//   - bool: whether playback loops
//   - int: frames per second for fixed-rate playback
//   - error: an error if the mode is unknown
func (p Playback) Settings() (playback.Mode, bool, int, error) {
	mode, err := playback.ParseMode(p.Mode)
	if err != nil {
		return 0, false, 0, err
	}
	return mode, p.Loop, p.FixedFrameRate, nil
}

// SlogLevel returns the slog level named by the log section. Unknown names map to info.
//
// Returns:
//   - slog.Level: the level
func (l Log) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

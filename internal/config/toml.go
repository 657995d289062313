// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/xpradar/internal/radar"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Vault VaultConfig `toml:"vault"`
	XP    XPConfig    `toml:"xp"`
	App   AppConfig   `toml:"app"`
	Chart ChartConfig `toml:"chart"`
}

// VaultConfig maps the corpus location and tag names.
type VaultConfig struct {
	Path        *string `toml:"path"`
	SubStatTag  *string `toml:"sub-stat-tag"`
	MainStatTag *string `toml:"main-stat-tag"`
	Template    *string `toml:"template"`
}

// XPConfig maps leveling settings.
type XPConfig struct {
	Multiplier     *float64 `toml:"multiplier"`
	LevelFormula   *string  `toml:"level-formula"`
	LevelExponent  *float64 `toml:"level-exponent"`
	MainToSubRatio *float64 `toml:"main-to-sub-ratio"`
	ForceUpdate    *bool    `toml:"force-update-files"`
}

// AppConfig maps process-level settings.
type AppConfig struct {
	Debug             *bool   `toml:"debug"`
	AutoSyncOnStartup *bool   `toml:"auto-sync-on-startup"`
	StartupDelay      *string `toml:"startup-delay"`
	Workers           *int    `toml:"workers"`
	DB                *string `toml:"db"`
	LogFile           *string `toml:"log-file"`
}

// ChartConfig maps radar chart appearance.
type ChartConfig struct {
	Size             *int     `toml:"size"`
	FillColor        *string  `toml:"fill-color"`
	StrokeColor      *string  `toml:"stroke-color"`
	GridColor        *string  `toml:"grid-color"`
	LabelColor       *string  `toml:"label-color"`
	BgColor          *string  `toml:"bg-color"`
	PointRadius      *float64 `toml:"point-radius"`
	FillOpacity      *float64 `toml:"fill-opacity"`
	GridCount        *int     `toml:"grid-count"`
	FontFamily       *string  `toml:"font-family"`
	StrokeWidth      *float64 `toml:"stroke-width"`
	ShowProgressBars *bool    `toml:"show-progress-bars"`
	MaxLevel         *int     `toml:"max-level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Exponent returns the configured curve exponent. A numeric level-exponent
// wins over the level-formula string. Nil means neither is set.
func (c XPConfig) Exponent() (*float64, error) {
	if c.LevelExponent != nil {
		v := *c.LevelExponent
		return &v, nil
	}
	if c.LevelFormula == nil {
		return nil, nil
	}
	v, err := ParseLevelFormula(*c.LevelFormula)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseLevelFormula reads the exponent from a level formula such as "1.5"
// or "^1.5".
func ParseLevelFormula(formula string) (float64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(formula), "^")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid level-formula %q: expected an exponent such as \"1.5\"", formula)
	}
	return v, nil
}

// Delay returns the parsed startup delay. Bare numbers are milliseconds.
func (c AppConfig) Delay() (*time.Duration, error) {
	if c.StartupDelay == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*c.StartupDelay)
	if ms, err := strconv.Atoi(s); err == nil {
		d := time.Duration(ms) * time.Millisecond
		return &d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid startup-delay %q: %w", s, err)
	}
	return &d, nil
}

// Apply copies every set chart value onto opts.
func (c ChartConfig) Apply(opts *radar.SVGOptions) {
	setIf(&opts.Size, c.Size)
	setIf(&opts.FillColor, c.FillColor)
	setIf(&opts.StrokeColor, c.StrokeColor)
	setIf(&opts.GridColor, c.GridColor)
	setIf(&opts.LabelColor, c.LabelColor)
	setIf(&opts.BgColor, c.BgColor)
	setIf(&opts.PointRadius, c.PointRadius)
	setIf(&opts.FillOpacity, c.FillOpacity)
	setIf(&opts.GridCount, c.GridCount)
	setIf(&opts.FontFamily, c.FontFamily)
	setIf(&opts.StrokeWidth, c.StrokeWidth)
	setIf(&opts.ShowProgressBars, c.ShowProgressBars)
	setIf(&opts.MaxLevel, c.MaxLevel)
}

func setIf[T any](target, value *T) {
	if value != nil {
		*target = *value
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return home + strings.TrimPrefix(path, "~")
}

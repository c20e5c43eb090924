// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Build BuildConfig `toml:"build"`
	Plot  PlotConfig  `toml:"plot"`
	PTBXL PTBXLConfig `toml:"ptbxl"`
}

// BuildConfig maps dataset build settings.
type BuildConfig struct {
	Ext         *string         `toml:"ext"`
	Window      *float64        `toml:"window"`
	Expand      *bool           `toml:"expand"`
	Radius      *int            `toml:"radius"`
	Normalize   *bool           `toml:"normalize"`
	Smooth      *int            `toml:"smooth"`
	BeatSymbols []string        `toml:"beat-symbols"`
	Exclusions  []ExclusionRule `toml:"exclusion"`
}

// ExclusionRule maps one [[build.exclusion]] table.
type ExclusionRule struct {
	Match         string   `toml:"match"`
	Disqualifying []string `toml:"disqualifying-symbols"`
	SkipRecords   []string `toml:"skip-records"`
}

// PlotConfig maps plot settings.
type PlotConfig struct {
	Width  *int  `toml:"width"`
	Height *int  `toml:"height"`
	Color  *bool `toml:"color"`
}

// PTBXLConfig maps PTB-XL loader settings.
type PTBXLConfig struct {
	Class      *string `toml:"class"`
	Rate       *int    `toml:"rate"`
	Lead       *int    `toml:"lead"`
	Limit      *int    `toml:"limit"`
	TargetRate *int    `toml:"target-rate"`
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
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

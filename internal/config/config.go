// Package config provides Viper-based configuration loading for wichtel.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FlagKeys maps command-line flag names to the configuration keys they override.
var FlagKeys = map[string]string{
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"dice":         "game.dice_count",
	"mode":         "game.mode",
	"sound":        "game.sound_enabled",
	"marker":       "game.special_marker",
	"rules-dir":    "game.rules_dir",
	"scripts-dir":  "game.scripts_dir",
	"animation":    "presentation.animation_duration",
	"watchdog":     "presentation.watchdog_timeout",
	"style":        "presentation.style",
	"metrics-addr": "metrics.addr",
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameConfig holds the settings the roll engine reads.
type GameConfig struct {
	// DiceCount is 1 or 2.
	DiceCount int `mapstructure:"dice_count"`
	// Mode is the game variant, e.g. "classic" or "pig".
	Mode string `mapstructure:"mode"`
	// SoundEnabled gates sound cues.
	SoundEnabled bool `mapstructure:"sound_enabled"`
	// SpecialMarker is the token that flags a rule as a joker.
	SpecialMarker string `mapstructure:"special_marker"`
	// RulesDir optionally holds YAML rule tables overriding the built-ins.
	RulesDir string `mapstructure:"rules_dir"`
	// ScriptsDir optionally holds <mode>.lua files defining is_special.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// ScriptInstructionLimit caps Lua opcodes per hook call; 0 = default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// PresentationConfig holds terminal presenter settings.
type PresentationConfig struct {
	// AnimationDuration is how long the dice "roll" before the rule is revealed.
	AnimationDuration time.Duration `mapstructure:"animation_duration"`
	// TickInterval is the rolling sound cue period; 0 disables it.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// WatchdogTimeout force-reveals a stuck roll; 0 disables the watchdog.
	WatchdogTimeout time.Duration `mapstructure:"watchdog_timeout"`
	// Style is the glamour style: "auto", "dark", "light", "notty".
	Style string `mapstructure:"style"`
}

// MetricsConfig holds the optional Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging      LoggingConfig      `mapstructure:"logging"`
	Game         GameConfig         `mapstructure:"game"`
	Presentation PresentationConfig `mapstructure:"presentation"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validatePresentation(c.Presentation); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.DiceCount != 1 && g.DiceCount != 2 {
		errs = append(errs, fmt.Sprintf("game.dice_count must be 1 or 2, got %d", g.DiceCount))
	}
	if g.Mode == "" {
		errs = append(errs, "game.mode must not be empty")
	}
	if g.SpecialMarker == "" {
		errs = append(errs, "game.special_marker must not be empty")
	}
	if g.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("game.script_instruction_limit must be >= 0, got %d", g.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validatePresentation(p PresentationConfig) error {
	var errs []string
	if p.AnimationDuration < 0 {
		errs = append(errs, "presentation.animation_duration must not be negative")
	}
	if p.TickInterval < 0 {
		errs = append(errs, "presentation.tick_interval must not be negative")
	}
	if p.WatchdogTimeout < 0 {
		errs = append(errs, "presentation.watchdog_timeout must not be negative")
	}
	if p.WatchdogTimeout > 0 && p.WatchdogTimeout <= p.AnimationDuration {
		errs = append(errs, "presentation.watchdog_timeout must exceed presentation.animation_duration")
	}
	validStyles := map[string]bool{"auto": true, "dark": true, "light": true, "notty": true}
	if !validStyles[p.Style] {
		errs = append(errs, fmt.Sprintf("presentation.style must be one of [auto, dark, light, notty], got %q", p.Style))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// and flag overrides, and validates the result. An empty path uses defaults and
// environment only. Flags named in FlagKeys take precedence when set.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string, flags ...*pflag.FlagSet) (Config, error) {
	v := viper.New()

	// Environment variable overrides with WICHTEL_ prefix
	v.SetEnvPrefix("WICHTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	for _, fs := range flags {
		if err := BindFlags(v, fs); err != nil {
			return Config{}, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BindFlags binds every flag in fs that appears in FlagKeys to its key on v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("game.dice_count", 1)
	v.SetDefault("game.mode", "classic")
	v.SetDefault("game.sound_enabled", true)
	v.SetDefault("game.special_marker", "Joker")
	v.SetDefault("game.rules_dir", "")
	v.SetDefault("game.scripts_dir", "")
	v.SetDefault("game.script_instruction_limit", 0)

	v.SetDefault("presentation.animation_duration", "1100ms")
	v.SetDefault("presentation.tick_interval", "150ms")
	v.SetDefault("presentation.watchdog_timeout", "0s")
	v.SetDefault("presentation.style", "auto")

	v.SetDefault("metrics.addr", "")
}

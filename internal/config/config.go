// Package config loads board settings from an optional TOML file over
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"ClassBoard/internal/raster"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

type Server struct {
	BaseURL  string        `toml:"base_url"`
	Timeout  time.Duration `toml:"timeout"`
	Discover bool          `toml:"discover"`
}

type Session struct {
	ID       string `toml:"id"`
	ReadOnly bool   `toml:"read_only"`
}

type Actor struct {
	Role string `toml:"role"`
	Name string `toml:"name"`
}

type Board struct {
	Width         int           `toml:"width"`
	Height        int           `toml:"height"`
	Background    string        `toml:"background"`
	AutosaveDelay time.Duration `toml:"autosave_delay"`
	BrushSize     float64       `toml:"brush_size"`
	FontSize      float64       `toml:"font_size"`
	Color         string        `toml:"color"`
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

type Listen struct {
	Port int `toml:"port"`
}

type Config struct {
	Server  Server  `toml:"server"`
	Session Session `toml:"session"`
	Actor   Actor   `toml:"actor"`
	Board   Board   `toml:"board"`
	Log     Log     `toml:"log"`
	Listen  Listen  `toml:"listen"`
}

const DefaultPort = 8888

func Default() Config {
	return Config{
		Server: Server{
			BaseURL: fmt.Sprintf("http://127.0.0.1:%d", DefaultPort),
			Timeout: 10 * time.Second,
		},
		Actor: Actor{Role: "tutor"},
		Board: Board{
			Width:         1280,
			Height:        720,
			Background:    "#FFFFFF",
			AutosaveDelay: 5 * time.Second,
			BrushSize:     4,
			FontSize:      16,
			Color:         "#000000",
		},
		Log:    Log{Level: "info"},
		Listen: Listen{Port: DefaultPort},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// optional is set.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, os.ErrNotExist) && optional:
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
	}
	return cfg, cfg.Validate()
}

// Parse decodes TOML text over the defaults.
func Parse(text string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Board.Width <= 0 || c.Board.Height <= 0 {
		return fmt.Errorf("board size %dx%d must be positive", c.Board.Width, c.Board.Height)
	}
	if c.Board.BrushSize <= 0 || c.Board.FontSize <= 0 {
		return errors.New("brush and font size must be positive")
	}
	for _, col := range []string{c.Board.Background, c.Board.Color} {
		if _, err := raster.ParseColor(col); err != nil {
			return fmt.Errorf("board colour: %w", err)
		}
	}
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen port %d out of range", c.Listen.Port)
	}
	return nil
}

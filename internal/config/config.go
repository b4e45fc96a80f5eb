// Package config handles viewer configuration loading and management.
package config

// Config holds all toolkit and viewer settings.
type Config struct {
	Display DisplayConfig `yaml:"display"`
	Render  RenderConfig  `yaml:"render"`
	Scene   SceneConfig   `yaml:"scene"`
	Logging LoggingConfig `yaml:"logging"`
}

// DisplayConfig holds window settings.
type DisplayConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	FPSLimit   int    `yaml:"fps_limit"`
}

// RenderConfig holds defaults applied when geometry buffers are built and drawn.
type RenderConfig struct {
	ClearColor    [4]float32 `yaml:"clear_color"`
	SmoothNormals bool       `yaml:"smooth_normals"` // average face normals when none are supplied
	NTiles        float32    `yaml:"ntiles"`         // texture tiling override, 0 keeps each buffer's value
	Shininess     float32    `yaml:"shininess"`      // override, 0 keeps each buffer's value
	FieldOfView   float32    `yaml:"fov"`            // degrees
}

// SceneConfig holds the demo scene contents.
type SceneConfig struct {
	ModelPath   string  `yaml:"model_path"` // optional Wavefront OBJ
	Text        string  `yaml:"text"`
	LodGrid     int     `yaml:"lod_grid"`
	SpriteSize  float32 `yaml:"sprite_size"`
	BlendSprite bool    `yaml:"blend_sprite"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Title:      "glshape viewer",
			Width:      1024,
			Height:     768,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
		},
		Render: RenderConfig{
			ClearColor:    [4]float32{0.1, 0.1, 0.15, 1.0},
			SmoothNormals: true,
			NTiles:        0,
			Shininess:     0,
			FieldOfView:   45,
		},
		Scene: SceneConfig{
			ModelPath:   "",
			Text:        "glshape",
			LodGrid:     4,
			SpriteSize:  2.0,
			BlendSprite: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

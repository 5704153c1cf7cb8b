// Package config handles viewer and onion-skin configuration loading.
package config

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Onion    OnionConfig    `yaml:"onion"`
	Overlay  OverlayConfig  `yaml:"overlay"`
	Filter   FilterConfig   `yaml:"filter"`
	Lock     LockConfig     `yaml:"lock"`
	Surface  SurfaceConfig  `yaml:"surface"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// OnionConfig holds onion-skin display settings.
type OnionConfig struct {
	Enabled bool `yaml:"enabled"`
	// Mode is "frames" (fixed steps) or "keyframes" (real keyframes).
	Mode   string `yaml:"mode"`
	Before int    `yaml:"before"`
	After  int    `yaml:"after"`
	Step   int    `yaml:"step"`

	Opacity     float32    `yaml:"opacity"`
	Falloff     float32    `yaml:"falloff"`
	FillOpacity float32    `yaml:"fill_opacity"`
	LineWidth   float32    `yaml:"line_width"`
	BeforeColor [4]float32 `yaml:"before_color"`
	AfterColor  [4]float32 `yaml:"after_color"`

	// StrokeZOffset pushes every skin up on global Z to keep it from
	// clipping behind scene geometry. Added to the baked per-frame offset.
	StrokeZOffset float32 `yaml:"stroke_z_offset"`
}

// OverlayConfig toggles the viewport overlays drawn alongside the skins.
type OverlayConfig struct {
	ShowAnchors    bool       `yaml:"show_anchors"`
	ShowMotionPath bool       `yaml:"show_motion_path"`
	PathColor      [4]float32 `yaml:"path_color"`
	PathWidth      float32    `yaml:"path_width"`
}

// FilterConfig controls which drawing layers are shown as skins.
type FilterConfig struct {
	SkipUnderscore bool   `yaml:"skip_underscore"`
	NameContains   string `yaml:"name_contains"`
}

// LockConfig holds world-lock behavior settings.
type LockConfig struct {
	Enabled bool `yaml:"enabled"`
	// InheritLock locks new keyframes when the previous keyframe is locked.
	InheritLock bool `yaml:"inherit_lock"`
}

// SurfaceConfig holds surface offset bake settings.
type SurfaceConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CacheConfig bounds the in-memory and GPU caches.
type CacheConfig struct {
	StrokeEntries int `yaml:"stroke_entries"`
	BatchEntries  int `yaml:"batch_entries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Onion: OnionConfig{
			Enabled:       true,
			Mode:          "keyframes",
			Before:        2,
			After:         2,
			Step:          1,
			Opacity:       0.5,
			Falloff:       0.7,
			FillOpacity:   0.5,
			LineWidth:     2,
			BeforeColor:   [4]float32{0.1, 0.75, 0.25, 1},
			AfterColor:    [4]float32{0.25, 0.4, 0.9, 1},
			StrokeZOffset: 0,
		},
		Overlay: OverlayConfig{
			ShowAnchors:    false,
			ShowMotionPath: false,
			PathColor:      [4]float32{0.2, 0.8, 1, 0.8},
			PathWidth:      2,
		},
		Filter: FilterConfig{
			SkipUnderscore: true,
		},
		Lock: LockConfig{
			Enabled:     true,
			InheritLock: false,
		},
		Surface: SurfaceConfig{
			Enabled: false,
		},
		Cache: CacheConfig{
			StrokeEntries: 2000,
			BatchEntries:  100,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

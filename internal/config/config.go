package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides the config file path.
const EnvPath = "PH_CONFIG"

// DefaultPath is used when neither the flag nor EnvPath is set.
const DefaultPath = "config.yaml"

// ErrMalformed wraps any decode failure. Callers log it and keep the defaults.
var ErrMalformed = errors.New("malformed config")

// CameraConfig describes the external still-capture program.
type CameraConfig struct {
	Command        string `yaml:"command"`        // e.g. "libcamera-still"
	Width          int    `yaml:"width"`          // capture width in px
	Height         int    `yaml:"height"`         // capture height in px
	TimeoutSeconds int    `yaml:"timeoutSeconds"` // preview time before the shot
	FlashPin       int    `yaml:"flashPin"`       // BCM pin lit during capture. 0 = none.

	Metering   string  `yaml:"metering"`   // centre, spot, average, custom
	EV         float64 `yaml:"ev"`         // exposure compensation, -10 to 10
	AWB        string  `yaml:"awb"`        // white balance mode
	Brightness float64 `yaml:"brightness"` // -1 to 1
	Contrast   float64 `yaml:"contrast"`
	Saturation float64 `yaml:"saturation"`
	Sharpness  float64 `yaml:"sharpness"`
	Framerate  float64 `yaml:"framerate"` // 0 = camera default
}

// MeteringModes are the metering names libcamera-still accepts.
var MeteringModes = []string{"centre", "spot", "average", "custom"}

// WhiteBalanceModes are the awb names libcamera-still accepts.
var WhiteBalanceModes = []string{"auto", "incandescent", "tungsten", "fluorescent", "indoor", "daylight", "cloudy", "custom"}

// WebConfig controls the optional status server.
type WebConfig struct {
	Port int `yaml:"port"` // 0 = disabled
}

// Config is the startup snapshot of every tunable. It is never mutated
// once Load has returned.
type Config struct {
	LoggingPath   string   `yaml:"loggingPath"`
	ImagePath     string   `yaml:"imagePath"`
	USBStorage    bool     `yaml:"usbStorage"` // save to the first removable drive, ImagePath as fallback
	DoneSentences []string `yaml:"doneSentences"`
	BgColor       Color    `yaml:"bgColor"`
	TextColor     *Color   `yaml:"textColor,omitempty"` // nil = complement of BgColor

	PromptText string  `yaml:"promptText"`
	ReadyText  string  `yaml:"readyText"`
	ErrorText  string  `yaml:"errorText"`
	TextSize   float64 `yaml:"textSize"` // font size in px

	LogLevel string `yaml:"logLevel"` // verbose, info, warn, error

	ReadySeconds   int `yaml:"readySeconds"`
	DoneSeconds    int `yaml:"doneSeconds"`
	PreviewSeconds int `yaml:"previewSeconds"`
	ErrorSeconds   int `yaml:"errorSeconds"`

	Camera        CameraConfig `yaml:"camera"`
	TouchDevice   string       `yaml:"touchDevice"`
	DisplayDevice string       `yaml:"displayDevice"`
	MockHardware  bool         `yaml:"mockHardware"` // in-memory display, stdin touch, fake camera
	CatalogPath   string       `yaml:"catalogPath"`  // sqlite file. "" = no catalog
	Web           WebConfig    `yaml:"web"`

	// Path is the file the values were read from, empty when defaults are used.
	Path string `yaml:"-"`
}

// DefaultDoneSentences are shown after a successful capture.
var DefaultDoneSentences = []string{
	"All done!",
	"You look great!",
	"Come closer again",
	"Looking good 😎",
	"Curious to see the result?",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LoggingPath:   "photobooth_log.txt",
		ImagePath:     "images",
		DoneSentences: append([]string(nil), DefaultDoneSentences...),
		BgColor:       0xFF32A8A8,

		PromptText: "Touch the screen\nto take a picture",
		ReadyText:  "Get ready!",
		ErrorText:  "Oops, something went wrong",
		TextSize:   108,

		LogLevel: "info",

		ReadySeconds:   1,
		DoneSeconds:    2,
		PreviewSeconds: 7,
		ErrorSeconds:   10,

		Camera: CameraConfig{
			Command:        "libcamera-still",
			Width:          1920,
			Height:         1080,
			TimeoutSeconds: 5,
			Metering:       "centre",
			AWB:            "auto",
			Contrast:       1,
			Saturation:     1,
			Sharpness:      1,
		},
		TouchDevice:   "/dev/input/event0",
		DisplayDevice: "/dev/fb0",
		CatalogPath:   "photobooth.db",
	}
}

// PathFromEnv returns the config path from EnvPath, or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default value. A missing file is not an error. A malformed file
// yields the defaults together with an error wrapping ErrMalformed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes YAML data over the defaults. path is recorded in Config.Path.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default(), fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	cfg.Path = path

	var problems []string

	if len(cfg.DoneSentences) == 0 {
		problems = append(problems, "doneSentences must not be empty")
		cfg.DoneSentences = append([]string(nil), DefaultDoneSentences...)
	} else {
		for i, s := range cfg.DoneSentences {
			cfg.DoneSentences[i] = decodeEscapes(s)
		}
	}
	cfg.PromptText = decodeEscapes(cfg.PromptText)
	cfg.ReadyText = decodeEscapes(cfg.ReadyText)
	cfg.ErrorText = decodeEscapes(cfg.ErrorText)

	def := Default()
	if cfg.TextSize <= 0 {
		cfg.TextSize = def.TextSize
	}
	if cfg.ReadySeconds < 0 {
		cfg.ReadySeconds = def.ReadySeconds
	}
	if cfg.DoneSeconds < 0 {
		cfg.DoneSeconds = def.DoneSeconds
	}
	if cfg.PreviewSeconds < 0 {
		cfg.PreviewSeconds = def.PreviewSeconds
	}
	if cfg.ErrorSeconds < 0 {
		cfg.ErrorSeconds = def.ErrorSeconds
	}
	if cfg.Camera.Command == "" {
		cfg.Camera.Command = def.Camera.Command
	}
	if cfg.Camera.Width <= 0 {
		cfg.Camera.Width = def.Camera.Width
	}
	if cfg.Camera.Height <= 0 {
		cfg.Camera.Height = def.Camera.Height
	}
	if cfg.Camera.TimeoutSeconds <= 0 {
		cfg.Camera.TimeoutSeconds = def.Camera.TimeoutSeconds
	}
	problems = append(problems, fixCamera(&cfg.Camera, def.Camera)...)
	if cfg.ImagePath == "" {
		problems = append(problems, "imagePath must not be empty")
		cfg.ImagePath = def.ImagePath
	}
	if cfg.LoggingPath == "" {
		problems = append(problems, "loggingPath must not be empty")
		cfg.LoggingPath = def.LoggingPath
	}
	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		problems = append(problems, fmt.Sprintf("web.port must be 0-65535, got %d", cfg.Web.Port))
		cfg.Web.Port = 0
	}

	if len(problems) > 0 {
		return cfg, fmt.Errorf("%w: %s: %s", ErrMalformed, path, strings.Join(problems, "; "))
	}
	return cfg, nil
}

// fixCamera resets out-of-range tuning values to their defaults and
// reports each one.
func fixCamera(c *CameraConfig, def CameraConfig) []string {
	var problems []string
	if !slices.Contains(MeteringModes, c.Metering) {
		problems = append(problems, fmt.Sprintf("camera.metering %q not one of %s", c.Metering, strings.Join(MeteringModes, ", ")))
		c.Metering = def.Metering
	}
	if !slices.Contains(WhiteBalanceModes, c.AWB) {
		problems = append(problems, fmt.Sprintf("camera.awb %q not one of %s", c.AWB, strings.Join(WhiteBalanceModes, ", ")))
		c.AWB = def.AWB
	}
	if c.EV < -10 || c.EV > 10 {
		problems = append(problems, fmt.Sprintf("camera.ev must be -10 to 10, got %g", c.EV))
		c.EV = def.EV
	}
	if c.Brightness < -1 || c.Brightness > 1 {
		problems = append(problems, fmt.Sprintf("camera.brightness must be -1 to 1, got %g", c.Brightness))
		c.Brightness = def.Brightness
	}
	for _, f := range []struct {
		name     string
		v        *float64
		fallback float64
	}{
		{"contrast", &c.Contrast, def.Contrast},
		{"saturation", &c.Saturation, def.Saturation},
		{"sharpness", &c.Sharpness, def.Sharpness},
		{"framerate", &c.Framerate, def.Framerate},
	} {
		if *f.v < 0 {
			problems = append(problems, fmt.Sprintf("camera.%s must not be negative, got %g", f.name, *f.v))
			*f.v = f.fallback
		}
	}
	return problems
}

// decodeEscapes turns the two-character sequence `\n` into a line break.
// It runs once, at load time.
func decodeEscapes(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

// Foreground returns the text color: the override if set, otherwise the
// bitwise complement of the background color.
func (c *Config) Foreground() Color {
	if c.TextColor != nil {
		return *c.TextColor
	}
	return ^c.BgColor
}

// ReadyDelay is how long the "ready" frame stays up.
func (c *Config) ReadyDelay() time.Duration {
	return time.Duration(c.ReadySeconds) * time.Second
}

// DoneDelay is how long the done message stays up after a capture.
func (c *Config) DoneDelay() time.Duration {
	return time.Duration(c.DoneSeconds) * time.Second
}

// PreviewDelay is how long the captured image is shown.
func (c *Config) PreviewDelay() time.Duration {
	return time.Duration(c.PreviewSeconds) * time.Second
}

// ErrorDelay is how long the error frame stays up.
func (c *Config) ErrorDelay() time.Duration {
	return time.Duration(c.ErrorSeconds) * time.Second
}

// CaptureTimeout is the preview time handed to the capture program.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Camera.TimeoutSeconds) * time.Second
}

// Color is a packed 32-bit ARGB value.
type Color uint32

// ARGB splits the color into its channels.
func (c Color) ARGB() (a, r, g, b uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

func (c Color) String() string {
	return fmt.Sprintf("0x%08X", uint32(c))
}

// UnmarshalYAML accepts an integer (0xFF32A8A8, 4281510056) or a string
// ("#FF32A8A8", "0xFF32A8A8", "FF32A8A8").
func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: color must be a scalar", value.Line)
	}
	v, err := ParseColor(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*c = v
	return nil
}

// ParseColor parses the textual forms accepted in the config file.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	base := 10
	switch {
	case strings.HasPrefix(s, "#"):
		s, base = s[1:], 16
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	case len(s) == 8 && strings.IndexFunc(s, isHexLetter) >= 0:
		base = 16
	}
	s = strings.ReplaceAll(s, "_", "")
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

func isHexLetter(r rune) bool {
	return (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

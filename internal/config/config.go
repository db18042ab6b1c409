package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/motionbeat/internal/ffmpeg"
	"github.com/kikiluvv/motionbeat/internal/highlight"
	"github.com/kikiluvv/motionbeat/internal/motion"
	"github.com/kikiluvv/motionbeat/internal/pipeline"
	"github.com/kikiluvv/motionbeat/pkg/util"
)

type contextKey string

const configKey contextKey = "config"

// EnvPrefix prefixes environment overrides, e.g. MOTIONBEAT_PEAK_WINDOW.
const EnvPrefix = "MOTIONBEAT"

// Config holds all application configuration
type Config struct {
	// Analysis settings: extractor, peak and beat sections
	motion.Config `yaml:",inline" mapstructure:",squash"`

	Pipeline pipeline.Config `yaml:"pipeline" mapstructure:"pipeline"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg" mapstructure:"ffmpeg"`

	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Highlight selection and scoring
	Highlight highlight.Config  `yaml:"highlight" mapstructure:"highlight"`
	Scoring   highlight.Weights `yaml:"scoring" mapstructure:"scoring"`

	Export ExportConfig `yaml:"export" mapstructure:"export"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path" mapstructure:"binary_path"`
	ProbePath  string `yaml:"probe_path" mapstructure:"probe_path"`
	Threads    int    `yaml:"threads" mapstructure:"threads"`
	// Frames are downscaled to fit Width x Height before analysis. Zero
	// keeps the source size.
	Width  int `yaml:"width" mapstructure:"width"`
	Height int `yaml:"height" mapstructure:"height"`
	CRF    int `yaml:"crf" mapstructure:"crf"`
}

type StorageConfig struct {
	Database string `yaml:"database" mapstructure:"database"`
}

type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Config:   motion.DefaultConfig(),
		Pipeline: *pipeline.DefaultConfig(),
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			CRF:        ffmpeg.DefaultCRF,
		},
		Storage: StorageConfig{
			Database: filepath.Join(homeDir(), ".motionbeat", "motionbeat.db"),
		},
		Highlight: highlight.DefaultConfig(),
		Scoring:   highlight.DefaultWeights(),
		Export: ExportConfig{
			Dir: "./out",
		},
	}
}

// flagKeys maps command line flags to config keys
var flagKeys = map[string]string{
	"workers":        "pipeline.workers",
	"queue-size":     "pipeline.queue_size",
	"width":          "ffmpeg.width",
	"height":         "ffmpeg.height",
	"threads":        "ffmpeg.threads",
	"db":             "storage.database",
	"peak-window":    "peak.window",
	"peak-threshold": "peak.threshold",
	"beat-window":    "beat.max_alignment_window",
	"top":            "highlight.top_n",
}

// Load reads configuration from defaults, the config file, MOTIONBEAT_*
// environment variables and changed flags, in increasing precedence. An
// empty path searches the default locations.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key of def so environment variables can
// override keys that no config file mentions.
func setDefaults(v *viper.Viper, def *Config) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	walkDefaults(v, "", tree)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]interface{}); ok {
			walkDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := c.Highlight.Validate(); err != nil {
		return err
	}
	switch {
	case c.Pipeline.Workers < 0:
		return &motion.ConfigError{Field: "pipeline.workers", Reason: "must not be negative"}
	case c.Pipeline.QueueSize < 1:
		return &motion.ConfigError{Field: "pipeline.queue_size", Reason: "must be at least 1"}
	case c.FFmpeg.Threads < 0:
		return &motion.ConfigError{Field: "ffmpeg.threads", Reason: "must not be negative"}
	case c.FFmpeg.Width < 0 || c.FFmpeg.Height < 0:
		return &motion.ConfigError{Field: "ffmpeg.width", Reason: "frame bounds must not be negative"}
	case c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51:
		return &motion.ConfigError{Field: "ffmpeg.crf", Reason: "must be within [0,51]"}
	}
	if _, err := highlight.NewWeightedHeuristicScorer(c.Scoring); err != nil {
		return &motion.ConfigError{Field: "scoring", Reason: err.Error()}
	}
	return nil
}

// ExecutorConfig returns the ffmpeg executor settings
func (c *Config) ExecutorConfig() ffmpeg.Config {
	return ffmpeg.Config{
		FFmpegPath:  c.FFmpeg.BinaryPath,
		FFprobePath: c.FFmpeg.ProbePath,
		Threads:     c.FFmpeg.Threads,
	}
}

// PipelineConfig returns the pipeline settings with a zero worker count
// replaced by the machine default.
func (c *Config) PipelineConfig() *pipeline.Config {
	p := c.Pipeline
	if p.Workers == 0 {
		p.Workers = pipeline.DefaultConfig().Workers
	}
	return &p
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := util.EnsureDir(dir); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultPath is where `config init` writes when no path is given
func DefaultPath() string {
	return filepath.Join(homeDir(), ".motionbeat", "config.yaml")
}

func findConfigFile() string {
	candidates := []string{
		"./motionbeat.yaml",
		"./config.yaml",
		DefaultPath(),
	}

	for _, path := range candidates {
		if util.FileExists(path) {
			return path
		}
	}

	return ""
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}

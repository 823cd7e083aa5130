package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Agency exports, local path or http(s) URL.
	SourceCEDEN string `mapstructure:"source_ceden" yaml:"source_ceden"`
	SourceSURF  string `mapstructure:"source_surf" yaml:"source_surf"`

	// Where outputs and the run report land.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// Monitoring window, inclusive, "2006-01-02" form.
	WindowStart string `mapstructure:"window_start" yaml:"window_start"`
	WindowEnd   string `mapstructure:"window_end" yaml:"window_end"`

	// Optional GeoJSON risk-region layer for the subregion join.
	RegionLayer string `mapstructure:"region_layer" yaml:"region_layer"`

	HTTPTimeoutSec int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
}

// HTTPTimeout returns the source-fetch timeout as a duration.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.chemclean/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".chemclean")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CHEMCLEAN")
	v.AutomaticEnv()

	// Defaults. The monitoring window is the fixed ten-year span the
	// conceptual model was curated against.
	v.SetDefault("source_ceden", "")
	v.SetDefault("source_surf", "")
	v.SetDefault("output_dir", "chemclean-out")
	v.SetDefault("window_start", "2010-01-01")
	v.SetDefault("window_end", "2019-12-31")
	v.SetDefault("region_layer", "")
	v.SetDefault("http_timeout_sec", 60)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".chemclean")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

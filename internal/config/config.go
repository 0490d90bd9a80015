// Package config handles configuration loading for kestrel.
// It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ProjectConfigName is the per-project override file searched for in
// the working directory and its parents.
const ProjectConfigName = ".kestrel.yaml"

// Config holds all tool configuration for kestrel. Workflow documents
// are separate; this is about how the tool itself behaves.
type Config struct {
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Output   OutputConfig   `mapstructure:"output"`
	// Actions maps `uses:` references to command templates, letting
	// local runs substitute a shell command for a hosted action.
	Actions map[string]string `mapstructure:"actions"`
}

// DefaultsConfig holds default values for runs.
type DefaultsConfig struct {
	// Workflow is the workflow file used when none is given.
	Workflow string `mapstructure:"workflow"`
	// Shell is the step interpreter when a step names none.
	Shell string `mapstructure:"shell"`
	// MaxParallel bounds concurrent matrix cells per job.
	MaxParallel int `mapstructure:"max_parallel"`
}

// DockerConfig controls the container execution backend.
type DockerConfig struct {
	// Enabled allows jobs with a container block to run in Docker.
	// When false such jobs fall back to the host shell.
	Enabled bool `mapstructure:"enabled"`
	// Host overrides DOCKER_HOST when non-empty.
	Host string `mapstructure:"host"`
}

// StorageConfig configures optional artifact upload to S3-compatible
// storage. Upload is disabled while Endpoint is empty.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// OutputConfig holds display settings.
type OutputConfig struct {
	Color bool `mapstructure:"color"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (KESTREL_*)
// 2. Project config (.kestrel.yaml in current directory or a parent)
// 3. User config (~/.config/kestrel/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("KESTREL")
	v.AutomaticEnv()
	v.BindEnv("storage.access_key", "KESTREL_STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "KESTREL_STORAGE_SECRET_KEY")
	v.BindEnv("docker.host", "KESTREL_DOCKER_HOST")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in credentials.
	cfg.Storage.AccessKey = os.ExpandEnv(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = os.ExpandEnv(cfg.Storage.SecretKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Storage.AccessKey = os.ExpandEnv(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = os.ExpandEnv(cfg.Storage.SecretKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if
// it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Workflow:    ".kestrel.yml",
			Shell:       "sh",
			MaxParallel: 4,
		},
		Docker: DockerConfig{
			Enabled: true,
		},
		Output: OutputConfig{
			Color: true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("defaults.workflow", ".kestrel.yml")
	v.SetDefault("defaults.shell", "sh")
	v.SetDefault("defaults.max_parallel", 4)

	v.SetDefault("docker.enabled", true)
	v.SetDefault("docker.host", "")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.bucket", "kestrel-artifacts")
	v.SetDefault("storage.secure", true)

	v.SetDefault("output.color", true)
}

// getUserConfigDir returns the XDG config directory for kestrel.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kestrel")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "kestrel")
	}
	return filepath.Join(home, ".config", "kestrel")
}

// findProjectConfig searches for .kestrel.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

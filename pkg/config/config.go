package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/registry"
)

// Config holds all configuration for ion
type Config struct {
	Depot        string       `mapstructure:"depot"`
	Registry     string       `mapstructure:"registry"`
	TemplatesDir string       `mapstructure:"templates_dir"`
	Julia        JuliaConfig  `mapstructure:"julia"`
	GitHub       GitHubConfig `mapstructure:"github"`
	Git          GitConfig    `mapstructure:"git"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// JuliaConfig locates the julia executable
type JuliaConfig struct {
	Binary string `mapstructure:"binary"`
}

// GitHubConfig holds registration credentials
type GitHubConfig struct {
	Token   string        `mapstructure:"token"`
	User    string        `mapstructure:"user"`
	APIURL  string        `mapstructure:"api_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GitConfig locates the git executable
type GitConfig struct {
	Binary string `mapstructure:"binary"`
}

// FileName is the base name of the config file, without extension.
const FileName = "ion"

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("depot", registry.DepotPath())
	v.SetDefault("registry", registry.DefaultName)
	v.SetDefault("templates_dir", filepath.Join(home, "templates"))
	v.SetDefault("julia.binary", "julia")
	v.SetDefault("github.token", "")
	v.SetDefault("github.user", "")
	v.SetDefault("github.api_url", registry.DefaultGitHubAPI)
	v.SetDefault("github.timeout", 30*time.Second)
	v.SetDefault("git.binary", "git")
}

// Load reads configuration from defaults, ion.yaml and ION_* environment
// variables. An explicit file must exist; otherwise ion.yaml is looked up in
// the working directory and then in $ION_HOME/config.
func Load(file string) (*Config, error) {
	home, err := Home()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, home)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, "config"))
	}

	v.SetEnvPrefix("ION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github.token", "ION_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, ionerr.Wrap(ionerr.MalformedConfig, err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ionerr.Wrap(ionerr.MalformedConfig, err, "decode config %s", v.ConfigFileUsed())
	}
	cfg.File = v.ConfigFileUsed()
	if cfg.Registry == "" {
		return nil, ionerr.New(ionerr.MalformedConfig, "registry must not be empty")
	}
	return &cfg, nil
}

// Default returns the configuration with no file and no environment applied.
// On a decode error the returned config still holds what could be decoded.
func Default() (*Config, error) {
	home, err := Home()
	if err != nil {
		home = ".ion"
	}
	v := viper.New()
	setDefaults(v, home)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return &cfg, ionerr.Wrap(ionerr.MalformedConfig, err, "decode default config")
	}
	return &cfg, nil
}

// Home returns the ion home directory
func Home() (string, error) {
	if home := os.Getenv("ION_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	return filepath.Join(homeDir, ".ion"), nil
}

// ConfigDir returns the directory searched for ion.yaml after the working
// directory. It is not created.
func ConfigDir() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config"), nil
}

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/ralt/releasetap/internal/fetcher"
	"github.com/ralt/releasetap/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. RELEASETAP_INSTALL_BIN_DIR
	EnvPrefix = "RELEASETAP"

	DefaultBinDir    = "./bin"
	DefaultOutputDir = "./tap"
)

// Config holds all application configuration
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Install  InstallConfig  `mapstructure:"install"`
	Generate GenerateConfig `mapstructure:"generate"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// InstallConfig mirrors the install command flags
type InstallConfig struct {
	Table     string        `mapstructure:"table"`
	Keyring   string        `mapstructure:"keyring"`
	Version   string        `mapstructure:"version"`
	OS        string        `mapstructure:"os"`
	Arch      string        `mapstructure:"arch"`
	Bits      int           `mapstructure:"bits"`
	Platform  string        `mapstructure:"platform"`
	BinDir    string        `mapstructure:"bin_dir"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	MaxSize   int64         `mapstructure:"max_size"`
	CacheDir  string        `mapstructure:"cache_dir"`
	SkipSmoke bool          `mapstructure:"skip_smoke"`
}

// GenerateConfig mirrors the generate command flags
type GenerateConfig struct {
	InputDir      string `mapstructure:"input_dir"`
	OutputDir     string `mapstructure:"output_dir"`
	Name          string `mapstructure:"name"`
	Description   string `mapstructure:"description"`
	Homepage      string `mapstructure:"homepage"`
	BaseURL       string `mapstructure:"base_url"`
	GPGKey        string `mapstructure:"gpg_key"`
	GPGPassphrase string `mapstructure:"gpg_passphrase"`
	CopyArtifacts bool   `mapstructure:"copy_artifacts"`
	Incremental   bool   `mapstructure:"incremental"`
}

// LoadConfig loads configuration from path, or from releasetap.yaml in the
// working directory or $HOME/.config/releasetap when path is empty. A missing
// default file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Install defaults
	v.SetDefault("install.table", "")
	v.SetDefault("install.keyring", "")
	v.SetDefault("install.version", "")
	v.SetDefault("install.os", "")
	v.SetDefault("install.arch", "")
	v.SetDefault("install.bits", 0)
	v.SetDefault("install.platform", "")
	v.SetDefault("install.bin_dir", DefaultBinDir)
	v.SetDefault("install.timeout", fetcher.DefaultTimeout)
	v.SetDefault("install.user_agent", fetcher.DefaultUserAgent)
	v.SetDefault("install.max_size", fetcher.DefaultMaxSize)
	v.SetDefault("install.cache_dir", "")
	v.SetDefault("install.skip_smoke", false)

	// Generate defaults
	v.SetDefault("generate.input_dir", ".")
	v.SetDefault("generate.output_dir", DefaultOutputDir)
	v.SetDefault("generate.name", "")
	v.SetDefault("generate.description", "")
	v.SetDefault("generate.homepage", "")
	v.SetDefault("generate.base_url", "")
	v.SetDefault("generate.gpg_key", "")
	v.SetDefault("generate.gpg_passphrase", "")
	v.SetDefault("generate.copy_artifacts", false)
	v.SetDefault("generate.incremental", false)

	// Configuration file name and path
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("releasetap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/releasetap")
	}

	// Read environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, models.NewError(models.ErrInvalidConfig, "", "failed to read config: %v", err)
		}
	} else {
		logrus.Debugf("Loaded configuration from %s", v.ConfigFileUsed())
	}

	// Bind configuration to struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, models.NewError(models.ErrInvalidConfig, "", "failed to decode config: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that cannot be enforced by the decoder
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return models.NewError(models.ErrInvalidConfig, "", "logging.level: %v", err)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return models.NewError(models.ErrInvalidConfig, "", "logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Install.Timeout <= 0 {
		return models.NewError(models.ErrInvalidConfig, "", "install.timeout must be positive")
	}
	if c.Install.MaxSize <= 0 {
		return models.NewError(models.ErrInvalidConfig, "", "install.max_size must be positive")
	}

	return nil
}

// SetupLogging applies the logging section to the standard logrus logger.
// verbose forces debug level.
func (c *Config) SetupLogging(verbose bool) {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	if c.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

// ApplyInstall fills dst from the configuration for every flag the user did
// not set on the command line
func (c *Config) ApplyInstall(dst *models.InstallConfig, flags *pflag.FlagSet) {
	from := func(flag string) bool {
		return flags == nil || !flags.Changed(flag)
	}

	if from("table") {
		dst.TablePath = c.Install.Table
	}
	if from("keyring") {
		dst.KeyringPath = c.Install.Keyring
	}
	if from("version") {
		dst.Version = c.Install.Version
	}
	if from("os") {
		dst.OS = c.Install.OS
	}
	if from("arch") {
		dst.Arch = c.Install.Arch
	}
	if from("bits") {
		dst.Bits = c.Install.Bits
	}
	if from("platform") {
		dst.Platform = c.Install.Platform
	}
	if from("bin-dir") {
		dst.BinDir = c.Install.BinDir
	}
	if from("timeout") {
		dst.Timeout = c.Install.Timeout
	}
	if from("user-agent") {
		dst.UserAgent = c.Install.UserAgent
	}
	if from("max-size") {
		dst.MaxSize = c.Install.MaxSize
	}
	if from("cache-dir") {
		dst.CacheDir = c.Install.CacheDir
	}
	if from("skip-smoke") {
		dst.SkipSmoke = c.Install.SkipSmoke
	}
}

// ApplyGenerate fills dst from the configuration for every flag the user did
// not set on the command line
func (c *Config) ApplyGenerate(dst *models.GenerateConfig, flags *pflag.FlagSet) {
	from := func(flag string) bool {
		return flags == nil || !flags.Changed(flag)
	}

	if from("input-dir") {
		dst.InputDir = c.Generate.InputDir
	}
	if from("output-dir") {
		dst.OutputDir = c.Generate.OutputDir
	}
	if from("name") {
		dst.Name = c.Generate.Name
	}
	if from("description") {
		dst.Description = c.Generate.Description
	}
	if from("homepage") {
		dst.Homepage = c.Generate.Homepage
	}
	if from("base-url") {
		dst.BaseURL = c.Generate.BaseURL
	}
	if from("gpg-key") {
		dst.GPGKeyPath = c.Generate.GPGKey
	}
	if from("gpg-passphrase") {
		dst.GPGPassphrase = c.Generate.GPGPassphrase
	}
	if from("copy-artifacts") {
		dst.CopyArtifacts = c.Generate.CopyArtifacts
	}
	if from("incremental") {
		dst.Incremental = c.Generate.Incremental
	}
}

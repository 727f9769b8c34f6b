// Package config provides configuration management for systemd-web
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider defines the interface for configuration providers.
type Provider interface {
	// GetConfig returns the current application configuration.
	GetConfig() *Settings
	// SetConfig sets the application configuration.
	SetConfig(c *Settings)
	// InitConfig loads configuration from file, environment and defaults.
	InitConfig() (*Settings, error)
	// SetConfigFilePath sets the configuration file path.
	SetConfigFilePath(p string)
}

// defaultConfigProvider implements the Provider interface on a private viper instance.
type defaultConfigProvider struct {
	v   *viper.Viper
	cfg *Settings
}

// NewDefaultConfigProvider creates a new default config provider.
func NewDefaultConfigProvider() Provider {
	return &defaultConfigProvider{v: viper.New()}
}

// Default configuration values for systemd-web.
const (
	DefaultListenAddress    = "127.0.0.1:8080"
	DefaultSystemUnitDir    = "/etc/systemd/system"
	DefaultUserUnitPath     = ".config/systemd/user"
	DefaultDBPath           = "/var/lib/systemd-web/systemd-web.db"
	DefaultSessionBackend   = SessionBackendSQLite
	DefaultSessionCookie    = "SYSTEMD_WEB_SESSION"
	DefaultSessionTTL       = 24 * time.Hour
	DefaultCommandTimeout   = 30 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
	DefaultMaxUploadBytes   = 64 * 1024
	DefaultLogFormat        = "text"
	DefaultVerbose          = false
	DefaultElevationCommand = "sudo"
)

// Session store backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
)

// EnvPrefix is the prefix for environment variable overrides, e.g. SYSTEMD_WEB_LISTENADDRESS.
const EnvPrefix = "SYSTEMD_WEB"

// Settings represents the configuration for systemd-web.
type Settings struct {
	ListenAddress    string        `yaml:"listenAddress"`
	SystemUnitDir    string        `yaml:"systemUnitDir"`
	UserUnitPath     string        `yaml:"userUnitPath"`
	UserHome         string        `yaml:"userHome"`
	DBPath           string        `yaml:"dbPath"`
	SessionBackend   string        `yaml:"sessionBackend"`
	SessionCookie    string        `yaml:"sessionCookie"`
	SessionTTL       time.Duration `yaml:"sessionTTL"`
	ElevationCommand []string      `yaml:"elevationCommand"`
	CommandTimeout   time.Duration `yaml:"commandTimeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdownTimeout"`
	MaxUploadBytes   int64         `yaml:"maxUploadBytes"`
	TemplateFile     string        `yaml:"templateFile,omitempty"`
	AuthTokenFile    string        `yaml:"authTokenFile,omitempty"`
	LogFormat        string        `yaml:"logFormat"`
	Verbose          bool          `yaml:"verbose"`
}

// Defaults returns Settings populated with the Default* values. UserHome is
// resolved from $HOME, falling back to the account's home directory.
func Defaults() *Settings {
	return &Settings{
		ListenAddress:    DefaultListenAddress,
		SystemUnitDir:    DefaultSystemUnitDir,
		UserUnitPath:     DefaultUserUnitPath,
		UserHome:         resolveHome(),
		DBPath:           DefaultDBPath,
		SessionBackend:   DefaultSessionBackend,
		SessionCookie:    DefaultSessionCookie,
		SessionTTL:       DefaultSessionTTL,
		ElevationCommand: []string{DefaultElevationCommand},
		CommandTimeout:   DefaultCommandTimeout,
		ShutdownTimeout:  DefaultShutdownTimeout,
		MaxUploadBytes:   DefaultMaxUploadBytes,
		LogFormat:        DefaultLogFormat,
		Verbose:          DefaultVerbose,
	}
}

// SystemBaseDir returns the directory system-level unit files are written to.
func (s *Settings) SystemBaseDir() string {
	return filepath.Clean(s.SystemUnitDir)
}

// UserBaseDir returns the directory user-level unit files are written to:
// the invoking user's home joined with the configured relative path.
func (s *Settings) UserBaseDir() string {
	return filepath.Join(s.UserHome, s.UserUnitPath)
}

// UnitDir resolves the unit-file base directory for a service level name
// ("system" or "user"). ok is false for any other level.
func (s *Settings) UnitDir(level string) (dir string, ok bool) {
	switch level {
	case "system":
		return s.SystemBaseDir(), true
	case "user":
		return s.UserBaseDir(), true
	default:
		return "", false
	}
}

// Validate checks that required fields are set and values are acceptable.
func (s *Settings) Validate() error {
	var errs []error
	if s.SystemUnitDir == "" || !filepath.IsAbs(s.SystemUnitDir) {
		errs = append(errs, fmt.Errorf("systemUnitDir must be an absolute path, got %q", s.SystemUnitDir))
	}
	if s.UserHome == "" || !filepath.IsAbs(s.UserHome) {
		errs = append(errs, fmt.Errorf("userHome must be an absolute path, got %q", s.UserHome))
	}
	if s.UserUnitPath == "" || filepath.IsAbs(s.UserUnitPath) || strings.HasPrefix(filepath.Clean(s.UserUnitPath), "..") {
		errs = append(errs, fmt.Errorf("userUnitPath must be a relative path below the home directory, got %q", s.UserUnitPath))
	}
	switch s.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendSQLite:
		if s.DBPath == "" {
			errs = append(errs, errors.New("dbPath is required for the sqlite session backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("sessionBackend must be %q or %q, got %q", SessionBackendMemory, SessionBackendSQLite, s.SessionBackend))
	}
	if s.SessionTTL <= 0 {
		errs = append(errs, errors.New("sessionTTL must be positive"))
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdownTimeout must be positive"))
	}
	if s.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("maxUploadBytes must be positive"))
	}
	return errors.Join(errs...)
}

func (p *defaultConfigProvider) SetConfig(c *Settings) {
	p.cfg = c
}

func (p *defaultConfigProvider) GetConfig() *Settings {
	return p.cfg
}

func (p *defaultConfigProvider) SetConfigFilePath(path string) {
	p.v.SetConfigFile(path)
}

func (p *defaultConfigProvider) InitConfig() (*Settings, error) {
	cfg, err := load(p.v)
	if err != nil {
		return nil, err
	}
	p.cfg = cfg
	return cfg, nil
}

func load(v *viper.Viper) (*Settings, error) {
	cfg := Defaults()

	v.SetDefault("listenAddress", cfg.ListenAddress)
	v.SetDefault("systemUnitDir", cfg.SystemUnitDir)
	v.SetDefault("userUnitPath", cfg.UserUnitPath)
	v.SetDefault("userHome", cfg.UserHome)
	v.SetDefault("dbPath", cfg.DBPath)
	v.SetDefault("sessionBackend", cfg.SessionBackend)
	v.SetDefault("sessionCookie", cfg.SessionCookie)
	v.SetDefault("sessionTTL", cfg.SessionTTL)
	v.SetDefault("elevationCommand", cfg.ElevationCommand)
	v.SetDefault("commandTimeout", cfg.CommandTimeout)
	v.SetDefault("shutdownTimeout", cfg.ShutdownTimeout)
	v.SetDefault("maxUploadBytes", cfg.MaxUploadBytes)
	v.SetDefault("templateFile", "")
	v.SetDefault("authTokenFile", "")
	v.SetDefault("logFormat", cfg.LogFormat)
	v.SetDefault("verbose", cfg.Verbose)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(os.ExpandEnv("$HOME/.config/systemd-web"))
	v.AddConfigPath("/etc/systemd-web")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func ConfigFileUsed(p Provider) string {
	if dp, ok := p.(*defaultConfigProvider); ok {
		return dp.v.ConfigFileUsed()
	}
	return ""
}

func resolveHome() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

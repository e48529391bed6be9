package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds the connection parameters for the Zabbix API. It is
// assembled once per run by Resolve and never mutated afterwards.
type Config struct {
	URL      string
	Username string
	Password string
	// Token is a pre-established API session token, used as a fallback
	// when no username/password is available.
	Token string

	Timeout  time.Duration
	Insecure bool
}

// Source supplies connection defaults for fields not set on the
// command line.
type Source interface {
	Load() (Config, error)
}

// ResolutionError reports connection parameters that could not be
// resolved from either the command line or any configured source.
type ResolutionError struct {
	Missing []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve connection parameters: missing %s", strings.Join(e.Missing, ", "))
}

// Resolve merges the command-line overrides with the given sources, in
// order, first value wins. It validates the result: the URL is always
// required, and either a username/password pair or a session token
// must be present.
func Resolve(overrides Config, sources ...Source) (Config, error) {
	cfg := overrides
	for _, s := range sources {
		defaults, err := s.Load()
		if err != nil {
			return Config{}, fmt.Errorf("could not load connection defaults: %w", err)
		}
		cfg = merge(cfg, defaults)
	}

	missing := []string{}
	if cfg.URL == "" {
		missing = append(missing, "url")
	}
	if cfg.Username == "" && cfg.Token == "" {
		missing = append(missing, "user")
	}
	if cfg.Username != "" && cfg.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return Config{}, &ResolutionError{Missing: missing}
	}
	return cfg, nil
}

func merge(cfg Config, defaults Config) Config {
	if cfg.URL == "" {
		cfg.URL = defaults.URL
	}
	if cfg.Username == "" {
		cfg.Username = defaults.Username
	}
	if cfg.Password == "" {
		cfg.Password = defaults.Password
	}
	if cfg.Token == "" {
		cfg.Token = defaults.Token
	}
	return cfg
}

// EnvSource reads connection defaults from the process environment,
// optionally populated from a dotenv file first.
type EnvSource struct {
	// EnvFile is loaded into the environment if it exists. Empty means
	// no file is read.
	EnvFile string
}

func (s EnvSource) Load() (Config, error) {
	if s.EnvFile != "" {
		if err := godotenv.Load(s.EnvFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("error loading env file: %w", err)
		}
	}
	return Config{
		URL:      os.Getenv("ZABBIX_URL"),
		Username: os.Getenv("ZABBIX_USER"),
		Password: os.Getenv("ZABBIX_PASSWORD"),
	}, nil
}

// FileSource reads connection defaults from an existing zabbix-cli
// installation: its TOML configuration, its auth file and its session
// token file. Files that do not exist are simply skipped.
type FileSource struct {
	ConfigPath string
	AuthPath   string
	TokenPath  string
}

// DefaultFileSource points at the zabbix-cli files in the current
// user's home directory.
func DefaultFileSource() FileSource {
	home, err := os.UserHomeDir()
	if err != nil {
		return FileSource{}
	}
	return FileSource{
		ConfigPath: filepath.Join(home, ".config", "zabbix-cli", "zabbix-cli.toml"),
		AuthPath:   filepath.Join(home, ".zabbix_cli_auth"),
		TokenPath:  filepath.Join(home, ".zabbix-cli_auth_token"),
	}
}

type cliConfigFile struct {
	API struct {
		URL      string `toml:"url"`
		Username string `toml:"username"`
		Password string `toml:"password"`
	} `toml:"api"`
}

func (s FileSource) Load() (Config, error) {
	cfg := Config{}

	if s.ConfigPath != "" {
		var parsed cliConfigFile
		_, err := toml.DecodeFile(s.ConfigPath, &parsed)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("could not read zabbix-cli config %s: %w", s.ConfigPath, err)
		}
		cfg.URL = parsed.API.URL
		cfg.Username = parsed.API.Username
		cfg.Password = parsed.API.Password
	}

	if cfg.Username == "" || cfg.Password == "" {
		user, pass := readAuthFile(s.AuthPath)
		if user != "" {
			cfg.Username = user
			cfg.Password = pass
		}
	}

	cfg.Token = readTokenFile(s.TokenPath)

	return cfg, nil
}

// readAuthFile parses the zabbix-cli auth file, a single
// "user::password" line.
func readAuthFile(path string) (string, string) {
	if path == "" {
		return "", ""
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	user, pass, ok := strings.Cut(strings.TrimSpace(string(raw)), "::")
	if !ok {
		return "", ""
	}
	return user, pass
}

// readTokenFile parses the zabbix-cli session token file. A valid file
// is exactly 37 bytes: the "cli::" prefix followed by the token.
func readTokenFile(path string) string {
	if path == "" {
		return ""
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	content := string(raw)
	if len(content) != 37 || !strings.HasPrefix(content, "cli::") {
		return ""
	}
	return content[5:]
}

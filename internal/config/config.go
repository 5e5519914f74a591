package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the reviewd configuration. It is built once at startup
// and treated as immutable afterwards.
type Config struct {
	GitLabURL   string `yaml:"gitlabURL"`
	GitLabToken string `yaml:"-"` // env only, never written to disk

	Port int `yaml:"port"`

	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	MaxDiffBytes int    `yaml:"maxDiffBytes"`
	MaxFindings  int    `yaml:"maxFindings"`
	RulesFile    string `yaml:"rulesFile,omitempty"`

	Cache   CacheConfig   `yaml:"cache"`
	Privacy PrivacyConfig `yaml:"privacy"`
}

// CacheConfig controls generator response caching.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// PrivacyConfig controls redaction of diff content sent to remote generators.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redactSecrets"`
	RedactPaths   []string `yaml:"redactPaths,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		GitLabURL:    "https://gitlab.com",
		Port:         8000,
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		MaxDiffBytes: 500000,
		MaxFindings:  50,
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for reviewd.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "reviewd"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "reviewd"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "reviewd"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "reviewd"), nil
	default:
		return filepath.Join(home, ".config", "reviewd"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil
// error if the file does not exist.
func LoadFile() (Config, error) {
	cfg, _, err := loadFile()
	return cfg, err
}

// loadFile additionally reports whether cache.enabled was present in the
// file, so an explicit false survives the merge against the enabled default.
func loadFile() (Config, *bool, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil, nil
		}
		return Config{}, nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("parsing config file: %w", err)
	}
	var presence struct {
		Cache struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"cache"`
	}
	_ = yaml.Unmarshal(data, &presence)
	return cfg, presence.Cache.Enabled, nil
}

// Save writes the config to the config file. The GitLab token is never
// persisted.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, cacheEnabled, err := loadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg, cacheEnabled)
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config, cacheEnabled *bool) {
	if src.GitLabURL != "" {
		dst.GitLabURL = src.GitLabURL
	}
	if src.Port > 0 {
		dst.Port = src.Port
	}
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.MaxDiffBytes > 0 {
		dst.MaxDiffBytes = src.MaxDiffBytes
	}
	if src.MaxFindings > 0 {
		dst.MaxFindings = src.MaxFindings
	}
	if src.RulesFile != "" {
		dst.RulesFile = src.RulesFile
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.TTLSeconds > 0 {
		dst.Cache.TTLSeconds = src.Cache.TTLSeconds
	}
	if cacheEnabled != nil {
		dst.Cache.Enabled = *cacheEnabled
	}
	if len(src.Privacy.RedactPaths) > 0 {
		dst.Privacy.RedactPaths = src.Privacy.RedactPaths
	}
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("GITLAB_TOKEN"); v != "" {
		cfg.GitLabToken = v
	}
	if v := os.Getenv("GITLAB_URL"); v != "" {
		cfg.GitLabURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("REVIEWD_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("REVIEWD_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("REVIEWD_MAX_DIFF_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDiffBytes = n
		}
	}
	if v := os.Getenv("REVIEWD_MAX_FINDINGS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxFindings = n
		}
	}
	if v := os.Getenv("REVIEWD_RULES_FILE"); v != "" {
		cfg.RulesFile = v
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		// Flag overrides reuse the same key set as `config set`.
		_ = SetField(cfg, key, v)
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "gitlabURL":
		cfg.GitLabURL = value
	case "port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("port must be an integer: %w", err)
		}
		cfg.Port = n
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "maxDiffBytes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxDiffBytes must be an integer: %w", err)
		}
		cfg.MaxDiffBytes = n
	case "maxFindings":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxFindings must be an integer: %w", err)
		}
		cfg.MaxFindings = n
	case "rulesFile":
		cfg.RulesFile = value
	case "cacheEnabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cacheEnabled must be a boolean: %w", err)
		}
		cfg.Cache.Enabled = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

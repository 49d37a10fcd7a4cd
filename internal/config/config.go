package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"scenekit/internal/models"
)

const (
	DefaultAPIURL         = "http://127.0.0.1:7411"
	DefaultDBFileName     = ".scenekit.db"
	DefaultVaultDirName   = ".scenekit-vault"
	DefaultLogLevel       = "info"
	DefaultCollectionPath = "/api/geometries/"
	DefaultProbeTimeout   = 3 * time.Second

	DefaultVaultMaxBlobBytes int64 = 256 * 1024 * 1024

	configFileName           = ".scenekit.toml"
	configDirEnvKey          = "SCENEKIT_CONFIG_DIR"
	trustProjectConfigEnvKey = "SCENEKIT_TRUST_PROJECT_CONFIG"
)

// RemoteConfig points at the authoritative record API and its build-time
// snapshot.
type RemoteConfig struct {
	URL            string `toml:"url"`
	CollectionPath string `toml:"collection_path"`
	Snapshot       string `toml:"snapshot"`
}

// LocatorConfig drives asset resolution.
type LocatorConfig struct {
	// Origin resolves relative candidate URLs for probing.
	Origin       string           `toml:"origin"`
	Catalog      string           `toml:"catalog"`
	RedisURL     string           `toml:"redis_url"`
	ProbeTimeout string           `toml:"probe_timeout"`
	Backends     []models.Backend `toml:"backends"`
}

type GCSConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	Anonymous       bool   `toml:"anonymous"`
}

// VaultConfig defines where uploaded models are kept and how handles look.
type VaultConfig struct {
	Dir          string `toml:"dir"`
	MaxBlobBytes int64  `toml:"max_blob_bytes"`
	HandleBase   string `toml:"handle_base"`
}

// AuthConfig holds bcrypt hashes of the local API tokens.
type AuthConfig struct {
	APITokenHash   string `toml:"api_token_hash"`
	AdminTokenHash string `toml:"admin_token_hash"`
}

// Config defines runtime configuration for scenekit.
type Config struct {
	APIURL                   string        `toml:"api_url"`
	DBPath                   string        `toml:"db_path"`
	LogLevel                 string        `toml:"log_level"`
	Remote                   RemoteConfig  `toml:"remote"`
	Locator                  LocatorConfig `toml:"locator"`
	GCS                      GCSConfig     `toml:"gcs"`
	Vault                    VaultConfig   `toml:"vault"`
	Auth                     AuthConfig    `toml:"auth"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Remote: RemoteConfig{
			CollectionPath: DefaultCollectionPath,
		},
		Locator: LocatorConfig{
			ProbeTimeout: DefaultProbeTimeout.String(),
		},
		Vault: VaultConfig{
			MaxBlobBytes: DefaultVaultMaxBlobBytes,
		},
	}
}

// ProbeTimeout parses locator.probe_timeout, falling back to the default.
func (c *Config) ProbeTimeout() time.Duration {
	return parseDuration(c.Locator.ProbeTimeout, DefaultProbeTimeout)
}

// VaultHandleBase returns the origin used in blob handles.
func (c *Config) VaultHandleBase() string {
	if base := strings.TrimSpace(c.Vault.HandleBase); base != "" {
		return base
	}
	return c.APIURL
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"remote.url",
	"remote.collection_path",
	"remote.snapshot",
	"locator.origin",
	"locator.catalog",
	"locator.redis_url",
	"locator.probe_timeout",
	"gcs.credentials_file",
	"gcs.anonymous",
	"vault.dir",
	"vault.max_blob_bytes",
	"vault.handle_base",
	"auth.api_token_hash",
	"auth.admin_token_hash",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "remote.url":
		return c.Remote.URL, nil
	case "remote.collection_path":
		return c.Remote.CollectionPath, nil
	case "remote.snapshot":
		return c.Remote.Snapshot, nil
	case "locator.origin":
		return c.Locator.Origin, nil
	case "locator.catalog":
		return c.Locator.Catalog, nil
	case "locator.redis_url":
		return c.Locator.RedisURL, nil
	case "locator.probe_timeout":
		return c.ProbeTimeout().String(), nil
	case "gcs.credentials_file":
		return c.GCS.CredentialsFile, nil
	case "gcs.anonymous":
		return strconv.FormatBool(c.GCS.Anonymous), nil
	case "vault.dir":
		return c.Vault.Dir, nil
	case "vault.max_blob_bytes":
		return strconv.FormatInt(c.Vault.MaxBlobBytes, 10), nil
	case "vault.handle_base":
		return c.Vault.HandleBase, nil
	case "auth.api_token_hash":
		return c.Auth.APITokenHash, nil
	case "auth.admin_token_hash":
		return c.Auth.AdminTokenHash, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	applyEnv(&cfg)

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	cfg.normalizeDefaults()

	return &cfg, nil
}

var envOverrides = []struct {
	key string
	dst func(*Config) *string
}{
	{"SCENEKIT_API_URL", func(c *Config) *string { return &c.APIURL }},
	{"SCENEKIT_DB", func(c *Config) *string { return &c.DBPath }},
	{"SCENEKIT_REMOTE_URL", func(c *Config) *string { return &c.Remote.URL }},
	{"SCENEKIT_SNAPSHOT", func(c *Config) *string { return &c.Remote.Snapshot }},
	{"SCENEKIT_CATALOG", func(c *Config) *string { return &c.Locator.Catalog }},
	{"SCENEKIT_REDIS_URL", func(c *Config) *string { return &c.Locator.RedisURL }},
	{"SCENEKIT_ASSET_ORIGIN", func(c *Config) *string { return &c.Locator.Origin }},
	{"SCENEKIT_PROBE_TIMEOUT", func(c *Config) *string { return &c.Locator.ProbeTimeout }},
	{"SCENEKIT_VAULT_DIR", func(c *Config) *string { return &c.Vault.Dir }},
	{"SCENEKIT_GCS_CREDENTIALS", func(c *Config) *string { return &c.GCS.CredentialsFile }},
}

func applyEnv(cfg *Config) {
	for _, o := range envOverrides {
		if value := strings.TrimSpace(os.Getenv(o.key)); value != "" {
			*o.dst(cfg) = value
		}
	}
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = DefaultAPIURL
	}
	if strings.TrimSpace(c.Remote.CollectionPath) == "" {
		c.Remote.CollectionPath = DefaultCollectionPath
	}
	if c.Vault.MaxBlobBytes <= 0 {
		c.Vault.MaxBlobBytes = DefaultVaultMaxBlobBytes
	}
	if strings.TrimSpace(c.Vault.Dir) == "" && c.DBPath != "" {
		c.Vault.Dir = filepath.Join(filepath.Dir(c.DBPath), DefaultVaultDirName)
	}
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "vault.max_blob_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "gcs.anonymous":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "locator.probe_timeout":
		if parseDuration(value, 0) <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration", key)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

// parseDuration accepts Go durations and bare integer seconds.
func parseDuration(raw string, def time.Duration) time.Duration {
	value := strings.TrimSpace(raw)
	if value == "" {
		return def
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}

// Package config loads cdc-deploy configuration from the environment and an
// optional project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cyberduckcoin/cdc-deploy/internal/validation"
)

// projectConfigFiles is the search order for project config files
var projectConfigFiles = []string{"cdc.toml", "cdc.yaml", "cdc.yml"}

// Config holds all configuration for a deployment run
type Config struct {
	Network  NetworkConfig
	Explorer ExplorerConfig
	Project  ProjectConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig

	// Source is the project file the config was read from, empty when none was found
	Source string

	// envErrors lists environment values that could not be parsed; Validate reports them
	envErrors []error
}

// NetworkConfig holds the target chain and signing account
type NetworkConfig struct {
	RPCURL     string
	ChainID    int64 // 0 = ask the node
	PrivateKey string
	GasLimit   uint64 // 0 = estimate
}

// ExplorerConfig holds block explorer settings
type ExplorerConfig struct {
	APIURL                  string
	APIKey                  string
	BrowserURL              string
	RequestsPerSecond       float64
	PollInterval            time.Duration
	TolerateAlreadyVerified bool
}

// ProjectConfig locates the compiled contract artifacts
type ProjectConfig struct {
	Root    string
	Builder string // "auto", "hardhat" or "foundry"
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text", "json" or empty for auto
}

// MetricsConfig holds metrics output settings
type MetricsConfig struct {
	Textfile string
}

// FileConfig is the on-disk project configuration (cdc.toml or cdc.yaml).
// Secrets (private key, explorer API key) are only read from the environment.
type FileConfig struct {
	Network struct {
		RPCURL   string `toml:"rpc_url" yaml:"rpc_url"`
		ChainID  int64  `toml:"chain_id" yaml:"chain_id"`
		GasLimit uint64 `toml:"gas_limit" yaml:"gas_limit"`
	} `toml:"network" yaml:"network"`
	Etherscan struct {
		APIURL                  string  `toml:"api_url" yaml:"api_url"`
		BrowserURL              string  `toml:"browser_url" yaml:"browser_url"`
		RateLimit               float64 `toml:"rate_limit" yaml:"rate_limit"`
		PollInterval            string  `toml:"poll_interval" yaml:"poll_interval"`
		TolerateAlreadyVerified bool    `toml:"tolerate_already_verified" yaml:"tolerate_already_verified"`
	} `toml:"etherscan" yaml:"etherscan"`
	Project struct {
		Root    string `toml:"root" yaml:"root"`
		Builder string `toml:"builder" yaml:"builder"`
	} `toml:"project" yaml:"project"`
	Logging struct {
		Level  string `toml:"level" yaml:"level"`
		Format string `toml:"format" yaml:"format"`
	} `toml:"logging" yaml:"logging"`
	Metrics struct {
		Textfile string `toml:"textfile" yaml:"textfile"`
	} `toml:"metrics" yaml:"metrics"`
}

// Load loads configuration. Precedence: environment, then project file, then defaults.
func Load() (*Config, error) {
	file, source, err := findProjectConfig()
	if err != nil {
		return nil, err
	}

	pollInterval := 3 * time.Second
	if file.Etherscan.PollInterval != "" {
		d, err := time.ParseDuration(file.Etherscan.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: etherscan.poll_interval: %w", source, err)
		}
		pollInterval = d
	}

	env := &envReader{}
	cfg := &Config{
		Network: NetworkConfig{
			RPCURL:     getEnv("RPC_URL", file.Network.RPCURL),
			ChainID:    env.getInt64("CHAIN_ID", file.Network.ChainID),
			PrivateKey: getEnv("PRIVATE_KEY", ""),
			GasLimit:   env.getUint64("GAS_LIMIT", file.Network.GasLimit),
		},
		Explorer: ExplorerConfig{
			APIURL:                  getEnv("ETHERSCAN_API_URL", orDefault(file.Etherscan.APIURL, "https://api.etherscan.io/v2/api")),
			APIKey:                  getEnv("ETHERSCAN_API_KEY", ""),
			BrowserURL:              getEnv("ETHERSCAN_BROWSER_URL", orDefault(file.Etherscan.BrowserURL, "https://etherscan.io")),
			RequestsPerSecond:       env.getFloat("ETHERSCAN_RATE_LIMIT", orDefaultFloat(file.Etherscan.RateLimit, 5)),
			PollInterval:            env.getDuration("VERIFY_POLL_INTERVAL", pollInterval),
			TolerateAlreadyVerified: env.getBool("VERIFY_TOLERATE_ALREADY_VERIFIED", file.Etherscan.TolerateAlreadyVerified),
		},
		Project: ProjectConfig{
			Root:    getEnv("PROJECT_ROOT", orDefault(file.Project.Root, ".")),
			Builder: strings.ToLower(getEnv("BUILDER", orDefault(file.Project.Builder, "auto"))),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", orDefault(file.Logging.Level, "info")),
			Format: getEnv("LOG_FORMAT", file.Logging.Format),
		},
		Metrics: MetricsConfig{
			Textfile: getEnv("METRICS_TEXTFILE", file.Metrics.Textfile),
		},
		Source: source,
	}
	cfg.envErrors = env.invalid

	return cfg, nil
}

// Validate reports every missing or malformed setting at once
func (c *Config) Validate() error {
	errs := append([]error(nil), c.envErrors...)
	if c.Network.RPCURL == "" {
		errs = append(errs, errors.New("RPC_URL is required"))
	}
	if c.Network.PrivateKey == "" {
		errs = append(errs, errors.New("PRIVATE_KEY is required"))
	} else if err := validation.ValidatePrivateKey(c.Network.PrivateKey); err != nil {
		errs = append(errs, fmt.Errorf("PRIVATE_KEY: %w", err))
	}
	if c.Network.ChainID < 0 {
		errs = append(errs, errors.New("CHAIN_ID must not be negative"))
	}
	if c.Explorer.APIKey == "" {
		errs = append(errs, errors.New("ETHERSCAN_API_KEY is required"))
	}
	if c.Explorer.PollInterval <= 0 {
		errs = append(errs, errors.New("VERIFY_POLL_INTERVAL must be positive"))
	}
	if c.Explorer.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("ETHERSCAN_RATE_LIMIT must be positive"))
	}
	switch c.Project.Builder {
	case "auto", "hardhat", "foundry":
	default:
		errs = append(errs, fmt.Errorf("unknown BUILDER %q (want auto, hardhat or foundry)", c.Project.Builder))
	}
	return errors.Join(errs...)
}

// findProjectConfig loads the project file named by CDC_CONFIG, or the first
// file from projectConfigFiles in the working directory. A missing file is not an error.
func findProjectConfig() (*FileConfig, string, error) {
	if path := os.Getenv("CDC_CONFIG"); path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return nil, path, err
		}
		return file, path, nil
	}

	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil {
			file, err := LoadFile(name)
			if err != nil {
				return nil, name, err
			}
			return file, name, nil
		}
	}
	return &FileConfig{}, "", nil
}

// LoadFile decodes a project config file, choosing the format by extension
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("parsing TOML %s: %w", path, err)
		}
	}
	return &file, nil
}

// ProjectConfigFiles returns the file names searched for a project config, in order
func ProjectConfigFiles() []string {
	return append([]string(nil), projectConfigFiles...)
}

// DefaultFile returns a project file populated with the built-in defaults
func DefaultFile() *FileConfig {
	var file FileConfig
	file.Network.RPCURL = "http://127.0.0.1:8545"
	file.Etherscan.APIURL = "https://api.etherscan.io/v2/api"
	file.Etherscan.BrowserURL = "https://etherscan.io"
	file.Etherscan.RateLimit = 5
	file.Etherscan.PollInterval = "3s"
	file.Project.Root = "."
	file.Project.Builder = "auto"
	file.Logging.Level = "info"
	return &file
}

// WriteFile encodes file to path, choosing the format by extension
func WriteFile(path string, file *FileConfig) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(file); err != nil {
			return fmt.Errorf("encoding YAML %s: %w", path, err)
		}
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		if err := toml.NewEncoder(f).Encode(file); err != nil {
			return fmt.Errorf("encoding TOML %s: %w", path, err)
		}
	}
	return f.Close()
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func orDefaultFloat(value, defaultValue float64) float64 {
	if value != 0 {
		return value
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed environment values and records the ones it could not parse
type envReader struct {
	invalid []error
}

func (e *envReader) fail(key, value string) {
	e.invalid = append(e.invalid, fmt.Errorf("%s: cannot parse %q", key, value))
}

func (e *envReader) getInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		e.fail(key, value)
		return defaultValue
	}
	return i
}

func (e *envReader) getUint64(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		e.fail(key, value)
		return defaultValue
	}
	return i
}

func (e *envReader) getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.fail(key, value)
		return defaultValue
	}
	return f
}

func (e *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		e.fail(key, value)
		return defaultValue
	}
	return b
}

func (e *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare numbers are seconds
	if s, err := strconv.Atoi(value); err == nil {
		return time.Duration(s) * time.Second
	}
	e.fail(key, value)
	return defaultValue
}

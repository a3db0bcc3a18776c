package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is the spoofed browser identity sent with every request,
// both to the JSON endpoints and to the external extractor.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/128.0.0.0 Safari/537.36"

// DefaultExtractorFormat selects a single progressive file with both audio
// and video so no post-merge is usually needed.
const DefaultExtractorFormat = "best[acodec!=none][vcodec!=none]/best"

// Profile resolution strategies.
const (
	ProfileStrategyWebProfile = "web_profile"
	ProfileStrategySearch     = "search"
)

// Config holds all configuration options for the scraper.
type Config struct {
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`
	Extractor ExtractorConfig `yaml:"extractor" json:"extractor"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Profile   ProfileConfig   `yaml:"profile" json:"profile"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// InstagramConfig holds options for talking to the target service.
type InstagramConfig struct {
	BaseURL         string        `yaml:"base_url" json:"base_url"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
	CookiesPath     string        `yaml:"cookies_path" json:"cookies_path"`
	IncludeComments bool          `yaml:"include_comments" json:"include_comments"`
	MaxComments     int           `yaml:"max_comments" json:"max_comments"`
}

// ExtractorConfig holds options for the external metadata/download tool.
type ExtractorConfig struct {
	Retries       int    `yaml:"retries" json:"retries"`
	Format        string `yaml:"format" json:"format"`
	LogRawPayload bool   `yaml:"log_raw_payload" json:"log_raw_payload"`
}

// OutputConfig holds media storage configuration.
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// ProfileConfig holds profile-resolution configuration.
type ProfileConfig struct {
	Strategy     string        `yaml:"strategy" json:"strategy"`
	RequestDelay time.Duration `yaml:"request_delay" json:"request_delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			BaseURL:         "https://www.instagram.com",
			UserAgent:       DefaultUserAgent,
			RequestTimeout:  20 * time.Second,
			IncludeComments: true,
			MaxComments:     200,
		},
		Extractor: ExtractorConfig{
			Retries:       3,
			Format:        DefaultExtractorFormat,
			LogRawPayload: false,
		},
		Output: OutputConfig{
			BaseDirectory: "downloads",
		},
		Profile: ProfileConfig{
			Strategy:     ProfileStrategyWebProfile,
			RequestDelay: 250 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration overrides from environment variables.
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("REELSCRAPER_BASE_URL"); baseURL != "" {
		c.Instagram.BaseURL = baseURL
	}
	if userAgent := os.Getenv("REELSCRAPER_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}
	if timeout := os.Getenv("REELSCRAPER_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			c.Instagram.RequestTimeout = d
		}
	}
	if cookies := os.Getenv("REELSCRAPER_COOKIES_PATH"); cookies != "" {
		c.Instagram.CookiesPath = cookies
	}
	if include := os.Getenv("REELSCRAPER_INCLUDE_COMMENTS"); include != "" {
		c.Instagram.IncludeComments = parseBool(include)
	}
	if maxComments := os.Getenv("REELSCRAPER_MAX_COMMENTS"); maxComments != "" {
		if v, err := strconv.Atoi(maxComments); err == nil && v >= 0 {
			c.Instagram.MaxComments = v
		}
	}
	if retries := os.Getenv("REELSCRAPER_EXTRACTOR_RETRIES"); retries != "" {
		if v, err := strconv.Atoi(retries); err == nil && v >= 0 {
			c.Extractor.Retries = v
		}
	}
	if format := os.Getenv("REELSCRAPER_EXTRACTOR_FORMAT"); format != "" {
		c.Extractor.Format = format
	}
	if logRaw := os.Getenv("REELSCRAPER_LOG_RAW_PAYLOAD"); logRaw != "" {
		c.Extractor.LogRawPayload = parseBool(logRaw)
	}
	if outputDir := os.Getenv("REELSCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if strategy := os.Getenv("REELSCRAPER_PROFILE_STRATEGY"); strategy != "" {
		c.Profile.Strategy = strategy
	}
	if delay := os.Getenv("REELSCRAPER_PROFILE_REQUEST_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil && d >= 0 {
			c.Profile.RequestDelay = d
		}
	}
	if logLevel := os.Getenv("REELSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// LoadFromFile loads configuration from a YAML file. An empty path falls back
// to the standard locations; a missing config file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".reelscraper.yaml",
		".reelscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "reelscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "reelscraper", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".reelscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// ResolveCookiesPath validates the configured cookies file. A configured path
// must exist; an empty path falls back to ./cookies.txt when present and
// otherwise stays empty (anonymous session).
func (c *Config) ResolveCookiesPath() error {
	if c.Instagram.CookiesPath != "" {
		path, err := filepath.Abs(c.Instagram.CookiesPath)
		if err != nil {
			return fmt.Errorf("failed to resolve cookies path: %w", err)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cookies file %q does not exist", path)
		}
		c.Instagram.CookiesPath = path
		return nil
	}

	if path, err := filepath.Abs("cookies.txt"); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			c.Instagram.CookiesPath = path
		}
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}
	if c.Instagram.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Instagram.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Instagram.MaxComments < 0 {
		errs = append(errs, errors.New("max comments cannot be negative"))
	}

	if c.Extractor.Retries < 0 {
		errs = append(errs, errors.New("extractor retries cannot be negative"))
	}
	if c.Extractor.Format == "" {
		errs = append(errs, errors.New("extractor format is required"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	switch c.Profile.Strategy {
	case ProfileStrategyWebProfile, ProfileStrategySearch:
	default:
		errs = append(errs, fmt.Errorf("invalid profile strategy: %s", c.Profile.Strategy))
	}
	if c.Profile.RequestDelay < 0 {
		errs = append(errs, errors.New("profile request delay cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flag values into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if cookies, ok := flags["cookies"].(string); ok && cookies != "" {
		c.Instagram.CookiesPath = cookies
	}
	if maxComments, ok := flags["max-comments"].(int); ok && maxComments >= 0 {
		c.Instagram.MaxComments = maxComments
	}
	if noComments, ok := flags["no-comments"].(bool); ok && noComments {
		c.Instagram.IncludeComments = false
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: command line flags > environment variables > .env file >
// config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".reelscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.ResolveCookiesPath(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20*time.Second, cfg.Instagram.RequestTimeout)
	assert.True(t, cfg.Instagram.IncludeComments)
	assert.Equal(t, 200, cfg.Instagram.MaxComments)
	assert.Equal(t, ProfileStrategyWebProfile, cfg.Profile.Strategy)
	assert.Equal(t, DefaultExtractorFormat, cfg.Extractor.Format)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REELSCRAPER_USER_AGENT", "custom-agent")
	t.Setenv("REELSCRAPER_REQUEST_TIMEOUT", "45s")
	t.Setenv("REELSCRAPER_INCLUDE_COMMENTS", "false")
	t.Setenv("REELSCRAPER_MAX_COMMENTS", "50")
	t.Setenv("REELSCRAPER_PROFILE_STRATEGY", "search")
	t.Setenv("REELSCRAPER_PROFILE_REQUEST_DELAY", "1s")
	t.Setenv("REELSCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "custom-agent", cfg.Instagram.UserAgent)
	assert.Equal(t, 45*time.Second, cfg.Instagram.RequestTimeout)
	assert.False(t, cfg.Instagram.IncludeComments)
	assert.Equal(t, 50, cfg.Instagram.MaxComments)
	assert.Equal(t, ProfileStrategySearch, cfg.Profile.Strategy)
	assert.Equal(t, time.Second, cfg.Profile.RequestDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("REELSCRAPER_REQUEST_TIMEOUT", "soon")
	t.Setenv("REELSCRAPER_MAX_COMMENTS", "-5")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 20*time.Second, cfg.Instagram.RequestTimeout)
	assert.Equal(t, 200, cfg.Instagram.MaxComments)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	original := DefaultConfig()
	original.Instagram.MaxComments = 75
	original.Profile.Strategy = ProfileStrategySearch
	require.NoError(t, original.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))

	assert.Equal(t, 75, loaded.Instagram.MaxComments)
	assert.Equal(t, ProfileStrategySearch, loaded.Profile.Strategy)
}

func TestLoadFromFileMissingIsNotError(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	// no explicit path: absent standard locations are fine
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	assert.NoError(t, cfg.LoadFromFile(""))
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"cookies":      "/tmp/cookies.txt",
		"max-comments": 10,
		"no-comments":  true,
		"output":       "media",
		"log-level":    "warn",
	})

	assert.Equal(t, "/tmp/cookies.txt", cfg.Instagram.CookiesPath)
	assert.Equal(t, 10, cfg.Instagram.MaxComments)
	assert.False(t, cfg.Instagram.IncludeComments)
	assert.Equal(t, "media", cfg.Output.BaseDirectory)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestResolveCookiesPath(t *testing.T) {
	t.Run("configured path must exist", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Instagram.CookiesPath = filepath.Join(t.TempDir(), "missing.txt")
		assert.Error(t, cfg.ResolveCookiesPath())
	})

	t.Run("existing configured path is made absolute", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cookies.txt")
		require.NoError(t, os.WriteFile(path, []byte("# jar"), 0600))

		cfg := DefaultConfig()
		cfg.Instagram.CookiesPath = path
		require.NoError(t, cfg.ResolveCookiesPath())
		assert.True(t, filepath.IsAbs(cfg.Instagram.CookiesPath))
	})

	t.Run("empty path stays empty without fallback file", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		defer func() { _ = os.Chdir(wd) }()

		cfg := DefaultConfig()
		require.NoError(t, cfg.ResolveCookiesPath())
		assert.Empty(t, cfg.Instagram.CookiesPath)
	})
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty user agent", func(c *Config) { c.Instagram.UserAgent = "" }},
		{"zero timeout", func(c *Config) { c.Instagram.RequestTimeout = 0 }},
		{"negative max comments", func(c *Config) { c.Instagram.MaxComments = -1 }},
		{"empty extractor format", func(c *Config) { c.Extractor.Format = "" }},
		{"empty output dir", func(c *Config) { c.Output.BaseDirectory = "" }},
		{"unknown profile strategy", func(c *Config) { c.Profile.Strategy = "psychic" }},
		{"negative profile delay", func(c *Config) { c.Profile.RequestDelay = -time.Second }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadPrecedence(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	path := "config.yaml"
	fileCfg := DefaultConfig()
	fileCfg.Instagram.MaxComments = 40
	fileCfg.Logging.Level = "warn"
	require.NoError(t, fileCfg.Save(path))

	t.Setenv("REELSCRAPER_MAX_COMMENTS", "60")

	cfg, err := Load(path, map[string]interface{}{"log-level": "error"})
	require.NoError(t, err)

	// env beats file, flags beat both
	assert.Equal(t, 60, cfg.Instagram.MaxComments)
	assert.Equal(t, "error", cfg.Logging.Level)
}

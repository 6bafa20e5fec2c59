package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "probo.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "qa", config.Environment)
	assert.Equal(t, "chrome", config.Browser.Name)
	assert.True(t, config.Browser.Headless)
	assert.Equal(t, 4, config.Runner.Workers)
	assert.Equal(t, Duration(10*time.Second), config.Browser.ExplicitWait)
	assert.Equal(t, []string{"json"}, config.Output.Reports)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
environment = "staging"

[browser]
headless = false
window_width = 1280

[runner]
workers = 8

[environments.staging]
base_url = "https://staging.example.com"
api_base_url = "https://api.staging.example.com"
`)

	config, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", config.Environment)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, 1280, config.Browser.WindowWidth)
	// untouched defaults survive
	assert.Equal(t, 1080, config.Browser.WindowHeight)
	assert.Equal(t, 8, config.Runner.Workers)

	profile, err := config.ActiveProfile()
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", profile.BaseURL)
}

func TestLoadFromFile_StringDurations(t *testing.T) {
	path := writeConfig(t, `
environment = "qa"

[browser]
explicit_wait = "7s"
page_load_timeout = "45s"

[api]
timeout = "90s"
retry_delay = "250ms"

[runner]
case_timeout = "5m"

[environments.qa]
base_url = "http://localhost:9080"
api_base_url = "http://localhost:9080/api"
`)

	config, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7*time.Second, config.Browser.ExplicitWait.Std())
	assert.Equal(t, 45*time.Second, config.Browser.PageLoadTimeout.Std())
	assert.Equal(t, 90*time.Second, config.API.Timeout.Std())
	assert.Equal(t, 250*time.Millisecond, config.API.RetryDelay.Std())
	assert.Equal(t, 5*time.Minute, config.Runner.CaseTimeout.Std())
}

func TestLoadFromFile_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
[browser]
explicit_wait = "not-a-duration"
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadFromFiles_LaterOverridesEarlier(t *testing.T) {
	base := writeConfig(t, `
environment = "qa"

[runner]
workers = 2

[environments.qa]
base_url = "http://localhost:9080"
api_base_url = "http://localhost:9080/api"
`)
	override := writeConfig(t, `
[runner]
workers = 16
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 16, config.Runner.Workers)
	assert.Equal(t, "qa", config.Environment)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PROBO_ENV", "prod")
	t.Setenv("PROBO_RUNNER_WORKERS", "12")
	t.Setenv("PROBO_BROWSER_HEADLESS", "false")
	t.Setenv("PROBO_BROWSER_EXPLICIT_WAIT", "20s")
	t.Setenv("PROBO_BASE_URL", "https://prod.example.com")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "prod", config.Environment)
	assert.Equal(t, 12, config.Runner.Workers)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, Duration(20*time.Second), config.Browser.ExplicitWait)
	assert.Equal(t, "https://prod.example.com", config.Environments["prod"].BaseURL)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, "dev", 6)
	assert.Equal(t, "dev", config.Environment)
	assert.Equal(t, 6, config.Runner.Workers)

	// zero values leave the config unchanged
	ApplyFlagOverrides(config, "", 0)
	assert.Equal(t, "dev", config.Environment)
	assert.Equal(t, 6, config.Runner.Workers)
}

func TestEndpointOverride_FollowsEnvFlag(t *testing.T) {
	t.Setenv("PROBO_BASE_URL", "https://override.example.com")
	t.Setenv("PROBO_API_BASE_URL", "https://api.override.example.com")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	// -env switches the active profile after load; the endpoint overrides
	// must land on the profile the run actually uses
	ApplyFlagOverrides(config, "prod", 0)

	assert.Equal(t, "https://override.example.com", config.Environments["prod"].BaseURL)
	assert.Equal(t, "https://api.override.example.com", config.Environments["prod"].APIBaseURL)
}

func TestActiveProfile_Unknown(t *testing.T) {
	config := NewDefaultConfig()
	config.Environment = "prod"
	config.Environments = map[string]EnvironmentProfile{
		"qa": {BaseURL: "http://localhost:9080", APIBaseURL: "http://localhost:9080/api"},
	}

	_, err := config.ActiveProfile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown environment "prod"`)
	assert.Contains(t, err.Error(), "qa")
}

func TestValidate(t *testing.T) {
	config := NewDefaultConfig()
	config.Environments = map[string]EnvironmentProfile{
		"qa": {BaseURL: "http://localhost:9080", APIBaseURL: "http://localhost:9080/api"},
	}
	require.NoError(t, config.Validate())

	config.Runner.Workers = 0
	assert.Error(t, config.Validate())
}

func TestValidate_RequiresProfiles(t *testing.T) {
	config := NewDefaultConfig()
	assert.Error(t, config.Validate())
}

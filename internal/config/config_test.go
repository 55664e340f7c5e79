package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
logging:
  level: warn
scheduler:
  cronExpression: "*/30 * * * *"
  timezone: Europe/Berlin
downstream:
  endpoint: https://content.internal/api/batch
  timeout: 10s
retry:
  initialInterval: 1s
  multiplier: 2
  maxInterval: 4s
  maxAttempts: 5
jobs:
  - name: go-releases
    kind: github-releases
    cron: "0 * * * *"
    chunkSize: 20
    source:
      url: https://github.com/golang/go
      category: release
    params:
      repo: golang/go
  - name: golang-reddit
    kind: reddit
    cron: "-"
    source:
      url: https://www.reddit.com/r/golang
      category: community
    params:
      subreddit: golang
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(envFileEnv, filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0 6 * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, time.UTC.String(), cfg.Scheduler.Location().String())
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "X-API-Key", cfg.Downstream.APIKeyHeader)
	assert.Empty(t, cfg.Jobs)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	t.Setenv(envFileEnv, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv(downstreamAPIKeyEnv, "from-env")
	t.Setenv(databaseDSNEnv, "postgres://ingestor@db/ingestor")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format, "defaults survive partial sections")
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, 10*time.Second, cfg.Downstream.Timeout)
	assert.Equal(t, "from-env", cfg.Downstream.APIKey)
	assert.Equal(t, "postgres://ingestor@db/ingestor", cfg.Database.DSN)
	assert.Equal(t, time.Second, cfg.Retry.InitialInterval)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)

	require.Len(t, cfg.Jobs, 2)
	job, ok := cfg.Job("go-releases")
	require.True(t, ok)
	assert.Equal(t, 20, job.ChunkSize)
	assert.Equal(t, "0 * * * *", job.Schedule(cfg.Scheduler.CronExpression))

	reddit, ok := cfg.Job("golang-reddit")
	require.True(t, ok)
	assert.Empty(t, reddit.Schedule(cfg.Scheduler.CronExpression))

	require.NoError(t, cfg.Validate())
}

func TestLoadEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("TELEGRAM_BOT_TOKEN=bot-from-file\n"), 0o600))
	t.Setenv(envFileEnv, envPath)
	t.Setenv(configPathEnv, "")
	t.Setenv(telegramTokenEnv, "")
	require.NoError(t, os.Unsetenv(telegramTokenEnv))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "bot-from-file", cfg.Notifications.Telegram.BotToken)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(envFileEnv, filepath.Join(t.TempDir(), "missing.env"))

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "jobs: [oops"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "scheduler:\n  timezone: Mars/Olympus\n"))
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Jobs = []JobConfig{
		{Name: "a", Kind: KindFeed, Source: SourceConfig{URL: "https://blog", Category: "blog"}},
		{Name: "a", Kind: "ftp"},
		{Kind: KindArxiv},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	for _, fragment := range []string{
		"downstream.endpoint is required",
		"job a: url is required",
		"job a: duplicate name",
		`job a: unknown kind "ftp"`,
		"jobs[2]: name is required",
	} {
		assert.Contains(t, err.Error(), fragment)
	}
}

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ContentIngestor/internal/infrastructure/cache"
	"ContentIngestor/internal/infrastructure/source"
	"ContentIngestor/internal/logging"
	"ContentIngestor/internal/retry"
	"ContentIngestor/internal/writer"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "INGESTOR_CONFIG"
	envFileEnv      = "ENV_FILE"

	databaseDSNEnv        = "DATABASE_DSN"
	redisAddressEnv       = "REDIS_ADDR"
	redisPasswordEnv      = "REDIS_PASSWORD"
	downstreamEndpointEnv = "DOWNSTREAM_ENDPOINT"
	downstreamAPIKeyEnv   = "DOWNSTREAM_API_KEY"
	githubTokenEnv        = "GITHUB_TOKEN"
	telegramTokenEnv      = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv     = "TELEGRAM_CHAT_ID"
	logLevelEnv           = "LOG_LEVEL"
	metricsAddressEnv     = "METRICS_ADDR"
)

// Job kinds understood by the application.
const (
	KindGitHubReleases = "github-releases"
	KindReddit         = "reddit"
	KindFeed           = "feed"
	KindArxiv          = "arxiv"
)

// ErrInvalid marks a configuration that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config holds high-level settings required across the application.
type Config struct {
	Logging       logging.Config     `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Downstream    writer.Config      `yaml:"downstream"`
	Redis         cache.Config       `yaml:"redis"`
	Database      DatabaseConfig     `yaml:"database"`
	Retry         retry.Policy       `yaml:"retry"`
	HTTP          source.HTTPConfig  `yaml:"http"`
	Upstreams     UpstreamConfig     `yaml:"upstreams"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Jobs          []JobConfig        `yaml:"jobs"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN keeps
// the run ledger in memory.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when jobs without their own cron run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// UpstreamConfig points source clients at their APIs.
type UpstreamConfig struct {
	GitHubAPIURL string `yaml:"githubApiUrl"`
	GitHubToken  string `yaml:"githubToken"`
	RedditURL    string `yaml:"redditUrl"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// MetricsConfig controls the Prometheus endpoint of the serve command.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// SourceConfig is the registry key of a job's source.
type SourceConfig struct {
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// JobConfig describes one ingestion job.
type JobConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// Cron overrides the scheduler default; "-" disables scheduling.
	Cron          string            `yaml:"cron"`
	ChunkSize     int               `yaml:"chunkSize"`
	PageSize      int               `yaml:"pageSize"`
	Limit         int               `yaml:"limit"`
	SummaryLength int               `yaml:"summaryLength"`
	Source        SourceConfig      `yaml:"source"`
	URL           string            `yaml:"url"`
	Params        map[string]string `yaml:"params"`
}

// Schedule returns the effective cron expression, or "" for manual-only jobs.
func (j JobConfig) Schedule(fallback string) string {
	switch strings.TrimSpace(j.Cron) {
	case "-":
		return ""
	case "":
		return fallback
	default:
		return j.Cron
	}
}

// Load reads .env files, the YAML file at path (or $INGESTOR_CONFIG), and
// applies environment overrides. A missing path yields the defaults.
func Load(path string) (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles() error {
	if envFile := os.Getenv(envFileEnv); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "load env file %s", envFile)
		}
		return nil
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "load .env")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	overrides := map[string]*string{
		databaseDSNEnv:        &c.Database.DSN,
		redisAddressEnv:       &c.Redis.Address,
		redisPasswordEnv:      &c.Redis.Password,
		downstreamEndpointEnv: &c.Downstream.Endpoint,
		downstreamAPIKeyEnv:   &c.Downstream.APIKey,
		githubTokenEnv:        &c.Upstreams.GitHubToken,
		telegramTokenEnv:      &c.Notifications.Telegram.BotToken,
		telegramChatIDEnv:     &c.Notifications.Telegram.ChatID,
		logLevelEnv:           &c.Logging.Level,
		metricsAddressEnv:     &c.Metrics.Address,
	}
	for env, field := range overrides {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "unknown timezone %s", tz), ErrInvalid)
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
	return nil
}

// Job returns the job configuration named name.
func (c Config) Job(name string) (JobConfig, bool) {
	for _, j := range c.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobConfig{}, false
}

// Validate checks the settings every job needs before anything starts.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Jobs) > 0 && strings.TrimSpace(c.Downstream.Endpoint) == "" {
		add("downstream.endpoint is required")
	}

	seen := map[string]bool{}
	for i, j := range c.Jobs {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			add("jobs[%d]: name is required", i)
			continue
		}
		if seen[name] {
			add("job %s: duplicate name", name)
		}
		seen[name] = true

		if j.Source.URL == "" || j.Source.Category == "" {
			add("job %s: source.url and source.category are required", name)
		}

		switch j.Kind {
		case KindGitHubReleases:
			if j.Params["repo"] == "" {
				add("job %s: params.repo is required", name)
			}
		case KindReddit:
			if j.Params["subreddit"] == "" {
				add("job %s: params.subreddit is required", name)
			}
		case KindFeed, KindArxiv:
			if j.URL == "" {
				add("job %s: url is required", name)
			}
		default:
			add("job %s: unknown kind %q", name, j.Kind)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.Mark(errors.New(strings.Join(problems, "; ")), ErrInvalid)
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   logging.Config{Level: "info", Format: "json"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Downstream: writer.Config{
			APIKeyHeader: "X-API-Key",
			Timeout:      30 * time.Second,
		},
		Redis: cache.Config{Address: "localhost:6379"},
		Retry: retry.DefaultPolicy(),
		HTTP: source.HTTPConfig{
			Timeout:           20 * time.Second,
			RequestsPerSecond: 1,
			Burst:             1,
		},
		Upstreams: UpstreamConfig{
			GitHubAPIURL: "https://api.github.com",
			RedditURL:    "https://www.reddit.com",
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
		},
		Metrics: MetricsConfig{Address: ":9090"},
	}
}

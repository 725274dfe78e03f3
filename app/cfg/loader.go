package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Remote store configuration
	RemoteBackend string `long:"remote-backend" env:"REMOTE_BACKEND" default:"github" choice:"github" choice:"sqlite" description:"Remote store backend"`
	RepoURL       string `long:"repo-url" env:"GIT_REPO_URL" description:"Remote repository URL (https://github.com/<owner>/<name>)"`
	GitToken      string `long:"git-token" env:"GIT_TOKEN" description:"Access token for the remote repository"`
	GitBranch     string `long:"git-branch" env:"GIT_BRANCH" default:"main" description:"Branch holding the canonical feed"`
	GitHubAPIURL  string `long:"github-api-url" env:"GITHUB_API_URL" description:"Override for the GitHub API base URL"`
	RemotePath    string `long:"remote-path" env:"REMOTE_PATH" default:"feed.xml" description:"Path of the feed resource in the remote store"`
	SQLitePath    string `long:"sqlite-path" env:"SQLITE_PATH" default:"./data/remote.db" description:"Database file for the sqlite backend"`

	// Feed configuration
	FeedFile    string `long:"feed-file" env:"FEED_FILE" default:"feed.xml" description:"Local feed document"`
	MaxEntries  int    `long:"max-entries" env:"MAX_ENTRIES" default:"50" description:"Maximum number of feed entries"`
	BriefsDir   string `long:"briefs-dir" env:"BRIEFS_DIR" default:"dailybrief" description:"Directory holding daily briefs"`
	ArticlesDir string `long:"articles-dir" env:"ARTICLES_DIR" default:"articles" description:"Directory holding daily article digests"`
	ChannelFile string `long:"channel-file" env:"CHANNEL_FILE" description:"YAML file with channel metadata (optional)"`

	// Source and summarizer configuration
	SourceURL   string `long:"source-url" env:"SOURCE_URL" default:"https://www.theatlantic.com/feed/all/" description:"Source feed URL"`
	Summarizer  string `long:"summarizer" env:"SUMMARIZER" default:"anthropic" choice:"anthropic" choice:"openai" description:"Summarization provider"`
	AIAPIKey    string `long:"ai-api-key" env:"AI_API_KEY" description:"Summarization provider API key"`
	AIModel     string `long:"ai-model" env:"AI_MODEL" default:"claude-3-5-haiku-latest" description:"Summarization model"`
	AIBaseURL   string `long:"ai-base-url" env:"AI_BASE_URL" description:"Summarization provider base URL (optional)"`
	PromptFile  string `long:"prompt-file" env:"PROMPT_FILE" description:"File with a custom summarization prompt (optional)"`
	FetchPeriod int    `long:"fetch-period" env:"FETCH_PERIOD" default:"3" description:"Minimum seconds between article page requests"`

	// Scheduling
	ScheduleHour   int    `long:"schedule-hour" env:"SCHEDULE_HOUR" default:"12" description:"Hour of the daily cycle"`
	ScheduleMinute int    `long:"schedule-minute" env:"SCHEDULE_MINUTE" default:"0" description:"Minute of the daily cycle"`
	PingURL        string `long:"ping-url" env:"PING_URL" description:"Keep-alive URL (optional)"`
	PingInterval   int    `long:"ping-interval" env:"PING_INTERVAL" default:"300" description:"Keep-alive interval in seconds"`
	RequestTimeout int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Timeout for network calls in seconds"`
	WorkerCount    int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`

	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8000" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://brief.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RSS Brief/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Asia/Shanghai" description:"Timezone for the schedule and date keys"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func DefaultChannel() Channel {
	return Channel{
		ID:           "https://www.theatlantic.com/",
		Title:        "The Atlantic Daily Brief",
		Link:         "https://www.theatlantic.com/",
		Description:  "Daily summaries of The Atlantic articles",
		Language:     "zh",
		GUIDBase:     "https://www.theatlantic.com/daily-brief",
		TitlePrefix:  "The Atlantic 每日综述",
		DefaultTitle: "未知日期",
		DateLayout:   "2006年01月02日",
		DigestTitle:  "The Atlantic 每日文章",
	}
}

// Load parses args and the environment. It returns (nil, nil) when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, &ConfigError{Field: "flags", Err: err}
	}

	cfg := &Cfg{
		RemoteBackend:  raw.RemoteBackend,
		RepoURL:        raw.RepoURL,
		GitToken:       strings.TrimSpace(raw.GitToken),
		GitBranch:      raw.GitBranch,
		GitHubAPIURL:   raw.GitHubAPIURL,
		RemotePath:     raw.RemotePath,
		SQLitePath:     raw.SQLitePath,
		FeedFile:       raw.FeedFile,
		MaxEntries:     raw.MaxEntries,
		BriefsDir:      raw.BriefsDir,
		ArticlesDir:    raw.ArticlesDir,
		SourceURL:      raw.SourceURL,
		Summarizer:     raw.Summarizer,
		AIAPIKey:       raw.AIAPIKey,
		AIModel:        raw.AIModel,
		AIBaseURL:      raw.AIBaseURL,
		FetchPeriod:    time.Duration(raw.FetchPeriod) * time.Second,
		ScheduleHour:   raw.ScheduleHour,
		ScheduleMinute: raw.ScheduleMinute,
		PingURL:        raw.PingURL,
		PingInterval:   time.Duration(raw.PingInterval) * time.Second,
		RequestTimeout: time.Duration(raw.RequestTimeout) * time.Second,
		WorkerCount:    raw.WorkerCount,
		Port:           raw.Port,
		BaseUrl:        strings.TrimSuffix(raw.BaseUrl, "/"),
		APIAccessKey:   raw.APIAccessKey,
		UserAgent:      raw.UserAgent,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	channel, err := loadChannel(raw.ChannelFile)
	if err != nil {
		return nil, err
	}
	cfg.Channel = channel

	if raw.PromptFile != "" {
		prompt, err := os.ReadFile(raw.PromptFile)
		if err != nil {
			return nil, &ConfigError{Field: "prompt-file", Err: err}
		}
		cfg.Prompt = strings.TrimSpace(string(prompt))
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadChannel(path string) (Channel, error) {
	channel := DefaultChannel()
	if path == "" {
		return channel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Channel{}, &ConfigError{Field: "channel-file", Err: err}
	}

	var override Channel
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Channel{}, &ConfigError{Field: "channel-file", Err: fmt.Errorf("failed to parse YAML: %w", err)}
	}

	channel.ID = cmp.Or(override.ID, channel.ID)
	channel.Title = cmp.Or(override.Title, channel.Title)
	channel.Link = cmp.Or(override.Link, channel.Link)
	channel.Description = cmp.Or(override.Description, channel.Description)
	channel.Language = cmp.Or(override.Language, channel.Language)
	channel.GUIDBase = cmp.Or(override.GUIDBase, channel.GUIDBase)
	channel.TitlePrefix = cmp.Or(override.TitlePrefix, channel.TitlePrefix)
	channel.DefaultTitle = cmp.Or(override.DefaultTitle, channel.DefaultTitle)
	channel.DateLayout = cmp.Or(override.DateLayout, channel.DateLayout)
	channel.DigestTitle = cmp.Or(override.DigestTitle, channel.DigestTitle)

	return channel, nil
}

func validate(cfg *Cfg) error {
	if cfg.RemoteBackend == BackendGitHub {
		if strings.TrimSpace(cfg.RepoURL) == "" {
			return &ConfigError{Field: "repo-url", Err: errors.New("GIT_REPO_URL is not set")}
		}
		if cfg.GitToken == "" {
			return &ConfigError{Field: "git-token", Err: errors.New("GIT_TOKEN is not set")}
		}
		owner, name, err := ParseRepoLocator(cfg.RepoURL)
		if err != nil {
			return &ConfigError{Field: "repo-url", Err: err}
		}
		cfg.RepoOwner, cfg.RepoName = owner, name
	}

	if cfg.MaxEntries <= 0 {
		return &ConfigError{Field: "max-entries", Err: fmt.Errorf("must be positive, got %d", cfg.MaxEntries)}
	}
	if cfg.ScheduleHour < 0 || cfg.ScheduleHour > 23 {
		return &ConfigError{Field: "schedule-hour", Err: fmt.Errorf("must be within 0-23, got %d", cfg.ScheduleHour)}
	}
	if cfg.ScheduleMinute < 0 || cfg.ScheduleMinute > 59 {
		return &ConfigError{Field: "schedule-minute", Err: fmt.Errorf("must be within 0-59, got %d", cfg.ScheduleMinute)}
	}
	if cfg.RequestTimeout <= 0 {
		return &ConfigError{Field: "request-timeout", Err: errors.New("must be positive")}
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return &ConfigError{Field: "timezone", Err: err}
	}
	cfg.Location = loc

	tag, err := language.Parse(cfg.Channel.Language)
	if err != nil {
		return &ConfigError{Field: "channel language", Err: err}
	}
	cfg.Channel.Language = tag.String()

	return nil
}

// ParseRepoLocator extracts owner and name from a GitHub repository URL.
// Supported forms:
//   - https://github.com/owner/repo(.git)
//   - git@github.com:owner/repo.git
func ParseRepoLocator(locator string) (owner, name string, err error) {
	locator = strings.TrimSpace(locator)

	var path string
	switch {
	case strings.HasPrefix(locator, "https://github.com/"):
		path = strings.TrimPrefix(locator, "https://github.com/")
	case strings.HasPrefix(locator, "git@github.com:"):
		path = strings.TrimPrefix(locator, "git@github.com:")
	default:
		return "", "", fmt.Errorf("not a GitHub repository URL: %q", locator)
	}

	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot resolve owner and name from %q", locator)
	}

	return parts[0], parts[1], nil
}

package cfg

import (
	"fmt"
	"time"
)

const (
	BackendGitHub = "github"
	BackendSQLite = "sqlite"

	SummarizerAnthropic = "anthropic"
	SummarizerOpenAI    = "openai"
)

type Cfg struct {
	// Remote store configuration
	RemoteBackend string
	RepoURL       string
	RepoOwner     string
	RepoName      string
	GitToken      string
	GitBranch     string
	GitHubAPIURL  string
	RemotePath    string
	SQLitePath    string

	// Feed configuration
	FeedFile    string
	MaxEntries  int
	BriefsDir   string
	ArticlesDir string
	Channel     Channel

	// Source and summarizer configuration
	SourceURL   string
	Summarizer  string
	AIAPIKey    string
	AIModel     string
	AIBaseURL   string
	Prompt      string
	FetchPeriod time.Duration

	// Scheduling
	ScheduleHour   int
	ScheduleMinute int
	Location       *time.Location
	PingURL        string
	PingInterval   time.Duration
	RequestTimeout time.Duration
	WorkerCount    int

	// HTTP server
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// Channel describes the published feed. Loaded from the optional channel YAML file.
type Channel struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title"`
	Link         string `yaml:"link"`
	Description  string `yaml:"description"`
	Language     string `yaml:"language"`
	GUIDBase     string `yaml:"guid_base"`
	TitlePrefix  string `yaml:"title_prefix"`
	DefaultTitle string `yaml:"default_title"`
	DateLayout   string `yaml:"date_layout"`  // human readable date in brief headings
	DigestTitle  string `yaml:"digest_title"` // heading of the daily article digest
}

// ConfigError is fatal at startup; a cycle never begins with an invalid configuration.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

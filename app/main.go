package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-brief/app/api"
	"github.com/lysyi3m/rss-brief/app/cfg"
	"github.com/lysyi3m/rss-brief/app/cycle"
	"github.com/lysyi3m/rss-brief/app/database"
	"github.com/lysyi3m/rss-brief/app/feed"
	"github.com/lysyi3m/rss-brief/app/reconcile"
	"github.com/lysyi3m/rss-brief/app/remote"
	"github.com/lysyi3m/rss-brief/app/source"
	"github.com/lysyi3m/rss-brief/app/summarize"
	"github.com/lysyi3m/rss-brief/app/tasks"
)

const summarizeTimeout = 5 * time.Minute

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting RSS Brief",
		"version", appCfg.Version,
		"backend", appCfg.RemoteBackend,
		"source", appCfg.SourceURL,
		"summarizer", appCfg.Summarizer,
		"timezone", appCfg.Timezone)

	if err := run(appCfg); err != nil {
		slog.Error("RSS Brief stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("RSS Brief shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(lowerLevel(lvl))
				}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(handler))
}

func lowerLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

func run(appCfg *cfg.Cfg) error {
	httpClient := &http.Client{Timeout: appCfg.RequestTimeout}

	store, closer, err := newRemoteStore(appCfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	provider, err := summarize.NewProvider(summarize.Config{
		Provider: appCfg.Summarizer,
		APIKey:   appCfg.AIAPIKey,
		BaseURL:  appCfg.AIBaseURL,
		Model:    appCfg.AIModel,
	})
	if err != nil {
		return &cfg.ConfigError{Field: "summarizer", Err: err}
	}

	summarizer, err := summarize.NewSummarizer(provider, summarize.Options{
		Prompt:      appCfg.Prompt,
		TitlePrefix: appCfg.Channel.TitlePrefix,
		DateLayout:  appCfg.Channel.DateLayout,
		Location:    appCfg.Location,
		Timeout:     summarizeTimeout,
		MaxRetries:  3,
	})
	if err != nil {
		return &cfg.ConfigError{Field: "prompt-file", Err: err}
	}

	selfLink := ""
	if appCfg.BaseUrl != "" {
		selfLink = appCfg.BaseUrl + "/feed.xml"
	}

	pipeline := cycle.NewPipeline(cycle.Components{
		Fetcher:    source.NewFetcher(httpClient, appCfg.SourceURL, appCfg.UserAgent, appCfg.RequestTimeout),
		Collector:  source.NewExtractor(httpClient, appCfg.UserAgent, appCfg.FetchPeriod, appCfg.RequestTimeout),
		Summarizer: summarizer,
		Reconciler: reconcile.New(store, appCfg.FeedFile, appCfg.RemotePath),
		Briefs:     feed.NewBriefStore(appCfg.BriefsDir),
		Articles:   feed.NewBriefStore(appCfg.ArticlesDir),
		Aggregator: feed.NewAggregator(feed.AggregatorOptions{
			GUIDBase:     appCfg.Channel.GUIDBase,
			TitlePrefix:  appCfg.Channel.TitlePrefix,
			DefaultTitle: appCfg.Channel.DefaultTitle,
		}, feed.NewRenderer()),
		Generator: feed.NewGenerator(selfLink, appCfg.Version),
		Parser:    feed.NewParser(),
	}, cycle.Options{
		FeedPath:   appCfg.FeedFile,
		MaxEntries: appCfg.MaxEntries,
		Channel: feed.Channel{
			ID:          appCfg.Channel.ID,
			Title:       appCfg.Channel.Title,
			Link:        appCfg.Channel.Link,
			Description: appCfg.Channel.Description,
			Language:    appCfg.Channel.Language,
		},
		DigestTitle: appCfg.Channel.DigestTitle,
		DateLayout:  appCfg.Channel.DateLayout,
		Location:    appCfg.Location,
	})

	scheduler := tasks.NewScheduler(pipeline, httpClient, tasks.Options{
		Hour:         appCfg.ScheduleHour,
		Minute:       appCfg.ScheduleMinute,
		Location:     appCfg.Location,
		SyncOnStart:  true,
		PingURL:      appCfg.PingURL,
		PingInterval: appCfg.PingInterval,
		WorkerCount:  appCfg.WorkerCount,
		PingTimeout:  appCfg.RequestTimeout,
		UserAgent:    appCfg.UserAgent,
	})

	handler := api.NewHandler(appCfg.FeedFile, appCfg.Version, pipeline, scheduler)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start()
	defer func() {
		scheduler.Stop()
		slog.Info("Background scheduler stopped")
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		slog.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newRemoteStore selects the remote backend. The returned closer releases
// backend resources.
func newRemoteStore(appCfg *cfg.Cfg) (remote.Store, io.Closer, error) {
	switch appCfg.RemoteBackend {
	case cfg.BackendSQLite:
		db, err := database.Open(appCfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open remote database: %w", err)
		}
		slog.Info("Using sqlite remote store", "path", appCfg.SQLitePath)
		return remote.NewSQLiteStore(database.NewResourceRepository(db), appCfg.RequestTimeout), db, nil

	case cfg.BackendGitHub:
		store, err := remote.NewGitHubStore(remote.GitHubOptions{
			Owner:   appCfg.RepoOwner,
			Repo:    appCfg.RepoName,
			Branch:  appCfg.GitBranch,
			Token:   appCfg.GitToken,
			APIURL:  appCfg.GitHubAPIURL,
			Timeout: appCfg.RequestTimeout,
		})
		if err != nil {
			return nil, nil, &cfg.ConfigError{Field: "repo-url", Err: err}
		}
		slog.Info("Using GitHub remote store", "owner", appCfg.RepoOwner, "repo", appCfg.RepoName, "branch", appCfg.GitBranch)
		return store, nopCloser{}, nil

	default:
		return nil, nil, &cfg.ConfigError{Field: "remote-backend", Err: fmt.Errorf("unsupported backend %q", appCfg.RemoteBackend)}
	}
}

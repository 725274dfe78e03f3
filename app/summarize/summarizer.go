package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/lysyi3m/rss-brief/app/feed"
)

var ErrEmptySummary = errors.New("provider returned an empty summary")

type Options struct {
	Prompt      string // text/template with .TitlePrefix and .Date; empty selects DefaultPrompt
	TitlePrefix string
	DateLayout  string
	Location    *time.Location
	Timeout     time.Duration // per provider call
	MaxRetries  uint64
	InitialWait time.Duration
}

// Summarizer turns a day's article digest into a brief.
type Summarizer struct {
	provider Provider
	opts     Options
	prompt   *template.Template
}

func NewSummarizer(provider Provider, opts Options) (*Summarizer, error) {
	tmpl, err := parsePrompt(opts.Prompt)
	if err != nil {
		return nil, err
	}

	if opts.DateLayout == "" {
		opts.DateLayout = "2006-01-02"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.InitialWait <= 0 {
		opts.InitialWait = 2 * time.Second
	}

	return &Summarizer{
		provider: provider,
		opts:     opts,
		prompt:   tmpl,
	}, nil
}

// Summarize produces the brief for the day of t. Transient provider failures
// are retried with exponential backoff.
func (s *Summarizer) Summarize(ctx context.Context, t time.Time, digest string) (feed.Brief, error) {
	local := t.In(s.opts.Location)
	date := local.Format(s.opts.DateLayout)

	instructions, err := renderPrompt(s.prompt, promptData{TitlePrefix: s.opts.TitlePrefix, Date: date})
	if err != nil {
		return feed.Brief{}, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.opts.InitialWait
	bo.MaxElapsedTime = 0

	attempts := 0
	var text string
	err = backoff.Retry(func() error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()

		out, err := s.provider.Complete(callCtx, instructions, digest)
		if err != nil {
			if ctx.Err() != nil || !isRetryable(err) {
				return backoff.Permanent(err)
			}
			slog.Warn("Summarization attempt failed", "provider", s.provider.Name(), "attempt", attempts, "error", err)
			return err
		}

		if strings.TrimSpace(out) == "" {
			return backoff.Permanent(ErrEmptySummary)
		}

		text = out
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, s.opts.MaxRetries), ctx))
	if err != nil {
		return feed.Brief{}, fmt.Errorf("failed to summarize after %d attempts: %w", attempts, err)
	}

	body := s.ensureHeading(strings.TrimSpace(text), date) + "\n"

	slog.Debug("Brief generated", "provider", s.provider.Name(), "attempts", attempts, "length", len(body))

	return feed.Brief{
		DateKey: local.Format(feed.DateKeyLayout),
		Body:    body,
	}, nil
}

// ensureHeading prepends the expected level-one heading when the provider
// omitted it.
func (s *Summarizer) ensureHeading(text, date string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "# ") {
			return text
		}
	}

	heading := date
	if s.opts.TitlePrefix != "" {
		heading = s.opts.TitlePrefix + " - " + date
	}
	return "# " + heading + "\n\n" + text
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return retryableStatus(anthropicErr.StatusCode)
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.StatusCode)
	}

	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

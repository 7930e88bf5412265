// Package notify delivers change notifications to a push service.
package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/law-makers/reviewwatch/internal/config"
	"github.com/law-makers/reviewwatch/internal/runctx"
	"github.com/law-makers/reviewwatch/pkg/models"
)

// Sink is a push destination. Notify reports delivery success and never
// panics or returns an error; failures are logged by the sink.
type Sink interface {
	Name() string
	Notify(ctx context.Context, title, body string) bool
}

// New builds the sink named in cfg.Sink.
func New(cfg config.NotifyConfig) (Sink, error) {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "reviewwatch/1.0")

	switch cfg.Sink {
	case "pushme":
		return &PushMe{client: client, url: cfg.PushMeURL, key: cfg.PushKey}, nil
	case "bark":
		return &Bark{client: client, base: strings.TrimRight(cfg.BarkBase, "/")}, nil
	case "pushdeer":
		return &PushDeer{client: client, url: cfg.PushDeerURL, key: cfg.PushKey}, nil
	case "log":
		return LogSink{}, nil
	default:
		return nil, fmt.Errorf("unknown notify sink %q", cfg.Sink)
	}
}

// FormatBody renders one line per review, numbered from 1 in table order,
// then the final verdict when there is one.
func FormatBody(s *models.Snapshot) string {
	if s == nil {
		return ""
	}
	lines := make([]string, 0, len(s.Reviews)+1)
	for i, r := range s.Reviews {
		lines = append(lines, fmt.Sprintf("%d: %s(%s)", i+1, r.OverallEvaluation, r.ReviewResult))
	}
	if s.FinalResult != "" {
		lines = append(lines, s.FinalResult)
	}
	return strings.Join(lines, "\n")
}

// delivered turns a resty outcome into the Sink contract.
func delivered(ctx context.Context, sink, title string, resp *resty.Response, err error) bool {
	logger := runctx.Logger(ctx)
	if err != nil {
		logger.Error().Err(err).Str("sink", sink).Msg("Notification request failed")
		return false
	}
	if !resp.IsSuccess() {
		logger.Error().
			Str("sink", sink).
			Int("status", resp.StatusCode()).
			Str("response", truncate(resp.String(), 200)).
			Msg("Notification rejected")
		return false
	}
	logger.Info().Str("sink", sink).Str("title", title).Msg("Notification sent")
	return true
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

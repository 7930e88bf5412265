package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/law-makers/reviewwatch/internal/runctx"
)

// PushMe posts a form to a push.i-i.me compatible endpoint.
type PushMe struct {
	client *resty.Client
	url    string
	key    string
}

func (p *PushMe) Name() string { return "pushme" }

func (p *PushMe) Notify(ctx context.Context, title, body string) bool {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "*/*").
		SetHeader("Accept-Language", "zh-CN,zh;q=0.9").
		SetFormData(map[string]string{
			"push_key": p.key,
			"title":    title,
			"content":  body,
			"type":     "text",
			"date":     "date",
		}).
		Post(p.url)
	return delivered(ctx, p.Name(), title, resp, err)
}

// Bark sends a GET to <base>/<title>/<body>.
type Bark struct {
	client *resty.Client
	base   string
}

func (b *Bark) Name() string { return "bark" }

func (b *Bark) Notify(ctx context.Context, title, body string) bool {
	target := fmt.Sprintf("%s/%s/%s", b.base, url.PathEscape(title), url.PathEscape(body))
	resp, err := b.client.R().SetContext(ctx).Get(target)
	return delivered(ctx, b.Name(), title, resp, err)
}

// PushDeer sends title and body as a single text query parameter.
type PushDeer struct {
	client *resty.Client
	url    string
	key    string
}

func (p *PushDeer) Name() string { return "pushdeer" }

func (p *PushDeer) Notify(ctx context.Context, title, body string) bool {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"pushkey": p.key,
			"text":    title + body,
		}).
		Get(p.url)
	return delivered(ctx, p.Name(), title, resp, err)
}

// LogSink only logs the message. Useful for dry runs.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Notify(ctx context.Context, title, body string) bool {
	runctx.Logger(ctx).Info().Str("title", title).Str("body", body).Msg("Notification (log sink)")
	return true
}

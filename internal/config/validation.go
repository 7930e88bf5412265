package config

import (
	"fmt"
	"net/url"
	"slices"
	"time"
)

func validate(c *Config) error {
	u, err := url.Parse(c.TargetURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("target url must be an absolute URL: %q", c.TargetURL)
	}
	if c.StateFile == "" {
		return fmt.Errorf("state file path is required")
	}

	t := c.Timeouts
	for name, d := range map[string]time.Duration{
		"page_load":     t.PageLoad,
		"script":        t.Script,
		"element":       t.Element,
		"target_wait":   t.TargetWait,
		"poll_interval": t.PollInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be > 0", name)
		}
	}
	if t.Settle < 0 || t.Render < 0 || c.Login.Pause < 0 || c.Login.SubmitWait < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify timeout must be > 0")
	}
	if !slices.Contains(Sinks, c.Notify.Sink) {
		return fmt.Errorf("unknown notify sink %q (expected one of %v)", c.Notify.Sink, Sinks)
	}
	if c.Notify.Sink == "bark" && c.Notify.BarkBase == "" {
		return fmt.Errorf("notify.bark_base is required for the bark sink")
	}
	if c.Watch.Schedule == "" {
		return fmt.Errorf("watch schedule must not be empty")
	}
	return nil
}

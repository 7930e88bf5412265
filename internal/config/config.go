package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values.
//
// It is built once by Load and handed to component constructors; nothing
// mutates it afterwards.
type Config struct {
	TargetURL string `mapstructure:"target_url"`
	StateFile string `mapstructure:"state_file"`

	Log       LogConfig      `mapstructure:"log"`
	Browser   BrowserConfig  `mapstructure:"browser"`
	Timeouts  TimeoutConfig  `mapstructure:"timeouts"`
	Login     LoginConfig    `mapstructure:"login"`
	Selectors SelectorConfig `mapstructure:"selectors"`
	Notify    NotifyConfig   `mapstructure:"notify"`
	Watch     WatchConfig    `mapstructure:"watch"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// BrowserConfig configures the Chrome session.
type BrowserConfig struct {
	Headless   bool   `mapstructure:"headless"`
	ChromePath string `mapstructure:"chrome_path"`
	Proxy      string `mapstructure:"proxy"`
	UserAgent  string `mapstructure:"user_agent"`
}

// TimeoutConfig bounds every wait the browser side can perform.
type TimeoutConfig struct {
	PageLoad     time.Duration `mapstructure:"page_load"`
	Script       time.Duration `mapstructure:"script"`
	Element      time.Duration `mapstructure:"element"`
	TargetWait   time.Duration `mapstructure:"target_wait"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// Settle is the pause after each navigation.
	Settle time.Duration `mapstructure:"settle"`
	// Render is the pause between the table appearing and reading it.
	Render time.Duration `mapstructure:"render"`
}

// LoginConfig holds portal credentials and login pacing.
type LoginConfig struct {
	Account    string        `mapstructure:"account"`
	Password   string        `mapstructure:"password"`
	Pause      time.Duration `mapstructure:"pause"`
	SubmitWait time.Duration `mapstructure:"submit_wait"`
}

// SelectorConfig holds the CSS selectors used against the portal page.
type SelectorConfig struct {
	LoginForm string `mapstructure:"login_form"`
	Password  string `mapstructure:"password"`
	Submit    string `mapstructure:"submit"`
	Table     string `mapstructure:"table"`
	Rows      string `mapstructure:"rows"`
	Cells     string `mapstructure:"cells"`
	Footer    string `mapstructure:"footer"`
}

// NotifyConfig selects and configures the single active sink.
type NotifyConfig struct {
	Sink        string        `mapstructure:"sink"`
	Title       string        `mapstructure:"title"`
	PushKey     string        `mapstructure:"push_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PushMeURL   string        `mapstructure:"pushme_url"`
	BarkBase    string        `mapstructure:"bark_base"`
	PushDeerURL string        `mapstructure:"pushdeer_url"`
}

// WatchConfig configures the in-process scheduler used by the watch command.
type WatchConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// Load builds a Config by combining defaults, an optional config file and
// environment variables.
//
// The config file is reviewwatch.yaml in the working directory, or the path in
// REVIEWWATCH_CONFIG. Every key can be overridden with REVIEWWATCH_<KEY>, dots
// replaced by underscores. PUSH_KEY, ZJUAM_ACCOUNT, ZJUAM_PASSWORD and
// CHROME_PATH are also honoured unprefixed.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("REVIEWWATCH_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reviewwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("REVIEWWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("notify.push_key", "REVIEWWATCH_NOTIFY_PUSH_KEY", "PUSH_KEY")
	_ = v.BindEnv("login.account", "REVIEWWATCH_LOGIN_ACCOUNT", "ZJUAM_ACCOUNT")
	_ = v.BindEnv("login.password", "REVIEWWATCH_LOGIN_PASSWORD", "ZJUAM_PASSWORD")
	_ = v.BindEnv("browser.chrome_path", "REVIEWWATCH_BROWSER_CHROME_PATH", "CHROME_PATH")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target_url", DefaultTargetURL)
	v.SetDefault("state_file", DefaultStateFile)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultJSONLog)

	v.SetDefault("browser.headless", DefaultHeadless)
	v.SetDefault("browser.chrome_path", "")
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.user_agent", DefaultUserAgent)

	v.SetDefault("timeouts.page_load", DefaultPageLoadTimeout)
	v.SetDefault("timeouts.script", DefaultScriptTimeout)
	v.SetDefault("timeouts.element", DefaultElementTimeout)
	v.SetDefault("timeouts.target_wait", DefaultTargetWaitTimeout)
	v.SetDefault("timeouts.poll_interval", DefaultPollInterval)
	v.SetDefault("timeouts.settle", DefaultSettleDelay)
	v.SetDefault("timeouts.render", DefaultRenderDelay)

	v.SetDefault("login.account", "")
	v.SetDefault("login.password", "")
	v.SetDefault("login.pause", DefaultLoginPause)
	v.SetDefault("login.submit_wait", DefaultLoginSubmitWait)

	v.SetDefault("selectors.login_form", DefaultLoginFormSelector)
	v.SetDefault("selectors.password", DefaultPasswordSelector)
	v.SetDefault("selectors.submit", DefaultSubmitSelector)
	v.SetDefault("selectors.table", DefaultTableSelector)
	v.SetDefault("selectors.rows", DefaultRowSelector)
	v.SetDefault("selectors.cells", DefaultCellSelector)
	v.SetDefault("selectors.footer", DefaultFooterSelector)

	v.SetDefault("notify.sink", DefaultSink)
	v.SetDefault("notify.title", DefaultTitle)
	v.SetDefault("notify.push_key", "")
	v.SetDefault("notify.timeout", DefaultHTTPTimeout)
	v.SetDefault("notify.pushme_url", DefaultPushMeURL)
	v.SetDefault("notify.bark_base", "")
	v.SetDefault("notify.pushdeer_url", DefaultPushDeerURL)

	v.SetDefault("watch.schedule", DefaultSchedule)
}

package config

import "time"

// Default constants for application configuration
const (
	DefaultTargetURL = "https://yjsy.zju.edu.cn/dashboard/workplace?dm=xw_sqzt&mode=2&role=1&back=dashboard"
	DefaultStateFile = "last_result.json"

	DefaultLogLevel  = "info"
	DefaultJSONLog   = false
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultHeadless  = true

	DefaultPageLoadTimeout   = 180 * time.Second
	DefaultScriptTimeout     = 180 * time.Second
	DefaultElementTimeout    = 20 * time.Second
	DefaultTargetWaitTimeout = 15 * time.Second
	DefaultPollInterval      = 1 * time.Second
	DefaultSettleDelay       = 3 * time.Second
	DefaultRenderDelay       = 2 * time.Second

	DefaultLoginPause      = 10 * time.Second
	DefaultLoginSubmitWait = 5 * time.Second

	DefaultLoginFormSelector = "#username"
	DefaultPasswordSelector  = "#password"
	DefaultSubmitSelector    = "#dl"
	DefaultTableSelector     = ".ant-table-content"
	DefaultRowSelector       = "tbody.ant-table-tbody tr"
	DefaultCellSelector      = "td"
	DefaultFooterSelector    = ".ant-table-footer"

	DefaultSink        = "pushme"
	DefaultTitle       = "盲审结果更新"
	DefaultHTTPTimeout = 10 * time.Second
	DefaultPushMeURL   = "https://push.i-i.me"
	DefaultPushDeerURL = "https://api2.pushdeer.com/message/push"

	DefaultSchedule = "@every 5m"
)

// Sinks lists the notification sink names accepted in notify.sink.
var Sinks = []string{"pushme", "bark", "pushdeer", "log"}

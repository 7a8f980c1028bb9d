package config

import (
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAPIHost PostHog EU 采集端
	DefaultAPIHost = "https://eu.i.posthog.com"
	// DefaultLocalAPIBaseURL 本地服务默认地址
	DefaultLocalAPIBaseURL = "http://localhost:3030"
	// DefaultLibTag 上报事件中的 $lib 标识
	DefaultLibTag = "go-retryablehttp"
)

// Config 上报器配置，构造后不可修改
type Config struct {
	APIKey          string        `json:"api_key" yaml:"api_key"`                       // 采集端 API key
	DistinctID      string        `json:"distinct_id" yaml:"distinct_id"`               // 用户唯一标识
	Interval        time.Duration `json:"interval" yaml:"interval"`                     // 周期上报间隔
	LocalAPIBaseURL string        `json:"local_api_base_url" yaml:"local_api_base_url"` // 本地服务地址
	APIHost         string        `json:"api_host" yaml:"api_host"`                     // 采集端地址
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`                       // 单次请求超时
	RetryMax        int           `json:"retry_max" yaml:"retry_max"`                   // 请求重试次数，默认不重试
	LibTag          string        `json:"lib" yaml:"lib"`                               // $lib 属性
	MetadataTTL     time.Duration `json:"metadata_ttl" yaml:"metadata_ttl"`             // 主机信息缓存时间
}

// DefaultConfig 返回默认配置，APIKey 和 DistinctID 需要调用方填写
func DefaultConfig() Config {
	return Config{
		Interval:        IntervalFromHours(1),
		LocalAPIBaseURL: DefaultLocalAPIBaseURL,
		APIHost:         DefaultAPIHost,
		Timeout:         30 * time.Second,
		RetryMax:        0,
		LibTag:          DefaultLibTag,
		MetadataTTL:     5 * time.Minute,
	}
}

// New 按小时间隔构建配置
func New(apiKey, distinctID string, intervalHours int, localAPIBaseURL string) Config {
	cfg := DefaultConfig()
	cfg.APIKey = apiKey
	cfg.DistinctID = distinctID
	cfg.Interval = IntervalFromHours(intervalHours)
	if localAPIBaseURL != "" {
		cfg.LocalAPIBaseURL = localAPIBaseURL
	}
	return cfg
}

// IntervalFromHours 小时转换为 time.Duration
func IntervalFromHours(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}

// CaptureURL 返回事件上报地址
func (c Config) CaptureURL() string {
	return strings.TrimRight(c.APIHost, "/") + "/capture/"
}

// LocalURL 拼接本地服务路径
func (c Config) LocalURL(path string) string {
	return strings.TrimRight(c.LocalAPIBaseURL, "/") + path
}

// Validate 验证配置有效性
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return NewConfigErrorWithField(ConfigErrorTypeValidation, "api_key", "api key is required", c.APIKey)
	}
	if strings.TrimSpace(c.DistinctID) == "" {
		return NewConfigErrorWithField(ConfigErrorTypeValidation, "distinct_id", "distinct id is required", c.DistinctID)
	}
	if c.Interval <= 0 {
		return NewConfigErrorWithField(ConfigErrorTypeValidation, "interval", "interval must be positive", c.Interval)
	}
	if c.Timeout <= 0 {
		return NewConfigErrorWithField(ConfigErrorTypeValidation, "timeout", "timeout must be positive", c.Timeout)
	}
	if c.RetryMax < 0 {
		return NewConfigErrorWithField(ConfigErrorTypeValidation, "retry_max", "retry_max must be non-negative", c.RetryMax)
	}
	if err := validateURL("api_host", c.APIHost); err != nil {
		return err
	}
	return validateURL("local_api_base_url", c.LocalAPIBaseURL)
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return NewConfigErrorWithCause(ConfigErrorTypeValidation, field+" is not a valid url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewConfigErrorWithField(ConfigErrorTypeValidation, field, "scheme must be http or https", raw)
	}
	if u.Host == "" {
		return NewConfigErrorWithField(ConfigErrorTypeValidation, field, "host is required", raw)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// SysConfig system-level settings
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// WebConfig admin web server settings
type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// DBConfig database settings
type DBConfig struct {
	Type   string `yaml:"type" json:"type"`
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Name   string `yaml:"name" json:"name"`
	User   string `yaml:"user" json:"user"`
	Passwd string `yaml:"passwd" json:"passwd"`
}

// LoggerConfig logging settings
type LoggerConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// HotspotConfig tunables for the device integration engine.
type HotspotConfig struct {
	ConnectTimeoutSec int    `yaml:"connect_timeout_sec" json:"connect_timeout_sec"`
	RetryAttempts     int    `yaml:"retry_attempts" json:"retry_attempts"`
	RetryBackoffSec   int    `yaml:"retry_backoff_sec" json:"retry_backoff_sec"`
	RateWindowSec     int    `yaml:"rate_window_sec" json:"rate_window_sec"`
	RateLimit         int    `yaml:"rate_limit" json:"rate_limit"`
	VoucherPrefix     string `yaml:"voucher_prefix" json:"voucher_prefix"`
}

// SmsConfig SMS gateway settings
type SmsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Gateway string `yaml:"gateway" json:"gateway"`
	Apikey  string `yaml:"apikey" json:"apikey"`
	Sender  string `yaml:"sender" json:"sender"`
}

// AppConfig application configuration
type AppConfig struct {
	System   SysConfig     `yaml:"system" json:"system"`
	Web      WebConfig     `yaml:"web" json:"web"`
	Database DBConfig      `yaml:"database" json:"database"`
	Logger   LoggerConfig  `yaml:"logger" json:"logger"`
	Hotspot  HotspotConfig `yaml:"hotspot" json:"hotspot"`
	Sms      SmsConfig     `yaml:"sms" json:"sms"`
}

// ConnectTimeout returns the device dial timeout.
func (c HotspotConfig) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

// RetryBackoff returns the delay between retry attempts.
func (c HotspotConfig) RetryBackoff() time.Duration {
	if c.RetryBackoffSec <= 0 {
		return time.Second
	}
	return time.Duration(c.RetryBackoffSec) * time.Second
}

// RateWindow returns the rate limit window size.
func (c HotspotConfig) RateWindow() time.Duration {
	if c.RateWindowSec <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateWindowSec) * time.Second
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "hotspotbill",
		Location: "Asia/Jakarta",
		Workdir:  "/var/hotspotbill",
		Debug:    true,
	},
	Web: WebConfig{
		Host: "0.0.0.0",
		Port: 1816,
	},
	Database: DBConfig{
		Type:   "postgres",
		Host:   "127.0.0.1",
		Port:   5432,
		Name:   "hotspotbill",
		User:   "postgres",
		Passwd: "myroot",
	},
	Logger: LoggerConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/hotspotbill/hotspotbill.log",
	},
	Hotspot: HotspotConfig{
		ConnectTimeoutSec: 10,
		RetryAttempts:     3,
		RetryBackoffSec:   1,
		RateWindowSec:     60,
		RateLimit:         100,
		VoucherPrefix:     "WF",
	},
	Sms: SmsConfig{
		Enabled: false,
		Gateway: "",
		Apikey:  "",
		Sender:  "hotspotbill",
	},
}

// LoadConfig reads configuration from a YAML file, falling back to
// defaults, then applies environment overrides.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}
	setEnvString("HOTSPOTBILL_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvString("HOTSPOTBILL_DB_TYPE", &cfg.Database.Type)
	setEnvString("HOTSPOTBILL_DB_HOST", &cfg.Database.Host)
	setEnvInt("HOTSPOTBILL_DB_PORT", &cfg.Database.Port)
	setEnvString("HOTSPOTBILL_DB_NAME", &cfg.Database.Name)
	setEnvString("HOTSPOTBILL_DB_USER", &cfg.Database.User)
	setEnvString("HOTSPOTBILL_DB_PWD", &cfg.Database.Passwd)
	setEnvString("HOTSPOTBILL_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvInt("HOTSPOTBILL_WEB_PORT", &cfg.Web.Port)
	setEnvString("HOTSPOTBILL_SMS_GATEWAY", &cfg.Sms.Gateway)
	setEnvString("HOTSPOTBILL_SMS_APIKEY", &cfg.Sms.Apikey)
	if cfg.Logger.Filename == "" {
		cfg.Logger.Filename = filepath.Join(cfg.System.Workdir, "hotspotbill.log")
	}
	return cfg
}

func setEnvString(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvInt(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*val = i
		}
	}
}

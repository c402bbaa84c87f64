package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存 HTTP API 及外部相依的執行設定。
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	DB      DBConfig      `yaml:"db"`
	Auth    AuthConfig    `yaml:"auth"`
	Session SessionConfig `yaml:"session"`
	Redis   RedisConfig   `yaml:"redis"`
	Audit   AuditConfig   `yaml:"audit"`
	Mailer  MailerConfig  `yaml:"mailer"`
	OAuth   OAuthConfig   `yaml:"oauth"`
}

type HTTPConfig struct {
	Addr           string  `yaml:"addr"`
	LoginRateLimit float64 `yaml:"login_rate_limit"` // 每秒允許的登入嘗試
	LoginRateBurst int     `yaml:"login_rate_burst"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

type AuthConfig struct {
	TokenTTL   time.Duration `yaml:"token_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	Secret     string        `yaml:"secret"`
}

// SessionConfig 控制閒置逾時機制。WarningLead 為逾時前開始預警的提前量。
type SessionConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	WarningLead  time.Duration `yaml:"warning_lead"`
	PollInterval time.Duration `yaml:"poll_interval"`
	LogoutGrace  time.Duration `yaml:"logout_grace"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuditConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type MailerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	From     string `yaml:"from"`
	ResetURL string `yaml:"reset_url"` // 重設密碼連結前綴
}

type OAuthConfig struct {
	Google OAuthProviderConfig `yaml:"google"`
	GitHub OAuthProviderConfig `yaml:"github"`
}

type OAuthProviderConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// LoadFromFile 從 YAML 組態檔載入設定。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.LoginRateLimit == 0 {
		cfg.HTTP.LoginRateLimit = 1
	}
	if cfg.HTTP.LoginRateBurst == 0 {
		cfg.HTTP.LoginRateBurst = 5
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 30 * time.Minute
	}
	if cfg.Auth.RefreshTTL == 0 {
		cfg.Auth.RefreshTTL = 24 * time.Hour * 30
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = "dev-secret-change-me"
	}
	if cfg.Session.Timeout == 0 {
		cfg.Session.Timeout = 30 * time.Minute
	}
	if cfg.Session.WarningLead == 0 {
		cfg.Session.WarningLead = 30 * time.Second
	}
	if cfg.Session.PollInterval == 0 {
		cfg.Session.PollInterval = 30 * time.Second
	}
	if cfg.Session.LogoutGrace == 0 {
		cfg.Session.LogoutGrace = 30 * time.Second
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}
	if cfg.Audit.Topic == "" {
		cfg.Audit.Topic = "storefront.session.events"
	}
	if cfg.Mailer.From == "" {
		cfg.Mailer.From = "no-reply@storefront.local"
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("AUTH_SECRET"); val != "" {
		cfg.Auth.Secret = val
	}
	if val := os.Getenv("SESSION_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Session.Timeout = d
		}
	}
	if val := os.Getenv("SESSION_WARNING_LEAD"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Session.WarningLead = d
		}
	}
	if val := os.Getenv("SESSION_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Session.PollInterval = d
		}
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = n
		}
	}
	if val := os.Getenv("AUDIT_ENABLED"); val != "" {
		cfg.Audit.Enabled = (val == "true")
	}
	if val := os.Getenv("AUDIT_BROKERS"); val != "" {
		cfg.Audit.Brokers = nil
		for _, b := range strings.Split(val, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Audit.Brokers = append(cfg.Audit.Brokers, b)
			}
		}
	}
	if val := os.Getenv("MAILER_ENABLED"); val != "" {
		cfg.Mailer.Enabled = (val == "true")
	}
	if val := os.Getenv("MAILER_ENDPOINT"); val != "" {
		cfg.Mailer.Endpoint = val
	}
	if val := os.Getenv("MAILER_API_KEY"); val != "" {
		cfg.Mailer.APIKey = val
	}
	if val := os.Getenv("OAUTH_GOOGLE_CLIENT_ID"); val != "" {
		cfg.OAuth.Google.ClientID = val
	}
	if val := os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET"); val != "" {
		cfg.OAuth.Google.ClientSecret = val
	}
	if val := os.Getenv("OAUTH_GITHUB_CLIENT_ID"); val != "" {
		cfg.OAuth.GitHub.ClientID = val
	}
	if val := os.Getenv("OAUTH_GITHUB_CLIENT_SECRET"); val != "" {
		cfg.OAuth.GitHub.ClientSecret = val
	}
	return cfg
}

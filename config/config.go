package config

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultAllowedOrigins are the frontends allowed by CORS when none are configured.
var DefaultAllowedOrigins = []string{
	"https://peluqueria-the-best.vercel.app",
	"http://localhost:3000",
	"http://localhost:3001",
}

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Env      string `yaml:"env"` // development or production
}

// WebConfig Web server config
type WebConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	TrustProxy      bool          `yaml:"trust_proxy"`
	RateLimitMax    int           `yaml:"rate_limit_max"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
	BodyLimit       string        `yaml:"body_limit"`
	UploadDir       string        `yaml:"upload_dir"`
	Metrics         bool          `yaml:"metrics"`
}

// AuthConfig token signing config
type AuthConfig struct {
	Secret        string        `yaml:"secret"`
	Expire        time.Duration `yaml:"expire"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"` // admin is seeded only when set
}

// MailConfig SMTP config for contact emails
type MailConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Passwd  string `yaml:"passwd"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Workers int    `yaml:"workers"`
}

// Enabled reports whether SMTP delivery is configured.
func (c MailConfig) Enabled() bool {
	return c.Host != "" && c.To != ""
}

// AmqpConfig optional broker bridge for domain events
type AmqpConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// LogConfig logger config
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type AppConfig struct {
	System   SysConfig  `yaml:"system"`
	Web      WebConfig  `yaml:"web"`
	Database DBConfig   `yaml:"database"`
	Auth     AuthConfig `yaml:"auth"`
	Mail     MailConfig `yaml:"mail"`
	Amqp     AmqpConfig `yaml:"amqp"`
	Logger   LogConfig  `yaml:"logger"`
}

// IsProduction reports whether error details must be hidden from clients.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.System.Env, EnvProduction)
}

// GetUploadDir returns the directory served under /uploads.
func (c *AppConfig) GetUploadDir() string {
	if c.Web.UploadDir != "" {
		return c.Web.UploadDir
	}
	return path.Join(c.System.Workdir, "uploads")
}

// GetLogDir returns the log directory
func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

// GetDataDir returns the data directory
func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// Default returns a development configuration backed by sqlite.
func Default() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "salond",
			Location: "America/Bogota",
			Workdir:  "./var",
			Env:      EnvDevelopment,
		},
		Web: WebConfig{
			Host:            "0.0.0.0",
			Port:            3001,
			AllowedOrigins:  append([]string(nil), DefaultAllowedOrigins...),
			TrustProxy:      true,
			RateLimitMax:    1000,
			RateLimitWindow: 15 * time.Minute,
			BodyLimit:       "2M",
		},
		Database: DBConfig{
			Type:     "sqlite",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "salon.db",
			User:     "postgres",
			MaxConn:  50,
			IdleConn: 10,
		},
		Auth: AuthConfig{
			Secret:     "dev-secret",
			Expire:     24 * time.Hour,
			AdminEmail: "admin@salon.local",
		},
		Mail: MailConfig{
			Port:    587,
			Workers: 4,
		},
		Amqp: AmqpConfig{
			Exchange: "salon.events",
		},
		Logger: LogConfig{
			Mode:     EnvDevelopment,
			Filename: "salond.log",
		},
	}
}

// Load reads the optional YAML file, the optional .env file and then the
// process environment, each layer overriding the previous one.
func Load(file string) (*AppConfig, error) {
	cfg := Default()
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", file)
		}
	}
	_ = godotenv.Load()
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no usable fallback.
func (c *AppConfig) Validate() error {
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return errors.Errorf("invalid web port %d", c.Web.Port)
	}
	if c.Web.RateLimitMax <= 0 {
		return errors.New("rate_limit_max must be positive")
	}
	if c.Web.RateLimitWindow <= 0 {
		return errors.New("rate_limit_window must be positive")
	}
	if c.IsProduction() && (c.Auth.Secret == "" || c.Auth.Secret == "dev-secret") {
		return errors.New("auth secret must be set in production")
	}
	switch c.Database.Type {
	case "postgres", "sqlite":
	default:
		return errors.Errorf("unsupported database type %q", c.Database.Type)
	}
	return nil
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}

func setEnvDurationValue(name string, val *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := cast.ToDurationE(v); err == nil {
			*val = d
		}
	}
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("NODE_ENV", &cfg.System.Env)
	setEnvValue("APP_ENV", &cfg.System.Env)
	setEnvValue("APP_WORKDIR", &cfg.System.Workdir)
	setEnvValue("APP_LOCATION", &cfg.System.Location)

	setEnvValue("HOST", &cfg.Web.Host)
	setEnvIntValue("PORT", &cfg.Web.Port)
	setEnvBoolValue("TRUST_PROXY", &cfg.Web.TrustProxy)
	setEnvIntValue("RATE_LIMIT_MAX", &cfg.Web.RateLimitMax)
	setEnvDurationValue("RATE_LIMIT_WINDOW", &cfg.Web.RateLimitWindow)
	setEnvValue("UPLOAD_DIR", &cfg.Web.UploadDir)
	setEnvBoolValue("METRICS_ENABLE", &cfg.Web.Metrics)
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.Web.AllowedOrigins = appendUnique(cfg.Web.AllowedOrigins, splitList(v)...)
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Web.AllowedOrigins = splitList(v)
	}

	setEnvValue("DB_TYPE", &cfg.Database.Type)
	setEnvValue("DB_HOST", &cfg.Database.Host)
	setEnvIntValue("DB_PORT", &cfg.Database.Port)
	setEnvValue("DB_NAME", &cfg.Database.Name)
	setEnvValue("DB_USER", &cfg.Database.User)
	setEnvValue("DB_PASSWORD", &cfg.Database.Passwd)
	setEnvBoolValue("DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("JWT_SECRET", &cfg.Auth.Secret)
	setEnvDurationValue("JWT_EXPIRE", &cfg.Auth.Expire)
	setEnvValue("ADMIN_EMAIL", &cfg.Auth.AdminEmail)
	setEnvValue("ADMIN_PASSWORD", &cfg.Auth.AdminPassword)

	setEnvValue("SMTP_HOST", &cfg.Mail.Host)
	setEnvIntValue("SMTP_PORT", &cfg.Mail.Port)
	setEnvValue("SMTP_USER", &cfg.Mail.User)
	setEnvValue("SMTP_PASSWORD", &cfg.Mail.Passwd)
	setEnvValue("MAIL_FROM", &cfg.Mail.From)
	setEnvValue("MAIL_TO", &cfg.Mail.To)

	setEnvValue("AMQP_URL", &cfg.Amqp.URL)
	setEnvValue("AMQP_EXCHANGE", &cfg.Amqp.Exchange)

	setEnvValue("LOG_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("LOG_FILE_ENABLE", &cfg.Logger.FileEnable)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func appendUnique(list []string, items ...string) []string {
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		seen[s] = true
	}
	for _, s := range items {
		if !seen[s] {
			list = append(list, s)
			seen[s] = true
		}
	}
	return list
}

package config

import (
	"fmt"
	"net/mail"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	defaultPasswordResetTTL = time.Hour
	defaultRefreshInterval  = time.Minute
	defaultCSP              = "default-src 'self'; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'; form-action 'self'"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	LogLevel                 string        `yaml:"log_level"`
	LogJSON                  bool          `yaml:"log_json"`
	HTTPPort                 int           `yaml:"http_port" validate:"required,min=1,max=65535"`
	BaseURL                  string        `yaml:"base_url" validate:"required,url"`
	SecureCookies            bool          `yaml:"secure_cookies"`
	JwtTTL                   time.Duration `yaml:"jwt_ttl" validate:"required"`
	PasswordResetTTL         time.Duration `yaml:"password_reset_ttl"`
	BlacklistRefreshInterval time.Duration `yaml:"blacklist_refresh_interval"`
	CORSOrigins              []string      `yaml:"cors_origins"`
	Headers                  Headers       `yaml:"headers"`
	Community                Community     `yaml:"community"`
}

// Headers configures the hardening headers sent with every page.
type Headers struct {
	ContentSecurityPolicy string `yaml:"content_security_policy"`
	// AllowFraming drops X-Frame-Options and frame-ancestors so the pages can
	// be embedded into a website that hosts the community.
	AllowFraming bool `yaml:"allow_framing"`
}

// Community holds the registration settings shared by every mail and form.
type Community struct {
	From         string          `yaml:"from" validate:"required,mailbox"`
	AdminAddress string          `yaml:"admin_address" validate:"required,mailbox"`
	Role         string          `yaml:"role" validate:"required"`
	Mails        map[string]Mail `yaml:"mails"`
}

// Mail overrides the defaults of one mail type (registration, blacklisted, ...).
// Empty fields keep the built-in value.
type Mail struct {
	Subject       string `yaml:"subject"`
	UserTemplate  string `yaml:"user_template"`
	AdminTemplate string `yaml:"admin_template"`
}

type Private struct {
	JwtKey string `yaml:"jwt_key" validate:"required"`
	Pg     Pg     `yaml:"pg"`
	Redis  Redis  `yaml:"redis"`
	Email  Email  `yaml:"email"`
}

type Pg struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname" validate:"required"`
	Migrate  bool   `yaml:"migrate"`
}

// Redis is optional. Password reset tokens live in postgres when Addr is empty.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Email struct {
	Transport  string `yaml:"transport" validate:"omitempty,oneof=smtp memory"`
	SMTPServer string `yaml:"smtp_server" validate:"required_if=Transport smtp"`
	SMTPPort   int    `yaml:"smtp_port" validate:"required_if=Transport smtp"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	SenderName string `yaml:"sender_name"`
	Timeout    int    `yaml:"timeout"` // seconds
}

func (s *Config) JwtKey() string {
	return s.Private.JwtKey
}

func (s *Config) JwtTTL() time.Duration {
	return s.Public.JwtTTL
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file: " + err.Error())
	}
}

// MustLoad reads public.yaml and private.yaml from configFolder, applies
// environment overrides (optionally from a .env file next to them) and
// validates the result. It panics on any problem.
func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	// .env is optional
	_ = godotenv.Load(path.Join(configFolder, ".env"))

	cfg := &Config{Public: public, Private: private}
	applyEnv(cfg)
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		panic(err.Error())
	}
	return cfg
}

func Validate(cfg *Config) error {
	validate := validator.New()
	// the builtin email tag wants a dotted domain, local senders like
	// noreply@localhost are fine for smtp
	_ = validate.RegisterValidation("mailbox", func(fl validator.FieldLevel) bool {
		_, err := mail.ParseAddress(fl.Field().String())
		return err == nil
	})
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Private.JwtKey = v
	}
	if v := os.Getenv("PG_PASSWORD"); v != "" {
		cfg.Private.Pg.Password = v
	}
	if v := os.Getenv("PG_HOST"); v != "" {
		cfg.Private.Pg.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Private.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Private.Redis.Password = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Private.Email.Password = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Public.HTTPPort = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Public.PasswordResetTTL == 0 {
		cfg.Public.PasswordResetTTL = defaultPasswordResetTTL
	}
	if cfg.Public.BlacklistRefreshInterval == 0 {
		cfg.Public.BlacklistRefreshInterval = defaultRefreshInterval
	}
	if cfg.Public.Headers.ContentSecurityPolicy == "" {
		cfg.Public.Headers.ContentSecurityPolicy = defaultCSP
	}
	if cfg.Private.Email.Transport == "" {
		cfg.Private.Email.Transport = "smtp"
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/library-admin/cmd/api/book"
	"github.com/library-admin/cmd/api/database"
	"gopkg.in/yaml.v2"
)

const DriverMemory = "memory"

const (
	defaultPort            = 8080
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBName          = "admin_db"
	defaultSSLMode         = "disable"
	defaultMigrationsPath  = "migrations"
	defaultRequestTimeout  = 10 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultNtfyTimeout     = 5 * time.Second
	defaultLogFormat       = "json"
)

type Config struct {
	Port            int           `yaml:"port"`
	DB              DB            `yaml:"database"`
	MigrationsPath  string        `yaml:"migrations_path"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Debug           bool          `yaml:"debug"`
	LogFormat       string        `yaml:"log_format"`
	PasswordScheme  string        `yaml:"password_scheme"`
	Notifications   Notifications `yaml:"notifications"`
	Admins          []AdminSeed   `yaml:"admins"`
}

type DB struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type Notifications struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AdminSeed is loaded into the memory driver at startup.
type AdminSeed struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Load reads the YAML file at path when it exists, fills the defaults and then
// applies the environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg.setDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.DB.Driver == "" {
		c.DB.Driver = database.DriverPostgres
	}
	if c.DB.Host == "" {
		c.DB.Host = defaultDBHost
	}
	if c.DB.Port == 0 {
		c.DB.Port = defaultDBPort
	}
	if c.DB.Name == "" {
		c.DB.Name = defaultDBName
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = defaultSSLMode
	}
	if c.MigrationsPath == "" {
		c.MigrationsPath = defaultMigrationsPath
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	if c.PasswordScheme == "" {
		c.PasswordScheme = string(book.PasswordSchemePlain)
	}
	if c.Notifications.Timeout == 0 {
		c.Notifications.Timeout = defaultNtfyTimeout
	}
}

func (c *Config) applyEnv() error {
	envString("DATABASE_URL", &c.DB.DSN)
	envString("DATABASE_DRIVER", &c.DB.Driver)
	envString("DATABASE_HOST", &c.DB.Host)
	envString("DATABASE_USER", &c.DB.User)
	envString("DATABASE_PASSWORD", &c.DB.Password)
	envString("DATABASE_NAME", &c.DB.Name)
	envString("DATABASE_MIGRATIONS_PATH", &c.MigrationsPath)
	envString("PASSWORD_SCHEME", &c.PasswordScheme)
	envString("NOTIFICATIONS_BASE_URL", &c.Notifications.BaseURL)

	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing HTTP_PORT: %w", err)
		}
		c.Port = port
	}
	if v := os.Getenv("HTTP_REQUEST_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing HTTP_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = timeout
	}
	if err := envBool("NOTIFICATIONS_ENABLED", &c.Notifications.Enabled); err != nil {
		return err
	}
	return envBool("DEBUG", &c.Debug)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = b
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case database.DriverPostgres, database.DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.DB.Driver)
	}
	switch book.PasswordScheme(c.PasswordScheme) {
	case book.PasswordSchemePlain, book.PasswordSchemeBcrypt:
	default:
		return fmt.Errorf("unknown password scheme %q", c.PasswordScheme)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.Port)
	}
	if c.RequestTimeout < 0 || c.ShutdownTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.Notifications.Enabled && c.Notifications.BaseURL == "" {
		return errors.New("notifications enabled without a base url")
	}
	return nil
}

// ConnString returns DSN when it is set, otherwise a connection string built
// from the individual fields for the configured driver.
func (db DB) ConnString() string {
	if db.DSN != "" {
		return db.DSN
	}
	switch db.Driver {
	case database.DriverSQLite:
		return "file:" + db.Name + ".db?_busy_timeout=5000&_foreign_keys=1"
	case database.DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
			Path:     "/" + db.Name,
			RawQuery: url.Values{"sslmode": {db.SSLMode}}.Encode(),
		}
		switch {
		case db.User != "" && db.Password != "":
			u.User = url.UserPassword(db.User, db.Password)
		case db.User != "":
			u.User = url.User(db.User)
		}
		return u.String()
	}
	return ""
}

func (c *Config) AdminUsers() []book.AdminUser {
	admins := make([]book.AdminUser, 0, len(c.Admins))
	for _, a := range c.Admins {
		admins = append(admins, book.AdminUser{Username: a.Username, Password: a.Password})
	}
	return admins
}

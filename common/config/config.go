package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func loadEnvString(key string, result *string) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	*result = s
}

func loadEnvUint(key string, result *uint) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return
	}
	*result = uint(n)
}

func loadEnvBool(key string, result *bool) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return
	}
	*result = b
}

/* Configuration */

/* PgSQL Configuration */
type pgSqlConfig struct {
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Database string `json:"database"`
	SslMode  string `json:"ssl_mode"`
	User     string `json:"user"`
	Password string `json:"password"`
}

func (p pgSqlConfig) ConnStr() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s", p.Host, p.Port, p.User, p.Password, p.Database, p.SslMode)
}

func defaultPgSql() pgSqlConfig {
	return pgSqlConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "permits",
		User:     "",
		Password: "",
		SslMode:  "disable",
	}
}

func (p *pgSqlConfig) loadFromEnv() {
	loadEnvString("POSTGRES_HOST", &p.Host)
	loadEnvUint("POSTGRES_PORT", &p.Port)
	loadEnvString("POSTGRES_DB_NAME", &p.Database)
	loadEnvString("POSTGRES_SSLMODE", &p.SslMode)
	loadEnvString("POSTGRES_USERNAME", &p.User)
	loadEnvString("POSTGRES_PASSWORD", &p.Password)
}

/* Listen Configuration */

type listenConfig struct {
	Host string `json:"host"`
	Port uint   `json:"port"`
}

func (l listenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

func defaultListenConfig() listenConfig {
	return listenConfig{
		Host: "127.0.0.1",
		Port: 8080,
	}
}

func (l *listenConfig) loadFromEnv() {
	loadEnvString("LISTEN_HOST", &l.Host)
	loadEnvUint("LISTEN_PORT", &l.Port)
}

type natsConfig struct {
	Host             string
	Port             uint
	Username         string
	Password         string
	JetStreamEnabled bool
}

func (c *natsConfig) loadFromEnv() {
	c.Host = getEnv("NATS_HOST", "localhost")

	if portStr := getEnv("NATS_PORT", "4222"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Port = uint(port)
		} else {
			c.Port = 4222
		}
	} else {
		c.Port = 4222
	}

	c.Username = getEnv("NATS_USER", "")
	c.Password = getEnv("NATS_PASSWORD", "")

	if jsEnabled := getEnv("NATS_JETSTREAM_ENABLED", "true"); jsEnabled == "true" {
		c.JetStreamEnabled = true
	} else {
		c.JetStreamEnabled = false
	}
}

func (c *natsConfig) URL() string {
	return fmt.Sprintf("nats://%s:%d", c.Host, c.Port)
}

func defaultNatsConfig() natsConfig {
	return natsConfig{
		Host:             "localhost",
		Port:             4222,
		Username:         "",
		Password:         "",
		JetStreamEnabled: true,
	}
}

type securityConfig struct {
	BackendApiKey string
}

func (s *securityConfig) loadFromEnv() {
	s.BackendApiKey = getEnv("BACKEND_API_KEY", "")
}

func defaultSecurityConfig() securityConfig {
	return securityConfig{
		BackendApiKey: "",
	}
}

type redisConfig struct {
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r *redisConfig) loadFromEnv() {
	loadEnvString("REDIS_HOST", &r.Host)
	loadEnvUint("REDIS_PORT", &r.Port)
	loadEnvString("REDIS_PASSWORD", &r.Password)

	if dbStr := getEnv("REDIS_DB", "0"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

func defaultRedisConfig() redisConfig {
	return redisConfig{
		Host:     "localhost",
		Port:     6379,
		Password: "",
		DB:       0,
	}
}

type GCSConfig struct {
	ProjectID       string
	CredentialsFile string
	Bucket          string
}

func (g *GCSConfig) loadFromEnv() {
	g.ProjectID = getEnv("GCS_PROJECT_ID", "")
	g.CredentialsFile = getEnv("GCS_CREDENTIALS_FILE", "")
	g.Bucket = getEnv("GCS_SNAPSHOT_BUCKET", "")
}

func defaultGcsConfig() GCSConfig {
	return GCSConfig{
		ProjectID:       "",
		CredentialsFile: "",
		Bucket:          "",
	}
}

/* Browser Configuration */

type BrowserConfig struct {
	Headless       bool
	BinPath        string
	NavTimeout     time.Duration
	ElementTimeout time.Duration
	SettleDelay    time.Duration
}

func (b *BrowserConfig) loadFromEnv() {
	loadEnvBool("BROWSER_HEADLESS", &b.Headless)
	loadEnvString("BROWSER_BIN_PATH", &b.BinPath)

	var navSec, elemSec uint
	loadEnvUint("BROWSER_NAV_TIMEOUT_SECONDS", &navSec)
	if navSec > 0 {
		b.NavTimeout = time.Duration(navSec) * time.Second
	}
	loadEnvUint("BROWSER_ELEMENT_TIMEOUT_SECONDS", &elemSec)
	if elemSec > 0 {
		b.ElementTimeout = time.Duration(elemSec) * time.Second
	}
}

func defaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:       true,
		BinPath:        "",
		NavTimeout:     30 * time.Second,
		ElementTimeout: 10 * time.Second,
		SettleDelay:    2 * time.Second,
	}
}

/* Scheduler Configuration */

type schedulerConfig struct {
	Enabled  bool
	CronSpec string
	// Local runs every site's crawl in-process through the worker pool
	// instead of publishing requests to NATS. Meant for single-instance
	// deployments without queue-group workers.
	Local bool
}

func (s *schedulerConfig) loadFromEnv() {
	loadEnvBool("SCHEDULER_ENABLED", &s.Enabled)
	loadEnvString("SCHEDULER_CRON", &s.CronSpec)
	loadEnvBool("SCHEDULER_LOCAL", &s.Local)
}

func defaultSchedulerConfig() schedulerConfig {
	return schedulerConfig{
		Enabled:  false,
		CronSpec: "0 6 * * *",
		Local:    false,
	}
}

type Config struct {
	Listen    listenConfig
	PgSql     pgSqlConfig
	Security  securityConfig
	Nats      natsConfig
	Redis     redisConfig
	GCS       GCSConfig
	Browser   BrowserConfig
	Scheduler schedulerConfig
}

func (c *Config) LoadFromEnv() {
	c.Listen.loadFromEnv()
	c.PgSql.loadFromEnv()
	c.Security.loadFromEnv()
	c.Nats.loadFromEnv()
	c.Redis.loadFromEnv()
	c.GCS.loadFromEnv()
	c.Browser.loadFromEnv()
	c.Scheduler.loadFromEnv()
}

func DefaultConfig() Config {
	return Config{
		Listen:    defaultListenConfig(),
		PgSql:     defaultPgSql(),
		Security:  defaultSecurityConfig(),
		Nats:      defaultNatsConfig(),
		Redis:     defaultRedisConfig(),
		GCS:       defaultGcsConfig(),
		Browser:   defaultBrowserConfig(),
		Scheduler: defaultSchedulerConfig(),
	}
}

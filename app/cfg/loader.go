package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server
	Port       string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	AdminToken string `long:"admin-token" env:"ADMIN_TOKEN" description:"Shared secret for admin endpoints (disabled when empty)"`

	// Digest content
	EventsBaseURL  string `long:"events-base-url" env:"EVENTS_BASE_URL" default:"https://www.letsrace.cc" description:"Base URL of the events content host"`
	BaseWebsiteURL string `long:"base-website-url" env:"BASE_WEBSITE_URL" default:"https://www.letsrace.cc" description:"Public website URL used in email links"`
	TokenSecret    string `long:"token-secret" env:"TOKEN_SECRET" description:"Secret for signing unsubscribe tokens (falls back to admin token)"`
	CatalogFile    string `long:"catalog-file" env:"CATALOG_FILE" description:"Optional YAML file overriding the region/discipline catalog"`
	EventsCacheTTL int    `long:"events-cache-ttl" env:"EVENTS_CACHE_TTL" default:"900" description:"Event list cache TTL in seconds"`

	// Subscriber store
	DBPath         string `long:"db-path" env:"DB_PATH" description:"SQLite database path for the document store"`
	DataDir        string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for the file document store (used when --db-path is empty)"`
	SubscribersKey string `long:"subscribers-key" env:"SUBSCRIBERS_KEY" default:"subscribers.json" description:"Document key for the subscriber collection"`

	// Mail transport
	SMTPHost     string `long:"smtp-host" env:"SMTP_HOST" description:"SMTP server host (emails are logged instead of sent when empty)"`
	SMTPPort     int    `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	SMTPUser     string `long:"smtp-user" env:"SMTP_USER" description:"SMTP username"`
	SMTPPassword string `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
	FromAddress  string `long:"from-address" env:"FROM_ADDRESS" default:"noreply@letsrace.cc" description:"From address for digest emails"`

	// Cache
	RedisAddr string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the event cache (in-memory cache when empty)"`

	// Scheduler
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Scheduler tick interval in seconds"`
	SendHour          int `long:"send-hour" env:"SEND_HOUR" default:"7" description:"Local hour of day after which the daily digest run is triggered"`
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for task processing"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"LetsRace-Digest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Europe/London" description:"Timezone for date arithmetic (e.g., Europe/London)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:              raw.Port,
		AdminToken:        raw.AdminToken,
		EventsBaseURL:     raw.EventsBaseURL,
		BaseWebsiteURL:    raw.BaseWebsiteURL,
		TokenSecret:       cmp.Or(raw.TokenSecret, raw.AdminToken),
		CatalogFile:       raw.CatalogFile,
		EventsCacheTTL:    raw.EventsCacheTTL,
		DBPath:            raw.DBPath,
		DataDir:           raw.DataDir,
		SubscribersKey:    raw.SubscribersKey,
		SMTPHost:          raw.SMTPHost,
		SMTPPort:          raw.SMTPPort,
		SMTPUser:          raw.SMTPUser,
		SMTPPassword:      raw.SMTPPassword,
		FromAddress:       raw.FromAddress,
		RedisAddr:         raw.RedisAddr,
		SchedulerInterval: raw.SchedulerInterval,
		SendHour:          raw.SendHour,
		WorkerCount:       raw.WorkerCount,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}

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
	// Pipeline configuration
	SourcesFile string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file listing feed sources"`
	DataDir     string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for persisted entry records"`
	OutputFile  string `long:"output-file" env:"OUTPUT_FILE" default:"./data/feed.xml" description:"Path of the rendered RSS output"`

	// Rendered channel metadata
	SiteTitle       string `long:"site-title" env:"SITE_TITLE" default:"Planet Feed" description:"Title of the rendered feed"`
	SiteLink        string `long:"site-link" env:"SITE_LINK" default:"https://example.com" description:"Homepage link of the rendered feed"`
	SiteDescription string `long:"site-description" env:"SITE_DESCRIPTION" default:"Aggregated posts from community authors" description:"Description of the rendered feed"`

	// Fetching
	UserAgent     string `long:"user-agent" env:"USER_AGENT" default:"PlanetFeed/1.0" description:"User agent string for HTTP requests"`
	FetchTimeout  int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-request fetch timeout in seconds"`
	EnrichContent bool   `long:"enrich-content" env:"ENRICH_CONTENT" description:"Fetch article pages to fill in empty descriptions"`

	// Notifications
	WebhookURL      string `long:"webhook-url" env:"WEBHOOK_URL" description:"Webhook endpoint for new-entry notifications (disabled when empty)"`
	LedgerFile      string `long:"ledger-file" env:"LEDGER_FILE" default:"./data/sent.json" description:"Path of the sent-items ledger"`
	NotifyMaxPerRun int    `long:"notify-max" env:"NOTIFY_MAX" default:"5" description:"Maximum notifications per run"`
	NotifyDelay     int    `long:"notify-delay" env:"NOTIFY_DELAY" default:"2" description:"Delay between notifications in seconds"`

	// Serve mode
	Serve             bool   `long:"serve" env:"SERVE" description:"Keep running: serve the rendered feed over HTTP and refresh periodically"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (serve mode)"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"1800" description:"Seconds between refresh runs (serve mode)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

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
		SourcesFile:       raw.SourcesFile,
		DataDir:           raw.DataDir,
		OutputFile:        raw.OutputFile,
		SiteTitle:         raw.SiteTitle,
		SiteLink:          raw.SiteLink,
		SiteDescription:   raw.SiteDescription,
		UserAgent:         raw.UserAgent,
		FetchTimeout:      raw.FetchTimeout,
		EnrichContent:     raw.EnrichContent,
		WebhookURL:        raw.WebhookURL,
		LedgerFile:        raw.LedgerFile,
		NotifyMaxPerRun:   raw.NotifyMaxPerRun,
		NotifyDelay:       raw.NotifyDelay,
		Serve:             raw.Serve,
		Port:              raw.Port,
		SchedulerInterval: raw.SchedulerInterval,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
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

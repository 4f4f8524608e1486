package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the postule CLI.
type Config struct {
	Profile ProfileConfig
	SMTP    SMTPConfig
	Quota   QuotaConfig
	Ingest  IngestConfig
	Boards  []BoardConfig
	Store   StoreConfig
	Reports ReportsConfig
}

// ProfileConfig identifies the applicant. Name and email end up in every
// cover letter.
type ProfileConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Phone string `yaml:"phone"`
}

// SMTPConfig is the outbound mail relay. Leave host empty to restrict the
// apply command to dry runs.
type SMTPConfig struct {
	Host     string // empty = no relay configured
	Port     int    // defaults to 587
	Username string // empty skips authentication
	Password string // expanded from env var by Load
	From     string // defaults to profile.email
}

// Configured reports whether a relay host is set.
func (s SMTPConfig) Configured() bool {
	return s.Host != ""
}

// QuotaConfig bounds outbound submissions.
type QuotaConfig struct {
	DailyCap int           // max submissions per calendar day, default 5
	MinDelay time.Duration // gap between consecutive submissions, default 10s
}

// IngestConfig tunes the discovery pipeline.
type IngestConfig struct {
	Workers     int           // concurrent sources, 0 = pipeline default
	Timeout     time.Duration // per-request HTTP timeout
	MinDelay    time.Duration // gap between calls to the same board family
	Enrich      bool          // mine contact info from company websites
	NoiseTokens []string      // nil = extraction defaults
	MaxEmails   int           // 0 = extraction default
	MaxPhones   int           // 0 = extraction default
}

// BoardConfig describes a single company board to ingest.
type BoardConfig struct {
	Name    string `yaml:"name"`    // company display name
	ATS     string `yaml:"ats"`     // "greenhouse" or "lever"
	Token   string `yaml:"token"`   // board token or site slug
	Website string `yaml:"website"` // company site, used for contact mining
	Enabled bool   `yaml:"enabled"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ReportsConfig locates the xlsx output directory.
type ReportsConfig struct {
	Dir string `yaml:"dir"`
}

// EnabledBoards returns the boards marked enabled, in config order.
func (c *Config) EnabledBoards() []BoardConfig {
	var out []BoardConfig
	for _, b := range c.Boards {
		if b.Enabled {
			out = append(out, b)
		}
	}
	return out
}

const (
	defaultDailyCap     = 5
	defaultSubmitDelay  = 10 * time.Second
	defaultBoardDelay   = 2 * time.Second
	defaultFetchTimeout = 30 * time.Second
	defaultSMTPPort     = 587
	defaultStorePath    = "applications.db"
	defaultReportsDir   = "reports"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	Profile ProfileConfig   `yaml:"profile"`
	SMTP    rawSMTPConfig   `yaml:"smtp"`
	Quota   rawQuotaConfig  `yaml:"quota"`
	Ingest  rawIngestConfig `yaml:"ingest"`
	Boards  []BoardConfig   `yaml:"boards"`
	Store   StoreConfig     `yaml:"store"`
	Reports ReportsConfig   `yaml:"reports"`
}

type rawSMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type rawQuotaConfig struct {
	DailyCap int    `yaml:"daily_cap"`
	MinDelay string `yaml:"min_delay"`
}

type rawIngestConfig struct {
	Workers     int      `yaml:"workers"`
	Timeout     string   `yaml:"timeout"`
	MinDelay    string   `yaml:"min_delay"`
	Enrich      bool     `yaml:"enrich"`
	NoiseTokens []string `yaml:"noise_tokens"`
	MaxEmails   int      `yaml:"max_emails"`
	MaxPhones   int      `yaml:"max_phones"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	submitDelay := defaultSubmitDelay
	if raw.Quota.MinDelay != "" {
		submitDelay, err = time.ParseDuration(raw.Quota.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse quota.min_delay %q: %w", raw.Quota.MinDelay, err)
		}
	}

	// A zero cap reads as "not set". Refusing every submission is done by
	// not running apply, not by configuring zero.
	dailyCap := raw.Quota.DailyCap
	if dailyCap == 0 {
		dailyCap = defaultDailyCap
	}

	fetchTimeout := defaultFetchTimeout
	if raw.Ingest.Timeout != "" {
		fetchTimeout, err = time.ParseDuration(raw.Ingest.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse ingest.timeout %q: %w", raw.Ingest.Timeout, err)
		}
	}

	boardDelay := defaultBoardDelay
	if raw.Ingest.MinDelay != "" {
		boardDelay, err = time.ParseDuration(raw.Ingest.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse ingest.min_delay %q: %w", raw.Ingest.MinDelay, err)
		}
	}

	smtpPort := raw.SMTP.Port
	if smtpPort == 0 {
		smtpPort = defaultSMTPPort
	}
	smtpFrom := raw.SMTP.From
	if smtpFrom == "" {
		smtpFrom = raw.Profile.Email
	}

	storePath := raw.Store.Path
	if storePath == "" {
		storePath = defaultStorePath
	}
	reportsDir := raw.Reports.Dir
	if reportsDir == "" {
		reportsDir = defaultReportsDir
	}

	cfg := &Config{
		Profile: raw.Profile,
		SMTP: SMTPConfig{
			Host:     raw.SMTP.Host,
			Port:     smtpPort,
			Username: raw.SMTP.Username,
			Password: raw.SMTP.Password,
			From:     smtpFrom,
		},
		Quota: QuotaConfig{
			DailyCap: dailyCap,
			MinDelay: submitDelay,
		},
		Ingest: IngestConfig{
			Workers:     raw.Ingest.Workers,
			Timeout:     fetchTimeout,
			MinDelay:    boardDelay,
			Enrich:      raw.Ingest.Enrich,
			NoiseTokens: raw.Ingest.NoiseTokens,
			MaxEmails:   raw.Ingest.MaxEmails,
			MaxPhones:   raw.Ingest.MaxPhones,
		},
		Boards:  raw.Boards,
		Store:   StoreConfig{Path: storePath},
		Reports: ReportsConfig{Dir: reportsDir},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Profile.Name == "" {
		return fmt.Errorf("profile.name is required")
	}
	if cfg.Profile.Email == "" {
		return fmt.Errorf("profile.email is required")
	}

	if cfg.SMTP.Port < 1 || cfg.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port must be between 1 and 65535, got %d", cfg.SMTP.Port)
	}

	if cfg.Quota.DailyCap < 0 {
		return fmt.Errorf("quota.daily_cap must not be negative, got %d", cfg.Quota.DailyCap)
	}
	if cfg.Quota.MinDelay < 0 {
		return fmt.Errorf("quota.min_delay must not be negative, got %v", cfg.Quota.MinDelay)
	}

	if cfg.Ingest.Workers < 0 {
		return fmt.Errorf("ingest.workers must not be negative, got %d", cfg.Ingest.Workers)
	}
	if cfg.Ingest.Timeout <= 0 {
		return fmt.Errorf("ingest.timeout must be positive, got %v", cfg.Ingest.Timeout)
	}

	enabled := 0
	for i, b := range cfg.Boards {
		if b.ATS != "greenhouse" && b.ATS != "lever" {
			return fmt.Errorf("boards[%d].ats must be \"greenhouse\" or \"lever\", got %q", i, b.ATS)
		}
		if b.Name == "" {
			return fmt.Errorf("boards[%d].name is required", i)
		}
		if b.Token == "" {
			return fmt.Errorf("boards[%d].token is required", i)
		}
		if b.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one board must be enabled")
	}

	return nil
}

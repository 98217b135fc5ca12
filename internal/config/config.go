package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// HTTP
	HTTPTimeout time.Duration
	UserAgent   string
	Proxy       string

	// Retry policy
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Rate limiting and pacing
	RateLimitRPS   float64
	RateLimitBurst int
	EnumDelayMin   time.Duration
	EnumDelayMax   time.Duration
	ParseDelayMin  time.Duration
	ParseDelayMax  time.Duration

	// Browser
	BrowserHeadless   bool
	ChromePath        string
	NavigationTimeout time.Duration
	ScrollRounds      int
	ScrollPause       time.Duration

	// Marketplaces
	AutopunktURL    string
	FindcarURL      string
	VehisAPIURL     string
	FindcarPageSize int
	VehisPageSize   int
	MaxPages        int

	// Sinks
	DatabaseURL  string
	KafkaBrokers []string
	KafkaTopic   string
	ImageWorkers int

	// ConfigFile is the file the values above were read from, if any
	ConfigFile string
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		HTTPTimeout:       DefaultHTTPTimeout,
		UserAgent:         DefaultUserAgent,
		RetryAttempts:     DefaultRetryAttempts,
		RetryBaseDelay:    DefaultRetryBaseDelay,
		RetryMaxDelay:     DefaultRetryMaxDelay,
		RateLimitRPS:      DefaultRateLimitRPS,
		RateLimitBurst:    DefaultRateLimitBurst,
		EnumDelayMin:      DefaultEnumDelayMin,
		EnumDelayMax:      DefaultEnumDelayMax,
		ParseDelayMin:     DefaultParseDelayMin,
		ParseDelayMax:     DefaultParseDelayMax,
		BrowserHeadless:   DefaultBrowserHeadless,
		NavigationTimeout: DefaultNavigationTimeout,
		ScrollRounds:      DefaultScrollRounds,
		ScrollPause:       DefaultScrollPause,
		AutopunktURL:      DefaultAutopunktURL,
		FindcarURL:        DefaultFindcarURL,
		VehisAPIURL:       DefaultVehisAPIURL,
		DatabaseURL:       DefaultDatabaseURL,
		KafkaTopic:        DefaultKafkaTopic,
		ImageWorkers:      DefaultImageWorkers,
	}
}

// Load builds a Config by combining defaults, an optional config file, environment variables, and CLI flags.
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	return load(cmd, os.Getenv)
}

func load(cmd *cobra.Command, getenv func(string) string) (*Config, error) {
	cfg := Defaults()

	if path := flagString(cmd, "config"); path != "" {
		fc, err := ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := fc.apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
	}

	applyEnv(cfg, getenv)

	if cmd != nil {
		if s := flagString(cmd, "user-agent"); s != "" {
			cfg.UserAgent = s
		}
		if s := flagString(cmd, "proxy"); s != "" {
			cfg.Proxy = s
		}
		if s := flagString(cmd, "timeout"); s != "" && flagChanged(cmd, "timeout") {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid --timeout %q: %w", s, err)
			}
			cfg.HTTPTimeout = d
		}
		if flagString(cmd, "json") == "true" {
			cfg.JSONLog = true
		}
		if flagString(cmd, "verbose") == "true" {
			cfg.LogLevel = "debug"
		} else if flagString(cmd, "quiet") == "true" {
			cfg.LogLevel = "error"
		}
		if flagChanged(cmd, "rps") {
			rps, err := cmd.Flags().GetFloat64("rps")
			if err != nil {
				return nil, fmt.Errorf("invalid --rps: %w", err)
			}
			cfg.RateLimitRPS = rps
		}
		if s := flagString(cmd, "chrome-path"); s != "" {
			cfg.ChromePath = s
		}
		if flagString(cmd, "no-headless") == "true" {
			cfg.BrowserHeadless = false
		}
		if s := flagString(cmd, "db"); s != "" {
			cfg.DatabaseURL = s
		}
		if s := flagString(cmd, "kafka-brokers"); s != "" {
			cfg.KafkaBrokers = splitList(s)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides cfg from environment variables
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("AUTOSCRAPER_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := getenv("AUTOSCRAPER_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := getenv("CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := getenv("AUTOSCRAPER_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getenv("VEHIS_API_URL"); v != "" {
		cfg.VehisAPIURL = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}
}

// flagString returns the value of a flag visible to cmd, "" when undefined
func flagString(cmd *cobra.Command, name string) string {
	if cmd == nil {
		return ""
	}
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

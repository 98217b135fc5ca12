package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// FileConfig is the on-disk shape of the configuration. Durations are Go
// duration strings ("1.5s"); unset fields keep the current value.
type FileConfig struct {
	LogLevel  string `json:"log_level"`
	UserAgent string `json:"user_agent"`
	Proxy     string `json:"proxy"`
	Timeout   string `json:"timeout"`

	Retry struct {
		Attempts  int    `json:"attempts"`
		BaseDelay string `json:"base_delay"`
		MaxDelay  string `json:"max_delay"`
	} `json:"retry"`

	RateLimit struct {
		RPS   float64 `json:"rps"`
		Burst int     `json:"burst"`
	} `json:"rate_limit"`

	EnumerateDelay DelayRange `json:"enumerate_delay"`
	ParseDelay     DelayRange `json:"parse_delay"`

	Browser struct {
		Headless          *bool  `json:"headless"`
		ChromePath        string `json:"chrome_path"`
		NavigationTimeout string `json:"navigation_timeout"`
		ScrollRounds      int    `json:"scroll_rounds"`
		ScrollPause       string `json:"scroll_pause"`
	} `json:"browser"`

	Marketplaces struct {
		AutopunktURL    string `json:"autopunkt_url"`
		FindcarURL      string `json:"findcar_url"`
		VehisAPIURL     string `json:"vehis_api_url"`
		FindcarPageSize int    `json:"findcar_page_size"`
		VehisPageSize   int    `json:"vehis_page_size"`
		MaxPages        int    `json:"max_pages"`
	} `json:"marketplaces"`

	Database struct {
		URL string `json:"url"`
	} `json:"database"`

	Kafka struct {
		Brokers []string `json:"brokers"`
		Topic   string   `json:"topic"`
	} `json:"kafka"`

	ImageWorkers int `json:"image_workers"`
}

// DelayRange is a uniform random delay between Min and Max
type DelayRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// ReadFile reads a JSON5 config file and merges <name>.local.<ext> over it
// when present. A missing local file is not an error; a missing main file
// is.
func ReadFile(name string) (*FileConfig, error) {
	var out FileConfig

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if err := json5.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	local := localPath(name)
	data, err = os.ReadFile(local)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(data) > 0 {
		var override FileConfig
		if err := json5.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("%s: %w", local, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return nil, err
		}
	}

	return &out, nil
}

// localPath turns conf/app.json5 into conf/app.local.json5
func localPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// apply converts the file values and merges the non-empty ones over cfg
func (fc *FileConfig) apply(cfg *Config) error {
	var err error
	dur := func(field, s string) time.Duration {
		if s == "" || err != nil {
			return 0
		}
		d, perr := time.ParseDuration(s)
		if perr != nil {
			err = fmt.Errorf("%s: %w", field, perr)
		}
		return d
	}

	src := Config{
		LogLevel:          fc.LogLevel,
		UserAgent:         fc.UserAgent,
		Proxy:             fc.Proxy,
		HTTPTimeout:       dur("timeout", fc.Timeout),
		RetryAttempts:     fc.Retry.Attempts,
		RetryBaseDelay:    dur("retry.base_delay", fc.Retry.BaseDelay),
		RetryMaxDelay:     dur("retry.max_delay", fc.Retry.MaxDelay),
		RateLimitRPS:      fc.RateLimit.RPS,
		RateLimitBurst:    fc.RateLimit.Burst,
		EnumDelayMin:      dur("enumerate_delay.min", fc.EnumerateDelay.Min),
		EnumDelayMax:      dur("enumerate_delay.max", fc.EnumerateDelay.Max),
		ParseDelayMin:     dur("parse_delay.min", fc.ParseDelay.Min),
		ParseDelayMax:     dur("parse_delay.max", fc.ParseDelay.Max),
		ChromePath:        fc.Browser.ChromePath,
		NavigationTimeout: dur("browser.navigation_timeout", fc.Browser.NavigationTimeout),
		ScrollRounds:      fc.Browser.ScrollRounds,
		ScrollPause:       dur("browser.scroll_pause", fc.Browser.ScrollPause),
		AutopunktURL:      fc.Marketplaces.AutopunktURL,
		FindcarURL:        fc.Marketplaces.FindcarURL,
		VehisAPIURL:       fc.Marketplaces.VehisAPIURL,
		FindcarPageSize:   fc.Marketplaces.FindcarPageSize,
		VehisPageSize:     fc.Marketplaces.VehisPageSize,
		MaxPages:          fc.Marketplaces.MaxPages,
		DatabaseURL:       fc.Database.URL,
		KafkaBrokers:      fc.Kafka.Brokers,
		KafkaTopic:        fc.Kafka.Topic,
		ImageWorkers:      fc.ImageWorkers,
	}
	if err != nil {
		return err
	}

	if err := mergo.Merge(cfg, src, mergo.WithOverride); err != nil {
		return err
	}
	// false is a zero value, so mergo cannot carry it
	if fc.Browser.Headless != nil {
		cfg.BrowserHeadless = *fc.Browser.Headless
	}
	return nil
}

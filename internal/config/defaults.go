package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel          = "info"
	DefaultJSONLog           = false
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultNavigationTimeout = 90 * time.Second
	DefaultRetryAttempts     = 3
	DefaultRetryBaseDelay    = 1 * time.Second
	DefaultRetryMaxDelay     = 8 * time.Second
	DefaultRateLimitRPS      = 2.0
	DefaultRateLimitBurst    = 4
	DefaultEnumDelayMin      = 1500 * time.Millisecond
	DefaultEnumDelayMax      = 3500 * time.Millisecond
	DefaultParseDelayMin     = 800 * time.Millisecond
	DefaultParseDelayMax     = 1800 * time.Millisecond
	DefaultBrowserHeadless   = true
	DefaultScrollRounds      = 60
	DefaultScrollPause       = 1 * time.Second
	DefaultDatabaseURL       = "./vehicles.db"
	DefaultKafkaTopic        = "vehicle-offers"
	DefaultImageWorkers      = 4
)

// Marketplace endpoints
const (
	DefaultAutopunktURL = "https://autopunkt.pl"
	DefaultFindcarURL   = "https://findcar.pl"
	DefaultVehisAPIURL  = "https://vash.vehistools.pl/api"
)

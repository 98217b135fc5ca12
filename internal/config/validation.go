package config

import (
	"fmt"
	"time"
)

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be > 0")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be >= 1")
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("retry delays must satisfy 0 <= base <= max")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be > 0 with burst >= 1")
	}
	if err := validateRange("enumerate delay", c.EnumDelayMin, c.EnumDelayMax); err != nil {
		return err
	}
	if err := validateRange("parse delay", c.ParseDelayMin, c.ParseDelayMax); err != nil {
		return err
	}
	if c.FindcarPageSize < 0 || c.VehisPageSize < 0 || c.MaxPages < 0 {
		return fmt.Errorf("page sizes and page counts must be >= 1 when set")
	}
	if c.ScrollRounds < 1 {
		return fmt.Errorf("scroll rounds must be >= 1")
	}
	if c.ImageWorkers < 1 {
		return fmt.Errorf("image workers must be >= 1")
	}
	return nil
}

func validateRange(name string, lo, hi time.Duration) error {
	if lo < 0 || hi < lo {
		return fmt.Errorf("%s must satisfy 0 <= min <= max", name)
	}
	return nil
}

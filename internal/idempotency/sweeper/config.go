package sweeper

import "time"

// Config controls the expired-record sweep loop.
type Config struct {
	PollInterval time.Duration
	RunTimeout   time.Duration
	LockTTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: time.Hour,
		RunTimeout:   30 * time.Second,
		LockTTL:      time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

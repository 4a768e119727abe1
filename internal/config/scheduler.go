package config

import (
	"fmt"
	"time"
)

type SchedulerConfig struct {
	Enabled bool
	// Interval — период тика; оба фоновых джоба выполняются на каждом тике.
	Interval time.Duration
	// Окно "скоро закончится": от EndingSoonFrom до EndingSoonUntil до конца брони.
	EndingSoonFrom   time.Duration
	EndingSoonUntil  time.Duration
	OvertimeRenotify time.Duration
	LeaseTTL         time.Duration
}

func LoadSchedulerConfig() (*SchedulerConfig, error) {
	cfg := &SchedulerConfig{
		Enabled:          getEnv("SCHED_ENABLED", "true") == "true",
		Interval:         getEnvDuration("SCHED_INTERVAL", 60*time.Second),
		EndingSoonFrom:   getEnvDuration("SCHED_ENDING_SOON_FROM", 15*time.Minute),
		EndingSoonUntil:  getEnvDuration("SCHED_ENDING_SOON_UNTIL", 10*time.Minute),
		OvertimeRenotify: getEnvDuration("SCHED_OVERTIME_RENOTIFY", 15*time.Minute),
		LeaseTTL:         getEnvDuration("SCHED_LEASE_TTL", 50*time.Second),
	}

	if cfg.Interval <= 0 || cfg.OvertimeRenotify <= 0 {
		return nil, fmt.Errorf("invalid scheduler config: interval and renotify must be positive")
	}
	if cfg.EndingSoonUntil >= cfg.EndingSoonFrom {
		return nil, fmt.Errorf("invalid scheduler config: ending-soon window %s..%s is empty",
			cfg.EndingSoonFrom, cfg.EndingSoonUntil)
	}

	return cfg, nil
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:          true,
		Interval:         60 * time.Second,
		EndingSoonFrom:   15 * time.Minute,
		EndingSoonUntil:  10 * time.Minute,
		OvertimeRenotify: 15 * time.Minute,
		LeaseTTL:         50 * time.Second,
	}
}

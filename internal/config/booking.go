package config

import (
	"fmt"
	"strings"
	"time"
)

type DepositPolicy string

const (
	// DepositPolicyStrict отклоняет подтверждение, если внесено меньше депозита.
	DepositPolicyStrict DepositPolicy = "strict"
	// DepositPolicyLenient подтверждает бронь и только логирует недоплату.
	DepositPolicyLenient DepositPolicy = "lenient"
)

type BookingConfig struct {
	MinDuration     time.Duration
	PendingGrace    time.Duration
	CodePrefix      string
	CodeRetries     int
	DepositPolicy   DepositPolicy
	Location        *time.Location
	SuggestionLimit int
	SuggestionStep  time.Duration
}

func LoadBookingConfig() (*BookingConfig, error) {
	tz := getEnv("BOOKING_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid booking config: timezone %q: %w", tz, err)
	}

	cfg := &BookingConfig{
		MinDuration:     getEnvDuration("BOOKING_MIN_DURATION", 60*time.Minute),
		PendingGrace:    getEnvDuration("BOOKING_PENDING_GRACE", 5*time.Minute),
		CodePrefix:      strings.ToUpper(getEnv("BOOKING_CODE_PREFIX", "RSV")),
		CodeRetries:     getEnvInt("BOOKING_CODE_RETRIES", 1),
		DepositPolicy:   DepositPolicy(strings.ToLower(getEnv("BOOKING_DEPOSIT_POLICY", string(DepositPolicyStrict)))),
		Location:        loc,
		SuggestionLimit: getEnvInt("BOOKING_SUGGESTION_LIMIT", 3),
		SuggestionStep:  getEnvDuration("BOOKING_SUGGESTION_STEP", 30*time.Minute),
	}

	if cfg.MinDuration <= 0 || cfg.PendingGrace <= 0 {
		return nil, fmt.Errorf("invalid booking config: durations must be positive")
	}
	if !validCodePrefix(cfg.CodePrefix) {
		return nil, fmt.Errorf("invalid booking config: code prefix %q must be 1-8 latin letters or digits", cfg.CodePrefix)
	}
	if cfg.CodeRetries < 0 {
		cfg.CodeRetries = 0
	}
	switch cfg.DepositPolicy {
	case DepositPolicyStrict, DepositPolicyLenient:
	default:
		return nil, fmt.Errorf("invalid booking config: unknown deposit policy %q", cfg.DepositPolicy)
	}

	return cfg, nil
}

// DefaultBookingConfig — значения по умолчанию без чтения окружения.
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		MinDuration:     60 * time.Minute,
		PendingGrace:    5 * time.Minute,
		CodePrefix:      "RSV",
		CodeRetries:     1,
		DepositPolicy:   DepositPolicyStrict,
		Location:        time.UTC,
		SuggestionLimit: 3,
		SuggestionStep:  30 * time.Minute,
	}
}

// Префикс попадает в LIKE-запрос, поэтому только буквы и цифры.
func validCodePrefix(p string) bool {
	if p == "" || len(p) > 8 {
		return false
	}
	for _, c := range p {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

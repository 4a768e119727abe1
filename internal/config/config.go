package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

type Config struct {
	DB        *DBConfig
	Booking   *BookingConfig
	Scheduler *SchedulerConfig
	Broker    *BrokerConfig

	GRPCAddr  string
	LogLevel  string
	LogFormat string
}

// LoadDotEnv подгружает .env-файлы, если они есть. Уже выставленные
// переменные окружения не перезаписываются.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	dbCfg, err := LoadDBConfig()
	if err != nil {
		return nil, err
	}
	bookingCfg, err := LoadBookingConfig()
	if err != nil {
		return nil, err
	}
	schedCfg, err := LoadSchedulerConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		DB:        dbCfg,
		Booking:   bookingCfg,
		Scheduler: schedCfg,
		Broker:    LoadBrokerConfig(),
		GRPCAddr:  getEnv("GRPC_ADDR", ":50051"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}, nil
}

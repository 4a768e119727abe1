package config

// BrokerConfig — внешние каналы доставки уведомлений и координации.
// Пустые значения означают, что соответствующий канал выключен.
type BrokerConfig struct {
	AMQPURL   string
	AMQPQueue string

	TelegramToken  string
	TelegramChatID int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LeaseKey      string
}

func LoadBrokerConfig() *BrokerConfig {
	amqpURL := getEnv("RABBITMQ_URL", "")
	if amqpURL == "" {
		amqpURL = getEnv("AMQP_URL", "")
	}

	return &BrokerConfig{
		AMQPURL:        amqpURL,
		AMQPQueue:      getEnv("AMQP_QUEUE", "rooms.notifications"),
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnvInt64("TELEGRAM_CHAT_ID", 0),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		LeaseKey:       getEnv("SCHED_LEASE_KEY", "rooms:scheduler:lease"),
	}
}

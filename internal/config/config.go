package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer

	Backend  Backend  `envPrefix:"BACKEND_"`
	Ledger   Ledger   `envPrefix:"LEDGER_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	RabbitMQ RabbitMQ `envPrefix:"RABBITMQ_"`
	Checkout Checkout `envPrefix:"CHECKOUT_"`
}

type Backend struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://dreamtravel.pythonanywhere.com/api/v1"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
	// optional token to start the session with, mostly for local runs
	AccessToken string `env:"ACCESS_TOKEN"`
}

// Ledger selects where the local purchase history lives.
type Ledger struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"` // sqlite, mysql, redis
	DSN    string `env:"DSN" envDefault:"storefront.db"`
	Key    string `env:"KEY" envDefault:"dreamtravel_historial"`
}

type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type RabbitMQ struct {
	URL   string `env:"URL"`
	Queue string `env:"QUEUE" envDefault:"purchase.completed"`
}

type Checkout struct {
	// 0 means no limit on concurrent checkout calls
	MaxParallel int `env:"MAX_PARALLEL" envDefault:"0"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

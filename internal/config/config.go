package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CRDBDSN        string
	MongoURI       string
	RedisAddr      string
	RabbitURL      string
	JWTSecret      string
	HTTPAddr       string
	RazorpayKeyID  string
	RazorpaySecret string
	GatewayBaseURL string
	GatewayTimeout time.Duration
	OTLPEndpoint   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	gwTimeout, _ := time.ParseDuration(os.Getenv("GATEWAY_TIMEOUT"))
	if gwTimeout == 0 {
		gwTimeout = 30 * time.Second
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	return &Config{
		CRDBDSN:        os.Getenv("CRDB_DSN"),
		MongoURI:       os.Getenv("MONGO_URI"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		HTTPAddr:       httpAddr,
		RazorpayKeyID:  os.Getenv("RAZORPAY_KEY_ID"),
		RazorpaySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		GatewayBaseURL: os.Getenv("RAZORPAY_BASE_URL"),
		GatewayTimeout: gwTimeout,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

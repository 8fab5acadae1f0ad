package global

import (
	"strconv"
	"time"
)

type Config struct {
	Port       string
	Production bool

	MongoURI      string
	MongoDatabase string

	RedisAddress    string
	RedisPassword   string
	ProductCacheTTL time.Duration

	JWTSecret string

	StripeSecretKey string
	StripeAPIURL    string
	PaymentCurrency string

	ImageHost  string
	ImageRoute string

	CheckoutAtomic bool
	CORSOrigins    []string
	ServiceName    string
	OTLPEndpoint   string
}

// LoadConfig reads the process configuration. Required keys abort the process.
func LoadConfig() *Config {
	port := GetEnvOrDefault("PORT", "8000")
	return &Config{
		Port:       port,
		Production: GetEnvOrDefault("ENV", "development") == "production",

		MongoURI:      MustGetEnv("MONGODB_URI"),
		MongoDatabase: GetEnvOrDefault("MONGODB_DATABASE", "shop"),

		RedisAddress:    GetEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:   GetEnvOrDefault("REDIS_PASSWORD", ""),
		ProductCacheTTL: GetEnvDuration("PRODUCT_CACHE_TTL", 30*time.Second),

		JWTSecret: MustGetEnv("JWT_SECRET"),

		StripeSecretKey: MustGetEnv("STRIPE_SECRET_KEY"),
		StripeAPIURL:    GetEnvOrDefault("STRIPE_API_URL", "https://api.stripe.com"),
		PaymentCurrency: GetEnvOrDefault("PAYMENT_CURRENCY", "usd"),

		ImageHost:  GetEnvOrDefault("HOST", "http://localhost:"+port),
		ImageRoute: GetEnvOrDefault("ROUTE_IMAGE", "images"),

		CheckoutAtomic: GetEnvBool("CHECKOUT_ATOMIC", false),
		CORSOrigins:    GetEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		ServiceName:    GetEnvOrDefault("SERVICE_NAME", "purchases-api"),
		OTLPEndpoint:   GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func (c *Config) Addr() string {
	if _, err := strconv.Atoi(c.Port); err == nil {
		return ":" + c.Port
	}
	return c.Port
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"julianmorley.ca/con-plar/purchases/internal/router"
	"julianmorley.ca/con-plar/purchases/pkg/account"
	"julianmorley.ca/con-plar/purchases/pkg/ai"
	"julianmorley.ca/con-plar/purchases/pkg/global"
	"julianmorley.ca/con-plar/purchases/pkg/images"
	"julianmorley.ca/con-plar/purchases/pkg/messaging"
	"julianmorley.ca/con-plar/purchases/pkg/mongo"
	"julianmorley.ca/con-plar/purchases/pkg/payment"
	"julianmorley.ca/con-plar/purchases/pkg/purchase"
	"julianmorley.ca/con-plar/purchases/pkg/redis"
	"julianmorley.ca/con-plar/purchases/pkg/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded, using process environment: %v", err)
	}
	cfg := global.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	mongo.InitMongoDB(cfg.MongoURI, cfg.MongoDatabase)
	db := mongo.GetDatabase()
	mongo.EnsureIndexesOnStartup(db)

	cache := redis.RedisClient(cfg.RedisAddress, cfg.RedisPassword)
	if err := redis.Ping(ctx, cache); err != nil {
		log.Printf("Redis unavailable, product lookups go straight to MongoDB: %v", err)
	}

	resolver := images.NewResolver(cfg.ImageHost, cfg.ImageRoute)
	users := mongo.NewUserRepository(db)

	deps := purchase.Deps{
		Store:          mongo.NewPurchaseRepository(db),
		Products:       redis.NewProductCache(cache, mongo.NewProductRepository(db), cfg.ProductCacheTTL),
		Users:          users,
		Gateway:        payment.NewStripeGateway(cfg.StripeAPIURL, cfg.StripeSecretKey),
		Images:         resolver,
		Currency:       cfg.PaymentCurrency,
		AtomicCheckout: cfg.CheckoutAtomic,
	}

	var rabbit *messaging.RabbitMQClient
	rabbitCfg := messaging.NewRabbitMQConfig(cfg.ServiceName)
	if rabbitCfg.Enabled() {
		rabbit = messaging.NewRabbitMQClient(rabbitCfg)
		if err := rabbit.Connect(); err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		deps.Events = messaging.NewPublisher(rabbit)
	} else {
		log.Println("RabbitMQ disabled - RABBITMQ_HOST not set")
	}

	purchases := purchase.NewService(deps)
	if rabbit != nil {
		if err := messaging.NewConsumer(rabbit).Consume(ctx, purchase.ConsumedEvents, purchases.HandleEvent); err != nil {
			log.Fatalf("Failed to start payment event consumer: %v", err)
		}
	}

	handler := router.NewHandler(
		purchases,
		account.NewService(users, resolver),
		ai.NewClientFromEnv(),
		map[string]router.Pinger{
			"database": mongo.Ping,
			"cache":    func(ctx context.Context) error { return redis.Ping(ctx, cache) },
		},
	)
	engine := router.InitEngine(router.EngineConfig{
		Production:  cfg.Production,
		ServiceName: cfg.ServiceName,
		CORSOrigins: cfg.CORSOrigins,
	})
	router.InitializeRoutes(engine, handler, []byte(cfg.JWTSecret))

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Printf("Server is running on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if rabbit != nil {
		_ = rabbit.Close()
	}
	if err := cache.Close(); err != nil {
		log.Printf("Redis close: %v", err)
	}
	if err := mongo.Disconnect(shutdownCtx); err != nil {
		log.Printf("MongoDB disconnect: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Printf("Telemetry shutdown: %v", err)
	}
}

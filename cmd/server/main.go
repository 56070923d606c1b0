package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gildedwren/storefront/internal/auth"
	cartcache "github.com/gildedwren/storefront/internal/cart/cache"
	cartrepo "github.com/gildedwren/storefront/internal/cart/repository"
	cartservice "github.com/gildedwren/storefront/internal/cart/service"
	checkoutpub "github.com/gildedwren/storefront/internal/checkout/publisher"
	checkoutrepo "github.com/gildedwren/storefront/internal/checkout/repository"
	checkoutservice "github.com/gildedwren/storefront/internal/checkout/service"
	"github.com/gildedwren/storefront/internal/config"
	h "github.com/gildedwren/storefront/internal/http"
	marketingrepo "github.com/gildedwren/storefront/internal/marketing/repository"
	marketingservice "github.com/gildedwren/storefront/internal/marketing/service"
	ordersconsumer "github.com/gildedwren/storefront/internal/orders/consumer"
	ordersrepo "github.com/gildedwren/storefront/internal/orders/repository"
	ordersservice "github.com/gildedwren/storefront/internal/orders/service"
	"github.com/gildedwren/storefront/internal/payment"
	productrepo "github.com/gildedwren/storefront/internal/product/repository"
	productservice "github.com/gildedwren/storefront/internal/product/service"
)

func main() {
	log.Println("storefront starting...")

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cart storage: mongo documents fronted by a redis cache
	connectCtx, connectCancel := context.WithTimeout(ctx, 15*time.Second)
	mongoDB, err := cartrepo.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDB)
	connectCancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	cartRepository, err := cartrepo.NewMongoRepository(ctx, mongoDB)
	if err != nil {
		log.Fatalf("Failed to prepare cart collection: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to ping redis: %v", err)
	}

	cartService := cartservice.NewCartService(cartRepository, cartcache.NewRedisCache(redisClient))

	// Checkout sessions and outbox live in postgres
	checkoutCreds := &checkoutrepo.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPass,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.CheckoutMigrationsPath,
	}
	checkoutRepository, err := checkoutrepo.NewRepository(checkoutCreds)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer checkoutRepository.Close()
	if err := checkoutRepository.RunMigrations(checkoutCreds); err != nil {
		log.Fatalf("Failed to run checkout migrations: %v", err)
	}

	ordersCreds := &ordersrepo.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPass,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.OrdersMigrationsPath,
	}
	ordersRepository, err := ordersrepo.NewRepository(ordersCreds)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer ordersRepository.Close()
	if err := ordersRepository.RunMigrations(ordersCreds); err != nil {
		log.Fatalf("Failed to run orders migrations: %v", err)
	}

	marketingCreds := &marketingrepo.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPass,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MarketingMigrationsPath,
	}
	marketingRepository, err := marketingrepo.NewRepository(marketingCreds)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer marketingRepository.Close()
	if err := marketingRepository.RunMigrations(marketingCreds); err != nil {
		log.Fatalf("Failed to run marketing migrations: %v", err)
	}

	// Product catalog is a local sqlite file
	productRepository, err := productrepo.NewRepository(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open product database: %v", err)
	}
	defer productRepository.Close()
	if err := productRepository.RunMigrations(cfg.SQLiteMigrationsPath); err != nil {
		log.Fatalf("Failed to run product migrations: %v", err)
	}
	log.Println("Database migrations completed")

	var gateway payment.Gateway
	if cfg.GatewayAPIKey != "" {
		gateway = payment.NewHTTPGateway(cfg.GatewayBaseURL, cfg.GatewayAPIKey)
	} else {
		log.Println("PAYMENT_GATEWAY_KEY not set, using stub gateway")
		gateway = payment.NewStubGateway(payment.RandomOutcome{})
	}

	orderService := ordersservice.NewOrderService(ordersRepository)
	productService := productservice.NewProductService(productRepository)
	marketingService := marketingservice.NewMarketingService(marketingRepository)
	authService := auth.NewService(redisClient, cfg.AdminUsername, cfg.AdminPassword)

	checkoutService := checkoutservice.NewCheckoutService(
		checkoutRepository,
		cartService,
		gateway,
		orderService,
		cfg.Pricing,
		cfg.RequestTimeout,
	)

	// Outbox poller publishes completed orders; the consumer records any the
	// synchronous path missed.
	poller := checkoutpub.NewOutboxPoller(checkoutRepository, cfg.KafkaBrokers...)
	go poller.Run(ctx)

	consumer := ordersconsumer.NewConsumer(ordersRepository, cfg.KafkaBrokers...)
	defer consumer.Close()
	go consumer.Run(ctx)

	router := h.NewRouter(h.RouterDeps{
		Cart:           h.NewCartHandler(cartService, productService, cfg.RequestTimeout),
		Checkout:       h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout),
		Products:       h.NewProductHandler(productService, cfg.RequestTimeout),
		Admin:          h.NewAdminHandler(authService, orderService, cfg.RequestTimeout),
		Misc:           h.NewMiscHandler(marketingService, cfg.UploadDir, cfg.RequestTimeout),
		Auth:           authService,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodySize:    cfg.MaxRequestBodySize,
		UploadDir:      cfg.UploadDir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}

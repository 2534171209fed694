package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/flowershop-service/config"
	"github.com/fekuna/flowershop-service/internal/middleware"
	"github.com/fekuna/flowershop-service/pkg/broker"
	"github.com/fekuna/flowershop-service/pkg/cache"
	"github.com/fekuna/flowershop-service/pkg/database"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/fekuna/flowershop-service/pkg/search"

	customerH "github.com/fekuna/flowershop-service/internal/customer/handler"
	customerRepoPkg "github.com/fekuna/flowershop-service/internal/customer/repository"
	customerUCPkg "github.com/fekuna/flowershop-service/internal/customer/usecase"

	"github.com/fekuna/flowershop-service/internal/inventory"
	invH "github.com/fekuna/flowershop-service/internal/inventory/handler"
	invListenerPkg "github.com/fekuna/flowershop-service/internal/inventory/listener"
	invRepoPkg "github.com/fekuna/flowershop-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/flowershop-service/internal/inventory/usecase"

	"github.com/fekuna/flowershop-service/internal/item"
	itemH "github.com/fekuna/flowershop-service/internal/item/handler"
	itemRepoPkg "github.com/fekuna/flowershop-service/internal/item/repository"
	itemUCPkg "github.com/fekuna/flowershop-service/internal/item/usecase"

	"github.com/fekuna/flowershop-service/internal/order"
	orderH "github.com/fekuna/flowershop-service/internal/order/handler"
	orderRepoPkg "github.com/fekuna/flowershop-service/internal/order/repository"
	orderUCPkg "github.com/fekuna/flowershop-service/internal/order/usecase"

	supplierH "github.com/fekuna/flowershop-service/internal/supplier/handler"
	supplierRepoPkg "github.com/fekuna/flowershop-service/internal/supplier/repository"
	supplierUCPkg "github.com/fekuna/flowershop-service/internal/supplier/usecase"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.Server.IsDevelopment(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := database.NewDB(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to database", zap.String("driver", cfg.Database.Driver), zap.String("db_name", cfg.Database.DBName))

	// 4. Initialize Repositories
	itemRepo := itemRepoPkg.NewSQLRepository(db)
	supplierRepo := supplierRepoPkg.NewSQLRepository(db)
	customerRepo := customerRepoPkg.NewSQLRepository(db)
	orderRepo := orderRepoPkg.NewSQLRepository(db)
	invRepo := invRepoPkg.NewSQLRepository(db)

	// 5. Initialize Redis. Without it listings are not cached and writers are
	// serialized by row locks only.
	var (
		itemCache   item.Cache
		orderLocker order.Locker
		invLocker   inventory.Locker
	)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

		locker := cache.NewLocker(redisClient)
		itemCache = redisClient
		orderLocker = locker
		invLocker = locker
	}

	// 6. Initialize Broker
	publisher, reader := connectBroker(cfg, appLogger)
	defer publisher.Close()
	if reader != nil {
		defer reader.Close()
	}

	// 7. Initialize Elasticsearch
	var itemIndex item.SearchIndex
	if cfg.Elastic.Enabled {
		esClient, err := search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Elasticsearch, item search falls back to the database", zap.Error(err))
		} else {
			itemIndex = esClient
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 8. Initialize UseCases
	itemUC := itemUCPkg.NewItemUseCase(itemRepo, itemCache, itemIndex, cfg.Elastic.Index, appLogger)
	supplierUC := supplierUCPkg.NewSupplierUseCase(supplierRepo, itemUC, appLogger)
	customerUC := customerUCPkg.NewCustomerUseCase(customerRepo, appLogger)
	orderUC := orderUCPkg.NewOrderUseCase(orderRepo, orderLocker, publisher, itemUC, orderUCPkg.Config{
		PointRate:         cfg.Loyalty.PointRate,
		DefaultEmployeeID: cfg.Shop.DefaultEmployeeID,
	}, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, invLocker, itemUC, cfg.Shop.LowStockThreshold, appLogger)

	// 9. Start Listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if reader != nil {
		invListener := invListenerPkg.NewInventoryListener(reader, itemUC, appLogger)
		go invListener.Start(ctx)
	}

	// 10. Initialize Router
	if !cfg.Server.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(appLogger), middleware.PrometheusMiddleware())

	router.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	if cfg.JWT.Disabled {
		appLogger.Warn("JWT authentication is disabled")
	} else {
		api.Use(middleware.AuthMiddleware(cfg.JWT.SecretKey))
	}

	itemH.NewItemHandler(itemUC, appLogger).RegisterRoutes(api)
	supplierH.NewSupplierHandler(supplierUC, appLogger).RegisterRoutes(api)
	customerH.NewCustomerHandler(customerUC, appLogger).RegisterRoutes(api)
	orderH.NewOrderHandler(orderUC, appLogger).RegisterRoutes(api)
	invH.NewInventoryHandler(invUC, appLogger).RegisterRoutes(api)

	// 11. Start HTTP Server
	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	srv := &http.Server{
		Addr:              port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	appLogger.Info("Starting HTTP server", zap.String("port", port))

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

// connectBroker returns where order events are published and, when the
// driver supports consuming them, the reader the inventory listener uses.
func connectBroker(cfg *config.Config, log logger.ZapLogger) (broker.Publisher, broker.Reader) {
	switch cfg.Broker.Driver {
	case "kafka":
		kcfg := &broker.KafkaConfig{
			Brokers: cfg.Broker.Kafka.Brokers,
			Topic:   cfg.Broker.Kafka.Topic,
			GroupID: cfg.Broker.Kafka.GroupID,
		}
		log.Info("Connected to Kafka", zap.Strings("brokers", kcfg.Brokers), zap.String("topic", kcfg.Topic))
		return broker.NewProducer(kcfg), broker.NewConsumer(kcfg)
	case "rabbitmq":
		mq, err := broker.NewRabbitMQ(&broker.RabbitConfig{
			URL:             cfg.Broker.RabbitMQ.URL,
			Exchange:        cfg.Broker.RabbitMQ.Exchange,
			Queue:           cfg.Broker.RabbitMQ.Queue,
			DeadLetterQueue: cfg.Broker.RabbitMQ.DeadLetterQueue,
			RoutingKey:      cfg.Broker.RabbitMQ.RoutingKey,
			MaxPriority:     cfg.Broker.RabbitMQ.MaxPriority,
		})
		if err != nil {
			log.Fatal("Could not connect to RabbitMQ", zap.Error(err))
		}
		log.Info("Connected to RabbitMQ", zap.String("exchange", cfg.Broker.RabbitMQ.Exchange))
		return mq, mq
	default:
		log.Warn("No broker configured, order events are dropped", zap.String("driver", cfg.Broker.Driver))
		return broker.NopPublisher{}, nil
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mmdr-storefront/internal/config"
	"mmdr-storefront/internal/db"
	"mmdr-storefront/internal/events"
	"mmdr-storefront/internal/httpserver"
	productrepo "mmdr-storefront/internal/repository/product"
	reviewrepo "mmdr-storefront/internal/repository/review"
	salerepo "mmdr-storefront/internal/repository/sale"
	productsvc "mmdr-storefront/internal/service/product"
	reviewsvc "mmdr-storefront/internal/service/review"
	salesvc "mmdr-storefront/internal/service/sale"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := config.NewLogger(cfg.LogLevel, "api")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		logger.Fatal("init events publisher", zap.Error(err))
	}
	defer publisher.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	productService := productsvc.New(productRepo, logger)
	saleRepo := salerepo.NewPostgres(dbpool, logger)
	saleService := salesvc.New(saleRepo, productRepo, publisher, logger)

	deps := httpserver.Deps{
		Products: productService,
		Sales:    saleService,
	}

	if cfg.MongoURI != "" {
		mongoDB, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Fatal("connect to mongo", zap.Error(err))
		}
		defer mongoDB.Client().Disconnect(context.Background())
		if err := reviewrepo.CreateIndexes(ctx, mongoDB); err != nil {
			logger.Warn("create review indexes", zap.Error(err))
		}
		deps.Reviews = reviewsvc.New(reviewrepo.NewMongo(mongoDB, logger), productRepo, logger)
	} else {
		logger.Info("MONGO_URI not set, review routes disabled")
	}

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, deps, cfg.CORSOrigins)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}

func newPublisher(cfg config.Config, logger *zap.Logger) (events.Publisher, error) {
	switch cfg.EventsBroker {
	case config.BrokerNone, "":
		return events.Nop{}, nil
	case config.BrokerAMQP:
		pool, err := events.NewChannelPool(cfg.RabbitMQURL, cfg.RabbitMQQueue, cfg.ChannelPoolSize, logger)
		if err != nil {
			return nil, err
		}
		return events.NewAMQPPublisher(pool, cfg.RabbitMQQueue, logger), nil
	case config.BrokerKafka:
		return events.NewKafkaPublisher(cfg.KafkaTopic, logger, cfg.KafkaBrokers...), nil
	default:
		return nil, fmt.Errorf("unknown EVENTS_BROKER %q", cfg.EventsBroker)
	}
}

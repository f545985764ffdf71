package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mmdr-storefront/internal/config"
	"mmdr-storefront/internal/db"
	"mmdr-storefront/internal/salesclient"
	"mmdr-storefront/internal/storage"
	"mmdr-storefront/internal/storefront"

	"go.uber.org/zap"
)

const usage = `usage: storefront [flags] <command> [args]

commands:
  cart show|add <id>|set <id> <n>|inc <id>|dec <id>|remove <id>|clear
  fav list|toggle <id>|clear
  checkout [shipping and card flags]
  outbox list|flush [-watch]
  products [-limit n]
`

func main() {
	cfg := config.Load()

	fs := flag.NewFlagSet("storefront", flag.ExitOnError)
	storageKind := fs.String("storage", cfg.StorefrontStorage, "local state backend: sqlite, redis or memory")
	dbPath := fs.String("db", cfg.StorefrontDBPath, "sqlite file for local state")
	session := fs.String("session", "default", "shopper session name (redis backend)")
	apiURL := fs.String("api", cfg.StorefrontAPIURL, "sales and catalog API base URL")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg.LogLevel, "storefront")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openKV(ctx, cfg, *storageKind, *dbPath, *session)
	if err != nil {
		logger.Fatal("open local storage", zap.String("storage", *storageKind), zap.Error(err))
	}
	defer closeKV()

	sess := storefront.Open(ctx, kv, salesclient.New(*apiURL), storefront.Options{
		PaymentDelay: cfg.PaymentDelay,
		Logger:       logger,
	})
	a := &app{session: sess, out: os.Stdout, retryEvery: cfg.OutboxRetry}

	if err := a.run(ctx, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openKV(ctx context.Context, cfg config.Config, kind, path, session string) (storage.KV, func(), error) {
	switch kind {
	case "memory":
		return storage.NewMemoryKV(), func() {}, nil
	case "redis":
		client, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisKV(client, session), func() { client.Close() }, nil
	case "sqlite", "":
		kv, err := storage.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { kv.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage %q", kind)
	}
}

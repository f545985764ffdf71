package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"mmdr-storefront/internal/config"
	"mmdr-storefront/internal/db"
	"mmdr-storefront/internal/importer"
	"mmdr-storefront/internal/repository/product"

	"go.uber.org/zap"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to the product CSV (name,description,price,category,stock,image,tags)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger, err := config.NewLogger(cfg.LogLevel, "importer")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, logger), logger)

	start := time.Now()
	res, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
	for _, rowErr := range res.Skipped {
		fmt.Fprintf(os.Stderr, "skipped %v\n", rowErr)
	}

	fmt.Printf("Imported %d products (%d skipped) in %s\n", res.Imported, len(res.Skipped), time.Since(start).Truncate(time.Millisecond))
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/tranqhuy/bida-pos/internal/config"
	kafkax "github.com/tranqhuy/bida-pos/internal/kafka"
	"github.com/tranqhuy/bida-pos/internal/pos"
	"github.com/tranqhuy/bida-pos/internal/postgres"
	"github.com/tranqhuy/bida-pos/internal/redisx"
	"github.com/tranqhuy/bida-pos/internal/stock"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &stock.Service{
		Repo:        &stock.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-stock",
	}

	group := getenv("STOCK_GROUP", "stock-svc")
	workers := mustAtoi(os.Getenv("STOCK_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, pos.TopicSessionCompleted, workers)

	var g errgroup.Group
	g.Go(func() error {
		log.Printf("stock consumer started: group=%s topic=%s workers=%d", group, pos.TopicSessionCompleted, workers)
		return cons.Start(ctx, svc.HandleSessionCompleted)
	})

	if err := g.Wait(); err != nil {
		log.Printf("consumer exit: %v", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tranqhuy/bida-pos/internal/billing"
	"github.com/tranqhuy/bida-pos/internal/config"
	"github.com/tranqhuy/bida-pos/internal/httpx"
	kafkax "github.com/tranqhuy/bida-pos/internal/kafka"
	"github.com/tranqhuy/bida-pos/internal/persist"
	"github.com/tranqhuy/bida-pos/internal/pos"
	"github.com/tranqhuy/bida-pos/internal/postgres"
	"github.com/tranqhuy/bida-pos/internal/receipt"
	"github.com/tranqhuy/bida-pos/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy := billing.Policy{
		EnableBlockBilling: cfg.Billing.EnableBlockBilling,
		BlockMinutes:       cfg.Billing.BlockMinutes,
		GraceMinutes:       cfg.Billing.GraceMinutes,
	}
	if err := policy.Validate(); err != nil {
		log.Fatalf("billing config: %v", err)
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	queue := persist.NewQueue(256)
	queue.Start(ctx)

	factory := &pos.Factory{
		Tables:     &pos.TableRepo{DB: db},
		Orders:     &pos.OrderRepo{DB: db},
		Customers:  &pos.CustomerRepo{DB: db},
		Coupons:    &pos.CouponRepo{DB: db},
		Policy:     policy,
		Queue:      queue,
		Events:     &pos.Publisher{Sink: prod, Service: cfg.ServiceName},
		PointsUnit: cfg.PointsUnit,
	}

	router := httpx.NewRouter()
	h := &httpx.POSHandler{
		Factory:  factory,
		Products: &pos.ProductRepo{DB: db},
		Redis:    rdb,
		Printer:  receipt.Printer{Shop: cfg.Shop},
		QR:       receipt.DefaultQRGenerator{BaseURL: cfg.Shop.QRBaseURL},
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// Drain pending writes before the event stream closes.
	queue.Close()
	queue.WaitClosed()
	prod.Close()
	prod.WaitClosed()
	cancel()
}

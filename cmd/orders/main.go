package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/auth"
	"github.com/ariefcatur/go-shop-events.git/internal/clients"
	"github.com/ariefcatur/go-shop-events.git/internal/config"
	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/ariefcatur/go-shop-events.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-events.git/internal/kafka"
	"github.com/ariefcatur/go-shop-events.git/internal/ledger"
	"github.com/ariefcatur/go-shop-events.git/internal/orders"
	"github.com/ariefcatur/go-shop-events.git/internal/postgres"
	"github.com/ariefcatur/go-shop-events.git/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	// saga collaborators
	svc := &orders.Service{
		Store:       &orders.Repo{DB: db},
		Cart:        clients.NewCartClient(cfg.CartServiceURL, cfg.InternalSecret, cfg.ClientTimeout, cfg.ClientRetries),
		Products:    clients.NewProductClient(cfg.ProductServiceURL, cfg.ClientTimeout, cfg.ClientRetries),
		Payments:    clients.NewPaymentClient(cfg.PaymentServiceURL, cfg.ClientTimeout, cfg.ClientRetries),
		Coupons:     clients.NewCouponClient(cfg.CouponServiceURL, cfg.ClientTimeout, cfg.ClientRetries),
		Publisher:   prod,
		Ledger:      &ledger.Ledger{DB: db, Redis: rdb},
		Cache:       rdb,
		ServiceName: cfg.ServiceName,
	}

	// payment-events consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, "order-payment", events.TopicPaymentEvents, 4)
	go cons.Run(ctx, svc.HandlePaymentEvent)

	// HTTP
	router := httpx.NewRouter()
	authmw := auth.Middleware(auth.NewClient(cfg.AuthServiceURL, cfg.ClientTimeout))
	oh := &httpx.OrdersHandler{Svc: svc, Redis: rdb}
	oh.Register(router, authmw)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("order service listening at %s", cfg.HTTPAddr)
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
	prod.Close()
	cancel()
	prod.WaitClosed()
}

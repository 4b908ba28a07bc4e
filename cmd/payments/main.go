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
	"github.com/ariefcatur/go-shop-events.git/internal/config"
	"github.com/ariefcatur/go-shop-events.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-events.git/internal/kafka"
	"github.com/ariefcatur/go-shop-events.git/internal/payments"
	"github.com/ariefcatur/go-shop-events.git/internal/postgres"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	svc := &payments.Service{
		Store:       &payments.Repo{DB: db},
		Publisher:   prod,
		ServiceName: cfg.ServiceName,
	}

	router := httpx.NewRouter()
	authmw := auth.Middleware(auth.NewClient(cfg.AuthServiceURL, cfg.ClientTimeout))
	ph := &payments.Handler{Svc: svc, InternalSecret: cfg.InternalSecret}
	ph.Register(router, authmw)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("payment service listening at %s", cfg.HTTPAddr)
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

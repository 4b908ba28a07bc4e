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
	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/ariefcatur/go-shop-events.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-events.git/internal/kafka"
	"github.com/ariefcatur/go-shop-events.git/internal/postgres"
	"github.com/ariefcatur/go-shop-events.git/internal/worker"
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

	// email-tasks consumer + retry sweeper
	emails := &worker.EmailWorker{
		Logs:   &worker.LogRepo{DB: db},
		Sender: worker.LogSender{},
	}
	ec := kafkax.NewConsumer(cfg.KafkaBrokers, "worker-email", events.TopicEmailTasks, 4)
	go ec.Run(ctx, emails.HandleEmailTask)
	go emails.RunSweeper(ctx, 5*time.Minute)

	// notification-tasks consumer
	notifs := &worker.NotificationRepo{DB: db}
	nw := &worker.NotificationWorker{Store: notifs}
	nc := kafkax.NewConsumer(cfg.KafkaBrokers, "worker-notification", events.TopicNotificationTasks, 4)
	go nc.Run(ctx, nw.HandleNotificationTask)

	// notification read surface
	router := httpx.NewRouter()
	authmw := auth.Middleware(auth.NewClient(cfg.AuthServiceURL, cfg.ClientTimeout))
	wh := &worker.Handler{Notifications: notifs}
	wh.Register(router, authmw)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("worker service listening at %s", cfg.HTTPAddr)
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
	cancel()
}

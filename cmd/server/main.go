package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamchat/internal/chatstore"
	"streamchat/internal/hub"
	"streamchat/internal/platform/config"
	"streamchat/internal/platform/logger"
	"streamchat/internal/platform/metrics"
	"streamchat/internal/streams"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	cfg := config.LoadServer()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := chatstore.Open(ctx, cfg.ChatStoreDriver, cfg.ChatStoreDSN)
	if err != nil {
		log.Error("open chat store", "driver", cfg.ChatStoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	repo := streams.NewInMemoryRepository()
	svc := streams.NewService(repo, cfg.StreamTTL)
	met := metrics.New()
	h := streams.NewHandler(svc, log, met)

	rt := hub.New(hub.Config{
		Registry:  svc,
		Store:     store,
		Log:       log,
		Metrics:   met,
		ChatRate:  rate.Limit(cfg.ChatRate),
		ChatBurst: cfg.ChatBurst,
	})
	svc.OnEvent(rt.StreamEvent)
	history := rt.History(cfg.ChatHistory)

	go svc.RunReaper(ctx, cfg.ReapEvery, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get(metrics.ScrapePath, func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetLiveStreams(repo.LiveStreamCount()) }).ServeHTTP(w, r)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/ws", rt)
	r.Route("/api/streams", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/user", h.ListByUser)
		r.Route("/{stream_id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/start", h.Start)
			r.Put("/stop", h.Stop)
			r.Put("/visibility", h.SetVisibility)
			r.Post("/heartbeat", h.Heartbeat)
			r.Method(http.MethodGet, "/chat", history)
		})
	})

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"stream_ttl", cfg.StreamTTL.String(),
		"chat_store", cfg.ChatStoreDriver,
		"log_level", cfg.LogLevel,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown
	rt.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

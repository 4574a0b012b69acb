package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orderdesk/internal/api"
	"orderdesk/internal/config"
	"orderdesk/internal/database"
	"orderdesk/internal/handler"
	"orderdesk/internal/metrics"
	"orderdesk/internal/model"
	"orderdesk/internal/mw"
	"orderdesk/internal/notify"
	"orderdesk/internal/orders"
	"orderdesk/internal/push"
	"orderdesk/internal/query"
	"orderdesk/internal/session"
	"orderdesk/internal/status"
	"orderdesk/internal/view"
	"orderdesk/internal/worker"
)

func main() {
	cfg := config.New()
	slog.SetDefault(cfg.Logger())
	metrics.Register()

	catalog := status.Default()
	if cfg.StatusCatalog != "" {
		c, err := status.Load(cfg.StatusCatalog)
		if err != nil {
			slog.Error("failed to load status catalog", "path", cfg.StatusCatalog, "error", err)
			os.Exit(1)
		}
		catalog = c
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewDB(ctx, cfg.SessionDriver, cfg.SessionDBURI)
	if err != nil {
		slog.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(db)

	if err := database.InitSchema(ctx, db); err != nil {
		slog.Error("failed to init session schema", "error", err)
		os.Exit(1)
	}

	store, err := session.NewStore(db, cfg.SessionSecret)
	if err != nil {
		slog.Error("failed to create session store", "error", err)
		os.Exit(1)
	}

	// Backend client and session
	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, catalog)
	sessions := session.NewManager(store, client)
	client.UseSession(sessions, sessions.HandleUnauthorized)
	if err := sessions.Restore(ctx); err != nil {
		slog.Error("failed to restore session", "error", err)
	}

	// Local state
	cache := query.New(cfg.CacheMaxAge)
	hub := handler.NewHub()
	notifications := notify.NewStore(notify.Toasters{notify.LogToaster{}, hub}, cache)
	svc := orders.NewService(client, catalog, cache)

	cache.OnInvalidate(func(resource string) {
		hub.Publish(handler.EventInvalidate, map[string]string{"resource": resource})
	})
	sessions.OnLogout(func(reason string) {
		cache.Drop()
		notifications.Clear()
		hub.Publish(handler.EventLogout, map[string]string{"reason": reason})
	})

	// Push
	events := push.Shared(push.Config{BaseURL: cfg.APIBaseURL, Token: sessions.Token})
	events.Subscribe(notifications.Handlers())
	events.Subscribe(push.Handlers{
		OnConnect:    hub.ConnectionUp,
		OnDisconnect: hub.ConnectionDown,
	})
	// a new login carries a new token, so the push connection starts over
	sessions.OnLogin(func(model.User) { events.Restart() })

	// Worker
	loggedIn := func() bool {
		_, ok := sessions.User()
		return ok
	}
	refreshWorker := worker.NewRefreshWorker(cache, cfg.RefreshInterval, loggedIn)

	views := &handler.Views{
		Catalog: catalog,
		Format:  view.NewFormatter(cfg.Location()),
		Backend: client,
		Cache:   cache,
		Live:    events.Connected,
	}

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.AllowOrigins(cfg.Origins()...))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Post("/api/session/login", handler.LoginHandler(sessions))
	r.Post("/api/session/register", handler.RegisterHandler(sessions))
	r.Get("/api/session", handler.SessionHandler(sessions))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSession(sessions))

		r.Post("/api/session/logout", handler.LogoutHandler(sessions))
		r.Get("/api/events", handler.EventsHandler(hub, events.Connected))
		r.Post("/api/events/reconnect", handler.ReconnectHandler(events))

		r.Get("/api/dashboard", handler.DashboardHandler(views))

		r.Get("/api/orders", handler.ListOrdersHandler(views))
		r.Post("/api/orders", handler.CreateOrderHandler(views, svc))
		r.Get("/api/orders/{id}", handler.OrderDetailsHandler(views))
		r.Put("/api/orders/{id}/status", handler.UpdateStatusHandler(views, svc))
		r.Post("/api/orders/{id}/comments", handler.AddCommentHandler(svc))

		r.Get("/api/alerts", handler.AlertHistoryHandler(views))

		r.Get("/api/notifications", handler.BellHandler(views, notifications))
		r.Post("/api/notifications/read-all", handler.MarkAllReadHandler(notifications))
		r.Post("/api/notifications/{id}/read", handler.MarkReadHandler(notifications))
		r.Delete("/api/notifications", handler.ClearNotificationsHandler(notifications))

		r.Get("/api/sheets", handler.ListSheetsHandler(views))

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)

			r.Delete("/api/orders/{id}", handler.DeleteOrderHandler(svc))
			r.Post("/api/sheets", handler.CreateSheetHandler(svc))
			r.Delete("/api/sheets/{id}", handler.DeleteSheetHandler(svc))
		})
	})

	srv := &http.Server{
		Addr:        cfg.RunAddress,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// event streams stay open, so no write timeout; they end with ctx
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go refreshWorker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress, "backend", cfg.APIBaseURL)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop worker
	events.Close()

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}

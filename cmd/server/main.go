package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quizbank/backend/internal/bank"
	"github.com/quizbank/backend/internal/config"
	"github.com/quizbank/backend/internal/database"
	"github.com/quizbank/backend/internal/logger"
	"github.com/quizbank/backend/internal/middleware"
	"github.com/quizbank/backend/internal/quiz"
	"github.com/quizbank/backend/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Question banks are loaded once and never change afterwards.
	repo := bank.Load(cfg.Quiz.DataDir, cfg.Quiz.BankIDs, zl.Named("bank"))

	store, err := openStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to open session store", zap.String("store", cfg.Session.Store), zap.Error(err))
	}
	defer store.Close()

	sessions, err := middleware.NewSessions(middleware.SessionConfig{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.CookieSecure,
	}, zl.Named("session"))
	if err != nil {
		zl.Fatal("Failed to set up sessions", zap.Error(err))
	}

	quizService := quiz.NewService(repo, store, zl.Named("quiz"), quiz.Options{
		MaxAttempts: cfg.Quiz.MaxAttempts,
		SampleSize:  cfg.Quiz.SampleSize,
	})
	quizHandler := quiz.NewHandler(quizService, repo, zl.Named("handler"))

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(zl.Named("http")))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(sessions.Handler)
	quizHandler.RegisterRoutes(api)

	r.HandleFunc("/debug", quizHandler.Debug).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if len(repo.ListAvailable()) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","reason":"no quiz banks loaded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("Server starting", zap.String("addr", srv.Addr), zap.String("session_store", cfg.Session.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
		defer cancel()
		zl.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zl.Error("Server failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (session.Store, error) {
	switch cfg.Session.Store {
	case config.StoreRedis:
		return session.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Session.TTL, zl.Named("store"))
	case config.StorePostgres:
		return openSQLStore(database.Postgres, cfg.Database.URL, zl.Named("store"))
	case config.StoreSQLite:
		return openSQLStore(database.SQLite, cfg.SQLite.Path, zl.Named("store"))
	default:
		zl.Warn("Using in-memory session store; sessions are lost on restart")
		return session.NewMemoryStore(zl.Named("store")), nil
	}
}

func openSQLStore(driver, dsn string, zl *zap.Logger) (session.Store, error) {
	db, err := database.Connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return session.NewSQLStore(db, driver, zl)
}

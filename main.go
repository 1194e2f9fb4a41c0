// Package main runs the eventhub relay server.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/johndosdos/eventhub/internal/auth"
	"github.com/johndosdos/eventhub/internal/broker"
	"github.com/johndosdos/eventhub/internal/config"
	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/handler"
	"github.com/johndosdos/eventhub/internal/metrics"
	"github.com/johndosdos/eventhub/internal/model"
	ratelimiter "github.com/johndosdos/eventhub/internal/rate_limiter"
	ws "github.com/johndosdos/eventhub/internal/websocket"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slog.SetDefault(config.NewLogger(cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Println("Server stopped")
}

func run(ctx context.Context, cfg config.Server) error {
	log.Println("Starting application...")

	// Init DB
	var store database.Store
	if cfg.DBURL == "" {
		log.Println("DB_URL is not set; using the in-memory store")
		store = database.NewMemory()
	} else {
		log.Println("Initializing Database connection...")
		pool, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		store = database.NewPostgres(pool)
	}

	if err := bootstrapAdmin(ctx, store, cfg); err != nil {
		return err
	}

	// Init NATS
	var (
		js     jetstream.JetStream
		stream jetstream.Stream
	)
	if cfg.NATSURL != "" {
		log.Println("Initializing NATS connection...")
		conn, err := connectNATS(cfg)
		if err != nil {
			return err
		}
		defer func() {
			// Drain NATS connection.
			if err := conn.Drain(); err != nil {
				log.Printf("couldn't drain NATS conn: %+v", err)
			}
		}()

		js, err = jetstream.New(conn)
		if err != nil {
			return err
		}
		stream, err = broker.EnsureStream(ctx, js)
		if err != nil {
			return err
		}
	} else {
		log.Println("NATS_URL is not set; chat fan-out is local to this instance")
	}

	m := metrics.New()

	// hub.Run is our central hub that is always listening for client related events.
	hub := ws.NewHub(js, store, m)

	limiter := ratelimiter.NewIPRateLimiter(cfg.IPRate, time.Minute, ratelimiter.CleanupOpts{
		TTL:      10 * time.Minute,
		Interval: time.Minute,
	})
	defer limiter.Cancel()

	server := &http.Server{
		Addr: "0.0.0.0:" + cfg.Port,
		Handler: handler.NewRouter(handler.Deps{
			Store:    store,
			Hub:      hub,
			Tokens:   auth.TokenIssuer{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.JWTTTL},
			Metrics:  m,
			Limiter:  limiter,
			Validate: validator.New(validator.WithRequiredStructEnabled()),
			Chat: handler.ChatLimits{
				MessagesPerMinute: cfg.MessageRate,
				TypingPerMinute:   cfg.TypingRate,
			},
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx, stream)
		return nil
	})

	g.Go(func() error {
		log.Printf("Server starting at %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutdown signal received; shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func connectNATS(cfg config.Server) (*nats.Conn, error) {
	var natsCredentials []nats.Option

	if cfg.NATSCred != "" {
		natsCredentials = append(natsCredentials, nats.UserCredentials(cfg.NATSCred))
	} else if cfg.NATSUser != "" && cfg.NATSPass != "" {
		natsCredentials = append(natsCredentials, nats.UserInfo(cfg.NATSUser, cfg.NATSPass))
	}

	natsCredentials = append(natsCredentials, nats.Timeout(5*time.Second))

	return nats.Connect(cfg.NATSURL, natsCredentials...)
}

// bootstrapAdmin creates the configured admin account once.
func bootstrapAdmin(ctx context.Context, store database.Store, cfg config.Server) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	if _, _, err := store.GetUserWithPasswordByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin, err := store.CreateUser(ctx, model.User{
		Name:     "Administrator",
		Email:    cfg.AdminEmail,
		Role:     model.RoleAdmin,
		Verified: true,
	}, hash)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "admin account created", "user_id", admin.ID)
	return nil
}

package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"fastest-finger-service/internal/app"
	"fastest-finger-service/internal/config"
	"fastest-finger-service/internal/domain"
	"fastest-finger-service/internal/infra/memory"
	pgloader "fastest-finger-service/internal/infra/postgres"
	redisbank "fastest-finger-service/internal/infra/redis"
	transport "fastest-finger-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game-show server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleBank())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.QuizBank.TTL, 10*time.Minute)
	var bank app.QuizBank
	if redisClient != nil {
		bank = redisbank.NewQuizBank(redisClient, loader, bankTTL)
	} else {
		bank = memory.NewQuizBank(loader, bankTTL)
	}

	service := app.NewService(app.NewSession(), bank)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting game-show service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBank seeds a few prepared questions for running without Postgres.
func sampleBank() map[string]domain.Quiz {
	capital := 2
	planet := 0
	return map[string]domain.Quiz{
		"warmup-1": {
			Question:           "What is the capital of France?",
			Options:            []string{"Berlin", "Madrid", "Paris", "Rome", "Lisbon"},
			CorrectAnswerIndex: &capital,
			TimeLimit:          20,
		},
		"warmup-2": {
			Question:           "Which planet is closest to the sun?",
			Options:            []string{"Mercury", "Venus", "Earth", "Mars", "Jupiter"},
			CorrectAnswerIndex: &planet,
			TimeLimit:          15,
		},
	}
}

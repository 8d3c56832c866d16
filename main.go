package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lab1702/battletanks-web/game"
	"github.com/lab1702/battletanks-web/server"
	"github.com/lab1702/battletanks-web/store"
)

func getEnvDefault(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

func main() {
	seedDefault, _ := strconv.ParseUint(getEnvDefault("SEED", "0"), 10, 64)

	port := flag.String("port", getEnvDefault("PORT", "8080"), "Server port")
	dbType := flag.String("db", getEnvDefault("DB_TYPE", "file"), "Save storage: file or postgres")
	dbURL := flag.String("database-url", getEnvDefault("DATABASE_URL", "host=localhost user=battletanks password=battletanks dbname=battletanks sslmode=disable"), "PostgreSQL connection string")
	saveDir := flag.String("save-dir", getEnvDefault("SAVE_DIR", "saves"), "Directory for file saves")
	logLevel := flag.String("log-level", getEnvDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	seed := flag.Uint64("seed", seedDefault, "Random seed for terrain and turn order, 0 for time based")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "battletanks",
	})
	if level, err := log.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warn("Unknown log level, using info", "level", *logLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	armory := game.DefaultArmory()
	var st store.Storage
	var err error
	switch *dbType {
	case "postgres":
		st, err = store.NewPostgresStore(ctx, *dbURL, armory, logger)
		logger.Info("Using PostgreSQL persistence")
	default:
		st, err = store.NewFileStore(*saveDir, armory, logger)
		logger.Info("Using file persistence", "dir", *saveDir)
	}
	if err != nil {
		logger.Fatal("Failed to initialize persistence", "err", err)
	}
	defer st.Close()

	cfg := server.DefaultConfig()
	cfg.Seed = *seed
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	gameServer, err := server.NewServer(cfg, st, logger)
	if err != nil {
		logger.Fatal("Failed to create game server", "err", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gameServer.HandleWebSocket)
	mux.HandleFunc("/api/scores", gameServer.HandleScores)
	mux.HandleFunc("/api/saves", gameServer.HandleSaves)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gameServer.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("Server running", "addr", "http://localhost:"+*port, "seed", cfg.Seed)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

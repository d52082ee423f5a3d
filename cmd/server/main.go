package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sathwikbalu/Zenith-Study/internal/chatstore"
	"github.com/sathwikbalu/Zenith-Study/internal/config"
	"github.com/sathwikbalu/Zenith-Study/internal/logging"
	"github.com/sathwikbalu/Zenith-Study/internal/roster"
	"github.com/sathwikbalu/Zenith-Study/internal/server"
	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env", "error", err)
	}

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr, slog.LevelInfo))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []signaling.Option{signaling.WithSendBuffer(cfg.SendBuffer)}
	var history server.HistoryReader

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("connect redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		archive := chatstore.NewRedisArchive(rdb, cfg.Redis.TTL, cfg.Redis.Channel)
		opts = append(opts, signaling.WithChatArchive(archive))
		history = archive
		slog.Info("archiving chat to redis", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	if cfg.Postgres.URL != "" {
		roles, err := roster.NewPostgresResolver(ctx, cfg.Postgres.URL)
		if err != nil {
			slog.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer roles.Close()
		opts = append(opts, signaling.WithRoleResolver(roles))
		slog.Info("resolving tutor roles from postgres")
	}

	hub := signaling.NewHub(opts...)
	go hub.Run(ctx)

	if err := server.New(cfg.Addr, hub, cfg.AllowedOrigins, history).Run(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

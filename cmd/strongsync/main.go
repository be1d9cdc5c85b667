package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/strongsync/internal/bot"
	"github.com/claude/strongsync/internal/config"
	"github.com/claude/strongsync/internal/ingest/strong"
	"github.com/claude/strongsync/internal/intervals"
	strongmcp "github.com/claude/strongsync/internal/mcp"
	"github.com/claude/strongsync/internal/server"
	"github.com/claude/strongsync/internal/state"
	"github.com/claude/strongsync/internal/storage"
	"github.com/claude/strongsync/migrations"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("strongsync", Version)
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(log)
	log.Info("StrongSync starting", "version", Version)

	ctx := context.Background()

	// Database is optional
	var db *storage.DB
	if cfg.Database.Enabled() {
		dsn := cfg.Database.DSN()
		var src fs.FS = migrations.FS
		if cfg.Database.Migrations != "" {
			src = os.DirFS(cfg.Database.Migrations)
			log.Info("using migrations from disk", "dir", cfg.Database.Migrations)
		}
		schema, err := storage.RunMigrations(dsn, src)
		if err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied", "version", schema)

		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		db, err = storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected")
	} else {
		if *migrateOnly {
			log.Error("migrate-only requires database.host")
			os.Exit(1)
		}
		log.Info("database not configured, workouts will not be stored")
	}

	st, err := state.Open(cfg.State.Dir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Intervals.icu
	icu := intervals.NewClient(cfg.Intervals.BaseURL, cfg.Intervals.APIKey, cfg.Intervals.AthleteID)
	testCtx, cancelTest := context.WithTimeout(ctx, 15*time.Second)
	if err := icu.TestConnection(testCtx); err != nil {
		log.Warn("intervals.icu connection test failed", "error", err)
	} else {
		log.Info("intervals.icu connection ok", "athlete_id", cfg.Intervals.AthleteID)
	}
	cancelTest()

	// Interfaces stay nil when there is no database.
	var (
		provStore  strong.Store
		srvStore   server.Store
		botStore   bot.WorkoutStore
		dataSource strongmcp.DataSource
	)
	if db != nil {
		provStore, srvStore, botStore, dataSource = db, db, db, db
	}

	parser := strong.NewParser(log, nil)
	provider := strong.NewProvider(provStore, parser, log)

	// Start listener: tsnet or plain HTTP
	var listener net.Listener
	var whois server.WhoIser

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		whois = lc

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	// MCP over streamable HTTP, scoped to the identity resolved by the server.
	mcpSrv := strongmcp.New(dataSource, parser, Version, log)
	mcpHTTP := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return strongmcp.WithUserID(ctx, server.UserIDFromContext(r.Context()))
		}),
	)

	srv := server.New(server.Deps{
		Store:     srvStore,
		Ingester:  provider,
		Parser:    parser,
		Intervals: icu,
		WhoIs:     whois,
		MCP:       mcpHTTP,
		APIKey:    cfg.Auth.APIKey,
		Log:       log,
	})

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Telegram bot
	botCtx, stopBot := context.WithCancel(ctx)
	botDone := make(chan struct{})
	if cfg.Telegram.Enabled() {
		tg, err := bot.New(cfg.Telegram.Token, log)
		if err != nil {
			log.Error("failed to start telegram bot", "error", err)
			os.Exit(1)
		}
		handler := bot.NewHandler(bot.Deps{
			Sender:       tg,
			Ingester:     provider,
			Intervals:    icu,
			Store:        botStore,
			State:        st,
			AllowedUsers: cfg.Telegram.AllowedUsers,
			Log:          log,
		})
		go func() {
			defer close(botDone)
			tg.Run(botCtx, handler)
		}()
	} else {
		log.Info("telegram token not configured, bot disabled")
		close(botDone)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	stopBot()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	select {
	case <-botDone:
	case <-shutdownCtx.Done():
		log.Warn("telegram bot did not stop in time")
	}
	log.Info("server stopped")
}

package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketd/config"
	"marketd/core/events"
	"marketd/core/state"
	coretypes "marketd/core/types"
	nativecommon "marketd/native/common"
	"marketd/native/market"
	"marketd/observability/logging"
	"marketd/rpc"
	"marketd/storage"
)

// logEmitter forwards engine events to the structured log. Deployments that
// index events replace this with their own emitter.
type logEmitter struct {
	log *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	carrier, ok := evt.(interface{ Event() *coretypes.Event })
	if !ok || carrier.Event() == nil {
		return
	}
	event := carrier.Event()
	args := make([]any, 0, 2*len(event.Attributes)+2)
	args = append(args, "event", event.Type)
	for k, v := range event.Attributes {
		args = append(args, k, v)
	}
	l.log.Info("market event", args...)
}

func main() {
	configPath := flag.String("config", "", "path to marketd TOML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load configuration", "err", err)
		os.Exit(1)
	}

	var logOut io.Writer
	if cfg.Log.File != "" {
		logOut = logging.RotatingWriter(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays)
	}
	logger := logging.Setup("marketd", cfg.Log.Env, logOut)

	var db storage.Database
	if cfg.InMemory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("open database", "dir", cfg.DataDir, "err", err)
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	pauses := nativecommon.StaticPauses{}
	for _, module := range cfg.PausedModules {
		pauses[module] = true
	}

	engine := market.NewEngine()
	engine.SetState(state.NewManager(db))
	engine.SetEmitter(logEmitter{log: logger})
	engine.SetPauses(pauses)

	server := rpc.NewServer(engine, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("marketd listening", "addr", cfg.ListenAddress, "inMemory", cfg.InMemory)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	logger.Info("marketd stopped")
}

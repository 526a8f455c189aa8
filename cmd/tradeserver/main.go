package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/moss-street/tradeserver/pkg/api"
	"github.com/moss-street/tradeserver/pkg/config"
	"github.com/moss-street/tradeserver/pkg/core"
	"github.com/moss-street/tradeserver/pkg/session"
	"github.com/moss-street/tradeserver/pkg/store"
	"github.com/moss-street/tradeserver/pkg/util"
)

// defaultPairs seeds the markets available on a fresh server. A real
// deployment would load these from the stock table instead; wiring that
// is left for a config-driven market list.
var defaultPairs = [][2]string{
	{"BTC", "USD"},
	{"ETH", "USD"},
	{"ETH", "BTC"},
}

func mustLogger(logPath string) *zap.Logger {
	if logPath == "" {
		l, err := util.NewLogger()
		if err != nil {
			log.Fatalf("logger: %v", err)
		}
		return l
	}
	l, err := util.NewLoggerWithFile(logPath)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return l
}

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl := mustLogger(cfg.LogPath)
	defer zl.Sync()
	sugar := zl.Sugar()
	sugar.Infow("tradeserver_starting", "ip", cfg.IP, "port", cfg.Port, "database_uri", cfg.DatabaseURI)

	db, err := store.Open(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("open store", "err", err)
	}
	defer db.Close()

	sessions := session.NewManager(util.RealClock{})

	// apiServer is captured by the broadcaster closure below but only
	// assigned after the registry exists; the closure isn't invoked until
	// the first fill, long after both are wired up.
	var apiServer *api.Server
	registry := core.NewRegistry(func(f core.Fill) {
		apiServer.Hub().BroadcastFill(api.FillEvent{
			Pair:      f.Pair.String(),
			Price:     f.Price.String(),
			Qty:       f.Qty.String(),
			TakerSide: f.TakerSide.String(),
			Timestamp: f.Timestamp.UnixNano(),
		})
	}, sugar)

	for _, pair := range defaultPairs {
		registry.AddMarket(pair[0], pair[1])
	}

	apiServer = api.NewServer(sessions, db, registry, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(cfg.SessionCleanup)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sessions.Cleanup()
			}
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.IP, cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start(addr)
	}()

	select {
	case <-ctx.Done():
		sugar.Info("shutting down")
	case err := <-errCh:
		sugar.Errorw("http server exited", "err", err)
	}

	registry.StopAll()
}

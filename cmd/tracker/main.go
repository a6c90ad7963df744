package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/archipelago-tracker/core/internal/config"
	"github.com/archipelago-tracker/core/internal/logging"
	"github.com/archipelago-tracker/core/internal/proxy"
	"github.com/archipelago-tracker/core/internal/queue"
	"github.com/archipelago-tracker/core/internal/statemanager"
	"github.com/archipelago-tracker/core/internal/transport/rest"
	"github.com/archipelago-tracker/core/internal/transport/ws"
)

func main() {
	var (
		listenAddr = flag.String("listen", "", "Listen address (overrides config)")
		rulesPath  = flag.String("rules", "", "Rules JSON file to preload (overrides config)")
		playerID   = flag.Int("player", 0, "Player id (overrides config, 0 means use config default)")
	)
	flag.Parse()

	cfg := config.Load()
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *rulesPath != "" {
		cfg.RulesPath = *rulesPath
	}
	if *playerID != 0 {
		cfg.PlayerID = *playerID
	}

	log := logging.Setup(cfg.LogLevel)
	log.Info("starting tracker", "listen", cfg.ListenAddr, "player", cfg.PlayerID)

	sm := statemanager.New(cfg.PlayerID)
	q := queue.NewQueue()

	worker := queue.NewWorker(q, nil, nil)
	prox := proxy.New(q, worker.HandleIntrospection)
	worker.SetDispatcher(buildDispatcher(sm, prox))
	worker.SetFatalHandler(prox.RejectAll)
	go worker.Run()

	if cfg.RulesPath != "" {
		preloadRules(sm, prox, cfg)
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  1 << 16,
		WriteBufferSize: 1 << 16,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.Handle("/", rest.NewServer(prox, log))
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "error", err)
			return
		}
		go ws.New(conn, prox).Run()
	})

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down tracker...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	worker.Stop()
	prox.Stop()

	log.Info("tracker exited gracefully")
}

func preloadRules(sm *statemanager.StateManager, prox *proxy.Proxy, cfg *config.Config) {
	data, err := os.ReadFile(cfg.RulesPath)
	if err != nil {
		return
	}
	conf, err := sm.LoadRules(statemanager.LoadRulesRequest{
		RulesData:   data,
		PlayerID:    cfg.PlayerID,
		RulesSource: cfg.RulesPath,
	})
	if err != nil {
		return
	}
	prox.HandleRulesLoaded(conf.Static, conf.Snapshot)
}

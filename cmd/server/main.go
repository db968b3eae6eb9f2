package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbodonnell/wordchain/pkg/api"
	"github.com/cbodonnell/wordchain/pkg/config"
	"github.com/cbodonnell/wordchain/pkg/dictionary"
	"github.com/cbodonnell/wordchain/pkg/game"
	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/network"
	"github.com/cbodonnell/wordchain/pkg/repositories"
	"github.com/cbodonnell/wordchain/pkg/version"
	"github.com/cbodonnell/wordchain/pkg/workers"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := log.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", cfg.LogLevel)

	log.Info("Starting wordchain server version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	words, err := dictionary.Load(cfg.DictionaryPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load dictionary: %v", err))
	}
	log.Info("Loaded %d words from %s", words.Len(), cfg.DictionaryPath)

	repository, err := repositories.Open(ctx, cfg.PlayLogURL)
	if err != nil {
		panic(fmt.Sprintf("Failed to open play log: %v", err))
	}
	defer repository.Close(context.Background())

	workerCtx, stopWorker := context.WithCancel(context.Background())
	playLogChan := make(chan workers.PlayLogRequest, workers.PlayLogBufferSize)
	playLogWorker := workers.NewPlayLogWorker(workers.NewPlayLogWorkerOptions{
		Repository:  repository,
		PlayLogChan: playLogChan,
	})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		playLogWorker.Start(workerCtx)
	}()

	registry := game.NewRegistry(game.NewRegistryOptions{
		Capacity: cfg.Capacity,
	})
	broadcaster := network.NewBroadcaster(registry)
	loop := game.NewLoop(game.NewLoopOptions{
		Registry:    registry,
		Words:       words,
		Broadcaster: broadcaster,
		PlayLogChan: playLogChan,
		Rules:       cfg.Rules,
	})

	var wsTLS *network.TLSConfig
	var apiTLS *api.TLSConfig
	if cfg.TLSEnabled() {
		wsTLS = &network.TLSConfig{CertFile: cfg.TLSCertFile, KeyFile: cfg.TLSKeyFile}
		apiTLS = &api.TLSConfig{CertFile: cfg.TLSCertFile, KeyFile: cfg.TLSKeyFile}
	}

	networkManager := network.NewNetworkManager(network.NewNetworkManagerOptions{
		Registry:     registry,
		Broadcaster:  broadcaster,
		MatchRunner:  loop,
		TCPPort:      cfg.TCPPort,
		WSPort:       cfg.WSPort,
		WSServerTLS:  wsTLS,
		WriteTimeout: cfg.WriteTimeout,
		AcceptRate:   cfg.AcceptRate,
		AcceptBurst:  cfg.AcceptBurst,
	})

	var apiServer *api.APIServer
	if cfg.APIPort > 0 {
		apiServer = api.NewAPIServer(api.NewAPIServerOptions{
			Port:       cfg.APIPort,
			TLS:        apiTLS,
			Registry:   registry,
			Repository: repository,
			Counters:   networkManager,
		})
		go apiServer.Start()
	}

	log.Info("Starting network manager")
	if err := networkManager.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		panic(fmt.Sprintf("Failed to start network manager: %v", err))
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if apiServer != nil {
		if err := apiServer.Stop(shutdownCtx); err != nil {
			log.Warn("Failed to stop API server: %v", err)
		}
	}

	stopWorker()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for the play log to drain")
	}
}

// The broker command runs the rendezvous service peers register with. It
// pairs peers that dial each other and relays their game messages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mo-shahab/peer-pong/internal/core"
	"github.com/mo-shahab/peer-pong/wsserver"
)

var configFlag = flag.String("config", "", "Path to the directory containing config.yaml")

func main() {
	flag.Parse()

	config, err := core.LoadConfig(*configFlag)
	if err != nil {
		fmt.Println("error loading config:", err)
		os.Exit(1)
	}
	logger, err := core.NewLogger(config)
	if err != nil {
		fmt.Println("error creating logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	wsh := wsserver.NewWebSocketHandler(wsserver.Options{
		OfferTimeout: config.Broker.OfferTimeout,
		RatePerSec:   config.Broker.RatePerSec,
		RateBurst:    config.Broker.RateBurst,
		SendQueue:    config.Broker.SendQueue,
		Registry:     registry,
		Logger:       logger.Named("broker"),
	})

	srv := &http.Server{
		Addr:              config.Broker.ListenAddr,
		Handler:           wsh.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("waiting to shut down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.Infof("broker listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("serve: %v", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

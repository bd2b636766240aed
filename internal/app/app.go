// Package app coordinates the gateway daemon: the data-plane and admin HTTP
// servers plus the queue consumers feeding the decision and error forwarding
// flows.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/borderhub/btms-gateway/internal/config"
	"github.com/borderhub/btms-gateway/internal/queue"
)

// Daemon runs both HTTP surfaces and the consumers until canceled.
type Daemon struct {
	cfg       config.Config
	logger    *slog.Logger
	gateway   *http.Server
	admin     *http.Server
	consumers []*queue.Consumer
}

// New constructs a Daemon with the provided configuration and handlers.
func New(cfg config.Config, logger *slog.Logger, gateway, admin http.Handler, consumers ...*queue.Consumer) *Daemon {
	return &Daemon{
		cfg:    cfg,
		logger: logger,
		gateway: &http.Server{
			Addr:    cfg.GatewayListen,
			Handler: gateway,
		},
		admin: &http.Server{
			Addr:    cfg.AdminListen,
			Handler: admin,
		},
		consumers: consumers,
	}
}

// Run starts the servers and consumers, then blocks until the context is
// canceled or a server fails.
func (d *Daemon) Run(ctx context.Context) error {
	serverErr := make(chan error, 2)
	serve := func(name string, server *http.Server) {
		d.logger.Info("http server starting", "server", name, "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}
	go serve("gateway", d.gateway)
	go serve("admin", d.admin)

	consumerCtx, stopConsumers := context.WithCancel(ctx)
	defer stopConsumers()
	var consumers sync.WaitGroup
	for _, c := range d.consumers {
		consumers.Add(1)
		go func(c *queue.Consumer) {
			defer consumers.Done()
			d.logger.Info("consumer starting", "queue", c.Queue)
			_ = c.Run(consumerCtx)
		}(c)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
	}

	stopConsumers()
	consumers.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.gateway.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	if err := d.admin.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

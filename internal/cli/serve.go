package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/storeflow"
	"github.com/aretw0/storeflow/internal/config"
	httpAdapter "github.com/aretw0/storeflow/pkg/adapters/http"
	"github.com/aretw0/storeflow/pkg/adapters/twilio"
	"github.com/aretw0/storeflow/pkg/observability"
	"github.com/aretw0/storeflow/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// WhatsAppPath is where the Twilio webhook is mounted.
const WhatsAppPath = "/v1/whatsapp"

const shutdownTimeout = 5 * time.Second

// Server is a fully wired HTTP server, ready to run.
type Server struct {
	App     *App
	Engine  *storeflow.Engine
	Handler http.Handler
	addr    string
	logger  *slog.Logger
}

// NewServer opens the app and wires the webhooks, metrics and transport.
// Outbound messages go to WhatsApp when Twilio is configured and to the
// SSE streams otherwise.
func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	app, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)
	hooks := observability.Combine(observability.LogHooks(logger), metrics.Hooks())

	streams := httpAdapter.NewStreamManager()
	handlerOpts := []httpAdapter.Option{
		httpAdapter.WithLogger(logger),
		httpAdapter.WithStreams(streams),
		httpAdapter.WithMetrics(metrics.Handler()),
	}

	var transport ports.Transport = httpAdapter.NewTransport(streams)
	var whatsapp *twilio.Transport
	if cfg.TwilioEnabled() {
		client, err := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		whatsapp = twilio.NewTransport(client, twilio.WithAdmins(cfg.AdminIDs...), twilio.WithLogger(logger))
		transport = whatsapp
		logger.Info("WhatsApp transport enabled", "from", cfg.TwilioFrom, "admins", len(cfg.AdminIDs))
	}

	eng := app.Engine(transport, storeflow.WithLifecycleHooks(hooks))

	if whatsapp != nil {
		// Signatures are only checked when the public URL is known.
		token := ""
		if cfg.PublicURL != "" {
			token = cfg.TwilioAuthToken
		}
		handlerOpts = append(handlerOpts,
			httpAdapter.WithMount(WhatsAppPath, whatsapp.InboundHandler(eng, cfg.PublicURL+WhatsAppPath, token)))
	}

	return &Server{
		App:     app,
		Engine:  eng,
		Handler: httpAdapter.NewHandler(eng, handlerOpts...),
		addr:    cfg.HTTPAddr,
		logger:  logger,
	}, nil
}

// Run validates the configuration, then serves until ctx is done and shuts
// down gracefully. The flows directory is watched meanwhile.
func (s *Server) Run(ctx context.Context) error {
	defer s.App.Close()

	report, err := s.Engine.Validate(ctx)
	if err != nil {
		return err
	}
	for _, w := range report.Warnings {
		s.logger.Warn("Flow warning", "detail", w)
	}
	for _, e := range report.Errors {
		s.logger.Error("Flow error", "detail", e)
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting storeflow server", "addr", s.addr, "start_node", s.Engine.StartNode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		s.logger.Info("Storeflow server stopped gracefully")
		return nil
	})
	g.Go(func() error {
		return s.App.Watch(ctx)
	})
	return g.Wait()
}

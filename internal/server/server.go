/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/heimdall/internal/api"
	"github.com/friendsincode/heimdall/internal/config"
	"github.com/friendsincode/heimdall/internal/db"
	"github.com/friendsincode/heimdall/internal/dispatch"
	"github.com/friendsincode/heimdall/internal/eventbus"
	"github.com/friendsincode/heimdall/internal/events"
	"github.com/friendsincode/heimdall/internal/integrations"
	"github.com/friendsincode/heimdall/internal/plugins"
	"github.com/friendsincode/heimdall/internal/telemetry"
)

// Publisher is the write side of the event bus the platform publishes on.
type Publisher interface {
	Publish(event events.EventType, payload events.Payload)
}

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db         *gorm.DB
	bus        *events.Bus
	publisher  Publisher
	dispatcher *dispatch.Service
	api        *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New wires configuration into a ready-to-run server.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("heimdall-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.api.RegisterRoutes(router)
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

// initDependencies builds database, bus bridge, dispatcher, and API.
func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := db.RegisterCallbacks(database); err != nil {
		return fmt.Errorf("register db callbacks: %w", err)
	}

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	switch s.cfg.BusBackend {
	case config.BusRedis:
		bridge, err := eventbus.NewRedisBridge(eventbus.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
			NodeID:   s.cfg.InstanceID,
		}, s.bus, s.logger)
		if err != nil {
			return fmt.Errorf("redis event bridge: %w", err)
		}
		s.publisher = bridge
		s.DeferClose(bridge.Close)
	case config.BusNATS:
		bridge, err := eventbus.NewNATSBridge(eventbus.NATSConfig{
			URL:    s.cfg.NATSURL,
			NodeID: s.cfg.InstanceID,
		}, s.bus, s.logger)
		if err != nil {
			return fmt.Errorf("nats event bridge: %w", err)
		}
		s.publisher = bridge
		s.DeferClose(bridge.Close)
	default:
		s.publisher = s.bus
	}

	pluginMgr := plugins.NewManager(
		s.cfg.PluginDir,
		s.cfg.PluginRefreshInterval,
		s.cfg.PluginInvokeTimeout,
		s.logger,
	)

	store := dispatch.NewStore(database, s.logger)
	s.dispatcher = dispatch.NewService(
		store,
		store,
		dispatch.TextRenderer{},
		pluginMgr,
		s.bus,
		dispatch.Options{
			Sandbox: dispatch.Sandbox{
				Dirs:                s.cfg.ScriptDirs,
				RequireExec:         s.cfg.ScriptRequireExec,
				RejectWorldWritable: s.cfg.ScriptRejectWorldWritable,
			},
			ScriptTimeout:   s.cfg.ScriptTimeout,
			ScriptMaxOutput: s.cfg.ScriptMaxOutputBytes,
			WebhookTimeout:  s.cfg.WebhookTimeout,
		},
		s.logger,
	)

	integrationSvc := integrations.NewService(database, s.logger)
	s.api = api.New(database, integrationSvc, s.dispatcher, s.logger)

	return nil
}

// Publisher exposes the event publisher for platform components.
func (s *Server) Publisher() Publisher {
	return s.publisher
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.dispatcher.Start(ctx)
	}()
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()
}

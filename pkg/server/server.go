/*
Copyright 2015 All rights reserved.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package server

import (
	"context"
	"fmt"
	"io"
	httplog "log"
	"net/http"
	"os"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gatewarden/gatewarden/pkg/apperrors"
	"github.com/gatewarden/gatewarden/pkg/config"
	"github.com/gatewarden/gatewarden/pkg/constant"
	"github.com/gatewarden/gatewarden/pkg/metrics"
	"github.com/gatewarden/gatewarden/pkg/providers"
	"github.com/gatewarden/gatewarden/pkg/registry"
	"github.com/gatewarden/gatewarden/pkg/storage"
	"github.com/gatewarden/gatewarden/pkg/utils"
)

func init() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	prometheus.MustRegister(metrics.DecisionMetric)
	prometheus.MustRegister(metrics.EvaluationLatencyMetric)
	prometheus.MustRegister(metrics.LatencyMetric)
	prometheus.MustRegister(metrics.StatusMetric)
	prometheus.MustRegister(metrics.CacheMetric)
}

// Gate is the authorization gate service. It answers auth sub-requests from a
// fronting proxy: the verdict of the configured provider chain for the request
// path is mapped onto the http response, 2xx meaning let it through.
type Gate struct {
	Config    *config.Config
	Log       *zap.Logger
	Providers *registry.Registry
	Scopes    *config.ScopeIndex
	Store     storage.Storage

	Router      chi.Router
	adminRouter chi.Router

	Server      *http.Server
	adminServer *http.Server

	metricsHandler http.Handler
	stop           chan struct{}
}

// NewGate assembles the service from configuration: logger, providers,
// scope index, decision store and the http routers.
func NewGate(cfg *config.Config, log *zap.Logger) (*Gate, error) {
	var err error
	if log == nil {
		log, err = createLogger(cfg)
		if err != nil {
			return nil, err
		}
	}

	if err = cfg.Update(); err != nil {
		return nil, err
	}

	if err = cfg.IsValid(); err != nil {
		return nil, err
	}

	log.Info(
		"starting the service",
		zap.String("prog", constant.Prog),
		zap.String("version", GetVersion()),
	)

	svc := &Gate{
		Config:         cfg,
		Log:            log,
		Providers:      registry.New(),
		metricsHandler: promhttp.Handler(),
		stop:           make(chan struct{}),
	}

	// initialize the decision store if any
	if cfg.StoreURL != "" {
		if svc.Store, err = storage.CreateStorage(cfg.StoreURL); err != nil {
			return nil, err
		}
		log.Info(
			"enabled the decision cache",
			zap.Duration("ttl", cfg.DecisionCacheTTL),
		)
	}

	err = providers.Register(svc.Providers, log, providers.Options{
		GroupFile:      cfg.GroupFile,
		WatchGroupFile: cfg.WatchGroupFile,
		RegoPolicyFile: cfg.RegoPolicyFile,
		OpaAuthzURI:    cfg.OpaAuthzURI,
		OpaTimeout:     cfg.OpaTimeout,
		ProbeOpa:       cfg.ProbeOpa,
	}, svc.stop)
	if err != nil {
		return nil, err
	}

	// resolve the scope tree against the registered providers, a config
	// naming an unknown provider fails here rather than on the first request
	if svc.Scopes, err = config.BuildScopeIndex(cfg.Scopes, svc.Providers); err != nil {
		return nil, err
	}

	for _, entry := range svc.Scopes.Entries() {
		log.Info(
			"protecting scope",
			zap.String("uri", entry.URI),
			zap.Int("chain_length", entry.Chain.Len()),
		)
	}

	svc.createRouters()

	return svc, nil
}

// createLogger is responsible for creating the service logger
func createLogger(cfg *config.Config) (*zap.Logger, error) {
	httplog.SetOutput(io.Discard) // disable the http logger

	if cfg.DisableAllLogging {
		return zap.NewNop(), nil
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.DisableStacktrace = true
	zapConfig.DisableCaller = true
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// are we enabling json logging?
	if !cfg.EnableJSONLogging {
		zapConfig.Encoding = "console"
	}

	// are we running verbose mode?
	if cfg.Verbose {
		httplog.SetOutput(os.Stderr)
		zapConfig.DisableCaller = false
		zapConfig.Development = true
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return zapConfig.Build()
}

// useDefaultStack sets the default middleware stack for the router
func (r *Gate) useDefaultStack(engine chi.Router) {
	engine.MethodNotAllowed(emptyHandler)
	engine.NotFound(emptyHandler)

	engine.Use(methodCheckMiddleware(r.Log))
	engine.Use(middleware.Recoverer)

	// @check if the request tracking id middleware is enabled
	if r.Config.EnableRequestID {
		r.Log.Info("enabled the correlation request id middleware")
		engine.Use(requestIDMiddleware(utils.DefaultTo(r.Config.RequestIDHeader, "X-Request-ID")))
	}

	engine.Use(entrypointMiddleware(r.Log))

	if r.Config.EnableLogging {
		engine.Use(loggingMiddleware(r.Log, r.Config.Verbose))
	}

	if r.Config.EnableSecurityFilter {
		engine.Use(securityMiddleware(
			r.Log,
			r.Config.Hostnames,
			r.Config.BrowserXSSFilter,
			r.Config.ContentSecurityPolicy,
			r.Config.ContentTypeNosniff,
			r.Config.FrameDeny,
		))
	}
}

func (r *Gate) createRouters() {
	engine := chi.NewRouter()
	r.useDefaultStack(engine)

	// @step: configure CORS middleware
	if len(r.Config.CorsOrigins) > 0 {
		corsHandler := cors.New(cors.Options{
			AllowedOrigins: r.Config.CorsOrigins,
			AllowedMethods: r.Config.CorsMethods,
			AllowedHeaders: r.Config.CorsHeaders,
			MaxAge:         int(r.Config.CorsMaxAge.Seconds()),
			Debug:          r.Config.Verbose,
		})
		engine.Use(corsHandler.Handler)
	}

	// step: define the admin endpoints: health and metrics
	r.Log.Info("enabled health service", zap.String("path", constant.HealthURL))
	if r.Config.EnableMetrics {
		r.Log.Info("enabled the service metrics", zap.String("path", constant.MetricsURL))
	}

	if r.Config.ListenAdmin == "" {
		engine.Get(constant.HealthURL, healthHandler)
		if r.Config.EnableMetrics {
			engine.Get(constant.MetricsURL, r.metricsHandler.ServeHTTP)
		}
	} else {
		r.Log.Info("mounting admin endpoints on separate listener")

		adminEngine := chi.NewRouter()
		adminEngine.MethodNotAllowed(emptyHandler)
		adminEngine.NotFound(emptyHandler)
		adminEngine.Use(middleware.Recoverer)
		adminEngine.Get(constant.HealthURL, healthHandler)
		if r.Config.EnableMetrics {
			adminEngine.Get(constant.MetricsURL, r.metricsHandler.ServeHTTP)
		}
		r.adminRouter = adminEngine
	}

	// every remaining path is an auth sub-request; the decision is made in
	// the middleware chain and a granted request falls through to the
	// allowed handler
	engine.With(
		identityMiddleware(r.Log),
		authorizationMiddleware(
			r.Log,
			r.Scopes,
			r.Providers,
			r.Store,
			r.Config.DecisionCacheTTL,
			r.Config.Realm,
		),
	).HandleFunc(constant.AllPath, allowedHandler)

	r.Router = engine
}

// Run starts the gate service
func (r *Gate) Run() error {
	server := &http.Server{
		Addr:         r.Config.Listen,
		Handler:      r.Router,
		ReadTimeout:  r.Config.ServerReadTimeout,
		WriteTimeout: r.Config.ServerWriteTimeout,
		IdleTimeout:  r.Config.ServerIdleTimeout,
	}
	r.Server = server

	go func() {
		r.Log.Info(
			"gatewarden service starting",
			zap.String("interface", r.Config.Listen),
		)

		if err := server.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				r.Log.Fatal(apperrors.ErrStartMainHTTP.Error(), zap.Error(err))
			}
		}
	}()

	// step: are we running an admin service as well?
	// if not, admin endpoints were added as routes in the main service
	if r.Config.ListenAdmin != "" {
		r.Log.Info(
			"gatewarden admin service starting",
			zap.String("interface", r.Config.ListenAdmin),
		)

		adminServer := &http.Server{
			Addr:         r.Config.ListenAdmin,
			Handler:      r.adminRouter,
			ReadTimeout:  r.Config.ServerReadTimeout,
			WriteTimeout: r.Config.ServerWriteTimeout,
			IdleTimeout:  r.Config.ServerIdleTimeout,
		}
		r.adminServer = adminServer

		go func() {
			if err := adminServer.ListenAndServe(); err != nil {
				if err != http.ErrServerClosed {
					r.Log.Fatal(apperrors.ErrStartAdminHTTP.Error(), zap.Error(err))
				}
			}
		}()
	}

	return nil
}

// Shutdown stops the listeners, releases the watchers and closes the
// decision store.
func (r *Gate) Shutdown(ctx context.Context) error {
	close(r.stop)

	var result error
	if r.Server != nil {
		if err := r.Server.Shutdown(ctx); err != nil {
			result = err
		}
	}
	if r.adminServer != nil {
		if err := r.adminServer.Shutdown(ctx); err != nil && result == nil {
			result = err
		}
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil && result == nil {
			result = fmt.Errorf("closing the decision store: %w", err)
		}
	}

	return result
}

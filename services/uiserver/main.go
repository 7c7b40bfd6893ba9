// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/AleutianAI/wheelhouse/pkg/logging"
	"github.com/AleutianAI/wheelhouse/services/uiserver/config"
	"github.com/AleutianAI/wheelhouse/services/uiserver/demoapp"
	"github.com/AleutianAI/wheelhouse/services/uiserver/observability"
	"github.com/AleutianAI/wheelhouse/services/uiserver/routes"
	"github.com/AleutianAI/wheelhouse/services/uiserver/session"
)

// initTracer sets up span export to stdout. The uiserver runs without a
// collector, so spans go to the process log where they can be picked up
// by whatever captures it.
func initTracer(ctx context.Context) (func(context.Context), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("uiserver")))
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown the trace provider", "error", err)
		}
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLog := logging.New(logging.Config{
		Level:   cfg.Log.LogLevel(),
		LogDir:  cfg.Log.Dir,
		Service: "uiserver",
		JSON:    cfg.Log.JSON,
	})
	defer appLog.Close()
	logger := appLog.Slog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Init the tracer ---
	if cfg.Trace.Enabled {
		cleanup, err := initTracer(ctx)
		if err != nil {
			log.Fatalf("failed to setup the trace exporter: %v", err)
		}
		defer cleanup(context.Background())
	}

	table, err := demoapp.BuildTable()
	if err != nil {
		log.Fatalf("failed to build the route table: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	mgr := session.NewManager(demoapp.Factory(table),
		session.WithLogger(logger),
		session.WithIdleTimeout(time.Duration(cfg.Session.IdleTimeoutSec)*time.Second),
		session.WithReapInterval(time.Duration(cfg.Session.ReapIntervalSec)*time.Second),
		session.WithMessageRate(cfg.Session.MessagesPerSec, cfg.Session.MessageBurst),
		session.WithEvictHook(func(*session.Session) {
			metrics.SessionsActive.Dec()
			metrics.SessionsEvictedTotal.Inc()
		}),
	)

	router := gin.Default()
	router.Use(otelgin.Middleware("uiserver"))
	routes.SetupRoutes(router, logger, mgr, table, metrics, reg)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting the uiserver", "addr", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := mgr.RunReaper(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down the uiserver")
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("uiserver exited with error: %v", err)
	}
	logger.Info("uiserver stopped")
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minthantsin/rtsp-hls-gateway/config"
	"github.com/minthantsin/rtsp-hls-gateway/handlers"
	"github.com/minthantsin/rtsp-hls-gateway/log"
	"github.com/minthantsin/rtsp-hls-gateway/middleware"
	"github.com/minthantsin/rtsp-hls-gateway/stream"
)

func ListenAndServe(ctx context.Context, cli config.Cli, registry *stream.Registry, driver *stream.Driver) error {
	router := NewGatewayRouter(cli, registry, driver)
	server := http.Server{Addr: cli.HTTPAddress, Handler: router}
	ctx, cancel := context.WithCancel(ctx)

	log.LogNoStreamID(
		"Starting RTSP-HLS gateway!",
		"version", config.Version,
		"host", cli.HTTPAddress,
		"transcode_dir", cli.TranscodeDir,
	)

	var err error
	go func() {
		err = server.ListenAndServe()
		cancel()
	}()

	<-ctx.Done()
	if err != nil {
		return err
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func NewGatewayRouter(cli config.Cli, registry *stream.Registry, driver *stream.Driver) *httprouter.Router {
	router := httprouter.New()
	withLogging := middleware.LogRequest(config.Logger)
	withCORS := middleware.AllowCORS()

	gatewayHandlers := &handlers.GatewayHandlersCollection{
		Registry:             registry,
		Driver:               driver,
		SelfDestructDuration: cli.SelfDestructDuration,
		SegmentMaxGap:        cli.SegmentMaxGap,
		StrictStatus:         cli.StrictStatus,
	}

	// Simple endpoint for healthchecks
	router.GET("/ok", withLogging(gatewayHandlers.Ok()))
	router.Handler("GET", "/metrics", promhttp.Handler())

	router.GET("/watch.m3u8",
		withLogging(
			withCORS(
				middleware.HasStreamCapacity(
					registry,
					cli.StrictStatus,
					gatewayHandlers.Watch(),
				),
			),
		),
	)

	router.GET("/segment.ts",
		withLogging(
			withCORS(
				gatewayHandlers.Segment(),
			),
		),
	)

	router.GlobalOPTIONS = middleware.PreflightHandler()

	return router
}

// Local HTTP listener for prometheus scrapes and health probes
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"logpush/internal/global"
	"logpush/internal/logctx"
	"net/http"
	"strings"
)

// Builds the metric HTTP server. Does not bind; see Start.
func SetupListener(ctx context.Context, address string, routes Routes) (server *http.Server, err error) {
	if routes.Metrics == nil {
		err = fmt.Errorf("no metric handler provided")
		return
	}
	if address == "" {
		address = global.HTTPListenAddr
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+global.HTTPMetricsPath, routes.Metrics)
	if routes.Health != nil {
		mux.HandleFunc("GET "+global.HTTPHealthPath, healthHandler(routes.Health))
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "%s %s\n", global.ProgBaseName, global.ProgVersion)
		fmt.Fprintf(w, "metrics: %s\n", global.HTTPMetricsPath)
		if routes.Health != nil {
			fmt.Fprintf(w, "health: %s\n", global.HTTPHealthPath)
		}
	})

	server = &http.Server{
		Addr:         address,
		Handler:      mux,
		ReadTimeout:  global.HTTPReadTimeout,
		WriteTimeout: global.HTTPWriteTimeout,
		IdleTimeout:  global.HTTPIdleTimeout,
		ErrorLog:     log.New(errorSink{ctx: ctx}, "", 0),
	}
	return
}

// 200 "ok" or 503 with the check error
func healthHandler(check HealthCheck) (handler http.HandlerFunc) {
	handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		err := check()
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "unhealthy: %v\n", err)
			return
		}
		fmt.Fprintln(w, "ok")
	}
	return
}

// Binds and serves until the server is shut down
func Start(ctx context.Context, server *http.Server) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"Serving metrics on http://%s%s\n", server.Addr, global.HTTPMetricsPath)

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "metric server stopped: %v\n", err)
	}
}

func (sink errorSink) Write(p []byte) (n int, err error) {
	n = len(p)
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return
	}
	logctx.LogEvent(sink.ctx, global.VerbosityProgress, global.WarnLog, "%s\n", msg)
	return
}

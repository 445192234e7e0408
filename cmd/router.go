package main

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/llm-gateway/internal/handler"
)

func setupRouter(a *app, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", a.prom.Handler())
	mux.HandleFunc("/stats", a.collector.Handler())
	mux.Handle("/health", handler.NewHealthHandler(a.monitor, a.gateway.Breakers(), a.gateway))

	return handler.Logging(log, mux)
}

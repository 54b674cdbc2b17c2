package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"messagebridge/config"
	"messagebridge/logger"
	"messagebridge/proxy"
)

func main() {
	fmt.Println(GetBuildInfo())
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	obsLogger := logger.New()
	obsLogger.Info(logger.ComponentProxy, logger.CategoryRequest, "", "configuration loaded", map[string]interface{}{
		"openai_base_url": cfg.OpenAIBaseURL,
		"haiku_model":     cfg.HaikuModel,
		"listen":          cfg.Listen,
	})

	if cfg.WatchOverrides {
		err := config.WatchOverrides(cfg.ToolDescriptionsPath, cfg.SystemOverridesPath, func(overrides *config.Overrides, err error) {
			if err != nil {
				obsLogger.Warn(logger.ComponentConfig, logger.CategoryError, "", "failed to reload overrides", map[string]interface{}{"error": err.Error()})
				return
			}
			cfg.SetOverrides(overrides)
			obsLogger.Info(logger.ComponentConfig, logger.CategoryRequest, "", "reloaded tool/system overrides", nil)
		})
		if err != nil {
			obsLogger.Warn(logger.ComponentConfig, logger.CategoryError, "", "failed to start overrides watcher", map[string]interface{}{"error": err.Error()})
		}
	}

	proxyHandler := proxy.NewHandler(cfg, obsLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/v1/messages", proxyHandler.HandleMessages)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	obsLogger.Info(logger.ComponentProxy, logger.CategoryRequest, "", "starting server", map[string]interface{}{
		"address":  cfg.Listen,
		"endpoint": cfg.Listen + "/v1/messages",
	})

	if err := server.ListenAndServe(); err != nil {
		obsLogger.Error(logger.ComponentProxy, logger.CategoryError, "", "server failed to start", map[string]interface{}{"error": err.Error()})
		log.Fatalf("server failed to start: %v", err)
	}
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{
	"service": "messagebridge",
	"version": "%s",
	"status": "running",
	"endpoints": [
		"GET /health - health check",
		"POST /v1/messages - Anthropic Messages API, proxied to an OpenAI-compatible upstream",
		"GET /metrics - Prometheus metrics"
	]
}`, GetVersionInfo())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{
	"status": "ok",
	"timestamp": "%s"
}`, time.Now().UTC().Format(time.RFC3339))
}

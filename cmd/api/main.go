package main

import (
	"net/http"
	"os"

	"go.uber.org/zap"

	"rental_valuation/pkg/api/analyze"
	apiconfig "rental_valuation/pkg/api/config"
	"rental_valuation/pkg/api/registry"
	"rental_valuation/pkg/api/resolve"
	"rental_valuation/pkg/core/config"
	"rental_valuation/pkg/core/geo"
	"rental_valuation/pkg/core/logger"
	"rental_valuation/pkg/core/pipeline"
)

func main() {
	// Bootstrap logger so config warnings are visible; re-initialised below
	// once LOG_LEVEL from .env is known.
	if _, err := logger.Init(os.Getenv("LOG_LEVEL")); err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("failed to load configuration", zap.Error(err))
	}
	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		zap.L().Fatal("failed to init logger", zap.Error(err))
	}
	defer log.Sync()

	if cfg.ModelEnabled && cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY is not set; model requests will fail with a configuration error")
	}

	c := pipeline.FromConfig(cfg)
	orch := pipeline.NewOrchestrator(c.Sources)
	sessions := pipeline.NewSessions(orch)

	var known geo.Known
	if c.Mock != nil {
		known = c.Mock
	}

	mux := http.NewServeMux()

	// Full pipeline
	resolveHandler := resolve.NewHandler(sessions, geo.NewLocator(known))
	mux.HandleFunc("/resolve", resolveHandler.HandleResolve)

	// Single-source endpoints
	analyzeHandler := analyze.NewHandler(c.Analyzer)
	mux.HandleFunc("/analyze", analyzeHandler.HandleAnalyze)

	registryHandler := registry.NewHandler(c.Registry, c.Extractor)
	mux.HandleFunc("/registry/search", registryHandler.HandleSearch)
	mux.HandleFunc("/registry/document", registryHandler.HandleDocument)

	mockOn, registryOn, modelOn := orch.Enabled()
	configHandler := apiconfig.NewHandler(apiconfig.Response{
		MockEnabled:     mockOn,
		RegistryEnabled: registryOn,
		ModelEnabled:    modelOn,
		Models:          c.Models.Models(),
		RegistryKeySet:  cfg.EdinetAPIKey != "",
		ModelKeySet:     cfg.GeminiAPIKey != "",
	})
	mux.HandleFunc("/config", configHandler.HandleConfig)

	addr := ":" + cfg.Port
	log.Info("API server starting",
		zap.String("addr", addr),
		zap.Bool("mock", mockOn),
		zap.Bool("registry", registryOn),
		zap.Bool("model", modelOn),
		zap.Strings("routes", []string{
			"POST /resolve",
			"POST /analyze",
			"GET  /registry/search",
			"GET  /registry/document",
			"GET  /config",
		}))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

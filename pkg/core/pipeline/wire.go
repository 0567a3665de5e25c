package pipeline

import (
	"rental_valuation/pkg/core/aiextract"
	"rental_valuation/pkg/core/config"
	"rental_valuation/pkg/core/edinet"
	"rental_valuation/pkg/core/extract"
	"rental_valuation/pkg/core/llm"
	"rental_valuation/pkg/core/mock"
)

// Components are the configured collaborators, exposed so the HTTP layer can
// serve the single-source endpoints from the same instances.
type Components struct {
	Mock      *mock.Table // nil when disabled
	Registry  *edinet.Client
	Extractor *extract.Extractor
	Models    *llm.FallbackRunner
	Analyzer  *aiextract.Client
	Sources   Sources
}

// FromConfig builds every component. The registry client and the model client
// are always constructed so their endpoints work; the enable flags only
// decide which ones the orchestrator consults.
func FromConfig(cfg *config.AppConfig) *Components {
	c := &Components{
		Registry:  edinet.NewClient(cfg.EdinetBase, cfg.EdinetAPIKey, cfg.RegistryTimeout),
		Extractor: extract.New(),
		Models: llm.NewFallbackRunner(
			llm.NewGeminiProvider(cfg.GeminiAPIKey),
			cfg.Models.Models,
			cfg.Models.AttemptsPerModel,
			cfg.Models.Step(),
			cfg.ModelTimeout,
		),
	}
	c.Analyzer = aiextract.NewClient(c.Models)

	if cfg.MockEnabled {
		c.Mock = mock.Default()
		c.Sources.Mock = c.Mock
	}
	if cfg.RegistryEnabled {
		c.Sources.Registry = c.Registry
		c.Sources.Extractor = c.Extractor
	}
	if cfg.ModelEnabled {
		c.Sources.Analyzer = c.Analyzer
	}
	return c
}

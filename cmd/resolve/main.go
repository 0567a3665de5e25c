// Command resolve runs the resolution pipeline once and prints the result
// as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"rental_valuation/pkg/core/config"
	"rental_valuation/pkg/core/logger"
	"rental_valuation/pkg/core/pipeline"
)

func main() {
	noMock := flag.Bool("no-mock", false, "skip the demo table")
	noRegistry := flag.Bool("no-registry", false, "skip the EDINET registry")
	noModel := flag.Bool("no-model", false, "skip the generative model")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: resolve [flags] <company name>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	name := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if name == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr; stdout carries only the JSON result.
	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg.MockEnabled = cfg.MockEnabled && !*noMock
	cfg.RegistryEnabled = cfg.RegistryEnabled && !*noRegistry
	cfg.ModelEnabled = cfg.ModelEnabled && !*noModel

	orch := pipeline.NewOrchestrator(pipeline.FromConfig(cfg).Sources)
	res := orch.Resolve(context.Background(), name)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatal("encode failed", zap.Error(err))
	}
	if res.State == pipeline.StateError {
		os.Exit(1)
	}
}

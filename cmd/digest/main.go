// Command digest runs a single pipeline stage and exits. Intended for
// cron-less deployments and manual runs:
//
//	digest collect    fetch feeds and store new items
//	digest process    filter, score and summarize pending items
//	digest generate   assemble and archive today's report
//	digest all        run the three stages in order
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/newsbrief-ai/newsbrief/internal/config"
	"github.com/newsbrief-ai/newsbrief/internal/logger"
	"github.com/newsbrief-ai/newsbrief/internal/pipeline"
	"github.com/newsbrief-ai/newsbrief/internal/store"
)

const runTimeout = 30 * time.Minute

func main() {
	if len(os.Args) != 2 {
		usage()
		os.Exit(2)
	}
	stage := os.Args[1]
	switch stage {
	case "collect", "process", "generate", "all":
	default:
		usage()
		os.Exit(2)
	}

	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: "stdout",
		Pretty: cfg.LogPretty,
	}); err != nil {
		panic(err)
	}
	log := logger.Get()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	p, cleanup, err := pipeline.Bootstrap(ctx, cfg, st)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline")
	}
	defer cleanup()

	var result any
	switch stage {
	case "collect":
		result, err = p.RunCollect(ctx)
	case "process":
		result, err = p.RunProcess(ctx)
	case "generate":
		result, err = p.RunGenerate(ctx)
	case "all":
		result, err = p.RunAll(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Str("stage", stage).Msg("Run failed")
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: digest <collect|process|generate|all>")
}

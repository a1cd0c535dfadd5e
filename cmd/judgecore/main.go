// Command judgecore runs the online-judge micro-service core: code
// execution dispatch, debounced code autosave, and session/auth
// gatekeeping.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/judgecore/judgecore/internal/app"
	"github.com/judgecore/judgecore/internal/config"
)

func main() {
	mode := flag.String("mode", "", "run mode: api or listener (overrides JUDGECORE_MODE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("judgecore exited: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"ability-engine/internal/app"
)

func main() {
	var cfg app.Config
	flag.StringVar(&cfg.ConfigPath, "config", "config.yml", "path to the server configuration")
	flag.BoolVar(&cfg.EnablePprof, "pprof", false, "expose /debug/pprof endpoints")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

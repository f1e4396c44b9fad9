package main

import (
	"github.com/carrelhq/carrel/internal/config"
	"github.com/carrelhq/carrel/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	cfg := config.NewConfig()
	entrypoint.Run(cfg, Version)
}

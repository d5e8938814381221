package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/trogers1052/ats/internal/apiclient"
	"github.com/trogers1052/ats/internal/cli"
	"github.com/trogers1052/ats/internal/config"
)

func main() {
	config.LoadEnvFile()
	cfg := config.LoadClient()

	// The terminal is for command output; only warnings are logged unless asked for
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}
	config.SetupLogging(cfg.Log)
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.New(cfg, os.Stdin, os.Stdout, log.StandardLogger()).Command()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", apiclient.Message(err))
		stop()
		os.Exit(1)
	}
}

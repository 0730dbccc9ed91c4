// Command qmsetup provisions an archive account on the multi-value server:
// the account files, their dictionaries and the server-side programs.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/emailorg/mvmail/internal/config"
	"github.com/emailorg/mvmail/internal/logging"
	"github.com/emailorg/mvmail/internal/qm"
)

// printExecutor writes each command to w instead of running it.
type printExecutor struct {
	w io.Writer
}

func (p printExecutor) Execute(_ context.Context, command string) (string, error) {
	fmt.Fprintln(p.w, command)
	return "OK", nil
}

func main() {
	configPath := flag.String("config", "config.json", "path to the configuration file")
	dryRun := flag.Bool("dry-run", false, "print the provisioning commands instead of running them")
	flag.Parse()

	ctx := context.Background()

	if *dryRun {
		if err := Run(ctx, printExecutor{w: os.Stdout}, logging.New("warn", os.Stderr)); err != nil {
			log.Fatalf("Dry run failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)

	mgr := qm.NewManager(cfg, logger)
	if err := mgr.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to server: %v", err)
	}
	defer mgr.Close()

	if err := Run(ctx, mgr, logger); err != nil {
		log.Fatalf("Provisioning failed: %v", err)
	}
}

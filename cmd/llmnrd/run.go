package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dcoker/llmnrd/internal/config"
	"github.com/dcoker/llmnrd/internal/daemon"
	"github.com/dcoker/llmnrd/internal/logging"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.Hostname = flagHostname
	cfg.InterruptSignal = flagSignal
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(cfg.LogIdentifier)

	d, err := daemon.New(cfg, log)
	if err != nil {
		log.Critf("startup failed: %v", err)
		return err
	}
	defer func() {
		if err := d.Shutdown(); err != nil {
			log.Errf("shutdown: %v", err)
		}
	}()

	if flagDebugState {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.Refresh(ctx); err != nil {
			log.Critf("refresh failed: %v", err)
			return err
		}
		fmt.Fprintf(os.Stdout, "%d interface(s) with at least one configured address\n", d.InterfaceCount())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Noticef("llmnrd starting")
	if err := d.Start(ctx); err != nil {
		log.Critf("run failed: %v", err)
		return err
	}
	log.Noticef("llmnrd stopped")
	return nil
}

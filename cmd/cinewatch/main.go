// Package main provides the entry point for the CineWatch server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/cinewatch/cinewatch/internal/di"
	"github.com/cinewatch/cinewatch/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The container shuts dependents down before their dependencies: HTTP
	// server, state store (pending writes drain), then the databases.
	if err := injector.Shutdown(); err != nil {
		log.WithError(err).Fatal("Shutdown error")
	}

	log.Info("Goodbye")
}

// Package main runs the document server that clients use as their remote
// store.
//
// Usage:
//
//	api [global flags] [serve]
//	api [global flags] token -scope alice
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/auth"
	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/di"
	"github.com/icberg-810202/tilecatread/internal/logger"
)

func main() {
	cfg, args, err := config.Load("api", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		serve(cfg)
	case "token":
		if err := mintToken(cfg, args); err != nil {
			fmt.Fprintf(os.Stderr, "token: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want serve or token)\n", cmd)
		os.Exit(2)
	}
}

func serve(cfg *config.Config) {
	injector := di.NewServerContainer(cfg, os.Stdout)

	if err := di.BootstrapServer(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The container stops the listener before closing the store.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Server stopped")
}

func mintToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	scope := fs.String("scope", "", "Username the token may access, or * for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scope == "" {
		return fmt.Errorf("-scope is required")
	}

	key, err := auth.LoadOrGenerateKey(cfg.Server.KeyPath)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(key, cfg.Server.TokenTTL)
	if err != nil {
		return err
	}
	token, err := tokens.Issue(*scope)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

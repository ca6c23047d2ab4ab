// Command chatcore runs the conversational-AI gateway core: load a
// declarative config, build its registries and cascade, and either serve
// it over HTTP, validate it, or drive it from a local REPL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, logLevel string

	root := &cobra.Command{
		Use:           "chatcore",
		Short:         "Chat orchestration core for a conversational-AI gateway",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "chatcore.yaml", "path to the configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "console log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(&configPath, &logLevel))
	root.AddCommand(newValidateCmd(&configPath))
	root.AddCommand(newChatCmd(&configPath, &logLevel))
	return root
}

// loadConfig loads .env files, then reads and validates the document at
// path, returning the ready-to-use snapshot and its Loader (for hot
// reload callers). On success the Loader is never nil; callers own it
// and close it.
func loadConfig(path string) (*config.Config, *config.Loader, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return nil, nil, fmt.Errorf("loading .env files: %w", err)
	}
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

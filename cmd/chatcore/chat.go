package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Billhebert/chatIAS-sub000/internal/app"
	"github.com/Billhebert/chatIAS-sub000/internal/logging"
	"github.com/Billhebert/chatIAS-sub000/internal/orchestrator"
)

func newChatCmd(configPath, logLevel *string) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session against the orchestrator, bypassing HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("%s: %w", *configPath, err)
			}
			defer loader.Close()

			logger := logging.New(logging.WithMinLevel(parseLevel(*logLevel)))
			ctx, err := app.Build(cfg, logger)
			if err != nil {
				return fmt.Errorf("building runtime: %w", err)
			}

			if sessionID == "" {
				sessionID = "cli-session"
			}
			return runDirectChat(cmd.Context(), ctx.Orchestrator, sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to carry history under (default: a new session each run)")
	return cmd
}

// runDirectChat drives a REPL over stdin/stdout, skipping the HTTP
// transport entirely — useful for local testing of a config without a
// running server.
func runDirectChat(ctx context.Context, orch *orchestrator.Orchestrator, sessionID string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Chat ready. Type a message, or /clear to reset history, or /quit to exit.")
	for {
		fmt.Print("you> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		resp := orch.Handle(ctx, orchestrator.ChatRequest{MessageText: line, SessionID: sessionID})
		if !resp.OK {
			fmt.Printf("error [%s]: %s\n", resp.Error.Kind, resp.Error.Message)
			continue
		}
		fmt.Printf("core> %s\n", resp.Text)
	}
}

func parseLevel(s string) logging.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

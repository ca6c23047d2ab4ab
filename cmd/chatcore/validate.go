package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newValidateCmd(configPath *string) *cobra.Command {
	var printConfig bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("%s: %w", *configPath, err)
			}
			defer loader.Close()

			if printConfig {
				out, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("marshaling expanded config: %w", err)
				}
				fmt.Println(string(out))
			}

			fmt.Printf("%s: valid (%d provider(s), %d tool(s), %d agent(s), %d tool sequence(s), %d knowledge base(s))\n",
				*configPath, len(cfg.Providers), len(cfg.Tools), len(cfg.Agents), len(cfg.ToolSequences), len(cfg.KnowledgeBases))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&printConfig, "print-config", "p", false, "print the expanded configuration (defaults applied, env vars resolved)")
	return cmd
}

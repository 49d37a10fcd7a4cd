package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scenekit/internal/config"
	"scenekit/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		yamlOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "scenekit",
		Short:         "Scenekit resolves 3D assets and keeps scene records available offline",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			if yamlOutput {
				outputFormatter = format.YAMLFormatter{}
				jsonOutput = true
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&yamlOutput, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newListCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newCreateCmd(cfg, &jsonOutput),
		newUpdateCmd(cfg, &jsonOutput),
		newDeleteCmd(cfg),
		newResolveCmd(cfg, &jsonOutput),
		newNormalizeCmd(cfg, &jsonOutput),
		newTypesCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newLedgerCmd(cfg, &jsonOutput),
		newVaultCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
		newTokenCmd(),
	)

	return cmd
}

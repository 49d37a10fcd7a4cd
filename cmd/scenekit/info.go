package main

import (
	"github.com/spf13/cobra"

	"scenekit/internal/api"
	"scenekit/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server, ledger and vault info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeStructured(resp)
				}

				_ = writePlain("version: %s\n", resp.Version)
				_ = writePlain("session: %s\n", resp.Session)
				_ = writePlain("db_path: %s\n", resp.DBPath)
				if resp.RemoteURL != "" {
					_ = writePlain("remote_url: %s\n", resp.RemoteURL)
				}
				if resp.SnapshotPath != "" {
					_ = writePlain("snapshot: %s\n", resp.SnapshotPath)
				}
				_ = writePlain("ledger_entries: %d\n", resp.LedgerCount)
				_ = writePlain("vault_enabled: %t\n", resp.VaultEnabled)
				_ = writePlain("backends: %d\n", resp.Backends)
				return writePlain("auth_required: %t\n", resp.AuthRequired)
			})
		},
	}
}

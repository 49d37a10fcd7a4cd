package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"scenekit/internal/api"
	"scenekit/internal/config"
)

func newLedgerCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Manage the local override ledger",
	}
	cmd.AddCommand(newLedgerClearCmd(cfg, jsonOutput))
	return cmd
}

func newLedgerClearCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every local override (requires --yes)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errConfirmRequired("ledger clear")
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ClearLedger(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeStructured(resp)
				}
				return writePlain("cleared %d override(s)\n", resp.Cleared)
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the ledger")
	return cmd
}

func newVaultCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage locally stored model files",
	}
	cmd.AddCommand(newVaultGCCmd(cfg, jsonOutput))
	return cmd
}

func newVaultGCCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Report blobs no record references; --apply deletes them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.VaultGC(cmd.Context(), apply)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeStructured(resp)
				}
				for _, blob := range resp.Orphans {
					if err := writePlain("%s\t%s\t%s\n", blob.ID, formatBytes(blob.SizeBytes), humanize.Time(blob.CreatedAt)); err != nil {
						return err
					}
				}
				verb := "would reclaim"
				if resp.Applied {
					verb = "reclaimed"
				}
				return writePlain("%d orphan(s), %s %s\n", len(resp.Orphans), verb, formatBytes(resp.ReclaimedBytes))
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "delete orphaned blobs")
	return cmd
}

func errConfirmRequired(action string) error {
	return fmt.Errorf("%s drops local data; rerun with --yes", action)
}

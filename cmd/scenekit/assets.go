package main

import (
	"github.com/spf13/cobra"

	"scenekit/internal/api"
	"scenekit/internal/config"
	"scenekit/internal/models"
)

func newResolveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		kind    string
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve an asset name to a loadable URL",
		Args:  requireOneName,
		RunE: func(cmd *cobra.Command, args []string) error {
			assetKind, err := models.ParseAssetKind(kind)
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Resolve(cmd.Context(), args[0], assetKind, explain)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeStructured(resp)
				}
				if err := writePlain("%s\t(%s)\n", resp.URL, resp.Source); err != nil {
					return err
				}
				for i, c := range resp.Candidates {
					if err := writePlain("  %2d %-8s %-18s %s\n", i+1, c.Backend.Tier, c.Backend.ID, c.URL); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(models.KindModel), "asset kind (model or texture)")
	cmd.Flags().BoolVar(&explain, "explain", false, "list the candidates in probe order")
	return cmd
}

type normalizeOutput struct {
	Input       string   `json:"input" yaml:"input"`
	Canonical   string   `json:"canonical" yaml:"canonical"`
	Names       []string `json:"names" yaml:"names"`
	Prioritized bool     `json:"prioritized" yaml:"prioritized"`
}

// newNormalizeCmd runs the name tables locally; it needs no server.
func newNormalizeCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <name>",
		Short: "Show the clean name and its fallback variants",
		Args:  requireOneName,
		RunE: func(cmd *cobra.Command, args []string) error {
			normalizer, err := loadNormalizer(cfg)
			if err != nil {
				return err
			}
			out := normalizeOutput{
				Input:       args[0],
				Canonical:   normalizer.Canonical(args[0]),
				Names:       normalizer.Normalize(args[0]),
				Prioritized: normalizer.Prioritized(args[0]),
			}
			if *jsonOutput {
				return writeStructured(out)
			}
			for _, name := range out.Names {
				if err := writePlain("%s\n", name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newTypesCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List geometry types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				types, err := client.ListTypes(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeStructured(types)
				}
				for _, t := range types {
					if err := writePlain("%-12s %s\n", t.ID, t.Name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scenekit/internal/api"
	"scenekit/internal/config"
	"scenekit/internal/models"
)

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scene records (remote merged with local overrides)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				records, err := client.ListRecords(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeStructured(records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), "nothing to show: no remote, snapshot or local records")
					return nil
				}
				return writeRecordList(records)
			})
		},
	}
}

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one record",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				rec, err := client.GetRecord(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeStructured(rec)
				}
				return writeRecordDetail(rec)
			})
		},
	}
}

func newCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record, optionally uploading a model file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.RecordInput{Record: models.DefaultRecord()}
			if err := flags.apply(cmd, &in); err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				saved, err := client.CreateRecord(cmd.Context(), in)
				if err != nil {
					return err
				}
				return writeSaved(saved, *jsonOutput)
			})
		},
	}

	flags.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUpdateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a record; unset flags keep their current values",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				current, err := client.GetRecord(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				in := models.RecordInput{Record: current}
				if err := flags.apply(cmd, &in); err != nil {
					return err
				}
				saved, err := client.UpdateRecord(cmd.Context(), args[0], in)
				if err != nil {
					return err
				}
				return writeSaved(saved, *jsonOutput)
			})
		},
	}

	flags.bind(cmd)
	return cmd
}

func newDeleteCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record and its local override",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if err := client.DeleteRecord(cmd.Context(), args[0]); err != nil {
					return err
				}
				return writePlain("deleted %s\n", args[0])
			})
		},
	}
}

func writeSaved(rec models.GeometryRecord, structured bool) error {
	if structured {
		return writeStructured(rec)
	}
	return writePlain("%s\n", formatRecordLine(rec))
}

// recordFlags maps command-line flags onto a record. Only flags the user
// set are applied.
type recordFlags struct {
	name     string
	typ      string
	color    string
	position string
	rotation string
	scale    string
	hidden   bool
	modelURL string
	file     string
}

func (f *recordFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().StringVar(&f.typ, "type", "", "geometry type (see: scenekit types)")
	cmd.Flags().StringVar(&f.color, "color", "", "hex color, e.g. #ff8800")
	cmd.Flags().StringVar(&f.position, "position", "", "position as x,y,z")
	cmd.Flags().StringVar(&f.rotation, "rotation", "", "rotation as x,y,z")
	cmd.Flags().StringVar(&f.scale, "scale", "", "scale as x,y,z")
	cmd.Flags().BoolVar(&f.hidden, "hidden", false, "hide the record")
	cmd.Flags().StringVar(&f.modelURL, "model-url", "", "model URL or bare asset name")
	cmd.Flags().StringVar(&f.file, "file", "", "model file to upload")
}

func (f *recordFlags) apply(cmd *cobra.Command, in *models.RecordInput) error {
	changed := cmd.Flags().Changed
	rec := &in.Record

	if changed("name") {
		rec.Name = strings.TrimSpace(f.name)
	}
	if changed("type") {
		typ, err := models.ParseGeometryType(f.typ)
		if err != nil {
			return err
		}
		rec.Type = typ
	}
	if changed("color") {
		color := models.NormalizeColor(f.color)
		if color == "" {
			return fmt.Errorf("invalid color %q", f.color)
		}
		rec.Color = color
	}
	for _, v := range []struct {
		flag  string
		raw   string
		field *models.Vec3
	}{
		{"position", f.position, &rec.Position},
		{"rotation", f.rotation, &rec.Rotation},
		{"scale", f.scale, &rec.Scale},
	} {
		if !changed(v.flag) {
			continue
		}
		parsed, err := parseVec3(v.raw)
		if err != nil {
			return fmt.Errorf("--%s: %w", v.flag, err)
		}
		*v.field = parsed
	}
	if changed("hidden") {
		rec.Visible = !f.hidden
	}
	if changed("model-url") {
		rec.ModelURL = strings.TrimSpace(f.modelURL)
	}
	if changed("file") {
		content, err := os.ReadFile(f.file)
		if err != nil {
			return fmt.Errorf("read model file: %w", err)
		}
		if len(content) == 0 {
			return fmt.Errorf("model file %s is empty", f.file)
		}
		in.Content = content
		in.Filename = filepath.Base(f.file)
	}
	return nil
}

func parseVec3(raw string) (models.Vec3, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return models.Vec3{}, fmt.Errorf("expected x,y,z, got %q", raw)
	}
	var out [3]float64
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return models.Vec3{}, fmt.Errorf("invalid component %q", part)
		}
		out[i] = value
	}
	return models.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}
